package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/voluzi/gridpilot/internal/retry"
)

const (
	BackendKubectl = "kubectl"
	BackendAPI     = "api"
)

// Deploy holds every knob of the orchestrator. Zero values are never used directly; Default
// provides the baseline and Load overlays a file on top of it.
type Deploy struct {
	ChartPath     string `json:"chartPath" yaml:"chartPath" toml:"chartPath"`
	ReleaseName   string `json:"releaseName" yaml:"releaseName" toml:"releaseName"`
	Namespace     string `json:"namespace,omitempty" yaml:"namespace" toml:"namespace"`
	NodeCount     int    `json:"nodeCount" yaml:"nodeCount" toml:"nodeCount"`
	NodeCountKey  string `json:"nodeCountKey" yaml:"nodeCountKey" toml:"nodeCountKey"`
	NodeSelector  string `json:"nodeSelector" yaml:"nodeSelector" toml:"nodeSelector"`
	JobSelector   string `json:"jobSelector" yaml:"jobSelector" toml:"jobSelector"`
	SuccessMarker string `json:"successMarker" yaml:"successMarker" toml:"successMarker"`

	// Resources are removed during cleanup as kind/name pairs.
	Resources []string `json:"resources" yaml:"resources" toml:"resources"`

	Health         retry.Policy  `json:"health" yaml:"health" toml:"health"`
	JobDiscovery   retry.Policy  `json:"jobDiscovery" yaml:"jobDiscovery" toml:"jobDiscovery"`
	JobTimeout     time.Duration `json:"jobTimeout" yaml:"jobTimeout" toml:"jobTimeout"`
	SettleDelay    time.Duration `json:"settleDelay" yaml:"settleDelay" toml:"settleDelay"`
	CommandTimeout time.Duration `json:"commandTimeout" yaml:"commandTimeout" toml:"commandTimeout"`

	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	Kubeconfig string `json:"kubeconfig,omitempty" yaml:"kubeconfig" toml:"kubeconfig"`
	Kind       Kind   `json:"kind" yaml:"kind" toml:"kind"`
}

// Kind configures the optional local cluster bootstrap.
type Kind struct {
	Cluster      string        `json:"cluster,omitempty" yaml:"cluster" toml:"cluster"`
	Reuse        bool          `json:"reuse" yaml:"reuse" toml:"reuse"`
	NodeImage    string        `json:"nodeImage" yaml:"nodeImage" toml:"nodeImage"`
	WaitForReady time.Duration `json:"waitForReady" yaml:"waitForReady" toml:"waitForReady"`
	// Images are loaded into the cluster nodes before the chart is installed.
	Images []string `json:"images,omitempty" yaml:"images" toml:"images"`
}

func Default() *Deploy {
	return &Deploy{
		ChartPath:     "./helm",
		ReleaseName:   "insider-test",
		NodeCount:     1,
		NodeCountKey:  "chrome.nodeCount",
		NodeSelector:  "app=chrome-node",
		JobSelector:   "app.kubernetes.io/managed-by=Helm",
		SuccessMarker: "OK",
		Resources: []string{
			"service/selenium-chrome-service",
			"deployment/chrome-node",
			"job/test-controller-job",
		},
		Health:         retry.Policy{Attempts: 30, Delay: 5 * time.Second},
		JobDiscovery:   retry.Policy{Attempts: 10, Delay: 2 * time.Second},
		JobTimeout:     120 * time.Second,
		SettleDelay:    5 * time.Second,
		CommandTimeout: 5 * time.Minute,
		Backend:        BackendKubectl,
		Kind: Kind{
			Reuse:        true,
			NodeImage:    "kindest/node:v1.32.0",
			WaitForReady: 5 * time.Minute,
		},
	}
}

// Load overlays the file at path on top of Default. The format is picked from the
// extension: .yaml/.yml or .toml. An empty path returns the defaults.
func Load(path string) (*Deploy, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapWithDetails(err, "decoding yaml config", "path", path)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, errors.WrapWithDetails(err, "decoding toml config", "path", path)
		}
	default:
		return nil, errors.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

func (c *Deploy) Validate() error {
	var errs []error
	if c.NodeCount < 1 {
		errs = append(errs, errors.Errorf("node count must be a positive integer, got %d", c.NodeCount))
	}
	if c.ChartPath == "" {
		errs = append(errs, errors.New("chart path is required"))
	}
	if c.ReleaseName == "" {
		errs = append(errs, errors.New("release name is required"))
	}
	if c.NodeSelector == "" {
		errs = append(errs, errors.New("node selector is required"))
	}
	if strings.TrimSpace(c.SuccessMarker) == "" {
		errs = append(errs, errors.New("success marker is required"))
	}
	if err := c.Health.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "health"))
	}
	if err := c.JobDiscovery.Validate(); err != nil {
		errs = append(errs, errors.Wrap(err, "jobDiscovery"))
	}
	if c.Backend != BackendKubectl && c.Backend != BackendAPI {
		errs = append(errs, errors.Errorf("unknown backend %q", c.Backend))
	}
	return errors.Combine(errs...)
}
