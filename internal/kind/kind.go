// Package kind provisions a local Kind cluster for the browser grid.
package kind

import (
	"context"
	"os"
	"slices"
	"strings"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"sigs.k8s.io/kind/pkg/cluster"
	"sigs.k8s.io/kind/pkg/cmd"

	"github.com/voluzi/gridpilot/internal/config"
	"github.com/voluzi/gridpilot/internal/shell"
)

const kindBin = "kind"

const clusterConfig = `kind: Cluster
apiVersion: kind.x-k8s.io/v1alpha4
nodes:
- role: control-plane
- role: worker
`

// Provider is the subset of *cluster.Provider used here.
type Provider interface {
	List() ([]string, error)
	Create(name string, options ...cluster.CreateOption) error
	Delete(name, explicitKubeconfigPath string) error
	KubeConfig(name string, internal bool) (string, error)
}

var _ Provider = (*cluster.Provider)(nil)

// NewProvider returns a kind provider using the kind CLI logger.
func NewProvider() *cluster.Provider {
	return cluster.NewProvider(cluster.ProviderWithLogger(cmd.NewLogger()))
}

type Provisioner struct {
	provider Provider
	runner   shell.Runner
	cfg      config.Kind
	log      logrus.FieldLogger

	created        bool
	kubeconfigPath string
}

func NewProvisioner(provider Provider, runner shell.Runner, cfg config.Kind, log logrus.FieldLogger) *Provisioner {
	return &Provisioner{
		provider: provider,
		runner:   runner,
		cfg:      cfg,
		log:      log.WithField("cluster", cfg.Cluster),
	}
}

// Created reports whether Ensure created the cluster rather than reusing it.
func (p *Provisioner) Created() bool {
	return p.created
}

// Ensure makes sure the cluster exists and writes its kubeconfig to a temporary file, whose
// path is returned. An existing cluster is reused when Reuse is set and recreated otherwise.
func (p *Provisioner) Ensure(ctx context.Context) (string, error) {
	if p.cfg.Cluster == "" {
		return "", errors.New("kind cluster name is required")
	}

	clusters, err := p.provider.List()
	if err != nil {
		return "", errors.Wrap(err, "listing kind clusters")
	}
	exists := slices.Contains(clusters, p.cfg.Cluster)

	if exists && p.cfg.Reuse {
		p.log.Info("reusing existing kind cluster")
	} else {
		if exists {
			p.log.Info("deleting existing kind cluster")
			if err := p.provider.Delete(p.cfg.Cluster, ""); err != nil {
				return "", errors.Wrap(err, "deleting existing cluster")
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		p.log.WithField("image", p.cfg.NodeImage).Info("creating kind cluster")
		if err := p.provider.Create(
			p.cfg.Cluster,
			cluster.CreateWithRawConfig([]byte(clusterConfig)),
			cluster.CreateWithNodeImage(p.cfg.NodeImage),
			cluster.CreateWithWaitForReady(p.cfg.WaitForReady),
		); err != nil {
			return "", errors.Wrap(err, "creating cluster")
		}
		p.created = true
	}

	kubeconfig, err := p.provider.KubeConfig(p.cfg.Cluster, false)
	if err != nil {
		return "", errors.Wrap(err, "getting kubeconfig")
	}

	f, err := os.CreateTemp("", "gridpilot-kubeconfig-*.yaml")
	if err != nil {
		return "", errors.Wrap(err, "creating kubeconfig file")
	}
	defer f.Close()

	if _, err := f.WriteString(kubeconfig); err != nil {
		return "", errors.Wrap(err, "writing kubeconfig file")
	}
	p.kubeconfigPath = f.Name()
	return p.kubeconfigPath, nil
}

// LoadImages loads the configured docker images into the cluster nodes.
func (p *Provisioner) LoadImages(ctx context.Context) error {
	for _, image := range p.cfg.Images {
		p.log.WithField("image", image).Info("loading image into kind cluster")
		res := p.runner.Run(ctx, kindBin, "load", "docker-image", image, "--name", p.cfg.Cluster)
		if !res.OK() {
			return errors.WrapWithDetails(res.Err, "loading image",
				"image", image,
				"output", strings.TrimSpace(res.Stderr+res.Stdout),
			)
		}
	}
	return nil
}

// Delete removes the cluster. A cluster that does not exist is not an error.
func (p *Provisioner) Delete() error {
	clusters, err := p.provider.List()
	if err != nil {
		return errors.Wrap(err, "listing kind clusters")
	}
	if !slices.Contains(clusters, p.cfg.Cluster) {
		p.log.Debug("kind cluster does not exist")
		return nil
	}
	p.log.Info("deleting kind cluster")
	return errors.Wrap(p.provider.Delete(p.cfg.Cluster, ""), "deleting cluster")
}

// Close removes the temporary kubeconfig file.
func (p *Provisioner) Close() error {
	if p.kubeconfigPath == "" {
		return nil
	}
	err := os.Remove(p.kubeconfigPath)
	p.kubeconfigPath = ""
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
