package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/gridpilot/internal/cluster"
	"github.com/voluzi/gridpilot/internal/config"
	"github.com/voluzi/gridpilot/internal/deploy"
	"github.com/voluzi/gridpilot/internal/helm"
	"github.com/voluzi/gridpilot/internal/kind"
	"github.com/voluzi/gridpilot/internal/shell"
)

// environment is everything a subcommand needs to talk to the cluster.
type environment struct {
	cfg     *config.Deploy
	runner  *shell.ExecRunner
	cluster cluster.Cluster
	helm    *helm.Client
	kind    *kind.Provisioner
}

func (e *environment) Close() {
	if e.kind == nil {
		return
	}
	if err := e.kind.Close(); err != nil {
		log.WithError(err).Debug("could not remove kubeconfig")
	}
}

func (e *environment) orchestrator() *deploy.Orchestrator {
	binaries := []string{"helm"}
	if e.cfg.Backend == config.BackendKubectl {
		binaries = append(binaries, "kubectl")
	}
	return deploy.New(e.cfg, e.cluster, e.helm,
		deploy.WithLogger(log.StandardLogger()),
		deploy.WithBinaries(binaries...),
		deploy.WithLookPath(e.runner.LookPath),
	)
}

// loadConfig reads --config and applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Deploy, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("node-count"); f != nil && (f.Changed || os.Getenv("NODE_COUNT") != "") {
		cfg.NodeCount = nodeCount
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if kubeconfig != "" {
		cfg.Kubeconfig = kubeconfig
	}
	if kindCluster != "" {
		cfg.Kind.Cluster = kindCluster
	}
	return cfg, cfg.Validate()
}

func setup(cmd *cobra.Command) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	env := &environment{
		cfg:    cfg,
		runner: &shell.ExecRunner{Timeout: cfg.CommandTimeout, SearchDirs: []string{"bin"}},
	}

	if cfg.Kind.Cluster != "" {
		env.kind = kind.NewProvisioner(kind.NewProvider(), env.runner, cfg.Kind, log.StandardLogger())
		path, err := env.kind.Ensure(cmd.Context())
		if err != nil {
			return nil, err
		}
		cfg.Kubeconfig = path
		if err := env.kind.LoadImages(cmd.Context()); err != nil {
			env.Close()
			return nil, err
		}
	}

	if cfg.Kubeconfig != "" {
		env.runner.GlobalArgs = map[string][]string{
			"helm":    {"--kubeconfig", cfg.Kubeconfig},
			"kubectl": {"--kubeconfig", cfg.Kubeconfig},
		}
	}

	env.helm = helm.New(env.runner, cfg.Namespace)
	switch cfg.Backend {
	case config.BackendAPI:
		api, err := cluster.NewAPIFromKubeconfig(cfg.Kubeconfig, cfg.Namespace)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.cluster = api
	default:
		env.cluster = cluster.NewKubectl(env.runner, cfg.Namespace)
	}
	return env, nil
}
