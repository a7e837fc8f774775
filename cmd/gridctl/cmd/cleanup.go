package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/gridpilot/internal/kind"
	"github.com/voluzi/gridpilot/internal/shell"
	"github.com/voluzi/gridpilot/pkg/environ"
)

var deleteCluster bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Removes the release and the grid resources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if deleteCluster {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.Kind.Cluster != "" {
				runner := &shell.ExecRunner{Timeout: cfg.CommandTimeout}
				return kind.NewProvisioner(kind.NewProvider(), runner, cfg.Kind, log.StandardLogger()).Delete()
			}
			log.Warn("--delete-cluster has no effect without --kind-cluster")
		}

		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.orchestrator().Cleanup(cmd.Context()); err != nil {
			return err
		}
		log.WithField("result", "success").Info("cleanup completed")
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&deleteCluster, "delete-cluster",
		environ.GetBool("DELETE_CLUSTER", false),
		"Delete the kind cluster instead of only the grid resources",
	)
}
