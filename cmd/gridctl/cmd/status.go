package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Waits until the expected number of chrome nodes are running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.orchestrator().HealthCheck(cmd.Context()); err != nil {
			return err
		}
		log.WithField("result", "success").Info("grid is ready")
		return nil
	},
}

func init() {
	addNodeCountFlag(statusCmd)
}
