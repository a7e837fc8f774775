package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/voluzi/gridpilot/internal/deploy"
	"github.com/voluzi/gridpilot/pkg/environ"
)

var (
	cfgFile     string
	logLevel    string
	kubeconfig  string
	backend     string
	kindCluster string
	reportFile  string
	nodeCount   int
)

var rootCmd = &cobra.Command{
	Use:   "gridctl",
	Short: "Deploys the selenium grid and runs the careers workflow test",
	Long: `gridctl installs the browser grid helm chart, waits for the chrome nodes to become
ready and reports the result of the in-cluster test job.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLvl, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		log.SetLevel(logLvl)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := setup(cmd)
		if err != nil {
			return err
		}
		defer env.Close()

		o := env.orchestrator()
		outcome, err := o.Run(cmd.Context())
		writeReport(o)

		entry := log.WithFields(log.Fields{
			"verdict": outcome.Verdict,
			"elapsed": o.Elapsed(),
		})
		if err != nil || outcome.Verdict != deploy.VerdictSuccess {
			entry.WithField("result", "failure").Error("test pipeline failed")
			return err
		}
		entry.WithField("result", "success").Info("test pipeline completed")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config",
		environ.GetString("GRIDPILOT_CONFIG", ""),
		"YAML or TOML file overriding the default deploy configuration",
	)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level",
		environ.GetString("LOG_LEVEL", "info"),
		"Log level. One of debug, info, warn, error, fatal, panic.",
	)
	rootCmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig",
		environ.GetString("KUBECONFIG", ""),
		"Path to the kubeconfig used by helm, kubectl and the api backend",
	)
	rootCmd.PersistentFlags().StringVar(&backend, "backend",
		environ.GetString("BACKEND", ""),
		"Cluster backend. One of kubectl, api.",
	)
	rootCmd.PersistentFlags().StringVar(&kindCluster, "kind-cluster",
		environ.GetString("KIND_CLUSTER", ""),
		"Create or reuse a local kind cluster with this name",
	)
	rootCmd.PersistentFlags().StringVar(&reportFile, "report-file",
		environ.GetString("REPORT_FILE", ""),
		"Write a JSON run report to this file",
	)

	addNodeCountFlag(rootCmd)
	rootCmd.AddCommand(cleanupCmd, statusCmd)
}

func addNodeCountFlag(cmd *cobra.Command) {
	cmd.Flags().IntVar(&nodeCount, "node-count",
		environ.GetInt("NODE_COUNT", 1),
		"Number of chrome nodes to deploy",
	)
}

func writeReport(o *deploy.Orchestrator) {
	if reportFile == "" {
		return
	}
	if err := o.Report().WriteFile(reportFile); err != nil {
		log.WithError(err).Warn("could not write run report")
		return
	}
	log.WithField("path", reportFile).Debug("run report written")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
