package e2e

import (
	"path/filepath"
	"runtime"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/gridpilot/internal/cluster"
	"github.com/voluzi/gridpilot/internal/config"
	"github.com/voluzi/gridpilot/internal/deploy"
	"github.com/voluzi/gridpilot/internal/helm"
	"github.com/voluzi/gridpilot/internal/kind"
	"github.com/voluzi/gridpilot/internal/shell"
	"github.com/voluzi/gridpilot/pkg/environ"
)

// projectRoot returns the repository root based on this file's location.
func projectRoot() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "."
	}
	return filepath.Join(filepath.Dir(file), "..", "..")
}

var _ = Describe("Deploy pipeline", Ordered, func() {
	var (
		cfg         *config.Deploy
		provisioner *kind.Provisioner
		o           *deploy.Orchestrator
	)

	BeforeAll(func() {
		if !environ.GetBool("E2E_DEPLOY", false) {
			Skip("deploy tests disabled. Set E2E_DEPLOY=true to run.")
		}

		cfg = config.Default()
		cfg.ChartPath = filepath.Join(projectRoot(), "helm")
		cfg.NodeCount = environ.GetInt("NODE_COUNT", 1)
		cfg.Kind.Cluster = environ.GetString("CLUSTER_NAME", "gridpilot-e2e")
		cfg.Kind.Reuse = environ.GetBool("REUSE_CLUSTER", true)
		cfg.Kind.Images = environ.GetStringSlice("KIND_IMAGES", nil)

		runner := &shell.ExecRunner{Timeout: cfg.CommandTimeout}
		provisioner = kind.NewProvisioner(kind.NewProvider(), runner, cfg.Kind, log.StandardLogger())

		By("Setting up the Kind cluster")
		path, err := provisioner.Ensure(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(provisioner.LoadImages(ctx)).To(Succeed())
		DeferCleanup(provisioner.Close)

		runner.GlobalArgs = map[string][]string{
			"helm":    {"--kubeconfig", path},
			"kubectl": {"--kubeconfig", path},
		}
		o = deploy.New(cfg, cluster.NewKubectl(runner, ""), helm.New(runner, ""),
			deploy.WithLogger(log.StandardLogger()),
		)
	})

	AfterAll(func() {
		if provisioner != nil && !cfg.Kind.Reuse && provisioner.Created() {
			Expect(provisioner.Delete()).To(Succeed())
		}
	})

	It("installs the grid and classifies the test job", func() {
		outcome, err := o.Run(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(outcome.Verdict).To(Equal(deploy.VerdictSuccess))
	})

	It("cleans up twice without error", func() {
		Expect(o.Cleanup(ctx)).To(Succeed())
		Expect(o.Cleanup(ctx)).To(Succeed())
	})
})
