package e2e

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	log "github.com/sirupsen/logrus"

	"github.com/voluzi/gridpilot/internal/careers"
	"github.com/voluzi/gridpilot/internal/webdriver"
	"github.com/voluzi/gridpilot/pkg/environ"
)

var _ = Describe("Careers workflow", Ordered, func() {
	var (
		wf    *careers.Workflow
		items []webdriver.Element
	)

	BeforeAll(func() {
		if session == nil {
			Skip("browser tests disabled")
		}
		cfg := careers.DefaultConfig()
		cfg.URL = environ.GetString("CAREERS_URL", cfg.URL)
		wf = careers.New(session, cfg, careers.WithLogger(log.StandardLogger()))
	})

	It("filters QA jobs in Istanbul", func() {
		var err error
		items, err = wf.FilterJobs(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).NotTo(BeEmpty())
	})

	It("lists only matching jobs", func() {
		listings, err := wf.VerifyListings(ctx, items)
		Expect(err).NotTo(HaveOccurred())
		Expect(listings).NotTo(BeEmpty())
	})

	It("redirects to the applicant tracking system", func() {
		target, err := wf.CheckRedirection(ctx, items)
		Expect(err).NotTo(HaveOccurred())
		Expect(target).To(ContainSubstring("lever.co"))
	})
})
