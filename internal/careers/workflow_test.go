package careers

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/voluzi/gridpilot/internal/webdriver"
	"github.com/voluzi/gridpilot/internal/webdriver/webdrivertest"
)

const leverURL = "https://jobs.lever.co/useinsider/0b1c2d3e"

var _ = Describe("Workflow", func() {
	var (
		ctx   context.Context
		cfg   Config
		p     *page
		clk   *testingclock.FakeClock
		hook  *test.Hook
		wf    *Workflow
		start time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = DefaultConfig()
		p = newPage(cfg)
		start = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		clk = testingclock.NewFakeClock(start)

		var logger *logrus.Logger
		logger, hook = test.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		wf = New(p.session, cfg, WithClock(clk), WithLogger(logger))
	})

	messages := func() []string {
		var out []string
		for _, e := range hook.AllEntries() {
			out = append(out, e.Message)
		}
		return out
	}

	assertionError := func(err error) *AssertionError {
		var ae *AssertionError
		ExpectWithOffset(1, err).To(BeAssignableToTypeOf(ae))
		return err.(*AssertionError)
	}

	Describe("FilterJobs", func() {
		It("filters by location and department", func() {
			p.withListings(listing(cfg, "Senior QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL))

			items, err := wf.FilterJobs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))

			Expect(p.session.Visited).To(Equal([]string{cfg.URL}))
			Expect(p.cookie.ClickCount).To(Equal(1))
			Expect(p.seeAll.ClickCount).To(Equal(1))
			Expect(p.selected[p.location]).To(Equal("Istanbul, Turkiye"))
			Expect(p.selected[p.department]).To(Equal("Quality Assurance"))
			Expect(messages()).To(ContainElement("cookies accepted"))
			// 2s location settle and 3s department settle
			Expect(clk.Since(start)).To(Equal(5 * time.Second))
		})

		It("carries on without a cookie banner", func() {
			p.session.Set(webdriver.ByID, cfg.CookieButtonID)
			p.withListings(listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL))

			_, err := wf.FilterJobs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(messages()).To(ContainElement("cookie banner not found or skipped"))
			Expect(clk.Since(start)).To(Equal(cfg.CookieTimeout + 5*time.Second))
		})

		It("picks the first location candidate present", func() {
			p.options[p.location] = []string{"All", "Istanbul", "Istanbul, Turkey"}
			p.withListings(listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkey", leverURL))

			_, err := wf.FilterJobs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.selected[p.location]).To(Equal("Istanbul, Turkey"))
		})

		It("selects options whose text carries non-breaking spaces", func() {
			p.options[p.location] = []string{"All", "Istanbul,\u00a0Turkiye", "London, UK"}
			p.options[p.department] = []string{"All", "  Quality\u00a0Assurance "}
			p.withListings(listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL))

			_, err := wf.FilterJobs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.selected[p.location]).To(Equal("Istanbul,\u00a0Turkiye"))
			Expect(p.selected[p.department]).To(Equal("  Quality\u00a0Assurance "))
		})

		It("lists the available options when no location matches", func() {
			p.options[p.location] = []string{"All", "Ankara", "Berlin", "London", "Paris", "Tokyo", "Warsaw"}

			_, err := wf.FilterJobs(ctx)
			ae := assertionError(err)
			Expect(ae.Stage).To(Equal(StageFilter))
			Expect(ae.Error()).To(ContainSubstring(`["All" "Ankara" "Berlin" "London" "Paris"]`))
			Expect(ae.Error()).NotTo(ContainSubstring("Tokyo"))
		})

		It("waits for the location options and re-clicks every fifth attempt", func() {
			p.emptyReads = 7
			p.withListings(listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul", leverURL))

			_, err := wf.FilterJobs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.optionReads).To(Equal(8))
			// attempts 1 and 6
			Expect(p.location.ClickCount).To(Equal(2))
			Expect(clk.Since(start)).To(Equal(7*time.Second + 5*time.Second))
		})

		It("fails when the location options never load", func() {
			p.emptyReads = 1000

			_, err := wf.FilterJobs(ctx)
			ae := assertionError(err)
			Expect(ae.Message).To(ContainSubstring("dropdown data did not load"))
			Expect(p.optionReads).To(Equal(cfg.OptionsPoll.Attempts))
			// attempts 1, 6, 11 and 16
			Expect(p.location.ClickCount).To(Equal(4))
		})

		It("fails when the department is missing", func() {
			p.options[p.department] = []string{"All", "Sales"}

			_, err := wf.FilterJobs(ctx)
			ae := assertionError(err)
			Expect(ae.Message).To(ContainSubstring(`could not select department "Quality Assurance"`))
		})

		It("scrolls once to trigger lazy loading", func() {
			p.lazyListings = []*webdrivertest.Element{
				listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL),
			}

			items, err := wf.FilterJobs(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(p.session.Scripts).To(ContainElements(scrollToScript, scrollEndScript))
			Expect(clk.Since(start)).To(Equal(10 * time.Second))
		})

		It("fails when the list stays empty", func() {
			_, err := wf.FilterJobs(ctx)
			ae := assertionError(err)
			Expect(ae.Message).To(Equal("no jobs found"))
			Expect(p.session.Scripts).To(ContainElement(scrollEndScript))
		})

		It("fails when the job list link never appears", func() {
			p.session.Set(webdriver.ByXPath, cfg.SeeAllJobsXPath)

			_, err := wf.FilterJobs(ctx)
			Expect(assertionError(err).Stage).To(Equal(StageFilter))
		})
	})

	Describe("VerifyListings", func() {
		It("passes a matching listing", func() {
			items := []webdriver.Element{listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL)}

			verified, err := wf.VerifyListings(ctx, items)
			Expect(err).NotTo(HaveOccurred())
			Expect(verified).To(Equal([]Listing{{
				Title:       "QA Engineer",
				Department:  "Quality Assurance",
				Location:    "Istanbul, Turkiye",
				ViewRoleURL: leverURL,
			}}))
		})

		It("fails a listing outside the location filter", func() {
			items := []webdriver.Element{
				listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL),
				listing(cfg, "QA Engineer", "Quality Assurance", "Ankara", leverURL),
			}

			_, err := wf.VerifyListings(ctx, items)
			ae := assertionError(err)
			Expect(ae.Stage).To(Equal(StageVerify))
			Expect(ae.Violations).To(Equal([]string{`listing 1: invalid location "Ankara"`}))
		})

		It("reports every mismatching field", func() {
			items := []webdriver.Element{listing(cfg, "Account Executive", "Sales", "Ankara", leverURL)}

			_, err := wf.VerifyListings(ctx, items)
			Expect(assertionError(err).Violations).To(HaveLen(3))
		})

		It("skips listings with missing fields", func() {
			broken := webdrivertest.NewElement("listing", "")
			broken.Attrs["outerHTML"] = `<div class="position-list-item"><p class="position-title">QA Engineer</p></div>`
			items := []webdriver.Element{
				broken,
				listing(cfg, "Quality Assurance Specialist", "Quality Assurance", "Istanbul, Turkey", leverURL),
			}

			verified, err := wf.VerifyListings(ctx, items)
			Expect(err).NotTo(HaveOccurred())
			Expect(verified).To(HaveLen(1))
			Expect(hook.Entries).To(ContainElement(HaveField("Level", logrus.WarnLevel)))
		})

		It("falls back to element lookups without outer HTML", func() {
			el := listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL)
			el.Attrs["outerHTML"] = ""

			verified, err := wf.VerifyListings(ctx, []webdriver.Element{el})
			Expect(err).NotTo(HaveOccurred())
			Expect(verified[0].ViewRoleURL).To(Equal(leverURL))
		})

		It("fails when no listing can be read", func() {
			_, err := wf.VerifyListings(ctx, []webdriver.Element{webdrivertest.NewElement("empty", "")})
			Expect(assertionError(err).Message).To(Equal("no job listing could be read"))
		})
	})

	Describe("CheckRedirection", func() {
		It("accepts a lever link", func() {
			items := []webdriver.Element{listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul", leverURL)}

			target, err := wf.CheckRedirection(ctx, items)
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(Equal(leverURL))
		})

		It("rejects a link to another domain", func() {
			items := []webdriver.Element{listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul", "https://useinsider.com/apply")}

			_, err := wf.CheckRedirection(ctx, items)
			ae := assertionError(err)
			Expect(ae.Stage).To(Equal(StageRedirect))
			Expect(ae.Message).To(ContainSubstring("jobs.lever.co"))
		})

		It("uses the link parsed from the listing", func() {
			el := listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul", leverURL)
			link := el.Children[string(webdriver.ByXPath)+"="+cfg.ViewRoleXPath][0]
			link.Attrs["href"] = "https://example.com/stale"

			target, err := wf.CheckRedirection(ctx, []webdriver.Element{el})
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(Equal(leverURL))
			Expect(link.ClickCount).To(Equal(0))
		})

		It("follows the link into a new window when it has no href", func() {
			el := listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul", "")
			link := el.Children[string(webdriver.ByXPath)+"="+cfg.ViewRoleXPath][0]
			link.OnClick = func() error {
				p.session.Handles = append(p.session.Handles, "role")
				p.session.WindowURLs["role"] = leverURL
				return nil
			}

			target, err := wf.CheckRedirection(ctx, []webdriver.Element{el})
			Expect(err).NotTo(HaveOccurred())
			Expect(target).To(Equal(leverURL))
			Expect(p.session.Current).To(Equal("role"))
		})

		It("fails without listings", func() {
			_, err := wf.CheckRedirection(ctx, nil)
			Expect(assertionError(err).Message).To(Equal("no jobs to click"))
		})
	})

	It("runs every stage", func() {
		p.withListings(
			listing(cfg, "QA Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL),
			listing(cfg, "Senior Software Quality Assurance Engineer", "Quality Assurance", "Istanbul, Turkiye", leverURL),
		)
		Expect(wf.Run(ctx)).To(Succeed())
	})

	It("stops at the first failing stage", func() {
		p.withListings(listing(cfg, "QA Engineer", "Quality Assurance", "Ankara", "https://example.com"))

		err := wf.Run(ctx)
		Expect(assertionError(err).Stage).To(Equal(StageVerify))
	})
})

var _ = Describe("PickOption", func() {
	candidates := DefaultConfig().LocationCandidates

	DescribeTable("candidate priority",
		func(options []string, expected string, found bool) {
			got, ok := PickOption(candidates, options)
			Expect(ok).To(Equal(found))
			Expect(got).To(Equal(expected))
		},
		Entry("exact first candidate", []string{"All", "Istanbul, Turkiye"}, "Istanbul, Turkiye", true),
		Entry("second candidate", []string{"All", "Istanbul, Turkey"}, "Istanbul, Turkey", true),
		Entry("priority over option order", []string{"Istanbul", "Istanbul, Turkey"}, "Istanbul, Turkey", true),
		Entry("whitespace in option", []string{"  Istanbul, Turkiye "}, "Istanbul, Turkiye", true),
		Entry("no candidate", []string{"All", "Ankara"}, "", false),
	)
})

var _ = Describe("ParseListing", func() {
	It("reads every field", func() {
		l, err := ParseListing(listingHTML("QA Engineer", "Quality\n  Assurance", "Istanbul, Turkiye", leverURL), DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(l.Department).To(Equal("Quality Assurance"))
		Expect(l.ViewRoleURL).To(Equal(leverURL))
	})

	It("rejects a listing without a department", func() {
		_, err := ParseListing(`<div><p class="position-title">QA</p></div>`, DefaultConfig())
		Expect(err).To(MatchError(ContainSubstring(".position-department")))
	})
})
