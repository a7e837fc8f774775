// Package careers drives a careers page through its job filter, checks the listings it
// returns and follows the first listing to the applicant tracking system.
package careers

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/voluzi/gridpilot/internal/retry"
	"github.com/voluzi/gridpilot/internal/webdriver"
)

const (
	clickScript     = "arguments[0].click();"
	showScript      = "arguments[0].style.display = 'block';"
	optionsScript   = "return Array.from(arguments[0].options).map(function (o) { return o.text; });"
	outerHTMLScript = "return arguments[0].outerHTML;"
	scrollToScript  = "window.scrollTo(0, arguments[0]);"
	scrollEndScript = "window.scrollTo(0, document.body.scrollHeight);"

	selectScript = `var s = arguments[0], i = arguments[1];
if (i < 0 || i >= s.options.length) {
  return false;
}
s.selectedIndex = i;
s.dispatchEvent(new Event('change', { bubbles: true }));
return true;`
)

type Workflow struct {
	session webdriver.Session
	cfg     Config
	clock   clock.Clock
	log     logrus.FieldLogger
}

type Option func(*Workflow)

func WithClock(c clock.Clock) Option {
	return func(w *Workflow) {
		w.clock = c
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(w *Workflow) {
		w.log = log
	}
}

func New(session webdriver.Session, cfg Config, opts ...Option) *Workflow {
	w := &Workflow{
		session: session,
		cfg:     cfg,
		clock:   clock.RealClock{},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run executes filter, verify and redirect in order, stopping at the first failure.
func (w *Workflow) Run(ctx context.Context) error {
	items, err := w.FilterJobs(ctx)
	if err != nil {
		return err
	}
	if _, err := w.VerifyListings(ctx, items); err != nil {
		return err
	}
	_, err = w.CheckRedirection(ctx, items)
	return err
}

func (w *Workflow) sleep(ctx context.Context, d time.Duration) error {
	return retry.Sleep(ctx, w.clock, d)
}

func (w *Workflow) options(el webdriver.Element) ([]string, error) {
	res, err := w.session.ExecuteScript(optionsScript, el)
	if err != nil {
		return nil, errors.Wrap(err, "reading select options")
	}
	raw, _ := res.([]interface{})
	out := make([]string, len(raw))
	for i, o := range raw {
		if s, ok := o.(string); ok {
			out[i] = CleanText(s)
		}
	}
	return out, nil
}

// selectOption selects label by its position in options, the cleaned option texts of el as
// returned by w.options.
func (w *Workflow) selectOption(el webdriver.Element, options []string, label string) (bool, error) {
	idx := slices.Index(options, CleanText(label))
	if idx < 0 {
		return false, nil
	}
	res, err := w.session.ExecuteScript(selectScript, el, idx)
	if err != nil {
		return false, errors.WrapWithDetails(err, "selecting option", "option", label)
	}
	ok, _ := res.(bool)
	return ok, nil
}

func (w *Workflow) firstOptions(options []string) []string {
	if len(options) > w.cfg.ListedOptions {
		return options[:w.cfg.ListedOptions]
	}
	return options
}

// FilterJobs opens the careers page, applies the location and department filters and
// returns the listing elements.
func (w *Workflow) FilterJobs(ctx context.Context) ([]webdriver.Element, error) {
	cfg := w.cfg
	w.log.WithField("url", cfg.URL).Info("navigating to career page")
	if err := w.session.Get(cfg.URL); err != nil {
		return nil, errors.WrapWithDetails(err, "opening career page", "url", cfg.URL)
	}

	w.acceptCookies(ctx)

	w.log.Info("clicking 'See all QA jobs'")
	link, err := webdriver.Wait(ctx, w.clock, cfg.PageTimeout, webdriver.Visible(w.session, webdriver.ByXPath, cfg.SeeAllJobsXPath))
	if err != nil {
		return nil, failf(StageFilter, "job list link not found: %s", err)
	}
	if _, err := w.session.ExecuteScript(clickScript, link); err != nil {
		return nil, errors.Wrap(err, "clicking job list link")
	}

	w.log.Info("waiting for filter section")
	if _, err := webdriver.Wait(ctx, w.clock, cfg.PageTimeout, webdriver.Visible(w.session, webdriver.ByID, cfg.LocationSelectID)); err != nil {
		return nil, failf(StageFilter, "location filter not visible: %s", err)
	}

	location, err := w.session.FindElement(webdriver.ByID, cfg.LocationSelectID)
	if err != nil {
		return nil, failf(StageFilter, "location filter not found: %s", err)
	}
	if _, err := w.session.ExecuteScript(showScript, location); err != nil {
		return nil, errors.Wrap(err, "showing location filter")
	}

	options, err := w.waitForOptions(ctx, location)
	if err != nil {
		return nil, err
	}

	label, ok := PickOption(cfg.LocationCandidates, options)
	if !ok {
		return nil, failf(StageFilter, "could not select target location, options: %q", w.firstOptions(options))
	}
	selected, err := w.selectOption(location, options, label)
	if err != nil {
		return nil, err
	}
	if !selected {
		return nil, failf(StageFilter, "could not select location %q", label)
	}
	w.log.WithField("location", label).Info("location selected")

	if err := w.sleep(ctx, cfg.LocationSettle); err != nil {
		return nil, err
	}

	department, err := w.session.FindElement(webdriver.ByID, cfg.DepartmentSelectID)
	if err != nil {
		return nil, failf(StageFilter, "department filter not found: %s", err)
	}
	if _, err := w.session.ExecuteScript(showScript, department); err != nil {
		return nil, errors.Wrap(err, "showing department filter")
	}
	deptOptions, err := w.options(department)
	if err != nil {
		return nil, err
	}
	if selected, err = w.selectOption(department, deptOptions, cfg.Department); err != nil {
		return nil, err
	}
	if !selected {
		return nil, failf(StageFilter, "could not select department %q, options: %q", cfg.Department, w.firstOptions(deptOptions))
	}

	w.log.Info("checking job list")
	if err := w.sleep(ctx, cfg.DepartmentSettle); err != nil {
		return nil, err
	}
	items, err := w.listings(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, failf(StageFilter, "no jobs found")
	}
	w.log.WithField("count", len(items)).Info("jobs found")
	return items, nil
}

func (w *Workflow) acceptCookies(ctx context.Context) {
	btn, err := webdriver.Wait(ctx, w.clock, w.cfg.CookieTimeout, webdriver.Visible(w.session, webdriver.ByID, w.cfg.CookieButtonID))
	if err == nil {
		err = btn.Click()
	}
	if err != nil {
		w.log.Info("cookie banner not found or skipped")
		return
	}
	w.log.Info("cookies accepted")
}

func (w *Workflow) waitForOptions(ctx context.Context, location webdriver.Element) ([]string, error) {
	var options []string
	_, err := retry.New(w.cfg.OptionsPoll, w.clock).Poll(ctx, func(_ context.Context, attempt int) (bool, error) {
		var err error
		if options, err = w.options(location); err != nil {
			return false, err
		}
		if len(options) > 1 {
			w.log.WithField("options", len(options)).Info("dropdown populated")
			return true, nil
		}
		w.log.WithField("options", len(options)).Info("waiting for dropdown data")
		if w.cfg.ReclickEvery > 0 && (attempt-1)%w.cfg.ReclickEvery == 0 {
			if _, err := w.session.ExecuteScript(clickScript, location); err != nil {
				w.log.WithError(err).Debug("could not click location filter")
			}
		}
		return false, nil
	})
	if errors.Is(err, retry.ErrExhausted) {
		return nil, failf(StageFilter, "dropdown data did not load, options: %q", options)
	}
	return options, err
}

func (w *Workflow) listings(ctx context.Context) ([]webdriver.Element, error) {
	items, err := w.session.FindElements(webdriver.ByClassName, w.cfg.ListingClass)
	if err != nil {
		return nil, errors.Wrap(err, "reading job list")
	}
	if len(items) > 0 {
		return items, nil
	}

	w.log.Info("list empty, scrolling to trigger lazy load")
	if _, err := w.session.ExecuteScript(scrollToScript, w.cfg.LazyLoadOffset); err != nil {
		return nil, errors.Wrap(err, "scrolling")
	}
	if err := w.sleep(ctx, w.cfg.LazyLoadWaits[0]); err != nil {
		return nil, err
	}
	if _, err := w.session.ExecuteScript(scrollEndScript); err != nil {
		return nil, errors.Wrap(err, "scrolling")
	}
	if err := w.sleep(ctx, w.cfg.LazyLoadWaits[1]); err != nil {
		return nil, err
	}

	items, err = w.session.FindElements(webdriver.ByClassName, w.cfg.ListingClass)
	return items, errors.Wrap(err, "reading job list")
}

// Extract reads the fields of one listing element, from its outer HTML when the browser
// returns it and from element lookups otherwise.
func (w *Workflow) Extract(item webdriver.Element) (Listing, error) {
	if res, err := w.session.ExecuteScript(outerHTMLScript, item); err == nil {
		if html, ok := res.(string); ok && strings.TrimSpace(html) != "" {
			return ParseListing(html, w.cfg)
		}
	}

	text := func(class string) (string, error) {
		el, err := item.FindElement(webdriver.ByClassName, class)
		if err != nil {
			return "", errors.Wrapf(err, "missing .%s", class)
		}
		t, err := el.Text()
		return CleanText(t), err
	}

	var (
		l   Listing
		err error
	)
	if l.Title, err = text(w.cfg.TitleClass); err != nil {
		return Listing{}, err
	}
	if l.Department, err = text(w.cfg.DepartmentClass); err != nil {
		return Listing{}, err
	}
	if l.Location, err = text(w.cfg.LocationClass); err != nil {
		return Listing{}, err
	}
	if link, err := item.FindElement(webdriver.ByXPath, w.cfg.ViewRoleXPath); err == nil {
		l.ViewRoleURL, _ = link.Attribute("href")
	}
	return l, nil
}

// VerifyListings checks every listing against the filter. Listings whose fields cannot be
// read are skipped; any content mismatch fails the stage with all mismatches listed.
func (w *Workflow) VerifyListings(_ context.Context, items []webdriver.Element) ([]Listing, error) {
	w.log.Info("verifying job details")

	var (
		verified   []Listing
		violations []string
	)
	for i, item := range items {
		l, err := w.Extract(item)
		if err != nil {
			w.log.WithError(err).WithField("index", i).Warn("skipped a job item due to missing fields")
			continue
		}
		w.log.WithField("index", i).Infof("found: %s", l)
		verified = append(verified, l)
		for _, v := range w.cfg.Violations(l) {
			violations = append(violations, fmt.Sprintf("listing %d: %s", i, v))
		}
	}

	if len(verified) == 0 {
		return nil, failf(StageVerify, "no job listing could be read")
	}
	if len(violations) > 0 {
		return verified, &AssertionError{
			Stage:      StageVerify,
			Message:    "job details do not match the filter",
			Violations: violations,
		}
	}
	w.log.WithField("result", "success").Info("all job details verified")
	return verified, nil
}

// CheckRedirection resolves the view role link of the first listing and checks it points
// at the expected domain. A listing without an href is followed into the window it opens.
func (w *Workflow) CheckRedirection(ctx context.Context, items []webdriver.Element) (string, error) {
	w.log.Info("checking redirection")
	if len(items) == 0 {
		return "", failf(StageRedirect, "no jobs to click")
	}

	var target string
	if l, err := w.Extract(items[0]); err == nil {
		target = strings.TrimSpace(l.ViewRoleURL)
	}
	if target == "" {
		link, err := items[0].FindElement(webdriver.ByXPath, w.cfg.ViewRoleXPath)
		if err != nil {
			return "", failf(StageRedirect, "view role link not found: %s", err)
		}
		if target, err = w.follow(ctx, link); err != nil {
			return "", err
		}
	}

	log := w.log.WithField("link", target)
	if !strings.Contains(target, w.cfg.ExpectedDomain) {
		log.Error("link incorrect")
		return target, failf(StageRedirect, "link %q does not point to %s", target, w.cfg.ExpectedDomain)
	}
	log.WithField("result", "success").Infof("link points to %s", w.cfg.ExpectedDomain)
	return target, nil
}

// follow clicks link and returns the URL of the window it opens.
func (w *Workflow) follow(ctx context.Context, link webdriver.Element) (string, error) {
	before, err := w.session.WindowHandles()
	if err != nil {
		return "", errors.Wrap(err, "listing windows")
	}
	if _, err := w.session.ExecuteScript(clickScript, link); err != nil {
		return "", errors.Wrap(err, "clicking view role link")
	}

	policy := retry.Policy{
		Attempts: int(w.cfg.PageTimeout/webdriver.PollInterval) + 1,
		Delay:    webdriver.PollInterval,
	}
	var opened string
	_, err = retry.New(policy, w.clock).Poll(ctx, func(context.Context, int) (bool, error) {
		handles, err := w.session.WindowHandles()
		if err != nil {
			return false, nil
		}
		for _, h := range handles {
			if !slices.Contains(before, h) {
				opened = h
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return "", failf(StageRedirect, "view role link did not open a new window")
	}

	if err := w.session.SwitchWindow(opened); err != nil {
		return "", errors.Wrap(err, "switching window")
	}
	url, err := w.session.CurrentURL()
	return url, errors.Wrap(err, "reading current url")
}
