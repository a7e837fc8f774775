package webdriver_test

import (
	"context"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/voluzi/gridpilot/internal/webdriver"
	"github.com/voluzi/gridpilot/internal/webdriver/webdrivertest"
)

func TestCapabilities(t *testing.T) {
	caps := webdriver.DefaultConfig().Capabilities()
	assert.Equal(t, "chrome", caps["browserName"])

	opts, ok := caps[chrome.CapabilitiesKey].(chrome.Capabilities)
	require.True(t, ok)
	assert.Equal(t, []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--window-size=1920,1080",
		"--user-agent=" + webdriver.DefaultUserAgent,
	}, opts.Args)
}

func TestConnect_RetriesUntilSession(t *testing.T) {
	start := time.Now()
	clk := testingclock.NewFakeClock(start)
	logger, hook := test.NewNullLogger()

	fake := webdrivertest.NewSession()
	dials := 0
	dialer := func(_ selenium.Capabilities, hub string) (webdriver.Session, error) {
		dials++
		assert.Equal(t, webdriver.DefaultHubURL, hub)
		if dials < 3 {
			return nil, errors.New("connection refused")
		}
		return fake, nil
	}

	s, err := webdriver.Connect(context.Background(), webdriver.DefaultConfig(),
		webdriver.WithDialer(dialer), webdriver.WithClock(clk), webdriver.WithLogger(logger))
	require.NoError(t, err)
	assert.Same(t, fake, s)
	assert.Equal(t, 3, dials)
	assert.Equal(t, 10*time.Second, clk.Since(start))
	assert.Equal(t, "connection established", hook.LastEntry().Message)
}

func TestConnect_Exhausted(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	logger, _ := test.NewNullLogger()

	dials := 0
	dialer := func(selenium.Capabilities, string) (webdriver.Session, error) {
		dials++
		return nil, errors.New("connection refused")
	}

	_, err := webdriver.Connect(context.Background(), webdriver.DefaultConfig(),
		webdriver.WithDialer(dialer), webdriver.WithClock(clk), webdriver.WithLogger(logger))
	assert.True(t, errors.Is(err, webdriver.ErrConnect))
	assert.Equal(t, 5, dials)
}

func TestWait_Visible(t *testing.T) {
	start := time.Now()
	clk := testingclock.NewFakeClock(start)
	s := webdrivertest.NewSession()
	el := webdrivertest.NewElement("filter", "")
	el.Hidden = true
	s.Add(webdriver.ByID, "filter-by-location", el)

	polls := 0
	find := webdriver.Visible(s, webdriver.ByID, "filter-by-location")
	got, err := webdriver.Wait(context.Background(), clk, 30*time.Second, func() (webdriver.Element, error) {
		polls++
		if polls == 4 {
			el.Hidden = false
		}
		return find()
	})
	require.NoError(t, err)
	assert.Same(t, el, got)
	assert.Equal(t, 3*webdriver.PollInterval, clk.Since(start))
}

func TestWait_Timeout(t *testing.T) {
	start := time.Now()
	clk := testingclock.NewFakeClock(start)
	s := webdrivertest.NewSession()

	_, err := webdriver.Wait(context.Background(), clk, 10*time.Second, webdriver.Present(s, webdriver.ByID, "wt-cli-accept-all-btn"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, webdriver.ErrNoSuchElement))
	assert.Equal(t, 10*time.Second, clk.Since(start))
}
