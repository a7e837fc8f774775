package webdriver

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
	"k8s.io/utils/clock"

	"github.com/voluzi/gridpilot/internal/retry"
)

const ErrConnect = errors.Sentinel("could not connect to remote webdriver")

const (
	DefaultHubURL    = "http://selenium-chrome-service:4444/wd/hub"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Config describes the remote session to open.
type Config struct {
	HubURL     string       `json:"hubURL" yaml:"hubURL"`
	Connect    retry.Policy `json:"connect" yaml:"connect"`
	ChromeArgs []string     `json:"chromeArgs" yaml:"chromeArgs"`
	UserAgent  string       `json:"userAgent" yaml:"userAgent"`
}

func DefaultConfig() Config {
	return Config{
		HubURL:  DefaultHubURL,
		Connect: retry.Policy{Attempts: 5, Delay: 5 * time.Second},
		ChromeArgs: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--window-size=1920,1080",
		},
		UserAgent: DefaultUserAgent,
	}
}

// Capabilities returns the chrome capabilities for cfg.
func (cfg Config) Capabilities() selenium.Capabilities {
	args := append([]string{}, cfg.ChromeArgs...)
	if cfg.UserAgent != "" {
		args = append(args, "--user-agent="+cfg.UserAgent)
	}
	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chrome.Capabilities{Args: args})
	return caps
}

// Dialer opens a session at hubURL.
type Dialer func(caps selenium.Capabilities, hubURL string) (Session, error)

// RemoteDialer dials a selenium grid hub.
func RemoteDialer(caps selenium.Capabilities, hubURL string) (Session, error) {
	wd, err := selenium.NewRemote(caps, hubURL)
	if err != nil {
		return nil, err
	}
	return NewSeleniumSession(wd), nil
}

type connectOptions struct {
	dial  Dialer
	clock clock.Clock
	log   logrus.FieldLogger
}

type ConnectOption func(*connectOptions)

func WithDialer(d Dialer) ConnectOption {
	return func(o *connectOptions) {
		o.dial = d
	}
}

func WithClock(c clock.Clock) ConnectOption {
	return func(o *connectOptions) {
		o.clock = c
	}
}

func WithLogger(log logrus.FieldLogger) ConnectOption {
	return func(o *connectOptions) {
		o.log = log
	}
}

// Connect opens a remote session, retrying under cfg.Connect. Exhausting the attempts returns
// ErrConnect.
func Connect(ctx context.Context, cfg Config, opts ...ConnectOption) (Session, error) {
	o := &connectOptions{
		dial:  RemoteDialer,
		clock: clock.RealClock{},
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}

	log := o.log.WithField("hub", cfg.HubURL)
	log.Info("connecting to webdriver")

	caps := cfg.Capabilities()
	var (
		session Session
		lastErr error
	)
	_, err := retry.New(cfg.Connect, o.clock).Poll(ctx, func(_ context.Context, attempt int) (bool, error) {
		s, err := o.dial(caps, cfg.HubURL)
		if err != nil {
			lastErr = err
			log.WithError(err).WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     cfg.Connect.Attempts,
			}).Warnf("connection attempt failed, retrying in %s", cfg.Connect.Delay)
			return false, nil
		}
		session = s
		return true, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, errors.WithDetails(errors.Combine(ErrConnect, lastErr), "hub", cfg.HubURL, "attempts", cfg.Connect.Attempts)
		}
		return nil, err
	}

	log.Info("connection established")
	return session, nil
}
