package main

import (
	"flag"

	"github.com/voluzi/gridpilot/internal/careers"
	"github.com/voluzi/gridpilot/pkg/environ"
)

func init() {
	defaults := careers.DefaultConfig()

	flag.StringVar(&logLevel, "log-level",
		environ.GetString("LOG_LEVEL", "info"),
		"log level",
	)

	flag.StringVar(&driverConfig.HubURL, "hub-url",
		environ.GetString("HUB_URL", driverConfig.HubURL),
		"the remote webdriver endpoint",
	)

	flag.IntVar(&driverConfig.Connect.Attempts, "connect-attempts",
		environ.GetInt("CONNECT_ATTEMPTS", driverConfig.Connect.Attempts),
		"how many times to try opening a browser session",
	)

	flag.DurationVar(&driverConfig.Connect.Delay, "connect-delay",
		environ.GetDuration("CONNECT_DELAY", driverConfig.Connect.Delay),
		"the delay between connection attempts",
	)

	flag.StringVar(&driverConfig.UserAgent, "user-agent",
		environ.GetString("USER_AGENT", driverConfig.UserAgent),
		"the user agent reported by the browser",
	)

	flag.StringVar(&careersURL, "url",
		environ.GetString("CAREERS_URL", defaults.URL),
		"the careers page to test",
	)

	flag.StringVar(&expectedDomain, "expected-domain",
		environ.GetString("EXPECTED_DOMAIN", defaults.ExpectedDomain),
		"the domain the view role link must point to",
	)

	flag.StringVar(&department, "department",
		environ.GetString("DEPARTMENT", defaults.Department),
		"the department to filter by",
	)

	locations = environ.GetStringSlice("LOCATIONS", defaults.LocationCandidates)
	flag.Func("location",
		"a location label to try, in priority order (repeatable)",
		func(s string) error {
			if !locationsSet {
				locations = nil
				locationsSet = true
			}
			locations = append(locations, s)
			return nil
		},
	)
}

var locationsSet bool
