package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"

	"github.com/voluzi/gridpilot/internal/careers"
	"github.com/voluzi/gridpilot/internal/webdriver"
)

var (
	logLevel       string
	careersURL     string
	expectedDomain string
	locations      []string
	department     string
	driverConfig   = webdriver.DefaultConfig()
)

func main() {
	flag.Parse()

	if level, err := log.ParseLevel(logLevel); err == nil {
		log.SetLevel(level)
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	session, err := webdriver.Connect(ctx, driverConfig)
	if err != nil {
		log.WithError(err).Error("could not connect to remote webdriver")
		fmt.Println("FAILED")
		return 1
	}
	defer func() {
		if err := session.Quit(); err != nil {
			log.WithError(err).Warn("could not close browser session")
		}
	}()

	cfg := careers.DefaultConfig()
	cfg.URL = careersURL
	cfg.ExpectedDomain = expectedDomain
	cfg.LocationCandidates = locations
	cfg.Department = department

	if err := careers.New(session, cfg).Run(ctx); err != nil {
		var failure *careers.AssertionError
		if errors.As(err, &failure) {
			log.WithField("stage", failure.Stage).WithField("result", "failure").Error(failure.Error())
		} else {
			log.WithError(err).WithField("result", "failure").Error("workflow aborted")
		}
		fmt.Println("FAILED")
		return 1
	}

	log.WithField("result", "success").Info("careers workflow passed")
	fmt.Println("OK")
	return 0
}
