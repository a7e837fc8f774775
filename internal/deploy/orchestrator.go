// Package deploy stands up the browser grid with helm, waits for it to become ready and
// collects the result of the in-cluster test job.
package deploy

import (
	"context"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/voluzi/gridpilot/internal/cluster"
	"github.com/voluzi/gridpilot/internal/config"
	"github.com/voluzi/gridpilot/internal/helm"
	"github.com/voluzi/gridpilot/internal/retry"
	"github.com/voluzi/gridpilot/internal/shell"
	"github.com/voluzi/gridpilot/pkg/report"
	"github.com/voluzi/gridpilot/pkg/utils"
)

const (
	ErrChartNotFound  = errors.Sentinel("helm chart not found")
	ErrBinaryNotFound = errors.Sentinel("required binary not found")
	ErrDeployFailed   = errors.Sentinel("helm install failed")
	ErrHealthTimeout  = errors.Sentinel("nodes did not become ready")
	ErrJobNotFound    = errors.Sentinel("test job not found")
)

const (
	StepPrerequisites = "prerequisites"
	StepCleanup       = "cleanup"
	StepDeploy        = "deploy"
	StepHealthCheck   = "health-check"
	StepRunTests      = "run-tests"
)

// Helm installs and removes releases.
type Helm interface {
	Install(ctx context.Context, opts helm.InstallOptions) (shell.Result, error)
	Uninstall(ctx context.Context, release string) (shell.Result, error)
}

// Outcome is what RunTests learned about the test job.
type Outcome struct {
	Job     string
	Logs    string
	Verdict Verdict
}

type Orchestrator struct {
	cfg      *config.Deploy
	cluster  cluster.Cluster
	helm     Helm
	clock    clock.Clock
	log      logrus.FieldLogger
	lookPath func(string) (string, error)
	binaries []string

	report *report.Run
}

func New(cfg *config.Deploy, cl cluster.Cluster, h Helm, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		cluster:  cl,
		helm:     h,
		clock:    clock.RealClock{},
		log:      logrus.StandardLogger(),
		lookPath: func(name string) (string, error) { return shell.LookPath(name) },
		binaries: []string{"helm", "kubectl"},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.report = &report.Run{
		Release:   cfg.ReleaseName,
		NodeCount: cfg.NodeCount,
		Verdict:   VerdictUnknown.String(),
	}
	if hash, err := report.ConfigHash(cfg); err == nil {
		o.report.ConfigHash = hash
	}
	return o
}

// Report returns the record of the steps run so far.
func (o *Orchestrator) Report() *report.Run {
	return o.report
}

func (o *Orchestrator) step(name string, fn func() error) error {
	started := o.clock.Now()
	if o.report.Started.IsZero() {
		o.report.Started = started
	}
	err := fn()
	finished := o.clock.Now()
	o.report.AddStep(name, started, finished.Sub(started), err)
	o.report.Finished = finished
	return err
}

// Run executes the whole pipeline. The returned error is nil only for VerdictSuccess.
func (o *Orchestrator) Run(ctx context.Context) (Outcome, error) {
	if err := o.cfg.Validate(); err != nil {
		return Outcome{}, errors.Wrap(err, "invalid configuration")
	}

	if err := o.step(StepPrerequisites, o.CheckPrerequisites); err != nil {
		return Outcome{}, err
	}
	if err := o.step(StepCleanup, func() error { return o.Cleanup(ctx) }); err != nil {
		return Outcome{}, err
	}
	if err := o.step(StepDeploy, func() error { return o.Deploy(ctx) }); err != nil {
		return Outcome{}, err
	}
	if err := o.step(StepHealthCheck, func() error { return o.HealthCheck(ctx) }); err != nil {
		return Outcome{}, err
	}

	var outcome Outcome
	err := o.step(StepRunTests, func() error {
		var err error
		outcome, err = o.RunTests(ctx)
		return err
	})
	if err != nil {
		return outcome, err
	}

	switch outcome.Verdict {
	case VerdictSuccess:
		return outcome, nil
	case VerdictFailure:
		return outcome, errors.WithDetails(errors.New("tests failed"), "job", outcome.Job)
	default:
		return outcome, errors.WithDetails(errors.New("test job produced no logs"), "job", outcome.Job)
	}
}

// CheckPrerequisites fails when the chart directory or a required binary is missing.
func (o *Orchestrator) CheckPrerequisites() error {
	exists, err := utils.DirExists(o.cfg.ChartPath)
	if err != nil {
		return errors.WrapWithDetails(err, "checking chart", "path", o.cfg.ChartPath)
	}
	if !exists {
		o.log.WithField("path", o.cfg.ChartPath).Error("helm chart not found")
		return errors.WithDetails(ErrChartNotFound, "path", o.cfg.ChartPath)
	}

	for _, bin := range o.binaries {
		if _, err := o.lookPath(bin); err != nil {
			o.log.WithField("binary", bin).Error("required binary not found")
			return errors.WithDetails(ErrBinaryNotFound, "binary", bin)
		}
	}
	return nil
}

// Cleanup removes a previous release and its resources. It never fails on command errors,
// only on context cancellation.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	o.log.Warn("removing existing resources")

	if res, err := o.helm.Uninstall(ctx, o.cfg.ReleaseName); err != nil {
		entry := o.log.WithField("release", o.cfg.ReleaseName)
		if helm.IsReleaseNotFound(res) {
			entry.Debug("no release to uninstall")
		} else {
			entry.WithError(err).Warn("helm uninstall failed")
		}
	}

	for _, res := range o.cfg.Resources {
		if err := o.cluster.Delete(ctx, res); err != nil {
			o.log.WithField("resource", res).WithError(err).Warn("could not delete resource")
		}
	}

	return retry.Sleep(ctx, o.clock, o.cfg.SettleDelay)
}

// Deploy installs the chart with the configured node count.
func (o *Orchestrator) Deploy(ctx context.Context) error {
	log := o.log.WithField("nodes", o.cfg.NodeCount)
	log.Info("installing helm chart")

	_, err := o.helm.Install(ctx, helm.InstallOptions{
		Release: o.cfg.ReleaseName,
		Chart:   o.cfg.ChartPath,
		Values: map[string]string{
			o.cfg.NodeCountKey: strconv.Itoa(o.cfg.NodeCount),
		},
		CreateNamespace: o.cfg.Namespace != "",
	})
	if err != nil {
		log.WithError(err).Error("deployment failed")
		return errors.WrapWithDetails(errors.Combine(ErrDeployFailed, err), "deploying chart", "release", o.cfg.ReleaseName)
	}

	log.WithField("result", "success").Info("deployment successful")
	return nil
}

// HealthCheck polls until exactly NodeCount browser nodes are running.
func (o *Orchestrator) HealthCheck(ctx context.Context) error {
	target := o.cfg.NodeCount
	policy := o.cfg.Health
	o.log.WithField("target", target).Warn("waiting for chrome nodes")

	_, err := retry.New(policy, o.clock).Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
		ready, err := o.cluster.CountRunning(ctx, o.cfg.NodeSelector)
		if err != nil {
			o.log.WithError(err).Debug("could not count running nodes")
			ready = 0
		}
		if ready == target {
			return true, nil
		}
		o.log.WithFields(logrus.Fields{
			"ready":   ready,
			"target":  target,
			"attempt": attempt,
			"max":     policy.Attempts,
		}).Info("waiting for nodes")
		return false, nil
	})

	switch {
	case err == nil:
		o.log.WithField("result", "success").Infof("all %d nodes are ready", target)
		return nil
	case errors.Is(err, retry.ErrExhausted):
		o.log.Error("nodes did not become ready")
		return errors.WithDetails(ErrHealthTimeout, "target", target, "attempts", policy.Attempts)
	default:
		return err
	}
}

// RunTests locates the test job, waits for it and classifies its logs. Only a missing job
// is an error; a job that does not complete in time is still inspected.
func (o *Orchestrator) RunTests(ctx context.Context) (Outcome, error) {
	o.log.Warn("waiting for test completion")

	var job string
	_, err := retry.New(o.cfg.JobDiscovery, o.clock).Poll(ctx, func(ctx context.Context, _ int) (bool, error) {
		names, err := o.cluster.FindJobs(ctx, o.cfg.JobSelector)
		if err != nil {
			o.log.WithError(err).Debug("could not list jobs")
			return false, nil
		}
		if len(names) == 0 {
			return false, nil
		}
		job = names[0]
		return true, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			o.log.Error("test job not found")
			return Outcome{}, errors.WithDetails(ErrJobNotFound, "selector", o.cfg.JobSelector)
		}
		return Outcome{}, err
	}

	log := o.log.WithField("job", job)
	log.Info("job found")
	o.report.Job = job

	if err := o.cluster.WaitJobComplete(ctx, job, o.cfg.JobTimeout); err != nil {
		log.WithError(err).Warn("job did not complete in time")
	}

	logs, err := o.cluster.JobLogs(ctx, job)
	if err != nil {
		log.WithError(err).Error("could not fetch job logs")
	}

	outcome := Outcome{Job: job, Logs: logs, Verdict: Classify(logs, o.cfg.SuccessMarker)}
	o.report.Verdict = outcome.Verdict.String()
	if logs != "" {
		o.report.LogsSHA256 = report.LogDigest(logs)
		log.Info("--- TEST LOGS ---")
		for _, line := range strings.Split(strings.TrimRight(logs, "\n"), "\n") {
			log.Info(line)
		}
	}

	switch outcome.Verdict {
	case VerdictSuccess:
		log.WithField("result", "success").Info("test pipeline completed")
	case VerdictFailure:
		log.WithField("result", "failure").Error("tests failed")
	default:
		log.Warn("test job produced no logs")
	}
	return outcome, nil
}

// Elapsed is the wall time between the first and last recorded step.
func (o *Orchestrator) Elapsed() time.Duration {
	return o.report.Finished.Sub(o.report.Started)
}
