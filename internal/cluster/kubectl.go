package cluster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/goccy/go-json"
	batchv1 "k8s.io/api/batch/v1"

	"github.com/voluzi/gridpilot/internal/shell"
)

const kubectlBin = "kubectl"

// runningCountTemplate prints the number of listed items and nothing else.
const runningCountTemplate = "go-template={{len .items}}"

// Kubectl drives the kubectl binary through a shell.Runner.
type Kubectl struct {
	runner    shell.Runner
	namespace string
}

var _ Cluster = (*Kubectl)(nil)

// NewKubectl returns a kubectl backend. An empty namespace leaves namespace selection to the
// active kubeconfig context.
func NewKubectl(runner shell.Runner, namespace string) *Kubectl {
	return &Kubectl{runner: runner, namespace: namespace}
}

func (k *Kubectl) run(ctx context.Context, args ...string) shell.Result {
	if k.namespace != "" {
		args = append([]string{"-n", k.namespace}, args...)
	}
	return k.runner.Run(ctx, kubectlBin, args...)
}

func commandError(res shell.Result, msg string) error {
	return errors.WrapWithDetails(res.Err, msg,
		"command", res.String(),
		"exitCode", res.ExitCode,
		"stderr", strings.TrimSpace(res.Stderr),
	)
}

func (k *Kubectl) Delete(ctx context.Context, resource string) error {
	res := k.run(ctx, "delete", resource, "--ignore-not-found=true")
	if !res.OK() {
		return commandError(res, "deleting "+resource)
	}
	return nil
}

func (k *Kubectl) CountRunning(ctx context.Context, selector string) (int, error) {
	res := k.run(ctx, "get", "pods",
		"-l", selector,
		"--field-selector=status.phase=Running",
		"-o", runningCountTemplate,
	)
	if !res.OK() {
		return 0, commandError(res, "counting running pods")
	}
	return ParseCount(res.Stdout), nil
}

func (k *Kubectl) FindJobs(ctx context.Context, selector string) ([]string, error) {
	res := k.run(ctx, "get", "jobs", "-l", selector, "-o", "json")
	if !res.OK() {
		return nil, commandError(res, "listing jobs")
	}

	var list batchv1.JobList
	if err := json.Unmarshal([]byte(res.Stdout), &list); err != nil {
		return nil, errors.WrapWithDetails(err, "decoding job list", "selector", selector)
	}

	names := make([]string, 0, len(list.Items))
	for _, job := range list.Items {
		names = append(names, job.Name)
	}
	return names, nil
}

func (k *Kubectl) WaitJobComplete(ctx context.Context, name string, timeout time.Duration) error {
	res := k.run(ctx, "wait", "--for=condition=complete", "job/"+name,
		fmt.Sprintf("--timeout=%s", timeout))
	if !res.OK() {
		return commandError(res, "waiting for job "+name)
	}
	return nil
}

func (k *Kubectl) JobLogs(ctx context.Context, name string) (string, error) {
	res := k.run(ctx, "logs", "job/"+name)
	if !res.OK() {
		return "", commandError(res, "fetching logs of job "+name)
	}
	return res.Stdout, nil
}
