// Package helm wraps the helm binary.
package helm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"emperror.dev/errors"

	"github.com/voluzi/gridpilot/internal/shell"
)

const helmBin = "helm"

// Client runs helm release commands through a shell.Runner.
type Client struct {
	runner    shell.Runner
	namespace string
}

func New(runner shell.Runner, namespace string) *Client {
	return &Client{runner: runner, namespace: namespace}
}

// InstallOptions describe a chart install.
type InstallOptions struct {
	Release string
	Chart   string

	// Values are passed as --set key=value, sorted by key.
	Values map[string]string

	CreateNamespace bool
}

// InstallArgs returns the helm argv for opts, without the binary name.
func (c *Client) InstallArgs(opts InstallOptions) []string {
	args := []string{"install", opts.Release, opts.Chart}

	keys := make([]string, 0, len(opts.Values))
	for k := range opts.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--set", fmt.Sprintf("%s=%s", k, opts.Values[k]))
	}

	if c.namespace != "" {
		args = append(args, "--namespace", c.namespace)
		if opts.CreateNamespace {
			args = append(args, "--create-namespace")
		}
	}
	return args
}

// Install installs the chart. The returned error carries helm's stderr.
func (c *Client) Install(ctx context.Context, opts InstallOptions) (shell.Result, error) {
	res := c.runner.Run(ctx, helmBin, c.InstallArgs(opts)...)
	if !res.OK() {
		return res, errors.WrapWithDetails(res.Err, strings.TrimSpace(res.Stderr),
			"release", opts.Release,
			"chart", opts.Chart,
			"exitCode", res.ExitCode,
		)
	}
	return res, nil
}

// Uninstall removes the release. Helm reports a missing release as an error; callers
// doing cleanup are expected to ignore it.
func (c *Client) Uninstall(ctx context.Context, release string) (shell.Result, error) {
	args := []string{"uninstall", release}
	if c.namespace != "" {
		args = append(args, "--namespace", c.namespace)
	}
	res := c.runner.Run(ctx, helmBin, args...)
	if !res.OK() {
		return res, errors.WrapWithDetails(res.Err, strings.TrimSpace(res.Stderr), "release", release)
	}
	return res, nil
}

// IsReleaseNotFound reports whether res is helm complaining about a missing release.
func IsReleaseNotFound(res shell.Result) bool {
	return strings.Contains(res.Stderr, "release: not found")
}
