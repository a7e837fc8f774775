package deploy

import (
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"
)

type Option func(*Orchestrator)

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithLookPath replaces the binary lookup used by CheckPrerequisites. It should resolve
// binaries the same way the runner executing them does.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *Orchestrator) {
		o.lookPath = fn
	}
}

// WithBinaries sets the binaries CheckPrerequisites requires. Defaults to helm and kubectl.
func WithBinaries(names ...string) Option {
	return func(o *Orchestrator) {
		o.binaries = names
	}
}
