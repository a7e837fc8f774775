// Package retry implements the bounded, fixed-delay polling used by every wait in gridpilot.
//
// There is no backoff: each attempt is followed by the same delay, and the total
// wait is bounded by Attempts x Delay. Time is read through a clock.Clock so tests can drive
// the loop with a fake clock.
package retry

import (
	"context"
	"time"

	"emperror.dev/errors"
	"k8s.io/utils/clock"
)

const ErrExhausted = errors.Sentinel("retry attempts exhausted")

// Policy is a fixed number of attempts separated by a fixed delay.
type Policy struct {
	Attempts int           `json:"attempts" yaml:"attempts" toml:"attempts"`
	Delay    time.Duration `json:"delay" yaml:"delay" toml:"delay"`
}

// Budget is the longest a policy can wait between its first and last attempt.
func (p Policy) Budget() time.Duration {
	if p.Attempts <= 1 {
		return 0
	}
	return time.Duration(p.Attempts-1) * p.Delay
}

func (p Policy) Validate() error {
	if p.Attempts < 1 {
		return errors.Errorf("attempts must be at least 1, got %d", p.Attempts)
	}
	if p.Delay < 0 {
		return errors.Errorf("delay must not be negative, got %s", p.Delay)
	}
	return nil
}

// Condition is evaluated once per attempt; attempt starts at 1. Returning done stops the loop
// successfully, returning an error stops it with that error.
type Condition func(ctx context.Context, attempt int) (done bool, err error)

// Poller runs conditions under a Policy.
type Poller struct {
	Policy Policy
	Clock  clock.Clock
}

func New(p Policy, c clock.Clock) *Poller {
	if c == nil {
		c = clock.RealClock{}
	}
	return &Poller{Policy: p, Clock: c}
}

// Poll evaluates cond up to Policy.Attempts times and returns the number of attempts made.
// It sleeps Policy.Delay between attempts but not after the last one. When no attempt
// succeeds the error is ErrExhausted.
func (p *Poller) Poll(ctx context.Context, cond Condition) (int, error) {
	if err := p.Policy.Validate(); err != nil {
		return 0, err
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	for attempt := 1; attempt <= p.Policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, errors.Wrap(err, "polling interrupted")
		}

		done, err := cond(ctx, attempt)
		if err != nil {
			return attempt, err
		}
		if done {
			return attempt, nil
		}

		if attempt < p.Policy.Attempts {
			if err := Sleep(ctx, clk, p.Policy.Delay); err != nil {
				return attempt, errors.Wrap(err, "polling interrupted")
			}
		}
	}
	return p.Policy.Attempts, errors.WithDetails(ErrExhausted, "attempts", p.Policy.Attempts, "delay", p.Policy.Delay)
}

// stepper is implemented by fake clocks, whose Sleep advances time instead of blocking.
type stepper interface {
	Step(d time.Duration)
}

// Sleep pauses for d and returns early with the context error once ctx is done.
func Sleep(ctx context.Context, c clock.Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	if c == nil {
		c = clock.RealClock{}
	}
	if _, fake := c.(stepper); fake {
		c.Sleep(d)
		return ctx.Err()
	}

	t := c.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
