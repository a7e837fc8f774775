// Package webdriver is the narrow remote-browser surface used by the careers workflow. The
// selenium-backed implementation lives in selenium.go; tests provide their own.
package webdriver

import (
	"context"
	"time"

	"emperror.dev/errors"
	"k8s.io/utils/clock"

	"github.com/voluzi/gridpilot/internal/retry"
)

// By selects an element location strategy.
type By string

const (
	ByID        By = "id"
	ByXPath     By = "xpath"
	ByClassName By = "class name"
)

// ErrNoSuchElement is returned by lookups that match nothing.
const ErrNoSuchElement = errors.Sentinel("no such element")

type Element interface {
	Click() error
	Text() (string, error)
	Attribute(name string) (string, error)
	IsDisplayed() (bool, error)
	FindElement(by By, value string) (Element, error)
	FindElements(by By, value string) ([]Element, error)
}

type Session interface {
	Get(url string) error
	CurrentURL() (string, error)
	FindElement(by By, value string) (Element, error)
	FindElements(by By, value string) ([]Element, error)

	// ExecuteScript runs script synchronously. Element arguments are passed to the browser
	// as element references.
	ExecuteScript(script string, args ...interface{}) (interface{}, error)

	WindowHandles() ([]string, error)
	SwitchWindow(handle string) error
	Quit() error
}

// PollInterval is how often Wait re-evaluates its condition.
const PollInterval = 500 * time.Millisecond

// Wait polls find every PollInterval until it returns an element or timeout elapses.
func Wait(ctx context.Context, clk clock.Clock, timeout time.Duration, find func() (Element, error)) (Element, error) {
	attempts := int(timeout/PollInterval) + 1
	var (
		found   Element
		lastErr error
	)
	_, err := retry.New(retry.Policy{Attempts: attempts, Delay: PollInterval}, clk).Poll(ctx, func(context.Context, int) (bool, error) {
		el, err := find()
		if err != nil {
			lastErr = err
			return false, nil
		}
		found = el
		return el != nil, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) && lastErr != nil {
			return nil, errors.WrapWithDetails(lastErr, "timed out waiting for element", "timeout", timeout)
		}
		return nil, errors.WrapWithDetails(err, "timed out waiting for element", "timeout", timeout)
	}
	return found, nil
}

// Present finds the element located by by/value.
func Present(s Session, by By, value string) func() (Element, error) {
	return func() (Element, error) {
		return s.FindElement(by, value)
	}
}

// Visible finds the element located by by/value once it is displayed.
func Visible(s Session, by By, value string) func() (Element, error) {
	return func() (Element, error) {
		el, err := s.FindElement(by, value)
		if err != nil {
			return nil, err
		}
		shown, err := el.IsDisplayed()
		if err != nil {
			return nil, err
		}
		if !shown {
			return nil, errors.Errorf("element %s=%q is not displayed", by, value)
		}
		return el, nil
	}
}
