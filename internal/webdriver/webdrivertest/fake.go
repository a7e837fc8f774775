// Package webdrivertest provides an in-memory webdriver.Session for tests.
package webdrivertest

import (
	"sync"

	"emperror.dev/errors"

	"github.com/voluzi/gridpilot/internal/webdriver"
)

func key(by webdriver.By, value string) string {
	return string(by) + "=" + value
}

// Element is a fake element. Children are looked up by exact locator.
type Element struct {
	Name       string
	TextValue  string
	Attrs      map[string]string
	Hidden     bool
	Children   map[string][]*Element
	OnClick    func() error
	ClickCount int
}

var _ webdriver.Element = (*Element)(nil)

// NewElement returns a visible element with the given text.
func NewElement(name, text string) *Element {
	return &Element{Name: name, TextValue: text, Attrs: map[string]string{}, Children: map[string][]*Element{}}
}

// Add registers child under by/value and returns e.
func (e *Element) Add(by webdriver.By, value string, child ...*Element) *Element {
	e.Children[key(by, value)] = append(e.Children[key(by, value)], child...)
	return e
}

func (e *Element) Click() error {
	e.ClickCount++
	if e.OnClick != nil {
		return e.OnClick()
	}
	return nil
}

func (e *Element) Text() (string, error) {
	return e.TextValue, nil
}

func (e *Element) Attribute(name string) (string, error) {
	return e.Attrs[name], nil
}

func (e *Element) IsDisplayed() (bool, error) {
	return !e.Hidden, nil
}

func (e *Element) FindElement(by webdriver.By, value string) (webdriver.Element, error) {
	found := e.Children[key(by, value)]
	if len(found) == 0 {
		return nil, errors.WithDetails(webdriver.ErrNoSuchElement, "by", string(by), "value", value)
	}
	return found[0], nil
}

func (e *Element) FindElements(by webdriver.By, value string) ([]webdriver.Element, error) {
	return asElements(e.Children[key(by, value)]), nil
}

func asElements(in []*Element) []webdriver.Element {
	out := make([]webdriver.Element, len(in))
	for i, el := range in {
		out[i] = el
	}
	return out
}

// Script is invoked for every ExecuteScript call.
type Script func(script string, args []interface{}) (interface{}, error)

// Session is a fake session. Lookups return the elements registered with Add, or the result of
// Lookup when set.
type Session struct {
	mu sync.Mutex

	URL      string
	Visited  []string
	Scripts  []string
	OnScript Script
	Lookup   func(by webdriver.By, value string) []*Element
	Handles  []string
	Current  string
	// WindowURLs maps window handles to the URL reported once switched to.
	WindowURLs map[string]string
	Quitted    bool

	elements map[string][]*Element
}

var _ webdriver.Session = (*Session)(nil)

func NewSession() *Session {
	return &Session{
		Handles:    []string{"main"},
		Current:    "main",
		WindowURLs: map[string]string{},
		elements:   map[string][]*Element{},
	}
}

// Add registers elements under by/value.
func (s *Session) Add(by webdriver.By, value string, els ...*Element) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[key(by, value)] = append(s.elements[key(by, value)], els...)
	return s
}

// Set replaces the elements under by/value.
func (s *Session) Set(by webdriver.By, value string, els ...*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements[key(by, value)] = els
}

func (s *Session) find(by webdriver.By, value string) []*Element {
	if s.Lookup != nil {
		if els := s.Lookup(by, value); els != nil {
			return els
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elements[key(by, value)]
}

func (s *Session) Get(url string) error {
	s.URL = url
	s.Visited = append(s.Visited, url)
	return nil
}

func (s *Session) CurrentURL() (string, error) {
	return s.URL, nil
}

func (s *Session) FindElement(by webdriver.By, value string) (webdriver.Element, error) {
	found := s.find(by, value)
	if len(found) == 0 {
		return nil, errors.WithDetails(webdriver.ErrNoSuchElement, "by", string(by), "value", value)
	}
	return found[0], nil
}

func (s *Session) FindElements(by webdriver.By, value string) ([]webdriver.Element, error) {
	return asElements(s.find(by, value)), nil
}

func (s *Session) ExecuteScript(script string, args ...interface{}) (interface{}, error) {
	s.Scripts = append(s.Scripts, script)
	if s.OnScript != nil {
		return s.OnScript(script, args)
	}
	return nil, nil
}

func (s *Session) WindowHandles() ([]string, error) {
	return s.Handles, nil
}

func (s *Session) SwitchWindow(handle string) error {
	for _, h := range s.Handles {
		if h == handle {
			s.Current = handle
			if url, ok := s.WindowURLs[handle]; ok {
				s.URL = url
			}
			return nil
		}
	}
	return errors.Errorf("no such window %q", handle)
}

func (s *Session) Quit() error {
	s.Quitted = true
	return nil
}
