package webdriver

import (
	"strings"

	"emperror.dev/errors"
	"github.com/tebeka/selenium"
)

type seleniumSession struct {
	wd selenium.WebDriver
}

type seleniumElement struct {
	we selenium.WebElement
}

var (
	_ Session = (*seleniumSession)(nil)
	_ Element = (*seleniumElement)(nil)
)

// NewSeleniumSession adapts a selenium.WebDriver.
func NewSeleniumSession(wd selenium.WebDriver) Session {
	return &seleniumSession{wd: wd}
}

func notFound(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such element") {
		return errors.Combine(ErrNoSuchElement, err)
	}
	return err
}

func wrapElements(wes []selenium.WebElement) []Element {
	out := make([]Element, len(wes))
	for i, we := range wes {
		out[i] = &seleniumElement{we: we}
	}
	return out
}

func (s *seleniumSession) Get(url string) error {
	return s.wd.Get(url)
}

func (s *seleniumSession) CurrentURL() (string, error) {
	return s.wd.CurrentURL()
}

func (s *seleniumSession) FindElement(by By, value string) (Element, error) {
	we, err := s.wd.FindElement(string(by), value)
	if err != nil {
		return nil, notFound(err)
	}
	return &seleniumElement{we: we}, nil
}

func (s *seleniumSession) FindElements(by By, value string) ([]Element, error) {
	wes, err := s.wd.FindElements(string(by), value)
	if err != nil {
		return nil, err
	}
	return wrapElements(wes), nil
}

func (s *seleniumSession) ExecuteScript(script string, args ...interface{}) (interface{}, error) {
	unwrapped := make([]interface{}, len(args))
	for i, arg := range args {
		if el, ok := arg.(*seleniumElement); ok {
			unwrapped[i] = el.we
		} else {
			unwrapped[i] = arg
		}
	}
	return s.wd.ExecuteScript(script, unwrapped)
}

func (s *seleniumSession) WindowHandles() ([]string, error) {
	return s.wd.WindowHandles()
}

func (s *seleniumSession) SwitchWindow(handle string) error {
	return s.wd.SwitchWindow(handle)
}

func (s *seleniumSession) Quit() error {
	return s.wd.Quit()
}

func (e *seleniumElement) Click() error {
	return e.we.Click()
}

func (e *seleniumElement) Text() (string, error) {
	return e.we.Text()
}

func (e *seleniumElement) Attribute(name string) (string, error) {
	return e.we.GetAttribute(name)
}

func (e *seleniumElement) IsDisplayed() (bool, error) {
	return e.we.IsDisplayed()
}

func (e *seleniumElement) FindElement(by By, value string) (Element, error) {
	we, err := e.we.FindElement(string(by), value)
	if err != nil {
		return nil, notFound(err)
	}
	return &seleniumElement{we: we}, nil
}

func (e *seleniumElement) FindElements(by By, value string) ([]Element, error) {
	wes, err := e.we.FindElements(string(by), value)
	if err != nil {
		return nil, err
	}
	return wrapElements(wes), nil
}
