package scraper

import (
	"errors"
	"sync"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
)

// fakeElement is a scriptable in-memory Element.
type fakeElement struct {
	text     string
	textErr  error
	attrs    map[string]string
	visible  bool
	children map[string][]browser.Element
	evalFn   func(script string) (any, error)

	mu       sync.Mutex
	clicks   int
	scrolls  int
	clickErr error
	onClick  func()
}

func (e *fakeElement) Text() (string, error) {
	return e.text, e.textErr
}

func (e *fakeElement) Attribute(name string) (string, error) {
	if e.attrs == nil {
		return "", nil
	}
	return e.attrs[name], nil
}

func (e *fakeElement) Click() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clickErr != nil {
		return e.clickErr
	}
	e.clicks++
	if e.onClick != nil {
		e.onClick()
	}
	return nil
}

func (e *fakeElement) clickCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

func (e *fakeElement) ScrollIntoView() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scrolls++
	return nil
}

func (e *fakeElement) Visible() (bool, error) {
	return e.visible, nil
}

func (e *fakeElement) FindAll(selector string) ([]browser.Element, error) {
	if e.children == nil {
		return nil, nil
	}
	return e.children[selector], nil
}

func (e *fakeElement) Evaluate(script string) (any, error) {
	if e.evalFn != nil {
		return e.evalFn(script)
	}
	return nil, errors.New("no eval handler")
}

// fakeDriver is a scriptable in-memory Driver. FindAll serves the static
// elements map unless an onFindAll hook is installed.
type fakeDriver struct {
	mu        sync.Mutex
	elements  map[string][]browser.Element
	onFindAll func(selector string) ([]browser.Element, error)
	navigated []string
	navErr    error
	pageText  string
	html      string
	evalFn    func(script string) (any, error)
	closes    int
}

func (d *fakeDriver) Navigate(url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.navErr != nil {
		return d.navErr
	}
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) FindAll(selector string) ([]browser.Element, error) {
	d.mu.Lock()
	hook := d.onFindAll
	d.mu.Unlock()
	if hook != nil {
		return hook(selector)
	}
	if d.elements == nil {
		return nil, nil
	}
	return d.elements[selector], nil
}

func (d *fakeDriver) PageText() (string, error) {
	return d.pageText, nil
}

func (d *fakeDriver) Content() (string, error) {
	return d.html, nil
}

func (d *fakeDriver) Evaluate(script string) (any, error) {
	if d.evalFn != nil {
		return d.evalFn(script)
	}
	return "", nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closes++
	return nil
}

func (d *fakeDriver) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

func (d *fakeDriver) navigatedURLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.navigated...)
}

var (
	_ browser.Driver  = (*fakeDriver)(nil)
	_ browser.Element = (*fakeElement)(nil)
)
