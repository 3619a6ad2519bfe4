package browser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Page is the playwright-backed Driver implementation.
type Page struct {
	page   playwright.Page
	logger *slog.Logger
}

var _ Driver = (*Page)(nil)

func (p *Page) Navigate(url string) error {
	return p.NavigateWithRetry(url, 3)
}

func (p *Page) NavigateWithRetry(url string, maxRetries int) error {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			p.logger.Info("retrying navigation", "attempt", i+1, "url", url)
			time.Sleep(time.Duration(i+1) * time.Second)
		}

		_, err := p.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(30000),
		})
		if err == nil {
			return nil
		}

		lastErr = err
		p.logger.Error("navigation failed", "error", err, "attempt", i+1)
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *Page) FindAll(selector string) ([]Element, error) {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return wrapHandles(handles), nil
}

func (p *Page) PageText() (string, error) {
	result, err := p.page.Evaluate(`() => document.body ? document.body.innerText : ''`)
	if err != nil {
		return "", fmt.Errorf("failed to read page text: %w", err)
	}
	text, _ := result.(string)
	return text, nil
}

func (p *Page) Content() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (p *Page) Evaluate(script string) (any, error) {
	return p.page.Evaluate(script)
}

func (p *Page) Close() error {
	return p.page.Close()
}

type element struct {
	handle playwright.ElementHandle
}

func wrapHandles(handles []playwright.ElementHandle) []Element {
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &element{handle: h})
	}
	return elements
}

func (e *element) Text() (string, error) {
	return e.handle.TextContent()
}

func (e *element) Attribute(name string) (string, error) {
	return e.handle.GetAttribute(name)
}

func (e *element) Click() error {
	return e.handle.Click()
}

func (e *element) ScrollIntoView() error {
	return e.handle.ScrollIntoViewIfNeeded()
}

func (e *element) Visible() (bool, error) {
	return e.handle.IsVisible()
}

func (e *element) FindAll(selector string) ([]Element, error) {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", selector, err)
	}
	return wrapHandles(handles), nil
}

func (e *element) Evaluate(script string) (any, error) {
	return e.handle.Evaluate(script)
}
