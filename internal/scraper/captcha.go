package scraper

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/observability"
)

// CaptchaGate suspends the acquisition pipeline while an anti-automation
// challenge is visible on the page. A block is not an error: the worker
// parks on the resume signal until an operator clears the challenge.
//
// The resume signal is a single-slot gate, not a queue: signals sent while
// no worker is parked are coalesced into one.
type CaptchaGate struct {
	driver      browser.Driver
	indicators  []string
	textMarkers []string
	resume      chan struct{}
	blocked     atomic.Bool
	notify      func(Event)
	logger      *slog.Logger
}

func NewCaptchaGate(driver browser.Driver, indicators, textMarkers []string, logger *slog.Logger) *CaptchaGate {
	return &CaptchaGate{
		driver:      driver,
		indicators:  indicators,
		textMarkers: textMarkers,
		resume:      make(chan struct{}, 1),
		notify:      func(Event) {},
		logger:      logger.With("component", "captcha_gate"),
	}
}

// OnEvent installs the controller notification hook.
func (g *CaptchaGate) OnEvent(fn func(Event)) {
	if fn != nil {
		g.notify = fn
	}
}

// Blocked reports whether a worker is currently parked on the gate.
func (g *CaptchaGate) Blocked() bool {
	return g.blocked.Load()
}

// Resume signals the parked worker to continue. Safe to call from any
// goroutine at any time; redundant signals are coalesced.
func (g *CaptchaGate) Resume() {
	select {
	case g.resume <- struct{}{}:
	default:
	}
}

// Check probes the page for a visible challenge and, when one is found,
// blocks until Resume is signalled or the context is cancelled. After a
// resume the indicators are re-checked exactly once; a still-visible
// challenge is logged but does not re-park the worker, so a flaky
// indicator cannot stall the run forever.
func (g *CaptchaGate) Check(ctx context.Context) error {
	if !g.detect() {
		return nil
	}

	g.blocked.Store(true)
	defer g.blocked.Store(false)

	observability.CaptchaBlocks.Inc()
	g.logger.Warn("captcha detected, scraping paused")
	g.notify(Event{Kind: EventCaptchaBlocked, Message: "captcha detected, waiting for operator resume"})

	select {
	case <-ctx.Done():
		return ErrCancelled
	case <-g.resume:
	}

	if g.detect() {
		g.logger.Warn("captcha indicator still present after resume")
	}

	g.logger.Info("resuming after captcha")
	g.notify(Event{Kind: EventCaptchaCleared, Message: "captcha cleared, resuming"})
	return nil
}

// detect reports whether any configured indicator is present and visible,
// falling back to page-text markers for challenge layouts without a stable
// selector. Detection itself never fails: driver errors count as "not
// detected".
func (g *CaptchaGate) detect() bool {
	for _, selector := range g.indicators {
		elements, err := g.driver.FindAll(selector)
		if err != nil {
			continue
		}
		for _, el := range elements {
			visible, err := el.Visible()
			if err == nil && visible {
				return true
			}
		}
	}

	if len(g.textMarkers) == 0 {
		return false
	}
	text, err := g.driver.PageText()
	if err != nil {
		return false
	}
	text = strings.ToLower(text)
	for _, marker := range g.textMarkers {
		if strings.Contains(text, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}
