package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
)

// TargetDiscoverer collects product page URLs from a search or category
// listing.
type TargetDiscoverer struct {
	driver    browser.Driver
	gate      *CaptchaGate
	scraper   config.ScraperConfig
	selectors config.SelectorConfig
	logger    *slog.Logger
}

func NewTargetDiscoverer(driver browser.Driver, gate *CaptchaGate, scraper config.ScraperConfig, selectors config.SelectorConfig, logger *slog.Logger) *TargetDiscoverer {
	return &TargetDiscoverer{
		driver:    driver,
		gate:      gate,
		scraper:   scraper,
		selectors: selectors,
		logger:    logger.With("component", "discover"),
	}
}

// DiscoverTargets loads the listing URL and returns up to MaxProducts
// product page URLs, deduplicated in page order. Returns ErrNoTargets when
// the listing yields no product links.
func (d *TargetDiscoverer) DiscoverTargets(ctx context.Context, listURL string) ([]string, error) {
	if err := d.driver.Navigate(listURL); err != nil {
		return nil, fmt.Errorf("failed to open listing: %w", err)
	}
	if err := sleepRange(ctx, d.scraper.WaitPageLoad); err != nil {
		return nil, err
	}
	if err := d.gate.Check(ctx); err != nil {
		return nil, err
	}

	// Nudge lazy-loaded cards into the DOM before collecting links.
	if _, err := d.driver.Evaluate(`() => window.scrollBy(0, window.innerHeight)`); err != nil {
		d.logger.Debug("listing scroll failed", "error", err)
	}
	if err := sleepRange(ctx, d.scraper.WaitScroll); err != nil {
		return nil, err
	}

	var cards []browser.Element
	for _, sel := range d.selectors.SearchItem {
		found, err := d.driver.FindAll(sel)
		if err == nil && len(found) > 0 {
			cards = found
			break
		}
	}

	seen := make(map[string]struct{})
	targets := make([]string, 0, d.scraper.MaxProducts)
	for _, card := range cards {
		href, err := card.Attribute("href")
		if err != nil || href == "" {
			continue
		}
		if !strings.Contains(href, "/item/") {
			continue
		}
		cleaned := CleanURL(href)
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		targets = append(targets, cleaned)
		if len(targets) >= d.scraper.MaxProducts {
			break
		}
	}

	if len(targets) == 0 {
		return nil, ErrNoTargets
	}
	d.logger.Info("discovered targets", "count", len(targets))
	return targets, nil
}

// CleanURL strips tracking junk after the ".html" page suffix and
// absolutizes protocol-relative links.
func CleanURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if idx := strings.Index(raw, ".html"); idx != -1 {
		raw = raw[:idx+len(".html")]
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	return raw
}
