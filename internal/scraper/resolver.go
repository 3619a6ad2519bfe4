package scraper

import (
	"log/slog"
	"strings"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
)

// Default values for fields whose every extraction strategy came up empty.
// A miss is the normal degraded path, not an error.
const (
	DefaultTitle = "Unknown"
	DefaultPrice = "N/A"
)

// Strategy locates zero or more elements for one logical field.
type Strategy func() ([]browser.Element, error)

// Resolver evaluates ordered strategy lists against the live page and
// returns the first non-empty result set.
type Resolver struct {
	driver browser.Driver
	logger *slog.Logger
}

func NewResolver(driver browser.Driver, logger *slog.Logger) *Resolver {
	return &Resolver{
		driver: driver,
		logger: logger.With("component", "resolver"),
	}
}

// Strategies builds one selector-query strategy per selector, to be
// evaluated in order.
func (r *Resolver) Strategies(selectors []string) []Strategy {
	strategies := make([]Strategy, 0, len(selectors))
	for _, sel := range selectors {
		sel := sel
		strategies = append(strategies, func() ([]browser.Element, error) {
			return r.driver.FindAll(sel)
		})
	}
	return strategies
}

// Resolve runs the strategies in order and returns the first non-empty
// match set. Strategy errors count as empty; a full miss returns nil.
func (r *Resolver) Resolve(field string, strategies []Strategy) []browser.Element {
	for i, strategy := range strategies {
		elements, err := strategy()
		if err != nil {
			r.logger.Debug("strategy failed", "field", field, "strategy", i, "error", err)
			continue
		}
		if len(elements) > 0 {
			return elements
		}
	}
	r.logger.Debug("all strategies empty", "field", field)
	return nil
}

// Elements resolves a selector list to its first non-empty match set.
func (r *Resolver) Elements(field string, selectors []string) []browser.Element {
	return r.Resolve(field, r.Strategies(selectors))
}

// FirstElement resolves to the first element of the first non-empty set.
func (r *Resolver) FirstElement(field string, selectors []string) (browser.Element, bool) {
	elements := r.Elements(field, selectors)
	if len(elements) == 0 {
		return nil, false
	}
	return elements[0], true
}

// Text resolves a field to the trimmed text of its first match, or the
// typed default on a full miss.
func (r *Resolver) Text(field string, selectors []string, def string) string {
	el, ok := r.FirstElement(field, selectors)
	if !ok {
		return def
	}
	text, err := el.Text()
	if err != nil || strings.TrimSpace(text) == "" {
		return def
	}
	return strings.TrimSpace(text)
}

// PriceText resolves a price-bearing field, stripping the site's currency
// prefix. Missing prices resolve to DefaultPrice.
func (r *Resolver) PriceText(field string, selectors []string) string {
	text := r.Text(field, selectors, DefaultPrice)
	return CleanPriceText(text)
}

// ImageURLs resolves a field to the deduplicated, normalized image
// references of every match. Denylisted references are skipped.
func (r *Resolver) ImageURLs(field string, selectors []string, norm *ImageNormalizer) []string {
	urls := make([]string, 0)
	seen := make(map[string]struct{})

	for _, el := range r.Elements(field, selectors) {
		src, err := el.Attribute("src")
		if err != nil || src == "" {
			continue
		}
		clean := norm.Normalize(src)
		if clean == "" {
			continue
		}
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}
		urls = append(urls, clean)
	}

	return urls
}

// CleanPriceText strips the site's currency prefix from a raw price string.
func CleanPriceText(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "US $", ""))
}
