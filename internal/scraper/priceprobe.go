package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/models"
	"github.com/maltedev/aliexpress-price-scraper/internal/observability"
)

// PriceProbe selects each variant combination on the live page and waits
// for the displayed price to settle before recording it.
type PriceProbe struct {
	resolver  *Resolver
	scraper   config.ScraperConfig
	selectors config.SelectorConfig
	logger    *slog.Logger
}

func NewPriceProbe(resolver *Resolver, scraper config.ScraperConfig, selectors config.SelectorConfig, logger *slog.Logger) *PriceProbe {
	return &PriceProbe{
		resolver:  resolver,
		scraper:   scraper,
		selectors: selectors,
		logger:    logger.With("component", "priceprobe"),
	}
}

// ReadPrices reads the currently displayed price pair.
func (p *PriceProbe) ReadPrices() (current, reference string) {
	current = p.resolver.PriceText("price_current", p.selectors.PriceCurrent)
	reference = p.resolver.PriceText("price_original", p.selectors.PriceOriginal)
	return current, reference
}

// ProbeAll walks every combination: clicks its options, waits for the
// displayed price to diverge from the pre-probe default, and records the
// settled pair. A combination whose price never diverges keeps the
// default, since a variant priced identically to the default is
// indistinguishable from a stale render. Returns ErrCancelled as soon as
// the context ends; combinations probed before that point are discarded
// with it.
func (p *PriceProbe) ProbeAll(ctx context.Context, combos []Combination) ([]models.SkuCombination, error) {
	defaultCurrent, defaultReference := p.ReadPrices()
	p.logger.Debug("pre-probe defaults", "current", defaultCurrent, "reference", defaultReference)

	skus := make([]models.SkuCombination, 0, len(combos))
	for i, combo := range combos {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}

		clicked, err := p.selectCombination(ctx, combo)
		if err != nil {
			return nil, err
		}

		current := defaultCurrent
		reference := defaultReference
		if clicked {
			converged, err := p.waitForChange(ctx, defaultCurrent)
			if err != nil {
				return nil, err
			}
			reread, rereadRef := p.ReadPrices()
			reference = rereadRef
			if converged {
				current = reread
			} else {
				observability.ConvergenceTimeouts.Inc()
				p.logger.Debug("price did not diverge, keeping default", "combination", combo.Name)
			}
		}

		skus = append(skus, models.SkuCombination{
			Name:           combo.Name,
			ImageURL:       combo.ImageURL,
			OptionNames:    combo.OptionNames,
			CurrentPrice:   current,
			ReferencePrice: reference,
		})
		p.logger.Debug("probed combination", "index", i+1, "total", len(combos), "name", combo.Name, "price", current)

		if i < len(combos)-1 {
			if err := sleepRange(ctx, p.scraper.WaitBetweenActions); err != nil {
				return nil, ErrCancelled
			}
		}
	}

	return skus, nil
}

// selectCombination clicks every option of the combination that is not
// already selected. Reports whether any click was issued: a fully
// pre-selected combination needs no convergence wait.
func (p *PriceProbe) selectCombination(ctx context.Context, combo Combination) (bool, error) {
	clicked := false
	for _, el := range combo.Elements {
		if el == nil {
			continue
		}
		if err := el.ScrollIntoView(); err != nil {
			p.logger.Debug("scroll failed", "combination", combo.Name, "error", err)
		}
		if isSelected(el) {
			continue
		}
		if err := el.Click(); err != nil {
			p.logger.Warn("option click failed", "combination", combo.Name, "error", err)
			continue
		}
		clicked = true
		if err := sleepRange(ctx, p.scraper.WaitBetweenActions); err != nil {
			return false, ErrCancelled
		}
	}
	return clicked, nil
}

// waitForChange polls the displayed price until it differs from the
// pre-probe default or the probe timeout elapses.
func (p *PriceProbe) waitForChange(ctx context.Context, defaultCurrent string) (bool, error) {
	deadline := time.Now().Add(p.scraper.ProbeTimeout)
	ticker := time.NewTicker(p.scraper.ProbeInterval)
	defer ticker.Stop()

	for {
		current := p.resolver.PriceText("price_current", p.selectors.PriceCurrent)
		if current != DefaultPrice && current != defaultCurrent {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ErrCancelled
		case <-ticker.C:
		}
	}
}

func isSelected(el browser.Element) bool {
	class, err := el.Attribute("class")
	if err != nil {
		return false
	}
	return strings.Contains(class, "selected") || strings.Contains(class, "active")
}
