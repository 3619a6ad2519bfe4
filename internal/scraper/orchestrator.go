package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/models"
	"github.com/maltedev/aliexpress-price-scraper/internal/observability"
	"github.com/maltedev/aliexpress-price-scraper/internal/pricing"
)

// RecordSink persists a finished product record.
type RecordSink interface {
	Save(ctx context.Context, record *models.ProductRecord) error
}

// MultiSink fans a record out to every sink. All sinks are attempted; the
// errors are joined.
type MultiSink []RecordSink

func (m MultiSink) Save(ctx context.Context, record *models.ProductRecord) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Save(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Orchestrator drives the full acquisition pass over a batch of product
// URLs: navigation, captcha gating, variant probing, extraction, competitor
// quoting, reconciliation and persistence.
type Orchestrator struct {
	driver    browser.Driver
	resolver  *Resolver
	gate      *CaptchaGate
	variants  *VariantEnumerator
	probe     *PriceProbe
	quotes    QuoteSource
	sinks     RecordSink
	scraper   config.ScraperConfig
	selectors config.SelectorConfig
	norm      *ImageNormalizer
	events    *eventSink
	closeOnce sync.Once
	logger    *slog.Logger
}

func NewOrchestrator(driver browser.Driver, cfg *config.Config, quotes QuoteSource, sinks RecordSink, logger *slog.Logger) *Orchestrator {
	norm := NewImageNormalizer(cfg.Selectors.ImageSkipPatterns)
	resolver := NewResolver(driver, logger)
	gate := NewCaptchaGate(driver, cfg.Selectors.CaptchaIndicators, cfg.Selectors.CaptchaTextMarkers, logger)

	o := &Orchestrator{
		driver:    driver,
		resolver:  resolver,
		gate:      gate,
		variants:  NewVariantEnumerator(resolver, cfg.Selectors, norm, logger),
		probe:     NewPriceProbe(resolver, cfg.Scraper, cfg.Selectors, logger),
		quotes:    quotes,
		sinks:     sinks,
		scraper:   cfg.Scraper,
		selectors: cfg.Selectors,
		norm:      norm,
		events:    newEventSink(256),
		logger:    logger.With("component", "orchestrator"),
	}
	gate.OnEvent(o.events.emit)
	return o
}

// Events is the progress stream for whoever controls the run. It is closed
// when Run returns.
func (o *Orchestrator) Events() <-chan Event {
	return o.events.ch
}

// Resume unblocks a run parked on a captcha challenge.
func (o *Orchestrator) Resume() {
	o.gate.Resume()
}

// Blocked reports whether the run is currently parked on a captcha.
func (o *Orchestrator) Blocked() bool {
	return o.gate.Blocked()
}

// shutdown releases the page and closes the event stream, exactly once
// across all exit paths.
func (o *Orchestrator) shutdown() {
	o.closeOnce.Do(func() {
		if err := o.driver.Close(); err != nil {
			o.logger.Error("failed to close page", "error", err)
		}
		o.events.emit(Event{Kind: EventBatchDone})
		o.events.close()
	})
}

// RunListing expands a search or category listing into product targets and
// scrapes them.
func (o *Orchestrator) RunListing(ctx context.Context, listURL string) error {
	discoverer := NewTargetDiscoverer(o.driver, o.gate, o.scraper, o.selectors, o.logger)
	targets, err := discoverer.DiscoverTargets(ctx, listURL)
	if err != nil {
		o.shutdown()
		return err
	}
	return o.Run(ctx, targets)
}

// Run scrapes every target in order. A failure on one target is logged and
// the batch moves on; only cancellation ends the batch early. The page is
// closed and the event stream closed on every exit path.
func (o *Orchestrator) Run(ctx context.Context, targets []string) error {
	defer o.shutdown()

	if len(targets) == 0 {
		return ErrNoTargets
	}
	o.logger.Info("starting batch", "targets", len(targets))

	for i, target := range targets {
		o.events.emit(Event{Kind: EventLogLine, Message: fmt.Sprintf("scraping %d/%d: %s", i+1, len(targets), target)})

		record, err := o.scrapeProduct(ctx, target)
		if err != nil {
			if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				o.events.emit(Event{Kind: EventError, Message: "batch cancelled", Err: err})
				o.logger.Info("batch cancelled", "completed", i, "total", len(targets))
				return ErrCancelled
			}
			observability.ProductsFailed.Inc()
			o.events.emit(Event{Kind: EventError, Message: fmt.Sprintf("failed to scrape %s", target), Err: err})
			o.logger.Error("product failed, continuing", "url", target, "error", err)
			continue
		}

		observability.ProductsScraped.Inc()
		o.events.emit(Event{Kind: EventItemScraped, Record: record})
		o.logger.Info("product scraped", "url", target, "title", record.Title, "skus", len(record.Skus))

		if i < len(targets)-1 {
			if err := sleepRange(ctx, o.scraper.WaitBetweenProducts); err != nil {
				return ErrCancelled
			}
		}
	}

	o.logger.Info("batch complete", "targets", len(targets))
	return nil
}

func (o *Orchestrator) scrapeProduct(ctx context.Context, url string) (*models.ProductRecord, error) {
	record := models.NewProductRecord(uuid.New().String(), url)

	if err := o.driver.Navigate(url); err != nil {
		return nil, fmt.Errorf("failed to open product page: %w", err)
	}
	if err := sleepRange(ctx, o.scraper.WaitPageLoad); err != nil {
		return nil, err
	}
	if err := o.gate.Check(ctx); err != nil {
		return nil, err
	}

	// The default price pair is captured before any option is clicked;
	// probing mutates the displayed price.
	record.CurrentPrice, record.ReferencePrice = o.probe.ReadPrices()

	if err := o.collectVariants(ctx, record); err != nil {
		return nil, err
	}

	if err := o.expandPage(ctx); err != nil {
		return nil, err
	}
	// Scrolling and the view-more click can trigger challenge injection.
	if err := o.gate.Check(ctx); err != nil {
		return nil, err
	}

	record.Title = o.resolver.Text("title", o.selectors.Title, DefaultTitle)
	record.GalleryImages = o.resolver.ImageURLs("gallery", o.selectors.Gallery, o.norm)
	o.collectDescription(record)
	record.Sellpoints = o.collectSellpoints()

	if err := o.collectQuotes(ctx, record); err != nil {
		return nil, err
	}

	record.Finalize()
	if err := o.sinks.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist record %s: %w", record.ProductID, err)
	}
	return record, nil
}

func (o *Orchestrator) collectVariants(ctx context.Context, record *models.ProductRecord) error {
	rows := o.variants.DiscoverRows()
	if len(rows) == 0 {
		skus := o.variants.FallbackOptions()
		for i := range skus {
			skus[i].CurrentPrice = record.CurrentPrice
			skus[i].ReferencePrice = record.ReferencePrice
		}
		record.Skus = skus
		return nil
	}

	combos := BuildCombinations(rows)
	o.logger.Info("probing variants", "rows", len(rows), "combinations", len(combos))
	skus, err := o.probe.ProbeAll(ctx, combos)
	if err != nil {
		return err
	}
	record.Skus = skus
	return nil
}

// expandPage scrolls the lazy sections into the DOM and opens the
// collapsed description.
func (o *Orchestrator) expandPage(ctx context.Context) error {
	if _, err := o.driver.Evaluate(`() => window.scrollTo(0, document.body.scrollHeight / 2)`); err != nil {
		o.logger.Debug("scroll failed", "error", err)
	}
	if err := sleepRange(ctx, o.scraper.WaitScroll); err != nil {
		return err
	}

	if btn, ok := o.resolver.FirstElement("view_more", o.selectors.ViewMoreButton); ok {
		if err := btn.ScrollIntoView(); err == nil {
			if err := btn.Click(); err != nil {
				o.logger.Debug("view more click failed", "error", err)
			}
		}
		if err := sleepRange(ctx, o.scraper.WaitElementLoad); err != nil {
			return err
		}
	}
	return nil
}

// collectDescription fills the record's description text and images. The
// rich description lives behind a shadow root on some layouts, so the
// resolver strategies are followed by a script-based shadow read and the
// plain SEO block as last resort.
func (o *Orchestrator) collectDescription(record *models.ProductRecord) {
	if container, ok := o.resolver.FirstElement("description", o.selectors.DescContainer); ok {
		text, _ := container.Text()
		record.DescriptionText = strings.TrimSpace(text)
		record.DescriptionImages = o.descriptionImages(container)
	}

	if record.DescriptionText == "" {
		if rich, ok := o.resolver.FirstElement("description_richtext", o.selectors.DescRichText); ok {
			text, _ := rich.Text()
			record.DescriptionText = strings.TrimSpace(text)
			if len(record.DescriptionImages) == 0 {
				record.DescriptionImages = o.descriptionImages(rich)
			}
		}
	}
	if record.DescriptionText == "" {
		record.DescriptionText = o.shadowDescription()
	}
	if record.DescriptionText == "" {
		record.DescriptionText = o.resolver.Text("seo_description", o.selectors.SeoDescription, "")
	}
}

func (o *Orchestrator) descriptionImages(container browser.Element) []string {
	imgs, err := container.FindAll("img")
	if err != nil {
		return nil
	}
	urls := make([]string, 0, len(imgs))
	seen := make(map[string]struct{})
	for _, img := range imgs {
		src, err := img.Attribute("src")
		if err != nil {
			continue
		}
		cleaned := o.norm.Normalize(src)
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		urls = append(urls, cleaned)
	}
	return urls
}

func (o *Orchestrator) shadowDescription() string {
	for _, sel := range o.selectors.DescShadowHost {
		script := fmt.Sprintf(`() => {
			const host = document.querySelector(%q);
			if (!host || !host.shadowRoot) return '';
			return host.shadowRoot.textContent || '';
		}`, sel)
		result, err := o.driver.Evaluate(script)
		if err != nil {
			continue
		}
		if text, ok := result.(string); ok && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// collectSellpoints reads the seller bullet list. Each bullet's text lives
// in a pre element when present, otherwise in the li itself.
func (o *Orchestrator) collectSellpoints() []string {
	container, ok := o.resolver.FirstElement("sellpoints", o.selectors.Sellpoints)
	if !ok {
		return nil
	}
	items, err := container.FindAll("li")
	if err != nil {
		return nil
	}

	points := make([]string, 0, len(items))
	for _, item := range items {
		text := ""
		if pres, err := item.FindAll("pre"); err == nil && len(pres) > 0 {
			text, _ = pres[0].Text()
		} else {
			text, _ = item.Text()
		}
		text = strings.TrimSpace(text)
		if text != "" {
			points = append(points, text)
		}
	}
	return points
}

// collectQuotes gathers competitor quotes and reconciles prices. Quote
// collection failures degrade to an empty quote set rather than failing
// the product.
func (o *Orchestrator) collectQuotes(ctx context.Context, record *models.ProductRecord) error {
	var titles []string

	if o.scraper.EnableCompetitorSearch && o.quotes != nil && record.Title != DefaultTitle {
		quotes, ordered, err := o.quotes.Collect(ctx, record.Title)
		if err != nil {
			if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
				return err
			}
			o.logger.Warn("competitor search failed, skipping quotes", "error", err)
		} else {
			record.CompetitorQuotes = quotes
			titles = ordered
		}
	}

	stats := pricing.Reconcile(record.CompetitorQuotes, titles, record.CurrentPrice)
	stats.FinalPrice = pricing.FinalPrice(stats.RecommendedPrice, stats.MinPrice, o.scraper.PriceDiscount)
	record.PriceStats = stats
	return nil
}
