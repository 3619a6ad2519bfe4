package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/models"
	"github.com/maltedev/aliexpress-price-scraper/internal/observability"
	"github.com/maltedev/aliexpress-price-scraper/internal/parser"
)

// QuoteSource produces competitor quotes for a product title. Collect
// returns the quotes keyed by title plus the titles in result order, so
// callers can break price ties deterministically.
type QuoteSource interface {
	Collect(ctx context.Context, query string) (map[string]models.CompetitorQuote, []string, error)
}

// QuoteCollector runs a competitor marketplace search on its own page and
// parses the result listing offline.
type QuoteCollector struct {
	driver  browser.Driver
	parser  *parser.AmazonSearchParser
	scraper config.ScraperConfig
	logger  *slog.Logger
}

var _ QuoteSource = (*QuoteCollector)(nil)

func NewQuoteCollector(driver browser.Driver, p *parser.AmazonSearchParser, scraper config.ScraperConfig, logger *slog.Logger) *QuoteCollector {
	return &QuoteCollector{
		driver:  driver,
		parser:  p,
		scraper: scraper,
		logger:  logger.With("component", "competitor"),
	}
}

// Collect searches for the query and returns up to CompetitorMaxResults
// quotes. Duplicate titles keep the later quote; the returned titles slice
// preserves result order with duplicates removed.
func (c *QuoteCollector) Collect(ctx context.Context, query string) (map[string]models.CompetitorQuote, []string, error) {
	searchURL := c.scraper.CompetitorSearchURL + url.QueryEscape(query)
	c.logger.Info("searching competitor listings", "query", query)
	observability.CompetitorQueries.Inc()

	if err := c.driver.Navigate(searchURL); err != nil {
		return nil, nil, fmt.Errorf("failed to open competitor search: %w", err)
	}
	if err := sleepRange(ctx, c.scraper.WaitPageLoad); err != nil {
		return nil, nil, err
	}

	html, err := c.driver.Content()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read competitor search page: %w", err)
	}

	results, err := c.parser.ParseSearchResults(html, c.scraper.CompetitorMaxResults)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse competitor search: %w", err)
	}

	quotes := make(map[string]models.CompetitorQuote, len(results))
	titles := make([]string, 0, len(results))
	for _, quote := range results {
		if _, seen := quotes[quote.Title]; !seen {
			titles = append(titles, quote.Title)
		}
		quotes[quote.Title] = quote
	}

	c.logger.Info("collected competitor quotes", "count", len(quotes))
	return quotes, titles, nil
}
