package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/parser"
)

const searchResultsHTML = `
<html><body>
<div data-component-type="s-search-result">
  <h2><a class="a-link-normal" href="/dp/B01"><span>Wireless Earbuds</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$19.99</span></span>
</div>
<div data-component-type="s-search-result">
  <h2><a class="a-link-normal" href="/dp/B02"><span>Wireless Earbuds</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$14.99</span></span>
</div>
<div data-component-type="s-search-result">
  <h2><a class="a-link-normal" href="/dp/B03"><span>Charging Case</span></a></h2>
  <span class="a-price"><span class="a-offscreen">$9.99</span></span>
</div>
</body></html>`

func collectorConfig() config.ScraperConfig {
	return config.ScraperConfig{
		CompetitorSearchURL:  "https://www.amazon.com/s?k=",
		CompetitorMaxResults: 10,
		WaitPageLoad:         config.WaitRange{Min: 0, Max: 0},
	}
}

func TestCollectQuotes(t *testing.T) {
	driver := &fakeDriver{html: searchResultsHTML}
	c := NewQuoteCollector(driver, parser.NewAmazonSearchParser(), collectorConfig(), testLogger())

	quotes, titles, err := c.Collect(context.Background(), "wireless earbuds pro")
	require.NoError(t, err)

	require.Len(t, driver.navigatedURLs(), 1)
	assert.Equal(t, "https://www.amazon.com/s?k=wireless+earbuds+pro", driver.navigatedURLs()[0])

	// The repeated title keeps its later quote; titles keep result order.
	assert.Equal(t, []string{"Wireless Earbuds", "Charging Case"}, titles)
	require.Len(t, quotes, 2)
	assert.Equal(t, "$14.99", quotes["Wireless Earbuds"].Price)
	assert.Equal(t, "$9.99", quotes["Charging Case"].Price)
}

func TestCollectNavigationFailure(t *testing.T) {
	driver := &fakeDriver{navErr: assert.AnError}
	c := NewQuoteCollector(driver, parser.NewAmazonSearchParser(), collectorConfig(), testLogger())

	quotes, titles, err := c.Collect(context.Background(), "anything")
	assert.Error(t, err)
	assert.Nil(t, quotes)
	assert.Nil(t, titles)
}

func TestCollectEmptyListing(t *testing.T) {
	driver := &fakeDriver{html: "<html><body>no results</body></html>"}
	c := NewQuoteCollector(driver, parser.NewAmazonSearchParser(), collectorConfig(), testLogger())

	quotes, titles, err := c.Collect(context.Background(), "obscure thing")
	require.NoError(t, err)
	assert.Empty(t, quotes)
	assert.Empty(t, titles)
}
