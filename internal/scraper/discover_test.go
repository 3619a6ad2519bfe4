package scraper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
)

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.aliexpress.com/item/100500.html?spm=a2g0o&pdp_npi=x", "https://www.aliexpress.com/item/100500.html"},
		{"//www.aliexpress.com/item/100500.html", "https://www.aliexpress.com/item/100500.html"},
		{"https://www.aliexpress.com/item/100500.html", "https://www.aliexpress.com/item/100500.html"},
		{"  https://www.aliexpress.com/item/1.html  ", "https://www.aliexpress.com/item/1.html"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanURL(tt.in), "input %q", tt.in)
	}
}

func card(href string) browser.Element {
	return &fakeElement{attrs: map[string]string{"href": href}}
}

func discoverConfig(maxProducts int) (config.ScraperConfig, config.SelectorConfig) {
	scraper := config.ScraperConfig{
		MaxProducts:  maxProducts,
		WaitPageLoad: config.WaitRange{},
		WaitScroll:   config.WaitRange{},
	}
	selectors := config.SelectorConfig{
		SearchItem:        []string{"a.search-card-item"},
		CaptchaIndicators: []string{"#challenge"},
	}
	return scraper, selectors
}

func TestDiscoverTargets(t *testing.T) {
	driver := &fakeDriver{elements: map[string][]browser.Element{
		"a.search-card-item": {
			card("//www.aliexpress.com/item/1.html?spm=x"),
			card("https://www.aliexpress.com/item/2.html"),
			card("https://www.aliexpress.com/item/1.html"),
			card("https://campaign.aliexpress.com/wow/deals"),
			card(""),
			card("https://www.aliexpress.com/item/3.html"),
		},
	}}
	scraper, selectors := discoverConfig(2)
	gate := NewCaptchaGate(driver, selectors.CaptchaIndicators, nil, testLogger())
	d := NewTargetDiscoverer(driver, gate, scraper, selectors, testLogger())

	targets, err := d.DiscoverTargets(context.Background(), "https://www.aliexpress.com/w/wholesale-earbuds.html")
	require.NoError(t, err)

	// Deduplicated in page order, non-product links dropped, capped at two.
	assert.Equal(t, []string{
		"https://www.aliexpress.com/item/1.html",
		"https://www.aliexpress.com/item/2.html",
	}, targets)
}

func TestDiscoverTargetsEmptyListing(t *testing.T) {
	driver := &fakeDriver{}
	scraper, selectors := discoverConfig(10)
	gate := NewCaptchaGate(driver, selectors.CaptchaIndicators, nil, testLogger())
	d := NewTargetDiscoverer(driver, gate, scraper, selectors, testLogger())

	targets, err := d.DiscoverTargets(context.Background(), "https://www.aliexpress.com/w/none.html")
	assert.ErrorIs(t, err, ErrNoTargets)
	assert.Nil(t, targets)
}
