package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResultHTML = `
<div class="s-main-slot">
	<div data-component-type="s-search-result" data-asin="B001">
		<h2><a class="a-link-normal" href="/dp/B001"><span>LED Headlight Bulb 2-Pack</span></a></h2>
		<span class="a-price"><span class="a-offscreen">$24.99</span></span>
	</div>
	<div data-component-type="s-search-result" data-asin="B002">
		<h2><a class="a-link-normal" href="https://www.amazon.com/dp/B002"><span>Xenon Conversion Kit</span></a></h2>
		<span class="a-price">
			<span class="a-price-whole">1,299.</span><span class="a-price-fraction">95</span>
		</span>
	</div>
	<div data-component-type="s-search-result" data-asin="B003">
		<h2><a class="a-link-normal" href="/dp/B003"><span>Sponsored Filler Without Price</span></a></h2>
	</div>
	<div data-component-type="s-search-result" data-asin="B004">
		<div>no title link at all</div>
	</div>
</div>`

func TestParseSearchResults(t *testing.T) {
	p := NewAmazonSearchParser()

	quotes, err := p.ParseSearchResults(searchResultHTML, 10)
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	assert.Equal(t, "LED Headlight Bulb 2-Pack", quotes[0].Title)
	assert.Equal(t, "$24.99", quotes[0].Price)
	assert.Equal(t, "https://www.amazon.com/dp/B001", quotes[0].URL)

	assert.Equal(t, "Xenon Conversion Kit", quotes[1].Title)
	assert.Equal(t, "$1299.95", quotes[1].Price)
	assert.Equal(t, "https://www.amazon.com/dp/B002", quotes[1].URL)

	assert.Equal(t, "Sponsored Filler Without Price", quotes[2].Title)
	assert.Equal(t, "N/A", quotes[2].Price)
}

func TestParseSearchResultsRespectsCap(t *testing.T) {
	p := NewAmazonSearchParser()

	quotes, err := p.ParseSearchResults(searchResultHTML, 1)
	require.NoError(t, err)
	assert.Len(t, quotes, 1)
	assert.Equal(t, "LED Headlight Bulb 2-Pack", quotes[0].Title)
}

func TestParseSearchResultsEmptyPage(t *testing.T) {
	p := NewAmazonSearchParser()

	quotes, err := p.ParseSearchResults("<html><body></body></html>", 10)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
