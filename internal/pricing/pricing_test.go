package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"dollar with thousands separator", "$1,234.56", 1234.56},
		{"plain number", "19.99", 19.99},
		{"not available", "N/A", 0},
		{"empty", "", 0},
		{"garbage", "call for price", 0},
		{"whitespace padded", "  $9.99  ", 9.99},
		{"yen symbol", "¥42.00", 42.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePrice(tt.input))
		})
	}
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$1,234.56", FormatPrice(1234.56))
	assert.Equal(t, "$9.99", FormatPrice(9.99))
	assert.Equal(t, "$1,000,000.00", FormatPrice(1000000))
	assert.Equal(t, "$0.50", FormatPrice(0.5))
}

func TestReconcile(t *testing.T) {
	quotes := map[string]models.CompetitorQuote{
		"A": {Title: "A", Price: "$19.99", URL: "https://example.com/a"},
		"B": {Title: "B", Price: "$9.99", URL: "https://example.com/b"},
		"C": {Title: "C", Price: "N/A", URL: "https://example.com/c"},
	}
	titles := []string{"A", "B", "C"}

	stats := Reconcile(quotes, titles, "4.20")

	assert.Equal(t, "$9.99", stats.MinPrice)
	assert.Equal(t, "B", stats.MinPriceTitle)
	assert.Equal(t, "https://example.com/b", stats.MinPriceURL)
	// C is excluded from the average: (19.99 + 9.99) / 2
	assert.Equal(t, "$14.99", stats.AveragePrice)
	assert.Equal(t, "4.20", stats.RecommendedPrice)
}

func TestReconcileNoQualifyingQuotes(t *testing.T) {
	quotes := map[string]models.CompetitorQuote{
		"A": {Title: "A", Price: "N/A"},
		"B": {Title: "B", Price: ""},
	}

	stats := Reconcile(quotes, []string{"A", "B"}, "12.34")

	assert.Equal(t, "N/A", stats.AveragePrice)
	assert.Equal(t, "N/A", stats.MinPrice)
	assert.Equal(t, "N/A", stats.MinPriceTitle)
	assert.Empty(t, stats.MinPriceURL)
	assert.Equal(t, "12.34", stats.RecommendedPrice)
}

func TestReconcileEmpty(t *testing.T) {
	stats := Reconcile(nil, nil, "")
	assert.Equal(t, "N/A", stats.RecommendedPrice)
	assert.Equal(t, "N/A", stats.MinPrice)
}

func TestReconcileMinTieFirstWins(t *testing.T) {
	quotes := map[string]models.CompetitorQuote{
		"first":  {Title: "first", Price: "$5.00", URL: "u1"},
		"second": {Title: "second", Price: "$5.00", URL: "u2"},
	}

	stats := Reconcile(quotes, []string{"first", "second"}, "1.00")

	assert.Equal(t, "first", stats.MinPriceTitle)
	assert.Equal(t, "u1", stats.MinPriceURL)
}

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name          string
		recommended   string
		competitorMin string
		expected      string
	}{
		{"well below discounted minimum", "9.50", "10.00", "9.50"},
		{"between discounted minimum and minimum", "9.60", "10.00", "9.60"},
		{"equal to minimum", "10.00", "10.00", ""},
		{"above minimum", "12.00", "10.00", ""},
		{"recommended unparseable", "0", "10.00", ""},
		{"competitor minimum missing", "9.50", "N/A", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FinalPrice(tt.recommended, tt.competitorMin, 0.95))
		})
	}
}
