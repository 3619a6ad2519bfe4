package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

const notAvailable = "N/A"

// ParsePrice converts a price string like "$1,234.56" to a float. Currency
// symbols, commas, and whitespace are stripped; anything non-numeric or
// empty parses to 0. Callers treat a value <= 0 as "unknown", never as a
// zero-priced listing.
func ParsePrice(s string) float64 {
	if s == "" || s == notAvailable {
		return 0
	}

	cleaned := strings.NewReplacer("$", "", "¥", "", "€", "", "US ", "", ",", "").Replace(s)
	cleaned = strings.TrimSpace(cleaned)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// FormatPrice renders a float as a currency string, e.g. "$1,234.56".
func FormatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)

	dot := strings.Index(s, ".")
	whole, frac := s[:dot], s[dot:]

	var b strings.Builder
	for i, d := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	return "$" + b.String() + frac
}

// Reconcile computes aggregate competitor statistics against the local
// price. Quotes whose parsed price is not strictly positive are excluded.
// Ties on the minimum go to the first quote seen, in insertion order of
// the titles slice; RecommendedPrice passes the local price through.
func Reconcile(quotes map[string]models.CompetitorQuote, titles []string, localPrice string) models.PriceStats {
	stats := models.PriceStats{
		AveragePrice:     notAvailable,
		MinPrice:         notAvailable,
		MinPriceTitle:    notAvailable,
		MinPriceURL:      "",
		RecommendedPrice: localPrice,
	}
	if stats.RecommendedPrice == "" {
		stats.RecommendedPrice = notAvailable
	}

	if len(quotes) == 0 {
		return stats
	}

	if titles == nil {
		titles = make([]string, 0, len(quotes))
		for title := range quotes {
			titles = append(titles, title)
		}
	}

	var (
		sum      float64
		count    int
		minPrice float64
		minSet   bool
		minQuote models.CompetitorQuote
	)

	for _, title := range titles {
		quote, ok := quotes[title]
		if !ok {
			continue
		}
		price := ParsePrice(quote.Price)
		if price <= 0 {
			continue
		}
		sum += price
		count++
		if !minSet || price < minPrice {
			minSet = true
			minPrice = price
			minQuote = quote
		}
	}

	if count == 0 {
		return stats
	}

	stats.AveragePrice = FormatPrice(sum / float64(count))
	stats.MinPrice = FormatPrice(minPrice)
	stats.MinPriceTitle = minQuote.Title
	stats.MinPriceURL = minQuote.URL
	return stats
}

// FinalPrice applies the discount rule against the competitor minimum:
// below the discounted minimum the recommended price stands, below the
// plain minimum it also stands, at or above the minimum the result is
// blank. The two accepting branches coincide for any discount <= 1 and
// only diverge when discount exceeds 1.
func FinalPrice(recommended, competitorMin string, discount float64) string {
	rec := ParsePrice(recommended)
	min := ParsePrice(competitorMin)

	if rec <= 0 || min <= 0 {
		return ""
	}

	if rec < min*discount {
		return recommended
	}
	if rec < min {
		return recommended
	}
	return ""
}

// Describe renders the stats for log output.
func Describe(stats models.PriceStats) string {
	return fmt.Sprintf("avg=%s min=%s (%s)", stats.AveragePrice, stats.MinPrice, stats.MinPriceTitle)
}
