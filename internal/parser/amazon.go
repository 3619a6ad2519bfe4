package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

const amazonBaseURL = "https://www.amazon.com"

// AmazonSearchParser extracts competitor quotes from an Amazon search
// results page.
type AmazonSearchParser struct{}

func NewAmazonSearchParser() *AmazonSearchParser {
	return &AmazonSearchParser{}
}

// ParseSearchResults parses the rendered search page HTML into an ordered
// list of quotes. Rows without a title are dropped; rows without a price
// carry "N/A" so the reconciler can exclude them.
func (p *AmazonSearchParser) ParseSearchResults(html string, maxResults int) ([]models.CompetitorQuote, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	quotes := make([]models.CompetitorQuote, 0, maxResults)

	doc.Find("[data-component-type='s-search-result']").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if len(quotes) >= maxResults {
			return false
		}

		title, url := p.extractTitleAndURL(row)
		if title == "" {
			return true
		}

		quotes = append(quotes, models.CompetitorQuote{
			Title: title,
			Price: p.extractPrice(row),
			URL:   url,
		})
		return true
	})

	return quotes, nil
}

func (p *AmazonSearchParser) extractTitleAndURL(row *goquery.Selection) (string, string) {
	link := row.Find("h2 a.a-link-normal").First()
	if link.Length() == 0 {
		link = row.Find("a.a-link-normal.s-no-outline").First()
	}

	title := ""
	url := ""

	if link.Length() > 0 {
		if href, ok := link.Attr("href"); ok && href != "" {
			if strings.HasPrefix(href, "/") {
				url = amazonBaseURL + href
			} else {
				url = href
			}
		}
		if span := link.Find("span").First(); span.Length() > 0 {
			title = strings.TrimSpace(span.Text())
		} else {
			title = strings.TrimSpace(link.Text())
		}
	}

	if title == "" {
		title = strings.TrimSpace(row.Find("h2 a span, .a-size-medium.a-text-normal, .a-size-base-plus.a-text-normal").First().Text())
	}

	return title, url
}

func (p *AmazonSearchParser) extractPrice(row *goquery.Selection) string {
	if offscreen := row.Find("span.a-price span.a-offscreen").First(); offscreen.Length() > 0 {
		if price := strings.TrimSpace(offscreen.Text()); price != "" {
			return price
		}
	}

	whole := strings.TrimSpace(row.Find("span.a-price-whole").First().Text())
	if whole == "" {
		return "N/A"
	}
	whole = strings.ReplaceAll(whole, ",", "")
	whole = strings.TrimSuffix(whole, ".")

	frac := strings.TrimSpace(row.Find("span.a-price-fraction").First().Text())
	if frac == "" {
		frac = "00"
	}

	return fmt.Sprintf("$%s.%s", whole, frac)
}
