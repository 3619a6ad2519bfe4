package models

import (
	"time"
)

// Record statuses as persisted in the local cache and the records table.
const (
	StatusScraped = "scraped"
	StatusFailed  = "failed"
)

// PropertyOption is one selectable value of a variant property, e.g. "Red".
type PropertyOption struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

// PropertyRow is one variant axis, e.g. "Color". Row order is significant:
// it defines the naming order of the combinations built from it.
type PropertyRow struct {
	PropertyName string           `json:"property_name"`
	Options      []PropertyOption `json:"options"`
}

// SkuCombination is one concrete variant: exactly one option per property
// row. Name is the comma-joined option names in row order and uniquely
// identifies the combination within a product.
type SkuCombination struct {
	Name           string   `json:"name"`
	ImageURL       string   `json:"image_url"`
	OptionNames    []string `json:"options"`
	CurrentPrice   string   `json:"current_price"`
	ReferencePrice string   `json:"history_price"`
}

// CompetitorQuote is one priced listing from the competitor marketplace.
// Title is the dedup key; the last occurrence of a repeated title wins.
type CompetitorQuote struct {
	Title string `json:"title"`
	Price string `json:"price"`
	URL   string `json:"url"`
}

// PriceStats aggregates competitor quotes against the local price. Only
// quotes whose parsed price is strictly positive participate; when none
// qualify every field degrades to "N/A"/empty and RecommendedPrice passes
// the local price through.
type PriceStats struct {
	AveragePrice     string `json:"amazon_avg_price"`
	MinPrice         string `json:"amazon_min_price"`
	MinPriceTitle    string `json:"amazon_min_price_product"`
	MinPriceURL      string `json:"amazon_min_price_product_url"`
	RecommendedPrice string `json:"ali_express_rec_price"`

	// FinalPrice is the discount-checked presentation price: the
	// recommended price when it undercuts the competitor minimum, blank
	// otherwise.
	FinalPrice string `json:"final_price"`
}

// ProductRecord is the sole hand-off artifact of one successful scrape
// pass. It is mutated only by the orchestrator during that pass and is
// immutable once persisted.
type ProductRecord struct {
	ProductID         string                     `json:"product_id"`
	SourceSite        string                     `json:"source_site"`
	URL               string                     `json:"url"`
	Title             string                     `json:"title"`
	CurrentPrice      string                     `json:"current_price"`
	ReferencePrice    string                     `json:"original_price"`
	GalleryImages     []string                   `json:"gallery_images"`
	Skus              []SkuCombination           `json:"skus"`
	Sellpoints        []string                   `json:"sellpoints"`
	DescriptionText   string                     `json:"description_text"`
	DescriptionImages []string                   `json:"description_images"`
	CompetitorQuotes  map[string]CompetitorQuote `json:"amazon_competitor_prices"`
	PriceStats        PriceStats                 `json:"price_stats"`
	Status            string                     `json:"status"`
	Timestamp         int64                      `json:"timestamp"`
}

func NewProductRecord(id, url string) *ProductRecord {
	return &ProductRecord{
		ProductID:         id,
		SourceSite:        "aliexpress",
		URL:               url,
		GalleryImages:     make([]string, 0),
		Skus:              make([]SkuCombination, 0),
		Sellpoints:        make([]string, 0),
		DescriptionImages: make([]string, 0),
		CompetitorQuotes:  make(map[string]CompetitorQuote),
	}
}

// Finalize stamps the record as emitted by a completed scrape pass.
func (r *ProductRecord) Finalize() {
	r.Status = StatusScraped
	r.Timestamp = time.Now().Unix()
}

// CombinationCount is the number of combinations the rows expand to: the
// product of the option counts, or zero when there are no rows.
func CombinationCount(rows []PropertyRow) int {
	if len(rows) == 0 {
		return 0
	}
	n := 1
	for _, row := range rows {
		n *= len(row.Options)
	}
	return n
}
