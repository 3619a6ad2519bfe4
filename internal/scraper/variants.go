package scraper

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

var (
	trailingValueRe  = regexp.MustCompile(`\s+\d+.*$`)
	selectedSuffixRe = regexp.MustCompile(`:\s*\S+.*$`)
)

// Option is one selectable variant value together with its live page
// element.
type Option struct {
	Name     string
	ImageURL string
	Element  browser.Element
}

// Row is one discovered variant property with its options in page order.
type Row struct {
	Name    string
	Options []Option
}

// Combination is one SKU candidate: one option chosen per row, in row
// order. The elements are the page controls to click to select it.
type Combination struct {
	Name        string
	ImageURL    string
	OptionNames []string
	Elements    []browser.Element
}

// VariantEnumerator discovers the product's variant property rows and
// expands them into the full Cartesian product of combinations.
type VariantEnumerator struct {
	resolver  *Resolver
	selectors config.SelectorConfig
	norm      *ImageNormalizer
	logger    *slog.Logger
}

func NewVariantEnumerator(resolver *Resolver, selectors config.SelectorConfig, norm *ImageNormalizer, logger *slog.Logger) *VariantEnumerator {
	return &VariantEnumerator{
		resolver:  resolver,
		selectors: selectors,
		norm:      norm,
		logger:    logger.With("component", "variants"),
	}
}

// DiscoverRows locates every variant property row on the page. Rows with
// no extractable options are dropped; zero rows means the product has no
// variants and the single default price applies.
func (v *VariantEnumerator) DiscoverRows() []Row {
	containers := v.resolver.Elements("sku_row", v.selectors.SkuRow)
	if len(containers) == 0 {
		v.logger.Debug("no sku rows found")
		return nil
	}

	rows := make([]Row, 0, len(containers))
	for i, container := range containers {
		options := v.extractOptions(container)
		if len(options) == 0 {
			continue
		}

		name := v.extractPropertyName(container)
		if name == "" {
			name = fmt.Sprintf("Property %d", i+1)
		}

		rows = append(rows, Row{Name: name, Options: options})
		v.logger.Debug("discovered property row", "name", name, "options", len(options))
	}

	return rows
}

// FallbackOptions is the flatter single-row extraction used when no
// grouped rows were discovered: every option-like element on the page
// becomes one combination with no probed price.
func (v *VariantEnumerator) FallbackOptions() []models.SkuCombination {
	elements := v.resolver.Elements("sku_option", v.selectors.SkuOption)
	skus := make([]models.SkuCombination, 0, len(elements))

	for _, el := range elements {
		opt := v.readOption(el)
		if opt.Name == "" {
			continue
		}
		skus = append(skus, models.SkuCombination{
			Name:           opt.Name,
			ImageURL:       opt.ImageURL,
			OptionNames:    []string{opt.Name},
			CurrentPrice:   DefaultPrice,
			ReferencePrice: DefaultPrice,
		})
	}

	return skus
}

// PropertyRows converts discovered rows to their model form.
func PropertyRows(rows []Row) []models.PropertyRow {
	out := make([]models.PropertyRow, 0, len(rows))
	for _, row := range rows {
		options := make([]models.PropertyOption, 0, len(row.Options))
		for _, opt := range row.Options {
			options = append(options, models.PropertyOption{Name: opt.Name, ImageURL: opt.ImageURL})
		}
		out = append(out, models.PropertyRow{PropertyName: row.Name, Options: options})
	}
	return out
}

// BuildCombinations expands rows into the Cartesian product of their
// options, in row order, preserving option order within each row. The
// expansion is deterministic: identical rows always yield identically
// ordered, identically named combinations. The combination name is the
// comma-joined option names; its image is the first option image present.
func BuildCombinations(rows []Row) []Combination {
	if len(rows) == 0 {
		return nil
	}

	total := 1
	for _, row := range rows {
		total *= len(row.Options)
	}
	if total == 0 {
		return nil
	}

	combos := make([]Combination, 0, total)
	indices := make([]int, len(rows))

	for {
		names := make([]string, 0, len(rows))
		elements := make([]browser.Element, 0, len(rows))
		imageURL := ""

		for rowIdx, optIdx := range indices {
			opt := rows[rowIdx].Options[optIdx]
			names = append(names, opt.Name)
			elements = append(elements, opt.Element)
			if imageURL == "" && opt.ImageURL != "" {
				imageURL = opt.ImageURL
			}
		}

		combos = append(combos, Combination{
			Name:        strings.Join(names, ", "),
			ImageURL:    imageURL,
			OptionNames: names,
			Elements:    elements,
		})

		// Advance the odometer, last row fastest.
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(rows[pos].Options) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	return combos
}

func (v *VariantEnumerator) extractOptions(container browser.Element) []Option {
	var elements []browser.Element
	for _, sel := range v.selectors.SkuOption {
		found, err := container.FindAll(sel)
		if err == nil && len(found) > 0 {
			elements = found
			break
		}
	}

	options := make([]Option, 0, len(elements))
	for _, el := range elements {
		opt := v.readOption(el)
		if opt.Name == "" {
			continue
		}
		options = append(options, opt)
	}
	return options
}

// readOption names an option from its title attribute, falling back to
// the option image's alt text, then to span text, then to element text.
func (v *VariantEnumerator) readOption(el browser.Element) Option {
	name, _ := el.Attribute("title")
	name = strings.TrimSpace(name)

	imageURL := ""
	if imgs, err := el.FindAll("img"); err == nil && len(imgs) > 0 {
		if name == "" {
			alt, _ := imgs[0].Attribute("alt")
			name = strings.TrimSpace(alt)
		}
		if src, err := imgs[0].Attribute("src"); err == nil {
			imageURL = v.norm.Normalize(src)
		}
	}

	if name == "" {
		if spans, err := el.FindAll("span"); err == nil && len(spans) > 0 {
			text, _ := spans[0].Text()
			name = strings.TrimSpace(text)
		}
	}
	if name == "" {
		text, _ := el.Text()
		name = strings.TrimSpace(text)
	}

	return Option{Name: name, ImageURL: imageURL, Element: el}
}

// extractPropertyName pulls the property label out of the row's title
// element. The label shares its element with the currently-selected value,
// so only the first text node is read, via the script escape hatch, before
// decoration stripping.
func (v *VariantEnumerator) extractPropertyName(container browser.Element) string {
	title, ok := v.findIn(container, v.selectors.SkuPropertyTitle)
	if !ok {
		return ""
	}

	name := ""
	if spans, err := title.FindAll("span"); err == nil && len(spans) > 0 {
		result, err := spans[0].Evaluate(`el => {
			const node = el.childNodes[0];
			const text = node ? node.textContent : el.textContent;
			return text ? text.trim() : '';
		}`)
		if err == nil {
			name, _ = result.(string)
		}
		if name == "" {
			text, _ := spans[0].Text()
			name = text
		}
	}
	if name == "" {
		text, _ := title.Text()
		name = selectedSuffixRe.ReplaceAllString(text, "")
	}

	return CleanPropertyName(name)
}

func (v *VariantEnumerator) findIn(container browser.Element, selectors []string) (browser.Element, bool) {
	for _, sel := range selectors {
		found, err := container.FindAll(sel)
		if err == nil && len(found) > 0 {
			return found[0], true
		}
	}
	return nil, false
}

// CleanPropertyName strips label decoration: non-breaking spaces, the
// trailing colon, and any already-selected value appended to the label.
func CleanPropertyName(name string) string {
	name = strings.ReplaceAll(name, " ", " ")
	name = strings.ReplaceAll(name, "&nbsp;", " ")
	name = strings.ReplaceAll(name, ":", "")
	name = trailingValueRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
