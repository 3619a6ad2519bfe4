package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
)

func option(name string) Option {
	return Option{Name: name, Element: &fakeElement{attrs: map[string]string{"title": name}}}
}

func TestBuildCombinationsCartesianProduct(t *testing.T) {
	rows := []Row{
		{Name: "Color", Options: []Option{option("Red"), option("Blue")}},
		{Name: "Size", Options: []Option{option("S"), option("M"), option("L")}},
	}

	combos := BuildCombinations(rows)
	require.Len(t, combos, 6)

	assert.Equal(t, "Red, S", combos[0].Name)
	assert.Equal(t, []string{"Red", "S"}, combos[0].OptionNames)
	assert.Equal(t, "Red, M", combos[1].Name)
	assert.Equal(t, "Blue, L", combos[5].Name)

	for _, c := range combos {
		assert.Len(t, c.Elements, len(rows))
	}
}

func TestBuildCombinationsDeterministic(t *testing.T) {
	rows := []Row{
		{Name: "Color", Options: []Option{option("Red"), option("Blue")}},
		{Name: "Plug", Options: []Option{option("EU"), option("US")}},
	}

	first := BuildCombinations(rows)
	second := BuildCombinations(rows)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].OptionNames, second[i].OptionNames)
	}
}

func TestBuildCombinationsImageFromFirstOptionWithOne(t *testing.T) {
	rows := []Row{
		{Name: "Size", Options: []Option{{Name: "S"}}},
		{Name: "Color", Options: []Option{{Name: "Red", ImageURL: "https://cdn.example.com/red.jpg"}}},
	}

	combos := BuildCombinations(rows)
	require.Len(t, combos, 1)
	assert.Equal(t, "https://cdn.example.com/red.jpg", combos[0].ImageURL)
}

func TestBuildCombinationsEmpty(t *testing.T) {
	assert.Nil(t, BuildCombinations(nil))
	assert.Nil(t, BuildCombinations([]Row{{Name: "Color"}}))
}

func TestCleanPropertyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Color:", "Color"},
		{"Color: Red", "Color Red"},
		{"Ships From ", "Ships From"},
		{"Size 2 available", "Size"},
		{"  Plug Type  ", "Plug Type"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanPropertyName(tt.in), "input %q", tt.in)
	}
}

func TestDiscoverRows(t *testing.T) {
	colorOptions := []browser.Element{
		&fakeElement{attrs: map[string]string{"title": "Red"}},
		&fakeElement{attrs: map[string]string{"title": "Blue"}},
	}
	titleSpan := &fakeElement{
		text: "Color: Red",
		evalFn: func(string) (any, error) {
			return "Color:", nil
		},
	}
	colorRow := &fakeElement{children: map[string][]browser.Element{
		"div[data-sku-col]": colorOptions,
		".sku-item--title": {&fakeElement{children: map[string][]browser.Element{
			"span": {titleSpan},
		}}},
	}}
	emptyRow := &fakeElement{}

	driver := &fakeDriver{elements: map[string][]browser.Element{
		"div[class*='sku-item--property']": {colorRow, emptyRow},
	}}
	cfg := config.SelectorConfig{
		SkuRow:           []string{"div[class*='sku-item--property']"},
		SkuOption:        []string{"div[data-sku-col]"},
		SkuPropertyTitle: []string{".sku-item--title"},
	}

	v := NewVariantEnumerator(NewResolver(driver, testLogger()), cfg, NewImageNormalizer(nil), testLogger())
	rows := v.DiscoverRows()

	require.Len(t, rows, 1)
	assert.Equal(t, "Color", rows[0].Name)
	require.Len(t, rows[0].Options, 2)
	assert.Equal(t, "Red", rows[0].Options[0].Name)
	assert.Equal(t, "Blue", rows[0].Options[1].Name)
}

func TestReadOptionNameFallbacks(t *testing.T) {
	v := NewVariantEnumerator(nil, config.SelectorConfig{}, NewImageNormalizer(nil), testLogger())

	withTitle := &fakeElement{attrs: map[string]string{"title": "Red"}}
	assert.Equal(t, "Red", v.readOption(withTitle).Name)

	withAlt := &fakeElement{children: map[string][]browser.Element{
		"img": {&fakeElement{attrs: map[string]string{"alt": "Blue", "src": "//cdn.example.com/blue_220x220.jpg"}}},
	}}
	opt := v.readOption(withAlt)
	assert.Equal(t, "Blue", opt.Name)
	assert.Equal(t, "https://cdn.example.com/blue.jpg", opt.ImageURL)

	withSpan := &fakeElement{children: map[string][]browser.Element{
		"span": {&fakeElement{text: " EU Plug "}},
	}}
	assert.Equal(t, "EU Plug", v.readOption(withSpan).Name)

	textOnly := &fakeElement{text: "  110V  "}
	assert.Equal(t, "110V", v.readOption(textOnly).Name)
}
