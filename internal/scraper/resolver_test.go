package scraper

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestResolveFirstNonEmptyWins(t *testing.T) {
	driver := &fakeDriver{
		elements: map[string][]browser.Element{
			"b": {&fakeElement{text: "from b"}},
			"c": {&fakeElement{text: "from c"}},
		},
	}
	r := NewResolver(driver, testLogger())

	elements := r.Elements("field", []string{"a", "b", "c"})
	require.Len(t, elements, 1)
	text, err := elements[0].Text()
	require.NoError(t, err)
	assert.Equal(t, "from b", text)
}

func TestResolveStrategyErrorCountsAsEmpty(t *testing.T) {
	driver := &fakeDriver{
		onFindAll: func(selector string) ([]browser.Element, error) {
			if selector == "a" {
				return nil, errors.New("selector engine exploded")
			}
			return []browser.Element{&fakeElement{text: "ok"}}, nil
		},
	}
	r := NewResolver(driver, testLogger())

	elements := r.Elements("field", []string{"a", "b"})
	require.Len(t, elements, 1)
}

func TestResolveFullMissReturnsNil(t *testing.T) {
	r := NewResolver(&fakeDriver{}, testLogger())
	assert.Nil(t, r.Elements("field", []string{"a", "b"}))
}

func TestTextDefaults(t *testing.T) {
	tests := []struct {
		name     string
		elements map[string][]browser.Element
		want     string
	}{
		{"miss yields default", nil, DefaultTitle},
		{"blank text yields default", map[string][]browser.Element{
			"sel": {&fakeElement{text: "   "}},
		}, DefaultTitle},
		{"hit yields trimmed text", map[string][]browser.Element{
			"sel": {&fakeElement{text: "  Widget  "}},
		}, "Widget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(&fakeDriver{elements: tt.elements}, testLogger())
			assert.Equal(t, tt.want, r.Text("title", []string{"sel"}, DefaultTitle))
		})
	}
}

func TestPriceTextStripsCurrencyPrefix(t *testing.T) {
	driver := &fakeDriver{
		elements: map[string][]browser.Element{
			"price": {&fakeElement{text: "US $12.34"}},
		},
	}
	r := NewResolver(driver, testLogger())

	assert.Equal(t, "12.34", r.PriceText("price_current", []string{"price"}))
}

func TestPriceTextMissIsDefault(t *testing.T) {
	r := NewResolver(&fakeDriver{}, testLogger())
	assert.Equal(t, DefaultPrice, r.PriceText("price_current", []string{"price"}))
}

func TestImageURLsDedupesAndSkips(t *testing.T) {
	driver := &fakeDriver{
		elements: map[string][]browser.Element{
			"img": {
				&fakeElement{attrs: map[string]string{"src": "//cdn.example.com/a_220x220.jpg"}},
				&fakeElement{attrs: map[string]string{"src": "https://cdn.example.com/a.jpg?x=1"}},
				&fakeElement{attrs: map[string]string{"src": "https://cdn.example.com/sprite.png"}},
				&fakeElement{attrs: map[string]string{"src": "https://cdn.example.com/b.jpg"}},
			},
		},
	}
	r := NewResolver(driver, testLogger())
	norm := NewImageNormalizer([]string{"sprite"})

	urls := r.ImageURLs("gallery", []string{"img"}, norm)
	assert.Equal(t, []string{
		"https://cdn.example.com/a.jpg",
		"https://cdn.example.com/b.jpg",
	}, urls)
}
