package scraper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/aliexpress-price-scraper/internal/browser"
	"github.com/maltedev/aliexpress-price-scraper/internal/config"
)

func probeConfig() config.ScraperConfig {
	return config.ScraperConfig{
		ProbeInterval:      time.Millisecond,
		ProbeTimeout:       30 * time.Millisecond,
		WaitBetweenActions: config.WaitRange{Min: 0, Max: 0},
	}
}

func probeSelectors() config.SelectorConfig {
	return config.SelectorConfig{
		PriceCurrent:  []string{"price"},
		PriceOriginal: []string{"original"},
	}
}

// priceBoard is a mutable price display backing the fake driver.
type priceBoard struct {
	mu       sync.Mutex
	current  string
	original string
}

func (b *priceBoard) set(current string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = current
}

func (b *priceBoard) driver() *fakeDriver {
	d := &fakeDriver{}
	d.onFindAll = func(selector string) ([]browser.Element, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		switch selector {
		case "price":
			return []browser.Element{&fakeElement{text: b.current}}, nil
		case "original":
			return []browser.Element{&fakeElement{text: b.original}}, nil
		}
		return nil, nil
	}
	return d
}

func TestProbeAllConvergence(t *testing.T) {
	board := &priceBoard{current: "10.00", original: "20.00"}
	probe := NewPriceProbe(NewResolver(board.driver(), testLogger()), probeConfig(), probeSelectors(), testLogger())

	red := &fakeElement{attrs: map[string]string{"title": "Red"}}
	red.onClick = func() { board.set("12.50") }

	skus, err := probe.ProbeAll(context.Background(), []Combination{
		{Name: "Red", OptionNames: []string{"Red"}, Elements: []browser.Element{red}},
	})
	require.NoError(t, err)
	require.Len(t, skus, 1)
	assert.Equal(t, "12.50", skus[0].CurrentPrice)
	assert.Equal(t, "20.00", skus[0].ReferencePrice)
	assert.Equal(t, 1, red.clickCount())
}

func TestProbeAllTimeoutRetainsDefault(t *testing.T) {
	board := &priceBoard{current: "10.00", original: "20.00"}
	probe := NewPriceProbe(NewResolver(board.driver(), testLogger()), probeConfig(), probeSelectors(), testLogger())

	// The click never moves the price.
	stuck := &fakeElement{attrs: map[string]string{"title": "Red"}}

	skus, err := probe.ProbeAll(context.Background(), []Combination{
		{Name: "Red", OptionNames: []string{"Red"}, Elements: []browser.Element{stuck}},
	})
	require.NoError(t, err)
	require.Len(t, skus, 1)
	assert.Equal(t, "10.00", skus[0].CurrentPrice)
}

func TestProbeAllSkipsSelectedOptions(t *testing.T) {
	board := &priceBoard{current: "10.00", original: "20.00"}
	probe := NewPriceProbe(NewResolver(board.driver(), testLogger()), probeConfig(), probeSelectors(), testLogger())

	selected := &fakeElement{attrs: map[string]string{"class": "sku-option selected"}}

	skus, err := probe.ProbeAll(context.Background(), []Combination{
		{Name: "Red", OptionNames: []string{"Red"}, Elements: []browser.Element{selected}},
	})
	require.NoError(t, err)
	require.Len(t, skus, 1)
	// Fully pre-selected combination keeps the default pair with no wait.
	assert.Equal(t, "10.00", skus[0].CurrentPrice)
	assert.Equal(t, 0, selected.clickCount())
}

func TestProbeAllCancellationDiscardsProgress(t *testing.T) {
	board := &priceBoard{current: "10.00", original: "20.00"}
	probe := NewPriceProbe(NewResolver(board.driver(), testLogger()), probeConfig(), probeSelectors(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	first := &fakeElement{attrs: map[string]string{"class": "selected"}}
	// The second combination's click cancels the run; its price never
	// converges, so the probe observes the cancellation while polling.
	second := &fakeElement{}
	second.onClick = func() { cancel() }
	third := &fakeElement{attrs: map[string]string{"class": "selected"}}

	skus, err := probe.ProbeAll(ctx, []Combination{
		{Name: "A", Elements: []browser.Element{first}},
		{Name: "B", Elements: []browser.Element{second}},
		{Name: "C", Elements: []browser.Element{third}},
	})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, skus)
}

func TestProbeAllCancelledBeforeStart(t *testing.T) {
	board := &priceBoard{current: "10.00"}
	probe := NewPriceProbe(NewResolver(board.driver(), testLogger()), probeConfig(), probeSelectors(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	skus, err := probe.ProbeAll(ctx, []Combination{{Name: "Red"}})
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, skus)
}

func TestIsSelected(t *testing.T) {
	assert.True(t, isSelected(&fakeElement{attrs: map[string]string{"class": "opt selected"}}))
	assert.True(t, isSelected(&fakeElement{attrs: map[string]string{"class": "opt--active"}}))
	assert.False(t, isSelected(&fakeElement{attrs: map[string]string{"class": "opt"}}))
	assert.False(t, isSelected(&fakeElement{}))
}
