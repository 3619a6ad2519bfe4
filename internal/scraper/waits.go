package scraper

import (
	"context"
	"math/rand"
	"time"

	"github.com/maltedev/aliexpress-price-scraper/internal/config"
)

// sleepRange pauses for a uniformly random duration within the range,
// returning early when the context is cancelled.
func sleepRange(ctx context.Context, r config.WaitRange) error {
	d := r.Min
	if delta := r.Max - r.Min; delta > 0 {
		d += time.Duration(rand.Int63n(int64(delta)))
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
