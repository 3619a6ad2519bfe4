package scraper

import (
	"errors"
)

var (
	// ErrCancelled reports a cooperative stop. It is the only error that
	// crosses the batch boundary: the in-flight product is discarded and
	// the run terminates.
	ErrCancelled = errors.New("scrape cancelled")

	// ErrNoTargets reports an empty discovery pass.
	ErrNoTargets = errors.New("no target links discovered")
)
