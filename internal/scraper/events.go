package scraper

import (
	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

// EventKind discriminates the orchestrator's event stream. Control flow in
// consumers keys off the kind, never off log text.
type EventKind string

const (
	EventLogLine        EventKind = "LOG_LINE"
	EventItemScraped    EventKind = "ITEM_SCRAPED"
	EventError          EventKind = "ERROR"
	EventCaptchaBlocked EventKind = "CAPTCHA_BLOCKED"
	EventCaptchaCleared EventKind = "CAPTCHA_CLEARED"
	EventBatchDone      EventKind = "BATCH_DONE"
)

// Event is one progress signal from the acquisition worker to its
// controller.
type Event struct {
	Kind    EventKind
	Message string
	Record  *models.ProductRecord
	Err     error
}

// eventSink delivers events without ever blocking the worker: when the
// consumer lags, older progress signals are dropped. Only the latest state
// matters to the controller.
type eventSink struct {
	ch chan Event
}

func newEventSink(buffer int) *eventSink {
	return &eventSink{ch: make(chan Event, buffer)}
}

func (s *eventSink) emit(e Event) {
	select {
	case s.ch <- e:
	default:
	}
}

func (s *eventSink) close() {
	close(s.ch)
}
