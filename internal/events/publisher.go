package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/aliexpress-price-scraper/internal/database"
	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

// EventType discriminates the published event stream entries.
type EventType string

const (
	// EventTypeProductScraped is published when a product's price
	// acquisition pass completes.
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"
)

// Publisher persists records and announces them through the transactional
// outbox: the record row and its event commit atomically, so consumers
// never see an event without its record or a record without its event.
type Publisher struct {
	db      *database.DB
	records *database.RecordRepository
	outbox  *database.OutboxRepository
	logger  *slog.Logger
}

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:      db,
		records: database.NewRecordRepository(db),
		outbox:  database.NewOutboxRepository(db),
		logger:  logger.With("component", "event_publisher"),
	}
}

// Save persists the record and enqueues its PRODUCT_SCRAPED event in one
// transaction. Satisfies the orchestrator's record sink.
func (p *Publisher) Save(ctx context.Context, record *models.ProductRecord) error {
	return p.PublishProductScraped(ctx, record)
}

// PublishProductScraped upserts the record and inserts the announcement
// event into the outbox atomically.
func (p *Publisher) PublishProductScraped(ctx context.Context, record *models.ProductRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   record.ProductID,
		EventType:     string(EventTypeProductScraped),
		Payload:       payload,
		TargetStream:  database.DefaultStream,
	}

	err = p.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := p.records.UpsertWithTx(ctx, tx, record); err != nil {
			return err
		}
		if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", EventTypeProductScraped,
		"product_id", record.ProductID,
		"outbox_id", outboxEvent.ID,
	)

	return nil
}
