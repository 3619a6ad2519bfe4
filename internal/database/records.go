package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

// RecordRow is the persisted form of one scraped product record. The full
// record is stored as JSON alongside the columns used for querying.
type RecordRow struct {
	ProductID    string    `db:"product_id"`
	SourceSite   string    `db:"source_site"`
	URL          string    `db:"url"`
	Title        string    `db:"title"`
	CurrentPrice string    `db:"current_price"`
	Status       string    `db:"status"`
	Payload      []byte    `db:"payload"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// RecordRepository persists scraped product records.
type RecordRepository struct {
	db *DB
}

func NewRecordRepository(db *DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// UpsertWithTx writes the record inside an existing transaction. A
// re-scrape of the same product replaces the stored payload.
func (r *RecordRepository) UpsertWithTx(ctx context.Context, tx pgx.Tx, record *models.ProductRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	query := `
		INSERT INTO product_record (
			product_id, source_site, url, title, current_price,
			status, payload, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
		ON CONFLICT (product_id) DO UPDATE SET
			title = EXCLUDED.title,
			current_price = EXCLUDED.current_price,
			status = EXCLUDED.status,
			payload = EXCLUDED.payload,
			updated_at = NOW()`

	_, err = tx.Exec(ctx, query,
		record.ProductID, record.SourceSite, record.URL, record.Title,
		record.CurrentPrice, record.Status, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// GetByProductID loads one record from its stored payload.
func (r *RecordRepository) GetByProductID(ctx context.Context, productID string) (*models.ProductRecord, error) {
	var payload []byte
	err := r.db.QueryRow(ctx,
		"SELECT payload FROM product_record WHERE product_id = $1", productID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("record not found: %s", productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	var record models.ProductRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, nil
}

// List returns the newest record rows, payloads omitted.
func (r *RecordRepository) List(ctx context.Context, limit int) ([]*RecordRow, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT product_id, source_site, url, title, current_price,
		       status, created_at, updated_at
		FROM product_record
		ORDER BY updated_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*RecordRow
	for rows.Next() {
		row := &RecordRow{}
		err := rows.Scan(
			&row.ProductID, &row.SourceSite, &row.URL, &row.Title,
			&row.CurrentPrice, &row.Status, &row.CreatedAt, &row.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// CountByStatus counts stored records per status.
func (r *RecordRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx,
		"SELECT status, COUNT(*) FROM product_record GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
