package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maltedev/aliexpress-price-scraper/internal/models"
)

// IndexEntry is the per-product line of the cache index.
type IndexEntry struct {
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	File      string    `json:"file"`
	SavedAt   time.Time `json:"saved_at"`
}

// RecordStore is the local JSON cache of scraped product records: one file
// per product plus an index file, both written atomically.
type RecordStore struct {
	mu    sync.RWMutex
	dir   string
	index map[string]*IndexEntry
}

func NewRecordStore(dir string) (*RecordStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	rs := &RecordStore{
		dir:   dir,
		index: make(map[string]*IndexEntry),
	}
	if err := rs.loadIndex(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return rs, nil
}

// Save persists the record and updates the index.
func (rs *RecordStore) Save(ctx context.Context, record *models.ProductRecord) error {
	if record.ProductID == "" {
		return fmt.Errorf("product id is required")
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	filename := fmt.Sprintf("product_%s.json", record.ProductID)
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := writeAtomic(filepath.Join(rs.dir, filename), data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	rs.index[record.ProductID] = &IndexEntry{
		ProductID: record.ProductID,
		URL:       record.URL,
		Title:     record.Title,
		Status:    record.Status,
		File:      filename,
		SavedAt:   time.Now(),
	}
	return rs.saveIndex()
}

// Get loads one record by product id.
func (rs *RecordStore) Get(id string) (*models.ProductRecord, bool, error) {
	rs.mu.RLock()
	entry, exists := rs.index[id]
	rs.mu.RUnlock()
	if !exists {
		return nil, false, nil
	}

	data, err := os.ReadFile(filepath.Join(rs.dir, entry.File))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read record: %w", err)
	}

	var record models.ProductRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &record, true, nil
}

// List returns the index entries, unordered.
func (rs *RecordStore) List() []*IndexEntry {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	entries := make([]*IndexEntry, 0, len(rs.index))
	for _, entry := range rs.index {
		entries = append(entries, entry)
	}
	return entries
}

// Stats counts index entries by status.
func (rs *RecordStore) Stats() map[string]int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	stats := make(map[string]int)
	for _, entry := range rs.index {
		stats[entry.Status]++
	}
	stats["total"] = len(rs.index)
	return stats
}

func (rs *RecordStore) saveIndex() error {
	data, err := json.MarshalIndent(rs.index, "", "  ")
	if err != nil {
		return err
	}
	if err := writeAtomic(rs.indexPath(), data); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

func (rs *RecordStore) loadIndex() error {
	data, err := os.ReadFile(rs.indexPath())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &rs.index)
}

func (rs *RecordStore) indexPath() string {
	return filepath.Join(rs.dir, "index.json")
}

// writeAtomic writes via a temp file and rename so readers never observe a
// partial file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
