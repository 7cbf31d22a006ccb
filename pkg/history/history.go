package history

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"transcriptor/pkg/storage"
)

const keyPrefix = "history/"

// Record is one finished transcription as remembered by the history log.
type Record struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Model       string    `json:"model"`
	Language    string    `json:"language"`
	DurationSec int       `json:"duration_sec"`
	CostUSD     float64   `json:"cost_usd"`
	TextLength  int       `json:"text_length"`
	CreatedAt   time.Time `json:"created_at"`
}

// Log stores transcription records in the shared document store.
type Log struct {
	store storage.Store
}

func NewLog(store storage.Store) *Log {
	return &Log{store: store}
}

// Add persists a record, assigning it an id and timestamp.
func (h *Log) Add(r Record) (Record, error) {
	r.ID = uuid.New().String()
	r.CreatedAt = time.Now()
	if err := h.store.Put(keyPrefix+r.ID, r); err != nil {
		return Record{}, fmt.Errorf("failed to store history record: %w", err)
	}
	return r, nil
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (h *Log) List(limit int) ([]Record, error) {
	var records []Record
	err := h.store.List(keyPrefix, func(_ string, value []byte) error {
		var r Record
		if err := json.Unmarshal(value, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
