// Package repository persists coaching snapshots keyed by shot.
package repository

import (
	"context"
	"time"

	"github.com/okian/shotcoach/internal/domain/model"
)

// Record is one persisted shot analysis. The snapshot is stored verbatim; the
// versions it carries decide whether it is stale.
type Record struct {
	ID                string                  `json:"id"`
	ShotID            string                  `json:"shotId"`
	Roast             model.RoastLevel        `json:"roast"`
	Form              model.ShotFormData      `json:"form"`
	Snapshot          model.CoachingSnapshot  `json:"snapshot"`
	ExtractionVersion string                  `json:"extractionVersion"`
	Extraction        model.ExtractionSummary `json:"extraction"`
	SavedAt           time.Time               `json:"savedAt"`
}

// Store provides read/write access to persisted snapshots.
type Store interface {
	// Save inserts or replaces the record for rec.ShotID. The stored record is
	// returned with its ID and SavedAt filled in; the ID of an existing shot is kept.
	Save(ctx context.Context, rec Record) (Record, error)

	// Get returns the record for shotID or ErrNotFound.
	Get(ctx context.Context, shotID string) (Record, error)

	// List returns every record ordered by shot ID.
	List(ctx context.Context) ([]Record, error)

	// Count returns the number of stored shots.
	Count(ctx context.Context) (int, error)

	Close() error
}
