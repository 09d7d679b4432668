package worker

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/slidecast/slidecast/internal/models"
)

// tracker persists pipeline progress into the export's payload. Every update
// is best-effort: a failed write is logged and swallowed, so state persistence
// never aborts rendering. Merges are shallow — each top-level key fully
// replaces the stored one.
type tracker struct {
	store    Store
	exportID uuid.UUID
}

func newTracker(store Store, exportID uuid.UUID) *tracker {
	return &tracker{store: store, exportID: exportID}
}

// Progress records how many slides have rendered so far.
func (t *tracker) Progress(ctx context.Context, completed, total int) {
	t.merge(ctx, models.JSONB{
		"progress": models.Progress{Completed: completed, Total: total},
	})
}

// Complete marks the export finished and records the video reference.
func (t *tracker) Complete(ctx context.Context, video string) {
	t.merge(ctx, models.JSONB{
		"status": models.ExportStatusCompleted,
		"video":  video,
	})
}

// Fail marks the export failed with an error message.
func (t *tracker) Fail(ctx context.Context, message string) {
	t.merge(ctx, models.JSONB{
		"status": models.ExportStatusFailed,
		"error":  message,
	})
}

func (t *tracker) merge(ctx context.Context, partial models.JSONB) {
	if err := t.store.MergeExportData(ctx, t.exportID, partial); err != nil {
		log.Printf("[Tracker] Failed to update export %s: %v", t.exportID, err)
	}
}
