package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/slidecast/slidecast/internal/models"
)

func (db *DB) CreateExport(ctx context.Context, export *models.Export) error {
	query := `
		INSERT INTO exports (
			id, title, prompt, aspect, num_slides, total_duration_sec,
			thumbnail_url, data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return db.QueryRowContext(
		ctx, query,
		export.ID, export.Title, export.Prompt, export.Aspect,
		export.NumSlides, export.TotalDurationSec, export.ThumbnailURL, export.Data,
	).Scan(&export.CreatedAt)
}

func (db *DB) GetExport(ctx context.Context, id uuid.UUID) (*models.Export, error) {
	query := `
		SELECT
			id, title, prompt, aspect, num_slides, total_duration_sec,
			thumbnail_url, data, created_at
		FROM exports
		WHERE id = $1
	`

	export := &models.Export{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&export.ID, &export.Title, &export.Prompt, &export.Aspect,
		&export.NumSlides, &export.TotalDurationSec, &export.ThumbnailURL,
		&export.Data, &export.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("export not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export: %w", err)
	}

	return export, nil
}

// ListExports returns exports ordered by creation date (newest first).
// Supports an optional status filter (matched against the payload's status field),
// limit, and offset for pagination.
func (db *DB) ListExports(ctx context.Context, status string, limit, offset int) ([]models.Export, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, title, prompt, aspect, num_slides, total_duration_sec,
			thumbnail_url, data, created_at
		FROM exports
	`

	if status != "" {
		query := baseSelect + ` WHERE data->>'status' = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var exports []models.Export
	for rows.Next() {
		var e models.Export
		if err := rows.Scan(
			&e.ID, &e.Title, &e.Prompt, &e.Aspect,
			&e.NumSlides, &e.TotalDurationSec, &e.ThumbnailURL,
			&e.Data, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, e)
	}

	return exports, nil
}

// CountExports returns the total number of exports, optionally filtered by status.
func (db *DB) CountExports(ctx context.Context, status string) (int, error) {
	var count int
	if status != "" {
		err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exports WHERE data->>'status' = $1`, status).Scan(&count)
		return count, err
	}
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exports`).Scan(&count)
	return count, err
}

// MergeExportData shallow-merges a partial update into the export's data payload.
// Read-modify-write: top-level keys in partial fully replace the stored keys.
// Only one pipeline instance ever writes a given export, so the lack of a
// transaction against concurrent writers is acceptable; concurrent readers see
// either the old or the new payload.
func (db *DB) MergeExportData(ctx context.Context, id uuid.UUID, partial models.JSONB) error {
	var current models.JSONB
	err := db.QueryRowContext(ctx, `SELECT data FROM exports WHERE id = $1`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("export not found")
	}
	if err != nil {
		return fmt.Errorf("failed to read export data: %w", err)
	}

	if current == nil {
		current = models.JSONB{}
	}
	for k, v := range partial {
		current[k] = v
	}

	if _, err := db.ExecContext(ctx, `UPDATE exports SET data = $1 WHERE id = $2`, current, id); err != nil {
		return fmt.Errorf("failed to update export data: %w", err)
	}

	return nil
}
