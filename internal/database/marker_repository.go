package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"movieverse/models"
)

// MarkerRepository stores "already requested" markers.
type MarkerRepository struct {
	db *sql.DB
}

func NewMarkerRepository(db *sql.DB) *MarkerRepository {
	return &MarkerRepository{db: db}
}

// Mark records a marker. Marking an item twice keeps the first timestamp.
func (r *MarkerRepository) Mark(ctx context.Context, m *models.RequestedMarker) error {
	if m.RequestedAt.IsZero() {
		m.RequestedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO requested_markers (profile_id, item_id, item_table, requested_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(profile_id, item_id) DO NOTHING`,
		m.ProfileID, m.ItemID, m.Table, m.RequestedAt)
	if err != nil {
		return fmt.Errorf("insert marker: %w", err)
	}
	return nil
}

// Exists reports whether profile has a marker for itemID.
func (r *MarkerRepository) Exists(ctx context.Context, profileID, itemID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM requested_markers WHERE profile_id = ? AND item_id = ?`,
		profileID, itemID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query marker: %w", err)
	}
	return n > 0, nil
}

// ListByProfile returns markers for a profile, newest first.
func (r *MarkerRepository) ListByProfile(ctx context.Context, profileID string) ([]models.RequestedMarker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT profile_id, item_id, item_table, requested_at
		FROM requested_markers
		WHERE profile_id = ?
		ORDER BY requested_at DESC, item_id`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	defer rows.Close()

	var out []models.RequestedMarker
	for rows.Next() {
		var m models.RequestedMarker
		if err := rows.Scan(&m.ProfileID, &m.ItemID, &m.Table, &m.RequestedAt); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
