package database

import (
	"fmt"
)

// ReadStatusRepository tracks which report items the reader has opened.
type ReadStatusRepository struct {
	db *DB
}

func NewReadStatusRepository(db *DB) *ReadStatusRepository {
	return &ReadStatusRepository{db: db}
}

// Mark records an item as read. Marking twice is a no-op.
func (r *ReadStatusRepository) Mark(reportDate, itemID string) error {
	_, err := r.db.Exec(`
		INSERT INTO read_status (report_date, item_id)
		VALUES (?, ?)
		ON CONFLICT (report_date, item_id) DO NOTHING
	`, reportDate, itemID)
	if err != nil {
		return fmt.Errorf("failed to mark item read: %w", err)
	}
	return nil
}

// Unmark removes the read marker for an item.
func (r *ReadStatusRepository) Unmark(reportDate, itemID string) error {
	_, err := r.db.Exec(`
		DELETE FROM read_status WHERE report_date = ? AND item_id = ?
	`, reportDate, itemID)
	if err != nil {
		return fmt.Errorf("failed to unmark item read: %w", err)
	}
	return nil
}

// GetAll returns the ids of the items marked read for a report date.
func (r *ReadStatusRepository) GetAll(reportDate string) ([]string, error) {
	rows, err := r.db.Query(`
		SELECT item_id FROM read_status WHERE report_date = ? ORDER BY read_at
	`, reportDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query read status: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan read status: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read read status rows: %w", err)
	}

	return ids, nil
}
