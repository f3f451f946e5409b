package database

import (
	"fmt"
	"time"
)

// FetchAttempt is one recorded retrieval attempt against a feed URL.
type FetchAttempt struct {
	ID        int64     `json:"id"`
	FeedURL   string    `json:"feedUrl"`
	Tier      string    `json:"tier"`
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Duration  int64     `json:"durationMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// FetchLogRepository records retrieval attempts for diagnostics.
type FetchLogRepository struct {
	db *DB
}

func NewFetchLogRepository(db *DB) *FetchLogRepository {
	return &FetchLogRepository{db: db}
}

// RecordAttempt stores one attempt. errMsg is empty on success.
func (r *FetchLogRepository) RecordAttempt(feedURL, tier string, success bool, errMsg string, duration time.Duration) error {
	_, err := r.db.Exec(`
		INSERT INTO fetch_attempts (feed_url, tier, success, error, duration_ms)
		VALUES (?, ?, ?, ?, ?)
	`, feedURL, tier, success, errMsg, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record fetch attempt: %w", err)
	}
	return nil
}

// RecentAttempts returns the newest attempts, most recent first.
func (r *FetchLogRepository) RecentAttempts(limit int) ([]FetchAttempt, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(`
		SELECT id, feed_url, tier, success, error, duration_ms, created_at
		FROM fetch_attempts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch attempts: %w", err)
	}
	defer rows.Close()

	var attempts []FetchAttempt
	for rows.Next() {
		var a FetchAttempt
		if err := rows.Scan(&a.ID, &a.FeedURL, &a.Tier, &a.Success, &a.Error, &a.Duration, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fetch attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fetch attempts: %w", err)
	}

	return attempts, nil
}

// AttemptStats returns total and failed attempt counts since the given
// time.
func (r *FetchLogRepository) AttemptStats(since time.Time) (int, int, error) {
	var total, failed int
	// Compare in sqlite's own timestamp domain; binding a Go time value
	// against CURRENT_TIMESTAMP text is format-dependent.
	err := r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
		FROM fetch_attempts
		WHERE created_at >= datetime(?, 'unixepoch')
	`, since.UTC().Unix()).Scan(&total, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query fetch attempt stats: %w", err)
	}
	return total, failed, nil
}
