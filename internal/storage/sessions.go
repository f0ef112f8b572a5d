package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SessionRow is one persisted session. Data is the encoded session body.
type SessionRow struct {
	UserID    string
	Data      []byte
	UpdatedAt time.Time
}

// GetSession returns the row for userID, or nil when none exists.
func (db *DB) GetSession(ctx context.Context, userID string) (*SessionRow, error) {
	var (
		data      string
		updatedAt int64
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT data, updated_at FROM sessions WHERE user_id = ?`, userID,
	).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to query session", "error", err)
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &SessionRow{UserID: userID, Data: []byte(data), UpdatedAt: time.UnixMilli(updatedAt)}, nil
}

// UpsertSession inserts or replaces the row for row.UserID.
func (db *DB) UpsertSession(ctx context.Context, row SessionRow) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (user_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		row.UserID, string(row.Data), row.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save session", "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSessionsBefore removes rows last updated strictly before cutoff and
// returns how many were removed.
func (db *DB) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted sessions: %w", err)
	}
	return int(n), nil
}

// CountSessionsSince counts rows updated at or after cutoff.
func (db *DB) CountSessionsSince(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE updated_at >= ?`, cutoff.UnixMilli(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
