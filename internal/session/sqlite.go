package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/garyellow/sedori-linebot-go/internal/storage"
)

// SQLiteStore persists sessions in the local SQLite database so they survive
// restarts of a single instance.
type SQLiteStore struct {
	db   *storage.DB
	opts options
}

// NewSQLiteStore wraps an open database. The store owns db and closes it.
func NewSQLiteStore(db *storage.DB, opts ...Option) *SQLiteStore {
	return &SQLiteStore{db: db, opts: buildOptions(opts)}
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*Session, error) {
	row, err := s.db.GetSession(ctx, userID)
	if err != nil || row == nil {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(row.Data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", userID, err)
	}
	if sess.Expired(s.opts.now(), s.opts.ttl) {
		return nil, nil
	}
	return &sess, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.UserID, err)
	}
	return s.db.UpsertSession(ctx, storage.SessionRow{
		UserID:    sess.UserID,
		Data:      data,
		UpdatedAt: sess.LastUpdated,
	})
}

// Sweep implements Store.
func (s *SQLiteStore) Sweep(ctx context.Context) (int, error) {
	return s.db.DeleteSessionsBefore(ctx, s.opts.now().Add(-s.opts.ttl))
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return s.db.CountSessionsSince(ctx, s.opts.now().Add(-s.opts.ttl))
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
