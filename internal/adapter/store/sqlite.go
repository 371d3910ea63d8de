// Package store persists canvas comments, page views, and visitor
// messages in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"sketchbook/internal/domain"
)

// SQLiteStore implements domain.CommentStore and domain.VisitorStore on
// a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs
// the schema migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS canvas_comments (
			canvas     TEXT PRIMARY KEY,
			revision   INTEGER NOT NULL,
			data       TEXT NOT NULL DEFAULT '[]',
			updated_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS page_views (
			page  TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS visitor_messages (
			id         TEXT PRIMARY KEY,
			visitor_id TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_visitor ON visitor_messages(visitor_id, created_at);
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveComments writes the saved-comment snapshot for one canvas. Writes
// whose revision is not strictly newer than the stored one fail with
// domain.ErrStaleRevision.
func (s *SQLiteStore) SaveComments(ctx context.Context, canvas string, revision int64, comments []domain.Comment) error {
	data, err := json.Marshal(comments)
	if err != nil {
		return fmt.Errorf("marshal comments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var stored int64
	err = tx.QueryRowContext(ctx,
		"SELECT revision FROM canvas_comments WHERE canvas = ?", canvas,
	).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		stored = 0
	case err != nil:
		return err
	}
	if revision <= stored {
		return domain.NewDomainError("store.save_comments", domain.ErrStaleRevision,
			fmt.Sprintf("revision %d <= stored %d", revision, stored))
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO canvas_comments (canvas, revision, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(canvas) DO UPDATE SET revision = excluded.revision,
			data = excluded.data, updated_at = excluded.updated_at`,
		canvas, revision, string(data), now,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// LoadComments reads the snapshot for one canvas. A canvas never saved
// before returns an empty set at revision zero.
func (s *SQLiteStore) LoadComments(ctx context.Context, canvas string) ([]domain.Comment, int64, error) {
	var revision int64
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT revision, data FROM canvas_comments WHERE canvas = ?", canvas,
	).Scan(&revision, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	var comments []domain.Comment
	if err := json.Unmarshal([]byte(data), &comments); err != nil {
		return nil, 0, fmt.Errorf("unmarshal comments: %w", err)
	}
	return comments, revision, nil
}

// IncrementViews bumps and returns the view count for a page.
func (s *SQLiteStore) IncrementViews(ctx context.Context, page string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO page_views (page, count) VALUES (?, 1)
		ON CONFLICT(page) DO UPDATE SET count = count + 1
		RETURNING count`, page,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) AddMessage(ctx context.Context, msg domain.VisitorMessage) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO visitor_messages (id, visitor_id, body, created_at) VALUES (?, ?, ?, ?)",
		msg.ID, msg.VisitorID, msg.Body, msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return domain.WrapOp("store.add_message", err)
}

func (s *SQLiteStore) ListMessages(ctx context.Context, visitorID string) ([]domain.VisitorMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, visitor_id, body, created_at FROM visitor_messages WHERE visitor_id = ? ORDER BY created_at",
		visitorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.VisitorMessage
	for rows.Next() {
		var m domain.VisitorMessage
		var createdStr string
		if err := rows.Scan(&m.ID, &m.VisitorID, &m.Body, &createdStr); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// PruneMessages deletes messages created before cutoff.
func (s *SQLiteStore) PruneMessages(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM visitor_messages WHERE created_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Vacuum reclaims space after pruning.
func (s *SQLiteStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}
