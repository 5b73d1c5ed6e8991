package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fahadazizz/knowledg-rag/rag"
)

// SqliteStore implements rag.SessionStore on a local SQLite database
type SqliteStore struct {
	db     *sql.DB
	window int
}

// SqliteOptions configuration for the SQLite store
type SqliteOptions struct {
	Path   string // Database file path, ":memory:" for ephemeral storage
	Window int    // Turns kept per thread, default DefaultWindow
}

// NewSqliteStore opens the database and prepares the schema
func NewSqliteStore(opts SqliteOptions) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}

	s := &SqliteStore{db: db, window: window}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

var _ rag.SessionStore = (*SqliteStore)(nil)

func (s *SqliteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			thread_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			query TEXT NOT NULL,
			answer TEXT NOT NULL,
			citations TEXT NOT NULL,
			evidence_ids TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (thread_id, idx)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Load returns the thread's turns oldest first
func (s *SqliteStore) Load(ctx context.Context, threadID string) ([]rag.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, idx, query, answer, citations, evidence_ids, created_at
		FROM turns WHERE thread_id = ? ORDER BY idx ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}
	defer rows.Close()

	var turns []rag.Turn
	for rows.Next() {
		var (
			turn                   rag.Turn
			citations, evidenceIDs string
			createdAt              time.Time
		)
		if err := rows.Scan(&turn.ThreadID, &turn.Index, &turn.Query, &turn.Answer,
			&citations, &evidenceIDs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		if err := json.Unmarshal([]byte(citations), &turn.Citations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citations: %w", err)
		}
		if err := json.Unmarshal([]byte(evidenceIDs), &turn.EvidenceIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal evidence ids: %w", err)
		}
		turn.CreatedAt = createdAt
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration failed: %w", err)
	}
	return turns, nil
}

// Append inserts the turn and evicts rows that fell out of the window
func (s *SqliteStore) Append(ctx context.Context, threadID string, turn rag.Turn) error {
	citations, err := json.Marshal(orEmpty(turn.Citations))
	if err != nil {
		return fmt.Errorf("failed to marshal citations: %w", err)
	}
	evidenceIDs, err := json.Marshal(orEmpty(turn.EvidenceIDs))
	if err != nil {
		return fmt.Errorf("failed to marshal evidence ids: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO turns (thread_id, idx, query, answer, citations, evidence_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, threadID, turn.Index, turn.Query, turn.Answer, string(citations), string(evidenceIDs), turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM turns WHERE thread_id = ? AND idx <= (
			SELECT MAX(idx) FROM turns WHERE thread_id = ?
		) - ?
	`, threadID, threadID, s.window)
	if err != nil {
		return fmt.Errorf("failed to trim thread %s: %w", threadID, err)
	}

	return tx.Commit()
}

// Close closes the database
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
