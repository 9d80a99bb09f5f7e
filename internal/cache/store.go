// Package cache keeps pulled model snapshots in a local SQLite database so
// repeated pulls of an unchanged commit skip the fetch and render, and
// diffs can run offline.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mbsekit/flexo-bridge/internal/model"
)

type Snapshot struct {
	ProjectID   string
	CommitID    string
	ProjectName string
	Elements    []model.Element
	Textual     string
	FetchedAt   time.Time
}

type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, err
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema() error {
	lines := strings.Split(GetSchema(), "\n")
	var cleanLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "--") && trimmed != "" {
			cleanLines = append(cleanLines, line)
		}
	}

	if _, err := s.db.Exec(strings.Join(cleanLines, "\n")); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	_, _ = s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, GetSchemaVersion())
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutSnapshot(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elements, err := json.Marshal(snap.Elements)
	if err != nil {
		return fmt.Errorf("encode snapshot elements: %w", err)
	}

	fetchedAt := snap.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO snapshots (project_id, commit_id, project_name, elements, textual, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, commit_id) DO UPDATE SET
			project_name = excluded.project_name,
			elements = excluded.elements,
			textual = excluded.textual,
			fetched_at = excluded.fetched_at
	`, snap.ProjectID, snap.CommitID, snap.ProjectName, string(elements), snap.Textual, fetchedAt)

	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the cached snapshot, or nil when absent.
func (s *Store) GetSnapshot(projectID, commitID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{}
	var elements string
	var fetchedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT project_id, commit_id, project_name, elements, textual, fetched_at
		FROM snapshots WHERE project_id = ? AND commit_id = ?
	`, projectID, commitID).Scan(
		&snap.ProjectID, &snap.CommitID, &snap.ProjectName,
		&elements, &snap.Textual, &fetchedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(elements), &snap.Elements); err != nil {
		return nil, fmt.Errorf("decode snapshot elements: %w", err)
	}
	if fetchedAt.Valid {
		snap.FetchedAt = fetchedAt.Time
	}
	return snap, nil
}

// LatestSnapshot returns the most recently fetched snapshot for a project,
// or nil when the project has never been pulled.
func (s *Store) LatestSnapshot(projectID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{}
	var elements string
	var fetchedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT project_id, commit_id, project_name, elements, textual, fetched_at
		FROM snapshots WHERE project_id = ?
		ORDER BY fetched_at DESC LIMIT 1
	`, projectID).Scan(
		&snap.ProjectID, &snap.CommitID, &snap.ProjectName,
		&elements, &snap.Textual, &fetchedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(elements), &snap.Elements); err != nil {
		return nil, fmt.Errorf("decode snapshot elements: %w", err)
	}
	if fetchedAt.Valid {
		snap.FetchedAt = fetchedAt.Time
	}
	return snap, nil
}

// Prune removes snapshots older than the cutoff, returning how many rows
// were deleted.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`DELETE FROM snapshots WHERE fetched_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return result.RowsAffected()
}
