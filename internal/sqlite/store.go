// File path: internal/sqlite/store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by point reads when no row matches.
var ErrNotFound = errors.New("record not found")

var errNilStore = errors.New("sqlite store not initialised")

// Store wraps a pooled sqlx.DB connection to the SQLite project database.
type Store struct {
	db *sqlx.DB
}

// Open constructs a Store backed by the SQLite database at the provided path.
// The schema is migrated on first use.
func Open(path string) (*Store, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	if trimmed := strings.TrimSpace(path); trimmed != "" {
		cfg.Path = trimmed
	}
	return OpenWithConfig(cfg)
}

// OpenWithConfig constructs a Store using the provided configuration.
func OpenWithConfig(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve sqlite path: %w", err)
	}
	busy := int(cfg.BusyTimeout / time.Millisecond)
	if busy <= 0 {
		busy = 5000
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", abs, busy)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingTimeout := cfg.BusyTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureReady() error {
	if s == nil || s.db == nil {
		return errNilStore
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	// SQLite rejects journal-mode pragmas inside a transaction, so apply the
	// leading PRAGMA statements on the connection before the migration begins.
	first := 0
	for first < len(schemaStatements) && strings.HasPrefix(strings.TrimSpace(schemaStatements[first]), "PRAGMA") {
		if _, err := s.db.ExecContext(ctx, schemaStatements[first]); err != nil {
			return fmt.Errorf("execute schema statement %d: %w", first+1, err)
		}
		first++
	}
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for i, stmt := range schemaStatements[first:] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute schema statement %d: %w", first+i+1, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

var schemaStatements = []string{
	`PRAGMA journal_mode = WAL;`,
	`PRAGMA foreign_keys = ON;`,
	`CREATE TABLE IF NOT EXISTS projects (
                id TEXT PRIMARY KEY,
                student_name TEXT NOT NULL,
                name TEXT NOT NULL,
                slug TEXT NOT NULL,
                current_phase INTEGER NOT NULL DEFAULT 1,
                status TEXT NOT NULL DEFAULT 'active',
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
	`CREATE TABLE IF NOT EXISTS phase_data (
                id TEXT PRIMARY KEY,
                project_id TEXT NOT NULL,
                phase INTEGER NOT NULL,
                inputs TEXT NOT NULL DEFAULT '{}',
                synthesis TEXT NOT NULL DEFAULT '{}',
                iteration_history TEXT NOT NULL DEFAULT '[]',
                status TEXT NOT NULL DEFAULT 'in_progress',
                accepted_at DATETIME,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                UNIQUE(project_id, phase),
                FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS versions (
                id TEXT PRIMARY KEY,
                project_id TEXT NOT NULL,
                version_number TEXT NOT NULL,
                trigger_kind TEXT NOT NULL,
                trigger_details TEXT NOT NULL DEFAULT '{}',
                document_content TEXT NOT NULL,
                story_content TEXT NOT NULL,
                document_url TEXT,
                story_url TEXT,
                diff_summary TEXT NOT NULL DEFAULT '{"added":[],"changed":[],"removed":[]}',
                commit_sha TEXT,
                commit_url TEXT,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS feedback_entries (
                id TEXT PRIMARY KEY,
                version_id TEXT NOT NULL,
                project_id TEXT NOT NULL,
                category TEXT NOT NULL,
                content TEXT NOT NULL,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(version_id) REFERENCES versions(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS feature_checklist (
                id TEXT PRIMARY KEY,
                version_id TEXT NOT NULL,
                project_id TEXT NOT NULL,
                feature TEXT NOT NULL,
                status TEXT NOT NULL DEFAULT 'not_started',
                sort_order INTEGER NOT NULL DEFAULT 0,
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(version_id) REFERENCES versions(id) ON DELETE CASCADE
        );`,
	`CREATE TABLE IF NOT EXISTS feedback_synthesis (
                id TEXT PRIMARY KEY,
                version_id TEXT NOT NULL UNIQUE,
                project_id TEXT NOT NULL,
                analysis TEXT NOT NULL DEFAULT '{}',
                suggested_updates TEXT NOT NULL DEFAULT '[]',
                created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
                FOREIGN KEY(version_id) REFERENCES versions(id) ON DELETE CASCADE
        );`,
	`CREATE INDEX IF NOT EXISTS idx_phase_data_project ON phase_data(project_id, phase);`,
	`CREATE INDEX IF NOT EXISTS idx_versions_project_created ON versions(project_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_entries_version ON feedback_entries(version_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_checklist_version_sort ON feature_checklist(version_id, sort_order);`,
}
