// File path: internal/sqlite/versions.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// VersionInput carries the fields for a new version row. Mirror fields
// are optional: a version records locally even when the mirror failed.
type VersionInput struct {
	ProjectID       string
	VersionNumber   string
	TriggerKind     string
	TriggerDetails  string
	DocumentContent string
	StoryContent    string
	DocumentURL     string
	StoryURL        string
	DiffSummary     string
	CommitSHA       string
	CommitURL       string
}

// InsertVersion records an immutable version snapshot.
func (s *Store) InsertVersion(ctx context.Context, in VersionInput) (*Version, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if in.TriggerDetails == "" {
		in.TriggerDetails = "{}"
	}
	if in.DiffSummary == "" {
		in.DiffSummary = `{"added":[],"changed":[],"removed":[]}`
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO versions
                (id, project_id, version_number, trigger_kind, trigger_details,
                 document_content, story_content, document_url, story_url,
                 diff_summary, commit_sha, commit_url, created_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ProjectID, in.VersionNumber, in.TriggerKind, in.TriggerDetails,
		in.DocumentContent, in.StoryContent,
		nullable(in.DocumentURL), nullable(in.StoryURL),
		in.DiffSummary, nullable(in.CommitSHA), nullable(in.CommitURL),
		time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("insert version: %w", err)
	}
	return s.GetVersion(ctx, id)
}

// GetVersion retrieves a version by id.
func (s *Store) GetVersion(ctx context.Context, id string) (*Version, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var version Version
	if err := s.db.GetContext(ctx, &version, `SELECT * FROM versions WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("version %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select version: %w", err)
	}
	return &version, nil
}

// ListVersions returns a project's versions, newest first.
func (s *Store) ListVersions(ctx context.Context, projectID string) ([]Version, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	versions := []Version{}
	err := s.db.SelectContext(ctx, &versions,
		`SELECT * FROM versions WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select versions: %w", err)
	}
	return versions, nil
}

// LatestVersionNumber returns the version_number of the most recent
// version, or "" when the project has none.
func (s *Store) LatestVersionNumber(ctx context.Context, projectID string) (string, error) {
	if err := s.ensureReady(); err != nil {
		return "", err
	}
	var number string
	err := s.db.GetContext(ctx, &number,
		`SELECT version_number FROM versions WHERE project_id = ?
                 ORDER BY created_at DESC LIMIT 1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select latest version: %w", err)
	}
	return number, nil
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
