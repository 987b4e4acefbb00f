// File path: internal/sqlite/feedback.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertFeedbackEntry records a single piece of build feedback against a
// version.
func (s *Store) InsertFeedbackEntry(ctx context.Context, versionID, projectID, category, content string) (*FeedbackEntry, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	entry := &FeedbackEntry{
		ID:        uuid.NewString(),
		VersionID: versionID,
		ProjectID: projectID,
		Category:  category,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO feedback_entries
                (id, version_id, project_id, category, content, created_at)
                VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.VersionID, entry.ProjectID, entry.Category, entry.Content, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert feedback entry: %w", err)
	}
	return entry, nil
}

// ListFeedbackEntries returns every feedback entry for a version, oldest
// first so grouped output reads in the order it was given.
func (s *Store) ListFeedbackEntries(ctx context.Context, versionID string) ([]FeedbackEntry, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	entries := []FeedbackEntry{}
	err := s.db.SelectContext(ctx, &entries,
		`SELECT * FROM feedback_entries WHERE version_id = ? ORDER BY created_at ASC`, versionID)
	if err != nil {
		return nil, fmt.Errorf("select feedback entries: %w", err)
	}
	return entries, nil
}

// DeleteFeedbackEntry removes a feedback entry by id.
func (s *Store) DeleteFeedbackEntry(ctx context.Context, id string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM feedback_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete feedback entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("feedback entry %s: %w", id, ErrNotFound)
	}
	return nil
}

// InsertChecklistItems seeds the feature checklist for a version. Items
// are only created once; subsequent calls for the same version are
// no-ops so statuses survive reloads.
func (s *Store) InsertChecklistItems(ctx context.Context, versionID, projectID string, features []string) ([]ChecklistItem, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	existing, err := s.ListChecklist(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}
	now := time.Now().UTC()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checklist insert: %w", err)
	}
	defer tx.Rollback()
	for i, feature := range features {
		_, err := tx.ExecContext(ctx, `INSERT INTO feature_checklist
                        (id, version_id, project_id, feature, status, sort_order, created_at, updated_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), versionID, projectID, feature, ChecklistNotStarted, i, now, now)
		if err != nil {
			return nil, fmt.Errorf("insert checklist item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checklist insert: %w", err)
	}
	return s.ListChecklist(ctx, versionID)
}

// ListChecklist returns the feature checklist for a version in its
// original document order.
func (s *Store) ListChecklist(ctx context.Context, versionID string) ([]ChecklistItem, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	items := []ChecklistItem{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT * FROM feature_checklist WHERE version_id = ? ORDER BY sort_order ASC`, versionID)
	if err != nil {
		return nil, fmt.Errorf("select checklist: %w", err)
	}
	return items, nil
}

// GetChecklistItem retrieves a single checklist item.
func (s *Store) GetChecklistItem(ctx context.Context, id string) (*ChecklistItem, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var item ChecklistItem
	if err := s.db.GetContext(ctx, &item, `SELECT * FROM feature_checklist WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("checklist item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select checklist item: %w", err)
	}
	return &item, nil
}

// UpdateChecklistStatus sets a checklist item's build status.
func (s *Store) UpdateChecklistStatus(ctx context.Context, id, status string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	switch status {
	case ChecklistNotStarted, ChecklistPartial, ChecklistWorking:
	default:
		return fmt.Errorf("invalid checklist status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE feature_checklist SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update checklist status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("checklist item %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpsertFeedbackSynthesis stores the synthesized analysis for a version.
// Re-running synthesis overwrites the previous result in one statement.
func (s *Store) UpsertFeedbackSynthesis(ctx context.Context, versionID, projectID, analysis, suggestedUpdates string) (*FeedbackSynthesis, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO feedback_synthesis
                (id, version_id, project_id, analysis, suggested_updates, created_at)
                VALUES (?, ?, ?, ?, ?, ?)
                ON CONFLICT(version_id) DO UPDATE SET
                        analysis = excluded.analysis,
                        suggested_updates = excluded.suggested_updates,
                        created_at = excluded.created_at`,
		uuid.NewString(), versionID, projectID, analysis, suggestedUpdates, now)
	if err != nil {
		return nil, fmt.Errorf("upsert feedback synthesis: %w", err)
	}
	return s.GetFeedbackSynthesis(ctx, versionID)
}

// GetFeedbackSynthesis retrieves the stored synthesis for a version.
func (s *Store) GetFeedbackSynthesis(ctx context.Context, versionID string) (*FeedbackSynthesis, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var row FeedbackSynthesis
	err := s.db.GetContext(ctx, &row,
		`SELECT * FROM feedback_synthesis WHERE version_id = ?`, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feedback synthesis for version %s: %w", versionID, ErrNotFound)
		}
		return nil, fmt.Errorf("select feedback synthesis: %w", err)
	}
	return &row, nil
}
