// File path: internal/sqlite/phases.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SavePhaseInputs upserts the working inputs for a project phase. The
// phase row is created lazily on first save.
func (s *Store) SavePhaseInputs(ctx context.Context, projectID string, phase int, inputs string) (*PhaseRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `INSERT INTO phase_data
                (id, project_id, phase, inputs, synthesis, iteration_history, status, created_at, updated_at)
                VALUES (?, ?, ?, ?, '{}', '[]', ?, ?, ?)
                ON CONFLICT(project_id, phase) DO UPDATE SET
                        inputs = excluded.inputs,
                        updated_at = excluded.updated_at`,
		uuid.NewString(), projectID, phase, inputs, PhaseInProgress, now, now)
	if err != nil {
		return nil, fmt.Errorf("save phase inputs: %w", err)
	}
	return s.GetPhase(ctx, projectID, phase)
}

// GetPhase retrieves a single phase row for a project.
func (s *Store) GetPhase(ctx context.Context, projectID string, phase int) (*PhaseRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var record PhaseRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT * FROM phase_data WHERE project_id = ? AND phase = ?`, projectID, phase)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("phase %d for project %s: %w", phase, projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("select phase: %w", err)
	}
	return &record, nil
}

// ListPhases returns every saved phase row for a project in phase order.
func (s *Store) ListPhases(ctx context.Context, projectID string) ([]PhaseRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	records := []PhaseRecord{}
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM phase_data WHERE project_id = ? ORDER BY phase ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("select phases: %w", err)
	}
	return records, nil
}

// SavePhaseSynthesis stores a fresh synthesis result and moves the phase
// back to in-progress so the student can review it.
func (s *Store) SavePhaseSynthesis(ctx context.Context, projectID string, phase int, synthesis string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE phase_data SET synthesis = ?, status = ?, updated_at = ?
                 WHERE project_id = ? AND phase = ?`,
		synthesis, PhaseInProgress, time.Now().UTC(), projectID, phase)
	if err != nil {
		return fmt.Errorf("save synthesis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("phase %d for project %s: %w", phase, projectID, ErrNotFound)
	}
	return nil
}

// AcceptPhase marks a phase accepted and stamps the acceptance time.
func (s *Store) AcceptPhase(ctx context.Context, projectID string, phase int) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE phase_data SET status = ?, accepted_at = ?, updated_at = ?
                 WHERE project_id = ? AND phase = ?`,
		PhaseAccepted, now, now, projectID, phase)
	if err != nil {
		return fmt.Errorf("accept phase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("phase %d for project %s: %w", phase, projectID, ErrNotFound)
	}
	return nil
}

// RecordPhaseIteration replaces the iteration history and clears the
// current synthesis in one statement so a crash cannot leave the row
// with a stale synthesis and an appended history entry.
func (s *Store) RecordPhaseIteration(ctx context.Context, projectID string, phase int, history, synthesis string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE phase_data SET iteration_history = ?, synthesis = ?, status = ?, updated_at = ?
                 WHERE project_id = ? AND phase = ?`,
		history, synthesis, PhaseInProgress, time.Now().UTC(), projectID, phase)
	if err != nil {
		return fmt.Errorf("record iteration: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("phase %d for project %s: %w", phase, projectID, ErrNotFound)
	}
	return nil
}
