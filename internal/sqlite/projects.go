// File path: internal/sqlite/projects.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateProject inserts a new active project starting at phase 1.
func (s *Store) CreateProject(ctx context.Context, studentName, name, slug string) (*Project, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	studentName = strings.TrimSpace(studentName)
	name = strings.TrimSpace(name)
	if studentName == "" {
		return nil, fmt.Errorf("student name required")
	}
	if name == "" {
		return nil, fmt.Errorf("project name required")
	}
	now := time.Now().UTC()
	project := &Project{
		ID:           uuid.NewString(),
		StudentName:  studentName,
		Name:         name,
		Slug:         slug,
		CurrentPhase: 1,
		Status:       ProjectActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects
                (id, student_name, name, slug, current_phase, status, created_at, updated_at)
                VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.StudentName, project.Name, project.Slug,
		project.CurrentPhase, project.Status, project.CreatedAt, project.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

// GetProject retrieves a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var project Project
	if err := s.db.GetContext(ctx, &project, `SELECT * FROM projects WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("select project: %w", err)
	}
	return &project, nil
}

// ListProjects returns all projects, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	projects := []Project{}
	if err := s.db.SelectContext(ctx, &projects,
		`SELECT * FROM projects ORDER BY updated_at DESC`); err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	return projects, nil
}

// AdvanceProject moves current_phase forward. The phase counter is
// monotonically non-decreasing; a lower value is ignored.
func (s *Store) AdvanceProject(ctx context.Context, id string, phase int) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET current_phase = ?, updated_at = ? WHERE id = ? AND current_phase < ?`,
		phase, time.Now().UTC(), id, phase)
	if err != nil {
		return fmt.Errorf("advance project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already at or past the requested phase; not an error.
		return nil
	}
	return nil
}

// SetProjectStatus updates the project lifecycle status.
func (s *Store) SetProjectStatus(ctx context.Context, id, status string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	switch status {
	case ProjectActive, ProjectCompleted, ProjectArchived:
	default:
		return fmt.Errorf("invalid project status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}
