// File path: internal/sqlite/types.go
package sqlite

import (
	"database/sql"
	"time"
)

// Project represents a sprint project row.
type Project struct {
	ID           string    `db:"id" json:"id"`
	StudentName  string    `db:"student_name" json:"student_name"`
	Name         string    `db:"name" json:"name"`
	Slug         string    `db:"slug" json:"slug"`
	CurrentPhase int       `db:"current_phase" json:"current_phase"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Project status values.
const (
	ProjectActive    = "active"
	ProjectCompleted = "completed"
	ProjectArchived  = "archived"
)

// PhaseRecord holds one project x phase row. JSON columns are stored as TEXT.
type PhaseRecord struct {
	ID               string       `db:"id" json:"id"`
	ProjectID        string       `db:"project_id" json:"project_id"`
	Phase            int          `db:"phase" json:"phase"`
	Inputs           string       `db:"inputs" json:"-"`
	Synthesis        string       `db:"synthesis" json:"-"`
	IterationHistory string       `db:"iteration_history" json:"-"`
	Status           string       `db:"status" json:"status"`
	AcceptedAt       sql.NullTime `db:"accepted_at" json:"-"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// Phase record status values.
const (
	PhaseInProgress = "in_progress"
	PhaseAccepted   = "accepted"
	PhaseSkipped    = "skipped"
)

// Version is an immutable compiled snapshot. Rows are never updated.
type Version struct {
	ID              string         `db:"id" json:"id"`
	ProjectID       string         `db:"project_id" json:"project_id"`
	VersionNumber   string         `db:"version_number" json:"version_number"`
	TriggerKind     string         `db:"trigger_kind" json:"trigger"`
	TriggerDetails  string         `db:"trigger_details" json:"-"`
	DocumentContent string         `db:"document_content" json:"-"`
	StoryContent    string         `db:"story_content" json:"-"`
	DocumentURL     sql.NullString `db:"document_url" json:"-"`
	StoryURL        sql.NullString `db:"story_url" json:"-"`
	DiffSummary     string         `db:"diff_summary" json:"-"`
	CommitSHA       sql.NullString `db:"commit_sha" json:"-"`
	CommitURL       sql.NullString `db:"commit_url" json:"-"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// Version trigger kinds.
const (
	TriggerPhase7Complete = "phase7_complete"
	TriggerBuildFeedback  = "build_feedback"
	TriggerManualRevision = "manual_revision"
)

// FeedbackEntry is a tagged free-text observation against a version.
type FeedbackEntry struct {
	ID        string    `db:"id" json:"id"`
	VersionID string    `db:"version_id" json:"version_id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	Category  string    `db:"category" json:"category"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChecklistItem is one parsed MVP feature tracked against a version.
type ChecklistItem struct {
	ID        string    `db:"id" json:"id"`
	VersionID string    `db:"version_id" json:"version_id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	Feature   string    `db:"feature" json:"feature"`
	Status    string    `db:"status" json:"status"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Checklist status values, cycled in this order.
const (
	ChecklistNotStarted = "not_started"
	ChecklistPartial    = "partial"
	ChecklistWorking    = "working"
)

// FeedbackSynthesis holds the last AI-proposed diff for a version. At most
// one row per version, enforced by a unique constraint.
type FeedbackSynthesis struct {
	ID               string    `db:"id" json:"id"`
	VersionID        string    `db:"version_id" json:"version_id"`
	ProjectID        string    `db:"project_id" json:"project_id"`
	Analysis         string    `db:"analysis" json:"-"`
	SuggestedUpdates string    `db:"suggested_updates" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
