// File path: internal/api/views.go
package api

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mdpstudio/sprintforge/internal/sqlite"
)

// versionView is the wire shape of a single version: artifact bodies
// included, JSON columns decoded in place, and absent mirror fields
// rendered as nulls.
type versionView struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	VersionNumber   string          `json:"version_number"`
	Trigger         string          `json:"trigger"`
	TriggerDetails  json.RawMessage `json:"trigger_details"`
	DocumentContent string          `json:"document_content"`
	StoryContent    string          `json:"story_content"`
	DiffSummary     json.RawMessage `json:"diff_summary"`
	DocumentURL     *string         `json:"document_url"`
	StoryURL        *string         `json:"story_url"`
	CommitSHA       *string         `json:"commit_sha"`
	CommitURL       *string         `json:"commit_url"`
	CreatedAt       time.Time       `json:"created_at"`
}

// versionSummary is the listing shape: everything but the artifact
// bodies, which clients fetch per version.
type versionSummary struct {
	ID            string          `json:"id"`
	ProjectID     string          `json:"project_id"`
	VersionNumber string          `json:"version_number"`
	Trigger       string          `json:"trigger"`
	DiffSummary   json.RawMessage `json:"diff_summary"`
	DocumentURL   *string         `json:"document_url"`
	StoryURL      *string         `json:"story_url"`
	CommitSHA     *string         `json:"commit_sha"`
	CommitURL     *string         `json:"commit_url"`
	CreatedAt     time.Time       `json:"created_at"`
}

func newVersionView(v *sqlite.Version) versionView {
	return versionView{
		ID:              v.ID,
		ProjectID:       v.ProjectID,
		VersionNumber:   v.VersionNumber,
		Trigger:         v.TriggerKind,
		TriggerDetails:  storedJSON(v.TriggerDetails),
		DocumentContent: v.DocumentContent,
		StoryContent:    v.StoryContent,
		DiffSummary:     storedJSON(v.DiffSummary),
		DocumentURL:     optionalString(v.DocumentURL),
		StoryURL:        optionalString(v.StoryURL),
		CommitSHA:       optionalString(v.CommitSHA),
		CommitURL:       optionalString(v.CommitURL),
		CreatedAt:       v.CreatedAt,
	}
}

func newVersionSummary(v sqlite.Version) versionSummary {
	return versionSummary{
		ID:            v.ID,
		ProjectID:     v.ProjectID,
		VersionNumber: v.VersionNumber,
		Trigger:       v.TriggerKind,
		DiffSummary:   storedJSON(v.DiffSummary),
		DocumentURL:   optionalString(v.DocumentURL),
		StoryURL:      optionalString(v.StoryURL),
		CommitSHA:     optionalString(v.CommitSHA),
		CommitURL:     optionalString(v.CommitURL),
		CreatedAt:     v.CreatedAt,
	}
}

// feedbackSynthesisView exposes the stored proposal with the analysis
// and suggested updates decoded from their TEXT columns.
type feedbackSynthesisView struct {
	ID               string          `json:"id"`
	VersionID        string          `json:"version_id"`
	ProjectID        string          `json:"project_id"`
	Analysis         json.RawMessage `json:"analysis"`
	SuggestedUpdates json.RawMessage `json:"suggested_updates"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func newFeedbackSynthesisView(row *sqlite.FeedbackSynthesis) feedbackSynthesisView {
	return feedbackSynthesisView{
		ID:               row.ID,
		VersionID:        row.VersionID,
		ProjectID:        row.ProjectID,
		Analysis:         storedJSON(row.Analysis),
		SuggestedUpdates: storedJSON(row.SuggestedUpdates),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func optionalString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// storedJSON passes a JSON TEXT column through without re-encoding. The
// columns always hold valid JSON; an empty value still encodes cleanly.
func storedJSON(v string) json.RawMessage {
	if strings.TrimSpace(v) == "" {
		return json.RawMessage("null")
	}
	return json.RawMessage(v)
}
