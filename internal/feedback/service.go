// File path: internal/feedback/service.go

// Package feedback runs the build-feedback loop: students log tagged
// observations against a version, the model distills them into a
// proposed document diff, and accepting a (possibly filtered) proposal
// produces the next version.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/compile"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
	"github.com/mdpstudio/sprintforge/internal/synth"
	"github.com/mdpstudio/sprintforge/internal/version"
)

var (
	// ErrNoFeedback rejects synthesis over a version with zero entries.
	ErrNoFeedback = errors.New("no feedback entries to synthesize")
	// ErrNoUpdates rejects acceptance with every suggestion deselected.
	ErrNoUpdates = errors.New("no updates selected")
)

var validCategories = map[string]struct{}{
	synth.CategoryWin:      {},
	synth.CategoryGap:      {},
	synth.CategoryQuestion: {},
	synth.CategoryPivot:    {},
	synth.CategoryNote:     {},
}

// Service coordinates feedback storage, analysis, and the revision loop.
type Service struct {
	store    *sqlite.Store
	invoker  *synth.Invoker
	compiler *compile.Compiler
	pipeline *version.Pipeline
}

func NewService(store *sqlite.Store, invoker *synth.Invoker, compiler *compile.Compiler, pipeline *version.Pipeline) *Service {
	return &Service{store: store, invoker: invoker, compiler: compiler, pipeline: pipeline}
}

// AddEntry records one tagged feedback observation.
func (s *Service) AddEntry(ctx context.Context, versionID, category, content string) (*sqlite.FeedbackEntry, error) {
	if _, ok := validCategories[category]; !ok {
		return nil, fmt.Errorf("invalid feedback category %q", category)
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("feedback content is required")
	}
	record, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return s.store.InsertFeedbackEntry(ctx, record.ID, record.ProjectID, category, content)
}

// Entries lists a version's feedback in the order it was logged.
func (s *Service) Entries(ctx context.Context, versionID string) ([]sqlite.FeedbackEntry, error) {
	return s.store.ListFeedbackEntries(ctx, versionID)
}

// RemoveEntry deletes one feedback entry.
func (s *Service) RemoveEntry(ctx context.Context, entryID string) error {
	return s.store.DeleteFeedbackEntry(ctx, entryID)
}

// Checklist returns the version's feature checklist, seeding it from the
// document's MVP section on first access.
func (s *Service) Checklist(ctx context.Context, versionID string) ([]sqlite.ChecklistItem, error) {
	items, err := s.store.ListChecklist(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items, nil
	}
	record, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	features := version.ExtractMVPFeatures(record.DocumentContent)
	if len(features) == 0 {
		return items, nil
	}
	return s.store.InsertChecklistItems(ctx, record.ID, record.ProjectID, features)
}

// SetChecklistStatus updates one checklist item's build state.
func (s *Service) SetChecklistStatus(ctx context.Context, itemID, status string) (*sqlite.ChecklistItem, error) {
	if err := s.store.UpdateChecklistStatus(ctx, itemID, status); err != nil {
		return nil, err
	}
	return s.store.GetChecklistItem(ctx, itemID)
}

// Synthesize analyzes a version's feedback entries against its document
// and checklist and stores the structured proposal. A version without
// entries fails with ErrNoFeedback; an unparseable model response fails
// with synth.ErrParse, since the revision loop cannot run on prose.
func (s *Service) Synthesize(ctx context.Context, versionID, projectID string) (map[string]interface{}, error) {
	record, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListFeedbackEntries(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNoFeedback
	}
	checklist, err := s.store.ListChecklist(ctx, versionID)
	if err != nil {
		return nil, err
	}

	input := synth.FeedbackInput{
		ProjectName:   project.Name,
		VersionNumber: record.VersionNumber,
		Document:      record.DocumentContent,
	}
	for _, entry := range entries {
		input.Entries = append(input.Entries, synth.FeedbackEntry{
			Category: entry.Category,
			Content:  entry.Content,
		})
	}
	for _, item := range checklist {
		input.Checklist = append(input.Checklist, synth.ChecklistStatus{
			Feature: item.Feature,
			Status:  item.Status,
		})
	}

	analysis, err := s.invoker.AnalyzeFeedback(ctx, input)
	if err != nil {
		return nil, err
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	updates := analysis["suggested_updates"]
	if updates == nil {
		updates = []interface{}{}
	}
	updatesJSON, err := json.Marshal(updates)
	if err != nil {
		return nil, fmt.Errorf("encode suggested updates: %w", err)
	}
	if _, err := s.store.UpsertFeedbackSynthesis(ctx, versionID, projectID, string(analysisJSON), string(updatesJSON)); err != nil {
		return nil, err
	}
	common.Logger().Info("feedback: synthesis stored",
		"version", versionID, "entries", len(entries))
	return analysis, nil
}

// Synthesis returns the stored proposal for a version.
func (s *Service) Synthesis(ctx context.Context, versionID string) (*sqlite.FeedbackSynthesis, error) {
	return s.store.GetFeedbackSynthesis(ctx, versionID)
}

// AcceptSynthesis applies the selected subset of a proposal: revise the
// document, regenerate the presentation, and mint the next version with
// a diff summary bucketed from the selected updates only. Deselected
// suggestions are discarded. Nothing is persisted unless every step
// succeeds; a failure reports which step broke.
func (s *Service) AcceptSynthesis(ctx context.Context, versionID string, selected []synth.SuggestedUpdate, isMajor bool) (*sqlite.Version, error) {
	if len(selected) == 0 {
		return nil, ErrNoUpdates
	}
	record, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	project, err := s.store.GetProject(ctx, record.ProjectID)
	if err != nil {
		return nil, err
	}

	revised, err := s.compiler.DocumentRevision(ctx, record.DocumentContent, selected, project.Name)
	if err != nil {
		return nil, fmt.Errorf("revise document: %w", err)
	}

	branding, err := s.brandingFor(ctx, project)
	if err != nil {
		return nil, err
	}
	story, err := s.compiler.Presentation(ctx, revised, branding)
	if err != nil {
		return nil, fmt.Errorf("generate presentation: %w", err)
	}

	scope := "minor"
	if isMajor {
		scope = "major"
	}
	created, err := s.pipeline.Create(ctx, version.CreateRequest{
		Project:       project,
		VersionNumber: version.Next(record.VersionNumber, isMajor),
		Trigger:       sqlite.TriggerBuildFeedback,
		TriggerDetails: map[string]interface{}{
			"source_version":  record.VersionNumber,
			"scope":           scope,
			"applied_updates": len(selected),
		},
		DocumentContent: revised,
		StoryContent:    story,
		DiffSummary:     bucketUpdates(selected),
	})
	if err != nil {
		return nil, fmt.Errorf("create version: %w", err)
	}
	common.Logger().Info("feedback: revision accepted",
		"project", project.ID, "from", record.VersionNumber, "to", created.VersionNumber,
		"updates", len(selected), "scope", scope)
	return created, nil
}

func (s *Service) brandingFor(ctx context.Context, project *sqlite.Project) (synth.Branding, error) {
	branding := synth.Branding{ProjectName: project.Name}
	record, err := s.store.GetPhase(ctx, project.ID, 7)
	if err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return branding, nil
		}
		return synth.Branding{}, err
	}
	var inputs map[string]interface{}
	if err := json.Unmarshal([]byte(record.Inputs), &inputs); err != nil {
		return synth.Branding{}, fmt.Errorf("decode phase 7 inputs: %w", err)
	}
	return compile.BrandingFromPhase7(inputs, project.Name), nil
}

func bucketUpdates(updates []synth.SuggestedUpdate) version.DiffSummary {
	diff := version.DiffSummary{Added: []string{}, Changed: []string{}, Removed: []string{}}
	for _, u := range updates {
		entry := fmt.Sprintf("%s: %s", u.Section, u.Description)
		switch {
		case strings.HasPrefix(u.Action, "+"):
			diff.Added = append(diff.Added, entry)
		case strings.HasPrefix(u.Action, "-"):
			diff.Removed = append(diff.Removed, entry)
		default:
			diff.Changed = append(diff.Changed, entry)
		}
	}
	return diff
}
