// File path: internal/version/pipeline.go
package version

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/mirror"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
)

// DiffSummary describes what changed relative to the previous version.
type DiffSummary struct {
	Added   []string `json:"added"`
	Changed []string `json:"changed"`
	Removed []string `json:"removed"`
}

func (d DiffSummary) normalized() DiffSummary {
	if d.Added == nil {
		d.Added = []string{}
	}
	if d.Changed == nil {
		d.Changed = []string{}
	}
	if d.Removed == nil {
		d.Removed = []string{}
	}
	return d
}

// CreateRequest carries everything needed to mint one version.
type CreateRequest struct {
	Project         *sqlite.Project
	VersionNumber   string
	Trigger         string
	TriggerDetails  map[string]interface{}
	DocumentContent string
	StoryContent    string
	DiffSummary     DiffSummary
}

// Pipeline promotes compiled artifacts into immutable version records,
// mirroring them to GitHub on the way. The mirror leg is best effort:
// its failure degrades the record (null URLs and commit fields) but
// never blocks the version.
type Pipeline struct {
	store  *sqlite.Store
	mirror *mirror.Client
}

func NewPipeline(store *sqlite.Store, mirrorClient *mirror.Client) *Pipeline {
	return &Pipeline{store: store, mirror: mirrorClient}
}

// Create mirrors the artifacts, writes the version record, and seeds the
// feature checklist. A phase7_complete trigger also marks the project
// completed.
func (p *Pipeline) Create(ctx context.Context, req CreateRequest) (*sqlite.Version, error) {
	if req.Project == nil {
		return nil, fmt.Errorf("project is required")
	}
	logger := common.Logger()

	metadata := map[string]interface{}{
		"projectId":   req.Project.ID,
		"projectName": req.Project.Name,
		"studentName": req.Project.StudentName,
		"version":     req.VersionNumber,
		"generatedAt": time.Now().UTC().Format(time.RFC3339),
		"trigger":     req.Trigger,
	}
	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode version metadata: %w", err)
	}

	var commitResult mirror.CommitResult
	if p.mirror.Enabled() {
		files := []mirror.File{
			{Name: "prd.md", Content: req.DocumentContent},
			{Name: "story.html", Content: req.StoryContent},
			{Name: "metadata.json", Content: string(metadataJSON)},
		}
		result, err := p.mirror.Commit(ctx, files, req.Project.StudentName, req.Project.Slug, req.VersionNumber)
		if err != nil {
			logger.Warn("version: mirror commit failed, saving without URLs",
				"project", req.Project.ID, "version", req.VersionNumber, "error", err)
		} else {
			commitResult = result
		}
	} else {
		logger.Debug("version: mirror disabled, skipping commit",
			"project", req.Project.ID, "version", req.VersionNumber)
	}

	if req.TriggerDetails == nil {
		req.TriggerDetails = map[string]interface{}{}
	}
	triggerDetails, err := json.Marshal(req.TriggerDetails)
	if err != nil {
		return nil, fmt.Errorf("encode trigger details: %w", err)
	}
	diffSummary, err := json.Marshal(req.DiffSummary.normalized())
	if err != nil {
		return nil, fmt.Errorf("encode diff summary: %w", err)
	}

	record, err := p.store.InsertVersion(ctx, sqlite.VersionInput{
		ProjectID:       req.Project.ID,
		VersionNumber:   req.VersionNumber,
		TriggerKind:     req.Trigger,
		TriggerDetails:  string(triggerDetails),
		DocumentContent: req.DocumentContent,
		StoryContent:    req.StoryContent,
		DocumentURL:     urlBySuffix(commitResult.FileURLs, "prd.md"),
		StoryURL:        urlBySuffix(commitResult.FileURLs, "story.html"),
		DiffSummary:     string(diffSummary),
		CommitSHA:       commitResult.SHA,
		CommitURL:       commitResult.CommitURL,
	})
	if err != nil {
		return nil, fmt.Errorf("persist version: %w", err)
	}

	if features := ExtractMVPFeatures(req.DocumentContent); len(features) > 0 {
		if _, err := p.store.InsertChecklistItems(ctx, record.ID, req.Project.ID, features); err != nil {
			logger.Warn("version: checklist seeding failed",
				"version", record.ID, "error", err)
		}
	}

	if req.Trigger == sqlite.TriggerPhase7Complete {
		if err := p.store.SetProjectStatus(ctx, req.Project.ID, sqlite.ProjectCompleted); err != nil {
			return nil, err
		}
	}

	logger.Info("version: created",
		"project", req.Project.ID, "version", req.VersionNumber,
		"trigger", req.Trigger, "mirrored", commitResult.SHA != "")
	return record, nil
}

func urlBySuffix(fileURLs map[string]string, suffix string) string {
	for path, url := range fileURLs {
		if strings.HasSuffix(path, suffix) {
			return url
		}
	}
	return ""
}
