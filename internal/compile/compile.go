// File path: internal/compile/compile.go

// Package compile turns a project's accumulated phase data into the two
// deliverable artifacts: the long-form document and the reveal.js story.
package compile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/phase"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
	"github.com/mdpstudio/sprintforge/internal/synth"
)

// ErrIncompletePhases rejects document compilation before all seven
// phases have saved data.
var ErrIncompletePhases = errors.New("document requires data for all 7 phases")

// Compiler builds documents and presentations through the synthesis
// invoker.
type Compiler struct {
	store   *sqlite.Store
	invoker *synth.Invoker
}

func NewCompiler(store *sqlite.Store, invoker *synth.Invoker) *Compiler {
	return &Compiler{store: store, invoker: invoker}
}

// Document compiles the full document from every phase of a project.
func (c *Compiler) Document(ctx context.Context, projectID string) (string, error) {
	project, err := c.store.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	records, err := c.store.ListPhases(ctx, projectID)
	if err != nil {
		return "", err
	}
	if len(records) < phase.Count {
		return "", fmt.Errorf("have %d of %d phases: %w", len(records), phase.Count, ErrIncompletePhases)
	}

	contents := make([]synth.PhaseContent, 0, len(records))
	for _, record := range records {
		inputs, err := decodeObject(record.Inputs)
		if err != nil {
			return "", fmt.Errorf("decode phase %d inputs: %w", record.Phase, err)
		}
		synthesis, err := decodeObject(record.Synthesis)
		if err != nil {
			return "", fmt.Errorf("decode phase %d synthesis: %w", record.Phase, err)
		}
		contents = append(contents, synth.PhaseContent{
			Phase:     record.Phase,
			Inputs:    inputs,
			Synthesis: synthesis,
		})
	}

	document, err := c.invoker.CompileDocument(ctx, contents, synth.ProjectInfo{
		ProjectName: project.Name,
		StudentName: project.StudentName,
	})
	if err != nil {
		return "", err
	}
	common.Logger().Info("compile: document generated",
		"project", projectID, "bytes", len(document))
	return document, nil
}

// DocumentRevision rewrites a previous document applying only the
// caller-approved updates. The compiler never widens or narrows the
// change set on its own.
func (c *Compiler) DocumentRevision(ctx context.Context, previousDocument string, approvedUpdates []synth.SuggestedUpdate, projectName string) (string, error) {
	if strings.TrimSpace(previousDocument) == "" {
		return "", errors.New("previous document is empty")
	}
	if len(approvedUpdates) == 0 {
		return "", errors.New("no approved updates to apply")
	}
	document, err := c.invoker.ReviseDocument(ctx, previousDocument, approvedUpdates, projectName)
	if err != nil {
		return "", err
	}
	common.Logger().Info("compile: document revised",
		"project_name", projectName, "updates", len(approvedUpdates), "bytes", len(document))
	return document, nil
}

// Presentation generates the story HTML for a compiled document.
func (c *Compiler) Presentation(ctx context.Context, documentContent string, branding synth.Branding) (string, error) {
	if strings.TrimSpace(documentContent) == "" {
		return "", errors.New("document content is empty")
	}
	story, err := c.invoker.CompilePresentation(ctx, documentContent, branding)
	if err != nil {
		return "", err
	}
	common.Logger().Info("compile: presentation generated",
		"project_name", branding.ProjectName, "bytes", len(story))
	return story, nil
}

// BrandingFromPhase7 pulls the branding block out of phase 7 inputs.
func BrandingFromPhase7(inputs map[string]interface{}, projectName string) synth.Branding {
	branding := synth.Branding{ProjectName: projectName}
	if block, ok := inputs["branding"].(map[string]interface{}); ok {
		if v, ok := block["primary_color"].(string); ok {
			branding.PrimaryColor = v
		}
		if v, ok := block["tagline"].(string); ok {
			branding.Tagline = v
		}
	}
	if name, ok := inputs["project_name"].(string); ok && strings.TrimSpace(name) != "" {
		branding.ProjectName = name
	}
	return branding
}

func decodeObject(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}
