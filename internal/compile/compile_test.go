// File path: internal/compile/compile_test.go
package compile

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdpstudio/sprintforge/internal/llm"
	"github.com/mdpstudio/sprintforge/internal/phase"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
	"github.com/mdpstudio/sprintforge/internal/synth"
)

type echoProvider struct {
	text    string
	prompts []string
}

func (p *echoProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	p.prompts = append(p.prompts, req.Prompt)
	return llm.Completion{Text: p.text, Model: "echo", InputTokens: 1, OutputTokens: 1}, nil
}

func (p *echoProvider) Name() string { return "echo" }

func newTestCompiler(t *testing.T, provider llm.Provider) (*Compiler, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewCompiler(store, synth.NewInvoker(provider)), store
}

func TestDocumentRequiresAllPhases(t *testing.T) {
	compiler, store := newTestCompiler(t, &echoProvider{text: "# PRD"})
	ctx := context.Background()
	project, err := store.CreateProject(ctx, "Jordan Smith", "Triage Buddy", "triage-buddy")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	for n := 1; n < phase.Count; n++ {
		if _, err := store.SavePhaseInputs(ctx, project.ID, n, "{}"); err != nil {
			t.Fatalf("save phase %d: %v", n, err)
		}
	}
	if _, err := compiler.Document(ctx, project.ID); !errors.Is(err, ErrIncompletePhases) {
		t.Fatalf("six phases: got %v, want ErrIncompletePhases", err)
	}

	if _, err := store.SavePhaseInputs(ctx, project.ID, phase.Count, `{"platform":"claude_code"}`); err != nil {
		t.Fatalf("save phase %d: %v", phase.Count, err)
	}
	document, err := compiler.Document(ctx, project.ID)
	if err != nil {
		t.Fatalf("seven phases: %v", err)
	}
	if document != "# PRD" {
		t.Fatalf("document: got %q", document)
	}
}

func TestDocumentPromptCarriesPhaseData(t *testing.T) {
	provider := &echoProvider{text: "# PRD"}
	compiler, store := newTestCompiler(t, provider)
	ctx := context.Background()
	project, _ := store.CreateProject(ctx, "Jordan Smith", "Triage Buddy", "triage-buddy")

	for n := 1; n <= phase.Count; n++ {
		if _, err := store.SavePhaseInputs(ctx, project.ID, n, "{}"); err != nil {
			t.Fatalf("save phase %d: %v", n, err)
		}
	}
	if err := store.SavePhaseSynthesis(ctx, project.ID, 1, `{"problem_statement":"long ED waits"}`); err != nil {
		t.Fatalf("save synthesis: %v", err)
	}

	if _, err := compiler.Document(ctx, project.ID); err != nil {
		t.Fatalf("compile: %v", err)
	}
	prompt := provider.prompts[0]
	if !strings.Contains(prompt, "long ED waits") {
		t.Fatal("prompt missing phase synthesis")
	}
	if !strings.Contains(prompt, "Triage Buddy") || !strings.Contains(prompt, "Jordan Smith") {
		t.Fatal("prompt missing project info")
	}
}

func TestDocumentRevisionValidation(t *testing.T) {
	compiler, _ := newTestCompiler(t, &echoProvider{text: "# PRD"})
	ctx := context.Background()
	updates := []synth.SuggestedUpdate{{Action: "+ Add", Section: "MVP", Description: "x"}}

	if _, err := compiler.DocumentRevision(ctx, "   ", updates, "Triage Buddy"); err == nil {
		t.Fatal("empty document accepted")
	}
	if _, err := compiler.DocumentRevision(ctx, "# PRD", nil, "Triage Buddy"); err == nil {
		t.Fatal("empty update set accepted")
	}
	if _, err := compiler.DocumentRevision(ctx, "# PRD", updates, "Triage Buddy"); err != nil {
		t.Fatalf("valid revision: %v", err)
	}
}

func TestPresentationValidation(t *testing.T) {
	provider := &echoProvider{text: "<html></html>"}
	compiler, _ := newTestCompiler(t, provider)
	ctx := context.Background()

	if _, err := compiler.Presentation(ctx, "  ", synth.Branding{}); err == nil {
		t.Fatal("empty document accepted")
	}
	story, err := compiler.Presentation(ctx, "# PRD", synth.Branding{ProjectName: "Triage Buddy", PrimaryColor: "#0055aa"})
	if err != nil {
		t.Fatalf("presentation: %v", err)
	}
	if story != "<html></html>" {
		t.Fatalf("story: got %q", story)
	}
	if !strings.Contains(provider.prompts[0], "#0055aa") {
		t.Fatal("prompt missing brand color")
	}
}

func TestBrandingFromPhase7(t *testing.T) {
	inputs := map[string]interface{}{
		"branding": map[string]interface{}{
			"primary_color": "#112233",
			"tagline":       "Less waiting, more care",
		},
		"project_name": "Triage Buddy Pro",
	}
	branding := BrandingFromPhase7(inputs, "Triage Buddy")
	if branding.PrimaryColor != "#112233" || branding.Tagline != "Less waiting, more care" {
		t.Fatalf("branding: %+v", branding)
	}
	if branding.ProjectName != "Triage Buddy Pro" {
		t.Fatalf("project name override: %q", branding.ProjectName)
	}

	fallback := BrandingFromPhase7(map[string]interface{}{}, "Triage Buddy")
	if fallback.ProjectName != "Triage Buddy" || fallback.PrimaryColor != "" {
		t.Fatalf("fallback: %+v", fallback)
	}
}
