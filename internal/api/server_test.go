// File path: internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdpstudio/sprintforge/internal/llm"
	"github.com/mdpstudio/sprintforge/internal/mirror"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
)

type queueProvider struct {
	responses []string
	calls     int
}

func (p *queueProvider) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	text := "{}"
	if p.calls < len(p.responses) {
		text = p.responses[p.calls]
	}
	p.calls++
	return llm.Completion{Text: text, Model: "queued", InputTokens: 3, OutputTokens: 4}, nil
}

func (p *queueProvider) Name() string { return "queued" }

func newTestServer(t *testing.T, provider llm.Provider) (*Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	srv, err := NewServer(store, provider, mirror.NewClient(mirror.Config{}))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv, store
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func createTestProject(t *testing.T, srv *Server) map[string]interface{} {
	t.Helper()
	rec, body := doRequest(t, srv, http.MethodPost, "/v1/projects", map[string]string{
		"student_name": "Jordan Smith",
		"name":         "Triage Buddy",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project: %d %s", rec.Code, rec.Body.String())
	}
	return body
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	rec, _ := doRequest(t, srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestPhaseCatalog(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	rec, body := doRequest(t, srv, http.MethodGet, "/v1/phases", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog: %d", rec.Code)
	}
	phases, _ := body["phases"].([]interface{})
	if len(phases) != 7 {
		t.Fatalf("catalog size: got %d", len(phases))
	}
}

func TestCreateProjectDefaultsSlug(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	if project["slug"] != "triage-buddy" {
		t.Fatalf("slug: got %v", project["slug"])
	}
	if project["current_phase"] != float64(1) || project["status"] != "active" {
		t.Fatalf("project defaults: %v", project)
	}
}

func TestCreateProjectValidation(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/projects", map[string]string{"name": "No Student"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing student: %d", rec.Code)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	rec, _ := doRequest(t, srv, http.MethodGet, "/v1/projects/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing project: %d", rec.Code)
	}
}

func TestProjectStatusValidation(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/status", map[string]string{"status": "paused"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid status: %d", rec.Code)
	}
	rec, body := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/status", map[string]string{"status": "archived"})
	if rec.Code != http.StatusOK || body["status"] != "archived" {
		t.Fatalf("archive: %d %v", rec.Code, body)
	}
}

func TestSynthesizePhaseReportsTokens(t *testing.T) {
	provider := &queueProvider{responses: []string{`{"problem_statement": "long waits"}`}}
	srv, _ := newTestServer(t, provider)
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, body := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/phases/1/synthesize",
		map[string]interface{}{"inputs": map[string]interface{}{"topic_description": "ED waits"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("synthesize: %d %s", rec.Code, rec.Body.String())
	}
	if body["model"] != "queued" {
		t.Fatalf("model: %v", body["model"])
	}
	tokens, _ := body["tokens_used"].(map[string]interface{})
	if tokens["input"] != float64(3) || tokens["output"] != float64(4) {
		t.Fatalf("tokens: %v", tokens)
	}
	view, _ := body["phase"].(map[string]interface{})
	synthesis, _ := view["synthesis"].(map[string]interface{})
	if synthesis["problem_statement"] != "long waits" {
		t.Fatalf("synthesis: %v", view)
	}
}

func TestLockedPhaseConflict(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/phases/3/accept",
		map[string]interface{}{})
	if rec.Code != http.StatusConflict {
		t.Fatalf("locked phase: %d %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidPhaseNumber(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, _ := doRequest(t, srv, http.MethodGet, "/v1/projects/"+id+"/phases/9", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("phase 9: %d", rec.Code)
	}
}

const compiledDocument = "# Triage Buddy PRD\n\n## 4. MVP Features\n\n- Patient kiosk: self check-in\n- Queue display: live wait times\n\n## 5. Technical Spec\n\nSingle web app.\n"

func TestPhaseFlowMintsFirstVersion(t *testing.T) {
	provider := &queueProvider{responses: []string{
		compiledDocument,
		"<html><body>story</body></html>",
	}}
	srv, _ := newTestServer(t, provider)
	project := createTestProject(t, srv)
	id := project["id"].(string)

	for n := 1; n <= 7; n++ {
		path := fmt.Sprintf("/v1/projects/%s/phases/%d", id, n)
		rec, _ := doRequest(t, srv, http.MethodPut, path,
			map[string]interface{}{"inputs": map[string]interface{}{"note": fmt.Sprintf("phase %d", n)}})
		if rec.Code != http.StatusOK {
			t.Fatalf("save phase %d: %d %s", n, rec.Code, rec.Body.String())
		}
		rec, body := doRequest(t, srv, http.MethodPost, path+"/accept", map[string]interface{}{})
		if rec.Code != http.StatusOK {
			t.Fatalf("accept phase %d: %d %s", n, rec.Code, rec.Body.String())
		}
		if n < 7 && body["version"] != nil {
			t.Fatalf("phase %d minted a version early", n)
		}
		if n == 7 {
			created, _ := body["version"].(map[string]interface{})
			if created["version_number"] != "v1.0" {
				t.Fatalf("first version: %v", body["version"])
			}
			if created["trigger"] != "phase7_complete" {
				t.Fatalf("trigger: %v", created["trigger"])
			}
			final, _ := body["project"].(map[string]interface{})
			if final["status"] != "completed" {
				t.Fatalf("project status after completion: %v", final["status"])
			}
		}
	}

	rec, body := doRequest(t, srv, http.MethodGet, "/v1/projects/"+id+"/versions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list versions: %d", rec.Code)
	}
	versions, _ := body["versions"].([]interface{})
	if len(versions) != 1 {
		t.Fatalf("version count: %d", len(versions))
	}
	summary := versions[0].(map[string]interface{})
	versionID := summary["id"].(string)
	if _, ok := summary["document_content"]; ok {
		t.Fatalf("listing should not carry artifact bodies: %v", summary)
	}

	// The mirror is disabled, so the version records without commit URLs.
	rec, body = doRequest(t, srv, http.MethodGet, "/v1/versions/"+versionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get version: %d", rec.Code)
	}
	if body["document_content"] != compiledDocument {
		t.Fatalf("document content: %v", body["document_content"])
	}
	if body["story_content"] != "<html><body>story</body></html>" {
		t.Fatalf("story content: %v", body["story_content"])
	}
	if body["commit_sha"] != nil || body["document_url"] != nil {
		t.Fatalf("mirror fields should be null: %v", body)
	}
	diff, _ := body["diff_summary"].(map[string]interface{})
	if _, ok := diff["added"]; !ok {
		t.Fatalf("diff summary: %v", body["diff_summary"])
	}

	rec, body = doRequest(t, srv, http.MethodGet, "/v1/versions/"+versionID+"/build-prompt", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("build prompt: %d", rec.Code)
	}
	prompt, _ := body["build_prompt"].(string)
	if !strings.Contains(prompt, "# Build: Triage Buddy") {
		t.Fatalf("build prompt header: %q", prompt)
	}
	if !strings.Contains(prompt, "Patient kiosk") {
		t.Fatalf("build prompt features: %q", prompt)
	}

	// Checklist was seeded from the document's MVP section.
	rec, body = doRequest(t, srv, http.MethodGet, "/v1/versions/"+versionID+"/checklist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("checklist: %d", rec.Code)
	}
	items, _ := body["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("checklist items: %d", len(items))
	}
}

func TestCompileDocumentIncompletePhases(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/compile/document", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("incomplete phases: %d %s", rec.Code, rec.Body.String())
	}
}

func TestCompileDocumentRevisionRequiresUpdates(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/compile/document",
		map[string]interface{}{"previous_document": "# PRD"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("revision without updates: %d", rec.Code)
	}
}

func TestCompilePresentationValidation(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{responses: []string{"<html></html>"}})

	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/compile/presentation",
		map[string]string{"project_name": "Triage Buddy"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing document: %d", rec.Code)
	}

	rec, body := doRequest(t, srv, http.MethodPost, "/v1/compile/presentation",
		map[string]string{"document_content": "# PRD", "project_name": "Triage Buddy"})
	if rec.Code != http.StatusOK || body["story_content"] != "<html></html>" {
		t.Fatalf("presentation: %d %v", rec.Code, body)
	}
}

func TestCommitArtifactsUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/artifacts/commit", map[string]interface{}{
		"files":        []map[string]string{{"name": "prd.md", "content": "# PRD"}},
		"student_name": "Jordan Smith",
		"project_slug": "triage-buddy",
		"version":      "v1.0",
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured mirror: %d %s", rec.Code, rec.Body.String())
	}
}

func seedStoreVersion(t *testing.T, store *sqlite.Store, projectID string) *sqlite.Version {
	t.Helper()
	v, err := store.InsertVersion(context.Background(), sqlite.VersionInput{
		ProjectID:       projectID,
		VersionNumber:   "v1.0",
		TriggerKind:     sqlite.TriggerPhase7Complete,
		DocumentContent: compiledDocument,
		StoryContent:    "<html></html>",
	})
	if err != nil {
		t.Fatalf("insert version: %v", err)
	}
	return v
}

func TestFeedbackLoopMintsNextVersion(t *testing.T) {
	provider := &queueProvider{responses: []string{
		`{"summary": "solid build", "suggested_updates": [{"action": "+ Add", "section": "MVP Features", "description": "offline mode", "rationale": "clinic wifi drops"}]}`,
		"# Triage Buddy PRD v1.1\n\n## 4. MVP Features\n\n- Offline mode: sync later\n",
		"<html><body>story v1.1</body></html>",
	}}
	srv, store := newTestServer(t, provider)
	project := createTestProject(t, srv)
	id := project["id"].(string)
	v := seedStoreVersion(t, store, id)

	// Synthesizing before any feedback exists is a client error.
	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/synthesize-feedback",
		map[string]string{"project_id": id})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("synthesize without entries: %d %s", rec.Code, rec.Body.String())
	}

	rec, entry := doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/feedback",
		map[string]string{"category": "gap", "content": "no offline mode"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add feedback: %d %s", rec.Code, rec.Body.String())
	}

	rec, body := doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/synthesize-feedback",
		map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("synthesize feedback: %d %s", rec.Code, rec.Body.String())
	}
	synthesis, _ := body["synthesis"].(map[string]interface{})
	if synthesis["summary"] != "solid build" {
		t.Fatalf("synthesis: %v", body)
	}

	rec, stored := doRequest(t, srv, http.MethodGet, "/v1/versions/"+v.ID+"/feedback-synthesis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get synthesis: %d", rec.Code)
	}
	analysis, _ := stored["analysis"].(map[string]interface{})
	if analysis["summary"] != "solid build" {
		t.Fatalf("stored analysis: %v", stored)
	}
	suggested, _ := stored["suggested_updates"].([]interface{})
	if len(suggested) != 1 {
		t.Fatalf("stored suggested updates: %v", stored["suggested_updates"])
	}

	rec, created := doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/accept-synthesis",
		map[string]interface{}{
			"selected_updates": []map[string]string{
				{"action": "+ Add", "section": "MVP Features", "description": "offline mode"},
			},
		})
	if rec.Code != http.StatusCreated {
		t.Fatalf("accept synthesis: %d %s", rec.Code, rec.Body.String())
	}
	if created["version_number"] != "v1.1" {
		t.Fatalf("next version: %v", created["version_number"])
	}
	if created["trigger"] != "build_feedback" {
		t.Fatalf("trigger: %v", created["trigger"])
	}
	revised, _ := created["document_content"].(string)
	if !strings.Contains(revised, "Offline mode") {
		t.Fatalf("revised document: %q", revised)
	}

	// Accepting with nothing selected is rejected.
	rec, _ = doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/accept-synthesis",
		map[string]interface{}{"selected_updates": []map[string]string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty selection: %d", rec.Code)
	}

	// Removing the entry leaves the version with no feedback again.
	entryID := entry["id"].(string)
	rec, _ = doRequest(t, srv, http.MethodDelete, "/v1/versions/"+v.ID+"/feedback/"+entryID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete entry: %d", rec.Code)
	}
	rec, body = doRequest(t, srv, http.MethodGet, "/v1/versions/"+v.ID+"/feedback", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list entries: %d", rec.Code)
	}
	entries, _ := body["entries"].([]interface{})
	if len(entries) != 0 {
		t.Fatalf("entries after delete: %v", entries)
	}
}

func TestSynthesizeFeedbackEmptyBody(t *testing.T) {
	provider := &queueProvider{responses: []string{
		`{"summary": "looks good", "suggested_updates": []}`,
	}}
	srv, store := newTestServer(t, provider)
	project := createTestProject(t, srv)
	id := project["id"].(string)
	v := seedStoreVersion(t, store, id)

	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/feedback",
		map[string]string{"category": "win", "content": "kiosk flow works"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add feedback: %d %s", rec.Code, rec.Body.String())
	}

	// project_id is optional and resolves from the version.
	rec, body := doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/synthesize-feedback", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("synthesize with empty body: %d %s", rec.Code, rec.Body.String())
	}
	synthesis, _ := body["synthesis"].(map[string]interface{})
	if synthesis["summary"] != "looks good" {
		t.Fatalf("synthesis: %v", body)
	}
}

func TestChecklistStatusEndpoint(t *testing.T) {
	srv, store := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)
	v := seedStoreVersion(t, store, id)

	rec, body := doRequest(t, srv, http.MethodGet, "/v1/versions/"+v.ID+"/checklist", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("checklist: %d", rec.Code)
	}
	items, _ := body["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("seeded items: %d", len(items))
	}
	itemID := items[0].(map[string]interface{})["id"].(string)

	rec, _ = doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/checklist/"+itemID,
		map[string]string{"status": "done"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid status: %d", rec.Code)
	}

	rec, item := doRequest(t, srv, http.MethodPost, "/v1/versions/"+v.ID+"/checklist/"+itemID,
		map[string]string{"status": "working"})
	if rec.Code != http.StatusOK || item["status"] != "working" {
		t.Fatalf("set status: %d %v", rec.Code, item)
	}
}

func TestOpportunitySelectionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, _ := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/phases/4/opportunities",
		map[string]interface{}{"opportunities": []map[string]interface{}{
			{"description": "a", "source_step": 0},
		}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("one opportunity: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/phases/4/opportunities",
		map[string]interface{}{"opportunities": []map[string]interface{}{
			{"description": "a", "source_step": 0},
			{"description": "b", "source_step": 1},
			{"description": "c", "source_step": -1},
		}})
	if rec.Code != http.StatusOK {
		t.Fatalf("three opportunities: %d %s", rec.Code, rec.Body.String())
	}
}

func TestJourneyStepEditEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &queueProvider{})
	project := createTestProject(t, srv)
	id := project["id"].(string)

	rec, _ := doRequest(t, srv, http.MethodPut, "/v1/projects/"+id+"/phases/4",
		map[string]interface{}{"inputs": map[string]interface{}{
			"journey_steps": []map[string]interface{}{
				{"step": "arrive", "label": "neutral", "notes": ""},
			},
		}})
	if rec.Code != http.StatusOK {
		t.Fatalf("save phase 4: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/phases/4/journey-steps/5",
		map[string]interface{}{"step": map[string]string{"step": "x", "label": "neutral"}})
	if rec.Code == http.StatusOK {
		t.Fatal("out of range edit accepted")
	}

	rec, body := doRequest(t, srv, http.MethodPost, "/v1/projects/"+id+"/phases/4/journey-steps/0",
		map[string]interface{}{"step": map[string]string{"step": "arrive", "label": "delight", "notes": "valet"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("edit step: %d %s", rec.Code, rec.Body.String())
	}
	inputs, _ := body["inputs"].(map[string]interface{})
	steps, _ := inputs["journey_steps"].([]interface{})
	step, _ := steps[0].(map[string]interface{})
	if step["label"] != "delight" {
		t.Fatalf("edited step: %v", step)
	}
}
