// File path: internal/version/pipeline_test.go
package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mdpstudio/sprintforge/internal/mirror"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
)

func newPipelineStore(t *testing.T) (*sqlite.Store, *sqlite.Project) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	project, err := store.CreateProject(context.Background(), "Jordan Smith", "Triage Buddy", "triage-buddy")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return store, project
}

func TestCreateSurvivesMirrorFailure(t *testing.T) {
	ctx := context.Background()
	store, project := newPipelineStore(t)

	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(gh.Close)

	client := mirror.NewClient(mirror.Config{
		Token:   "token-1",
		Owner:   "o",
		Repo:    "r",
		BaseURL: gh.URL,
	})
	if !client.Enabled() {
		t.Fatal("mirror should be configured")
	}
	pipeline := NewPipeline(store, client)

	created, err := pipeline.Create(ctx, CreateRequest{
		Project:         project,
		VersionNumber:   "v1.0",
		Trigger:         sqlite.TriggerPhase7Complete,
		DocumentContent: "# PRD",
		StoryContent:    "<html></html>",
	})
	if err != nil {
		t.Fatalf("create with failing mirror: %v", err)
	}
	if created.CommitSHA.Valid || created.CommitURL.Valid {
		t.Fatalf("commit fields should be null: %+v", created)
	}
	if created.DocumentURL.Valid || created.StoryURL.Valid {
		t.Fatalf("artifact URLs should be null: %+v", created)
	}

	reloaded, err := store.GetVersion(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload version: %v", err)
	}
	if reloaded.DocumentContent != "# PRD" || reloaded.StoryContent != "<html></html>" {
		t.Fatalf("artifact bodies not persisted: %+v", reloaded)
	}

	updated, err := store.GetProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if updated.Status != sqlite.ProjectCompleted {
		t.Fatalf("project status: %q", updated.Status)
	}
}
