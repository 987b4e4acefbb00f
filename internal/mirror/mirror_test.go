// File path: internal/mirror/mirror_test.go
package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestKebabCase(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Jordan Smith", "jordan-smith"},
		{"  Maria   de la Cruz  ", "maria-de-la-cruz"},
		{"O'Brien, Pat", "obrien-pat"},
		{"already-kebab", "already-kebab"},
		{"Triage Buddy 2", "triage-buddy-2"},
		{"---", ""},
	}
	for _, tc := range cases {
		if got := KebabCase(tc.in); got != tc.want {
			t.Errorf("KebabCase(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEnabled(t *testing.T) {
	if NewClient(Config{}).Enabled() {
		t.Fatal("empty config must be disabled")
	}
	if NewClient(Config{Token: "ghp_...", Owner: "o", Repo: "r"}).Enabled() {
		t.Fatal("placeholder token must be disabled")
	}
	if !NewClient(Config{Token: "ghp_real", Owner: "o", Repo: "r"}).Enabled() {
		t.Fatal("complete config must be enabled")
	}
}

func TestCommitNotConfigured(t *testing.T) {
	_, err := NewClient(Config{}).Commit(context.Background(), []File{{Name: "prd.md", Content: "x"}}, "Jordan", "slug", "v1.0")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}

// fakeGitHub serves the five git data endpoints the commit flow touches.
type fakeGitHub struct {
	t         *testing.T
	blobCount int64
	treeBody  map[string]interface{}
	commitMsg string
	refSHA    string
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/o/r/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, map[string]interface{}{"object": map[string]string{"sha": "head000"}})
	})
	mux.HandleFunc("POST /repos/o/r/git/blobs", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&f.blobCount, 1)
		writeBody(w, map[string]string{"sha": "blob" + string(rune('0'+n))})
	})
	mux.HandleFunc("POST /repos/o/r/git/trees", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&f.treeBody)
		writeBody(w, map[string]string{"sha": "tree000"})
	})
	mux.HandleFunc("POST /repos/o/r/git/commits", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message string   `json:"message"`
			Tree    string   `json:"tree"`
			Parents []string `json:"parents"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.commitMsg = body.Message
		if body.Tree != "tree000" {
			f.t.Errorf("commit tree: got %q", body.Tree)
		}
		if len(body.Parents) != 1 || body.Parents[0] != "head000" {
			f.t.Errorf("commit parents: got %v", body.Parents)
		}
		writeBody(w, map[string]string{"sha": "commit000", "html_url": "https://example.com/commit/commit000"})
	})
	mux.HandleFunc("PATCH /repos/o/r/git/refs/heads/main", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			SHA string `json:"sha"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.refSHA = body.SHA
		writeBody(w, map[string]string{"ref": "refs/heads/main"})
	})
	return mux
}

func writeBody(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestCommitFlow(t *testing.T) {
	fake := &fakeGitHub{t: t}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	client := NewClient(Config{
		Token:   "ghp_real",
		Owner:   "o",
		Repo:    "r",
		Branch:  "main",
		BaseURL: server.URL,
		WebURL:  "https://github.com",
	})

	files := []File{
		{Name: "prd.md", Content: "# PRD"},
		{Name: "story.html", Content: "<html></html>"},
		{Name: "metadata.json", Content: "{}"},
	}
	result, err := client.Commit(context.Background(), files, "Jordan Smith", "triage-buddy", "v1.0")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if result.SHA != "commit000" {
		t.Fatalf("commit sha: got %q", result.SHA)
	}
	if result.CommitURL != "https://example.com/commit/commit000" {
		t.Fatalf("commit url: got %q", result.CommitURL)
	}
	if fake.blobCount != 3 {
		t.Fatalf("blob uploads: got %d, want 3", fake.blobCount)
	}
	if fake.commitMsg != "v1.0: triage-buddy artifacts for Jordan Smith" {
		t.Fatalf("commit message: got %q", fake.commitMsg)
	}
	if fake.refSHA != "commit000" {
		t.Fatalf("ref update: got %q", fake.refSHA)
	}

	wantPath := "students/jordan-smith/projects/triage-buddy/versions/v1.0/prd.md"
	url, ok := result.FileURLs[wantPath]
	if !ok {
		t.Fatalf("file urls missing %q: %v", wantPath, result.FileURLs)
	}
	if url != "https://github.com/o/r/blob/main/"+wantPath {
		t.Fatalf("file url: got %q", url)
	}

	if base, _ := fake.treeBody["base_tree"].(string); base != "head000" {
		t.Fatalf("tree base: got %v", fake.treeBody["base_tree"])
	}
	entries, _ := fake.treeBody["tree"].([]interface{})
	if len(entries) != 3 {
		t.Fatalf("tree entries: got %d", len(entries))
	}
	first, _ := entries[0].(map[string]interface{})
	if first["mode"] != "100644" || first["type"] != "blob" {
		t.Fatalf("tree entry shape: %v", first)
	}
}

func TestCommitAPIErrorSurfacesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
	}))
	defer server.Close()

	client := NewClient(Config{Token: "ghp_bad", Owner: "o", Repo: "r", Branch: "main", BaseURL: server.URL})
	_, err := client.Commit(context.Background(), []File{{Name: "prd.md", Content: "x"}}, "J", "s", "v1.0")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Bad credentials") {
		t.Fatalf("error detail: %v", err)
	}
}

func TestCommitRequiresFiles(t *testing.T) {
	client := NewClient(Config{Token: "ghp_real", Owner: "o", Repo: "r"})
	if _, err := client.Commit(context.Background(), nil, "J", "s", "v1.0"); err == nil {
		t.Fatal("expected error for empty file set")
	}
}
