// File path: internal/mirror/mirror.go

// Package mirror commits version artifacts to a GitHub repository as one
// atomic commit using the git data (trees) API. The mirror is an
// auxiliary sink: callers treat a failed commit as a degraded result,
// never as a reason to abandon the version itself.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mdpstudio/sprintforge/internal/common"
)

// ErrNotConfigured indicates the mirror is missing its token, owner, or
// repository settings.
var ErrNotConfigured = errors.New("artifact mirror not configured")

// File is one artifact to mirror, named relative to the version folder.
type File struct {
	Name    string
	Content string
}

// CommitResult describes a successful mirror commit.
type CommitResult struct {
	SHA       string
	CommitURL string
	FileURLs  map[string]string
}

// Client talks to the GitHub REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether commits can be attempted.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled()
}

// Commit writes every file under
// students/{student-slug}/projects/{project-slug}/versions/{version}/ in
// a single commit on the configured branch.
func (c *Client) Commit(ctx context.Context, files []File, studentName, projectSlug, version string) (CommitResult, error) {
	if !c.Enabled() {
		return CommitResult{}, ErrNotConfigured
	}
	if len(files) == 0 {
		return CommitResult{}, errors.New("no files to commit")
	}

	basePath := fmt.Sprintf("students/%s/projects/%s/versions/%s",
		KebabCase(studentName), projectSlug, version)
	paths := make([]string, len(files))
	for i, file := range files {
		paths[i] = basePath + "/" + file.Name
	}
	message := fmt.Sprintf("%s: %s artifacts for %s", version, projectSlug, studentName)

	repoPath := fmt.Sprintf("/repos/%s/%s", c.cfg.Owner, c.cfg.Repo)

	// Head of the target branch anchors both the tree and the commit
	// parents.
	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := c.do(ctx, http.MethodGet, repoPath+"/git/ref/heads/"+c.cfg.Branch, nil, &ref); err != nil {
		return CommitResult{}, fmt.Errorf("resolve branch head: %w", err)
	}
	headSHA := ref.Object.SHA

	// Blobs are independent; upload them concurrently.
	blobSHAs := make([]string, len(files))
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			var blob struct {
				SHA string `json:"sha"`
			}
			payload := map[string]string{"content": file.Content, "encoding": "utf-8"}
			if err := c.do(groupCtx, http.MethodPost, repoPath+"/git/blobs", payload, &blob); err != nil {
				return fmt.Errorf("create blob %s: %w", file.Name, err)
			}
			mu.Lock()
			blobSHAs[i] = blob.SHA
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return CommitResult{}, err
	}

	treeEntries := make([]map[string]string, len(files))
	for i := range files {
		treeEntries[i] = map[string]string{
			"path": paths[i],
			"mode": "100644",
			"type": "blob",
			"sha":  blobSHAs[i],
		}
	}
	var tree struct {
		SHA string `json:"sha"`
	}
	treePayload := map[string]interface{}{"base_tree": headSHA, "tree": treeEntries}
	if err := c.do(ctx, http.MethodPost, repoPath+"/git/trees", treePayload, &tree); err != nil {
		return CommitResult{}, fmt.Errorf("create tree: %w", err)
	}

	var commit struct {
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	}
	commitPayload := map[string]interface{}{
		"message": message,
		"tree":    tree.SHA,
		"parents": []string{headSHA},
	}
	if err := c.do(ctx, http.MethodPost, repoPath+"/git/commits", commitPayload, &commit); err != nil {
		return CommitResult{}, fmt.Errorf("create commit: %w", err)
	}

	refPayload := map[string]string{"sha": commit.SHA}
	if err := c.do(ctx, http.MethodPatch, repoPath+"/git/refs/heads/"+c.cfg.Branch, refPayload, nil); err != nil {
		return CommitResult{}, fmt.Errorf("update branch ref: %w", err)
	}

	fileURLs := make(map[string]string, len(paths))
	for _, path := range paths {
		fileURLs[path] = fmt.Sprintf("%s/%s/%s/blob/%s/%s",
			c.cfg.WebURL, c.cfg.Owner, c.cfg.Repo, c.cfg.Branch, path)
	}
	commitURL := commit.HTMLURL
	if commitURL == "" {
		commitURL = fmt.Sprintf("%s/%s/%s/commit/%s", c.cfg.WebURL, c.cfg.Owner, c.cfg.Repo, commit.SHA)
	}

	common.Logger().Info("mirror: artifacts committed",
		"sha", commit.SHA, "files", len(files), "path", basePath)
	return CommitResult{SHA: commit.SHA, CommitURL: commitURL, FileURLs: fileURLs}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("github api %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

var (
	kebabStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	kebabSpaces   = regexp.MustCompile(`\s+`)
	kebabCollapse = regexp.MustCompile(`-+`)
)

// KebabCase lowercases a display name into a filesystem-safe slug.
func KebabCase(s string) string {
	slug := strings.ToLower(s)
	slug = kebabStrip.ReplaceAllString(slug, "")
	slug = kebabSpaces.ReplaceAllString(slug, "-")
	slug = kebabCollapse.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
