// File path: internal/api/version_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/mdpstudio/sprintforge/internal/mirror"
	"github.com/mdpstudio/sprintforge/internal/synth"
	"github.com/mdpstudio/sprintforge/internal/version"
)

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := s.store.GetProject(r.Context(), projectID); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	versions, err := s.store.ListVersions(r.Context(), projectID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	summaries := make([]versionSummary, 0, len(versions))
	for _, v := range versions {
		summaries = append(summaries, newVersionSummary(v))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": summaries})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetVersion(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newVersionView(record))
}

func (s *Server) handleBuildPrompt(w http.ResponseWriter, r *http.Request) {
	record, err := s.store.GetVersion(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	project, err := s.store.GetProject(r.Context(), record.ProjectID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"version_number": record.VersionNumber,
		"build_prompt":   version.BuildPrompt(record.DocumentContent, project.Name),
	})
}

type compileDocumentRequest struct {
	PreviousDocument string                  `json:"previous_document"`
	ApprovedUpdates  []synth.SuggestedUpdate `json:"approved_updates"`
}

// handleCompileDocument compiles a project's document. With a
// previous_document and approved_updates it runs in revision mode
// instead of recompiling from the phases.
func (s *Server) handleCompileDocument(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req compileDocumentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	if strings.TrimSpace(req.PreviousDocument) != "" {
		if len(req.ApprovedUpdates) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("approved_updates required for revision"))
			return
		}
		project, err := s.store.GetProject(r.Context(), projectID)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		document, err := s.compiler.DocumentRevision(r.Context(), req.PreviousDocument, req.ApprovedUpdates, project.Name)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"document_content": document})
		return
	}

	document, err := s.compiler.Document(r.Context(), projectID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_content": document})
}

type compilePresentationRequest struct {
	DocumentContent string `json:"document_content"`
	ProjectName     string `json:"project_name"`
	PrimaryColor    string `json:"primary_color"`
	Tagline         string `json:"tagline"`
}

func (s *Server) handleCompilePresentation(w http.ResponseWriter, r *http.Request) {
	var req compilePresentationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.DocumentContent) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("document_content required"))
		return
	}
	story, err := s.compiler.Presentation(r.Context(), req.DocumentContent, synth.Branding{
		ProjectName:  req.ProjectName,
		PrimaryColor: req.PrimaryColor,
		Tagline:      req.Tagline,
	})
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"story_content": story})
}

type commitArtifactsRequest struct {
	Files []struct {
		Name    string `json:"name"`
		Content string `json:"content"`
	} `json:"files"`
	StudentName string `json:"student_name"`
	ProjectSlug string `json:"project_slug"`
	Version     string `json:"version"`
}

func (s *Server) handleCommitArtifacts(w http.ResponseWriter, r *http.Request) {
	var req commitArtifactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Files) == 0 || req.StudentName == "" || req.ProjectSlug == "" || req.Version == "" {
		writeError(w, http.StatusBadRequest,
			fmt.Errorf("files, student_name, project_slug, and version are required"))
		return
	}
	files := make([]mirror.File, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, mirror.File{Name: f.Name, Content: f.Content})
	}
	result, err := s.mirror.Commit(r.Context(), files, req.StudentName, req.ProjectSlug, req.Version)
	if err != nil {
		status := http.StatusBadGateway
		if statusForError(err) == http.StatusServiceUnavailable {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sha":        result.SHA,
		"commit_url": result.CommitURL,
		"file_urls":  result.FileURLs,
	})
}
