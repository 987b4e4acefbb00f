// File path: internal/api/project_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/mirror"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
)

type createProjectRequest struct {
	StudentName string `json:"student_name"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.StudentName) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("student_name required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name required"))
		return
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = mirror.KebabCase(req.Name)
	}
	project, err := s.store.CreateProject(r.Context(), req.StudentName, req.Name, slug)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	logger.Info("api: project created", "project", project.ID, "slug", project.Slug)
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.store.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

type projectStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	var req projectStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	switch req.Status {
	case sqlite.ProjectActive, sqlite.ProjectCompleted, sqlite.ProjectArchived:
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
		return
	}
	if err := s.store.SetProjectStatus(r.Context(), projectID, req.Status); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	project, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}
