// File path: internal/api/feedback_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/mdpstudio/sprintforge/internal/synth"
)

type addFeedbackRequest struct {
	Category string `json:"category"`
	Content  string `json:"content"`
}

func (s *Server) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	var req addFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	entry, err := s.feedback.AddEntry(r.Context(), chi.URLParam(r, "versionID"), req.Category, req.Content)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	entries, err := s.feedback.Entries(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (s *Server) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	if err := s.feedback.RemoveEntry(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	items, err := s.feedback.Checklist(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

type checklistStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleChecklistStatus(w http.ResponseWriter, r *http.Request) {
	var req checklistStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("status required"))
		return
	}
	item, err := s.feedback.SetChecklistStatus(r.Context(), chi.URLParam(r, "itemID"), req.Status)
	if err != nil {
		status := statusForError(err)
		if status == http.StatusInternalServerError && strings.Contains(err.Error(), "invalid checklist status") {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type synthesizeFeedbackRequest struct {
	ProjectID string `json:"project_id"`
}

func (s *Server) handleSynthesizeFeedback(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")
	var req synthesizeFeedbackRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	projectID := req.ProjectID
	if strings.TrimSpace(projectID) == "" {
		record, err := s.store.GetVersion(r.Context(), versionID)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		projectID = record.ProjectID
	}
	analysis, err := s.feedback.Synthesize(r.Context(), versionID, projectID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"synthesis": analysis})
}

func (s *Server) handleGetFeedbackSynthesis(w http.ResponseWriter, r *http.Request) {
	row, err := s.feedback.Synthesis(r.Context(), chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newFeedbackSynthesisView(row))
}

type acceptSynthesisRequest struct {
	SelectedUpdates []synth.SuggestedUpdate `json:"selected_updates"`
	IsMajor         bool                    `json:"is_major"`
}

func (s *Server) handleAcceptSynthesis(w http.ResponseWriter, r *http.Request) {
	var req acceptSynthesisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	created, err := s.feedback.AcceptSynthesis(r.Context(), chi.URLParam(r, "versionID"), req.SelectedUpdates, req.IsMajor)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, newVersionView(created))
}
