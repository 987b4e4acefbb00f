// File path: internal/api/phase_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/compile"
	"github.com/mdpstudio/sprintforge/internal/phase"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
	"github.com/mdpstudio/sprintforge/internal/synth"
	"github.com/mdpstudio/sprintforge/internal/version"
)

func phaseParam(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "phase")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid phase %q", raw)
	}
	return n, nil
}

func (s *Server) handleListPhases(w http.ResponseWriter, r *http.Request) {
	views, err := s.machine.List(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"phases": views})
}

func (s *Server) handleGetPhase(w http.ResponseWriter, r *http.Request) {
	n, err := phaseParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.machine.Get(r.Context(), chi.URLParam(r, "projectID"), n)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type savePhaseRequest struct {
	Inputs map[string]interface{} `json:"inputs"`
}

func (s *Server) handleSavePhase(w http.ResponseWriter, r *http.Request) {
	n, err := phaseParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req savePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Inputs == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("inputs required"))
		return
	}
	view, err := s.machine.Save(r.Context(), chi.URLParam(r, "projectID"), n, req.Inputs)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type synthesizePhaseRequest struct {
	Inputs            map[string]interface{} `json:"inputs"`
	SubStep           string                 `json:"sub_step"`
	PreviousSynthesis map[string]interface{} `json:"previous_synthesis"`
	IterationFeedback string                 `json:"iteration_feedback"`
}

func (s *Server) handleSynthesizePhase(w http.ResponseWriter, r *http.Request) {
	n, err := phaseParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req synthesizePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Inputs == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("inputs required"))
		return
	}
	view, result, err := s.machine.Synthesize(r.Context(), chi.URLParam(r, "projectID"),
		n, req.Inputs, req.SubStep, req.PreviousSynthesis, req.IterationFeedback)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"phase": view,
		"model": result.Model,
		"tokens_used": map[string]int64{
			"input":  result.InputTokens,
			"output": result.OutputTokens,
		},
	})
}

type acceptPhaseRequest struct {
	Inputs    map[string]interface{} `json:"inputs"`
	Synthesis map[string]interface{} `json:"synthesis"`
}

func (s *Server) handleAcceptPhase(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	n, err := phaseParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	projectID := chi.URLParam(r, "projectID")
	var req acceptPhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	completed, err := s.machine.Accept(r.Context(), projectID, n, req.Inputs, req.Synthesis)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	response := map[string]interface{}{"accepted": true, "phase": n}
	if completed {
		created, err := s.runCompletionPipeline(r, projectID)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		response["version"] = newVersionView(created)
		logger.Info("api: completion pipeline finished",
			"project", projectID, "version", created.VersionNumber)
	}

	project, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	response["project"] = project
	writeJSON(w, http.StatusOK, response)
}

// runCompletionPipeline chains the document compiler, the presentation
// compiler, and the version pipeline after a phase 7 acceptance.
func (s *Server) runCompletionPipeline(r *http.Request, projectID string) (*sqlite.Version, error) {
	ctx := r.Context()
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	document, err := s.compiler.Document(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("compile document: %w", err)
	}

	branding, err := s.phase7Branding(r, project)
	if err != nil {
		return nil, err
	}
	story, err := s.compiler.Presentation(ctx, document, branding)
	if err != nil {
		return nil, fmt.Errorf("generate presentation: %w", err)
	}

	last, err := s.store.LatestVersionNumber(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Create(ctx, version.CreateRequest{
		Project:         project,
		VersionNumber:   version.Next(last, false),
		Trigger:         sqlite.TriggerPhase7Complete,
		TriggerDetails:  map[string]interface{}{"phase": phase.Count},
		DocumentContent: document,
		StoryContent:    story,
	})
}

func (s *Server) phase7Branding(r *http.Request, project *sqlite.Project) (synth.Branding, error) {
	record, err := s.store.GetPhase(r.Context(), project.ID, phase.Count)
	if err != nil {
		return synth.Branding{ProjectName: project.Name}, nil
	}
	var inputs map[string]interface{}
	if err := json.Unmarshal([]byte(record.Inputs), &inputs); err != nil {
		return synth.Branding{}, fmt.Errorf("decode phase 7 inputs: %w", err)
	}
	return compile.BrandingFromPhase7(inputs, project.Name), nil
}

type iteratePhaseRequest struct {
	SubStep  string `json:"sub_step"`
	Feedback string `json:"feedback"`
}

func (s *Server) handleIteratePhase(w http.ResponseWriter, r *http.Request) {
	n, err := phaseParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req iteratePhaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, result, err := s.machine.Iterate(r.Context(), chi.URLParam(r, "projectID"), n, req.SubStep, req.Feedback)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	response := map[string]interface{}{"phase": view}
	if result != nil {
		response["model"] = result.Model
		response["tokens_used"] = map[string]int64{
			"input":  result.InputTokens,
			"output": result.OutputTokens,
		}
	}
	writeJSON(w, http.StatusOK, response)
}

type selectOpportunitiesRequest struct {
	Opportunities []phase.Opportunity `json:"opportunities"`
}

func (s *Server) handleSelectOpportunities(w http.ResponseWriter, r *http.Request) {
	var req selectOpportunitiesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.machine.SelectOpportunities(r.Context(), chi.URLParam(r, "projectID"), req.Opportunities)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type editJourneyStepRequest struct {
	Step      phase.JourneyStep `json:"step"`
	Confirmed bool              `json:"confirmed"`
}

func (s *Server) handleEditJourneyStep(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid step index"))
		return
	}
	var req editJourneyStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Step.Step) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("step text required"))
		return
	}
	view, err := s.machine.EditJourneyStep(r.Context(), chi.URLParam(r, "projectID"), index, req.Step, req.Confirmed)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
