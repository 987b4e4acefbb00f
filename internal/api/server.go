// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/mdpstudio/sprintforge/internal/common"
	"github.com/mdpstudio/sprintforge/internal/compile"
	"github.com/mdpstudio/sprintforge/internal/feedback"
	"github.com/mdpstudio/sprintforge/internal/llm"
	"github.com/mdpstudio/sprintforge/internal/mirror"
	"github.com/mdpstudio/sprintforge/internal/phase"
	"github.com/mdpstudio/sprintforge/internal/sqlite"
	"github.com/mdpstudio/sprintforge/internal/synth"
	"github.com/mdpstudio/sprintforge/internal/version"
)

type Server struct {
	router   chi.Router
	store    *sqlite.Store
	provider llm.Provider
	invoker  *synth.Invoker
	machine  *phase.Machine
	compiler *compile.Compiler
	mirror   *mirror.Client
	pipeline *version.Pipeline
	feedback *feedback.Service
}

func NewServer(store *sqlite.Store, provider llm.Provider, mirrorClient *mirror.Client) (*Server, error) {
	logger := common.Logger()
	if store == nil {
		return nil, errors.New("store required")
	}
	if provider == nil {
		provider = llm.NewProvider()
	}
	if mirrorClient == nil {
		cfg, err := mirror.LoadConfig()
		if err != nil {
			return nil, err
		}
		mirrorClient = mirror.NewClient(cfg)
	}

	invoker := synth.NewInvoker(provider)
	compiler := compile.NewCompiler(store, invoker)
	pipeline := version.NewPipeline(store, mirrorClient)
	srv := &Server{
		router:   chi.NewRouter(),
		store:    store,
		provider: provider,
		invoker:  invoker,
		machine:  phase.NewMachine(store, invoker),
		compiler: compiler,
		mirror:   mirrorClient,
		pipeline: pipeline,
		feedback: feedback.NewService(store, invoker, compiler, pipeline),
	}
	srv.routes()
	logger.Info("api: server ready",
		"provider", provider.Name(), "mirror_enabled", mirrorClient.Enabled())
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Get("/v1/phases", s.handlePhaseCatalog)
	s.router.Get("/v1/logs", s.handleLogs)

	s.router.Post("/v1/projects", s.handleCreateProject)
	s.router.Get("/v1/projects", s.handleListProjects)
	s.router.Get("/v1/projects/{projectID}", s.handleGetProject)
	s.router.Post("/v1/projects/{projectID}/status", s.handleProjectStatus)

	s.router.Get("/v1/projects/{projectID}/phases", s.handleListPhases)
	s.router.Get("/v1/projects/{projectID}/phases/{phase}", s.handleGetPhase)
	s.router.Put("/v1/projects/{projectID}/phases/{phase}", s.handleSavePhase)
	s.router.Post("/v1/projects/{projectID}/phases/{phase}/synthesize", s.handleSynthesizePhase)
	s.router.Post("/v1/projects/{projectID}/phases/{phase}/accept", s.handleAcceptPhase)
	s.router.Post("/v1/projects/{projectID}/phases/{phase}/iterate", s.handleIteratePhase)
	s.router.Post("/v1/projects/{projectID}/phases/4/opportunities", s.handleSelectOpportunities)
	s.router.Post("/v1/projects/{projectID}/phases/4/journey-steps/{index}", s.handleEditJourneyStep)

	s.router.Post("/v1/projects/{projectID}/compile/document", s.handleCompileDocument)
	s.router.Post("/v1/compile/presentation", s.handleCompilePresentation)
	s.router.Post("/v1/artifacts/commit", s.handleCommitArtifacts)

	s.router.Get("/v1/projects/{projectID}/versions", s.handleListVersions)
	s.router.Get("/v1/versions/{versionID}", s.handleGetVersion)
	s.router.Get("/v1/versions/{versionID}/build-prompt", s.handleBuildPrompt)

	s.router.Post("/v1/versions/{versionID}/feedback", s.handleAddFeedback)
	s.router.Get("/v1/versions/{versionID}/feedback", s.handleListFeedback)
	s.router.Delete("/v1/versions/{versionID}/feedback/{entryID}", s.handleDeleteFeedback)
	s.router.Get("/v1/versions/{versionID}/checklist", s.handleChecklist)
	s.router.Post("/v1/versions/{versionID}/checklist/{itemID}", s.handleChecklistStatus)
	s.router.Post("/v1/versions/{versionID}/synthesize-feedback", s.handleSynthesizeFeedback)
	s.router.Get("/v1/versions/{versionID}/feedback-synthesis", s.handleGetFeedbackSynthesis)
	s.router.Post("/v1/versions/{versionID}/accept-synthesis", s.handleAcceptSynthesis)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
}

func (s *Server) handlePhaseCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"phases": phase.Configs()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusForError maps domain sentinels onto HTTP status classes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, phase.ErrInvalidPhase),
		errors.Is(err, phase.ErrOpportunityCount),
		errors.Is(err, feedback.ErrNoFeedback),
		errors.Is(err, feedback.ErrNoUpdates),
		errors.Is(err, compile.ErrIncompletePhases):
		return http.StatusBadRequest
	case errors.Is(err, phase.ErrPhaseLocked),
		errors.Is(err, phase.ErrConfirmRequired):
		return http.StatusConflict
	case errors.Is(err, llm.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, mirror.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, synth.ErrParse), errors.Is(err, llm.ErrCompletionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
