// Package server exposes the job manager over HTTP for the surrounding
// application. It is a thin facade: all semantics live in the jobs package.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/renovatehq/sowgen/internal/agents"
	"github.com/renovatehq/sowgen/internal/jobs"
	"github.com/renovatehq/sowgen/internal/review"
	"github.com/renovatehq/sowgen/pkg/models"
)

// Server routes HTTP requests to the job manager.
type Server struct {
	manager *jobs.Manager
	router  chi.Router
}

// New creates a Server over the given manager.
func New(manager *jobs.Manager) *Server {
	s := &Server{manager: manager}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/jobs", s.handleStartJob)
	r.Get("/jobs/{jobID}", s.handleJobStatus)
	r.Delete("/jobs/{jobID}", s.handleCancelJob)
	r.Get("/projects/{projectID}/jobs", s.handleProjectJobs)
	r.Post("/projects/{projectID}/review", s.handleReview)
	r.Post("/projects/{projectID}/recommendations", s.handleApplyRecommendations)
	r.Post("/sow/modify", s.handleModify)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticket, err := s.manager.StartSoWGeneration(req)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ticket)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.manager.GetJobStatus(chi.URLParam(r, "jobID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.manager.GetJobStatus(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	cancelled := s.manager.CancelJob(jobID)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func (s *Server) handleProjectJobs(w http.ResponseWriter, r *http.Request) {
	list, err := s.manager.GetProjectJobs(chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "job lookup failed")
		return
	}
	if list == nil {
		list = []models.SoWGenerationJob{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var req models.ModificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticket, err := s.manager.ModifySoW(req)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ticket)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.manager.ReviewSoW(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleApplyRecommendations(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecommendationIDs []string `json:"recommendation_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ticket, err := s.manager.ApplyRecommendations(chi.URLParam(r, "projectID"), body.RecommendationIDs)
	if err != nil {
		writeManagerError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ticket)
}

// writeManagerError maps manager errors onto HTTP statuses.
func writeManagerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agents.ErrUnknownProjectType),
		errors.Is(err, review.ErrUnknownRecommendation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, jobs.ErrDocumentNotFound),
		errors.Is(err, jobs.ErrNoCompletedJob):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[server] internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
