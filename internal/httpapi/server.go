// Package httpapi exposes the core Engine's operations over REST, an
// ambient convenience surface beyond spec.md's literal CLI-only scope
// (additive, not a Non-goal violation — SPEC_FULL.md §4.8).
//
// Adapted from the teacher's internal/api/server.go: same router/middleware
// setup, same health endpoint, routes rebuilt around the three
// operations this domain actually has instead of the teacher's
// repos/runs/tests resource tree.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/engine"
	"github.com/asyncify/asyncify/internal/engine/enginerr"
)

// Server wraps one Engine behind a chi router. The core is single-threaded
// and synchronous (spec.md §5) so Server never shares the Engine across
// concurrently-executing requests: middleware.Throttle(1) lets at most one
// request be in flight and answers any request that arrives meanwhile with
// 429 Too Many Requests (a single-engine-per-process model, matching the
// scope of one analysis run).
type Server struct {
	eng    *engine.Engine
	router *chi.Mux
}

// NewServer wraps eng with the standard middleware stack and routes.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{eng: eng, router: chi.NewRouter()}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Throttle(1))
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.healthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/parse", s.parse)
		r.Post("/ignore", s.ignore)
		r.Post("/async-stacks", s.asyncStacks)
	})
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type appendRequest struct {
	Path      string `json:"path"`
	FirstLine int    `json:"firstLine"`
	Text      string `json:"text"`
}

type parseRequest struct {
	Fragments []appendRequest `json:"fragments"`
}

func (s *Server) parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for _, f := range req.Fragments {
		if err := s.eng.AppendSource(f.Path, f.FirstLine, f.Text); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
	}
	if err := s.eng.Parse(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "parsed"})
}

type ignoreRequest struct {
	Path  string `json:"path"`
	Line  int    `json:"line"`
	Index int    `json:"index"`
}

func (s *Server) ignore(w http.ResponseWriter, r *http.Request) {
	var req ignoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	n, ok := s.eng.NodeByLineFilterIndex(req.Path, req.Line, req.Index, func(ast.Kind) bool { return true })
	if !ok {
		writeError(w, http.StatusNotFound, enginerr.ErrNotFound)
		return
	}
	s.eng.MarkIgnored(n)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
}

type asyncStacksRequest struct {
	Path          string `json:"path"`
	Line          int    `json:"line"`
	FunctionIndex int    `json:"functionIndex"`
}

func (s *Server) asyncStacks(w http.ResponseWriter, r *http.Request) {
	var req asyncStacksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	seed, ok := s.eng.FunctionNodeFromLine(req.Path, req.Line, req.FunctionIndex)
	if !ok {
		writeError(w, http.StatusNotFound, enginerr.ErrNotFound)
		return
	}
	m, err := s.eng.GetAsyncStacks(seed)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, enginerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, enginerr.ErrInvalidInput), errors.Is(err, enginerr.ErrPathEscape):
		return http.StatusBadRequest
	case errors.Is(err, enginerr.ErrSyntax):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
