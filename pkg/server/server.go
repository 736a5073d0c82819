// Package server exposes the record store and the pipeline to the map
// client: records as JSON, progress as server-sent events, processing
// triggers, and on-demand marker/popup images.
package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fotokart/fotokart/pkg/process"
	"github.com/fotokart/fotokart/pkg/store"
)

// Server wires the store, the pipeline and the event hub behind HTTP.
type Server struct {
	store     *store.Store
	pipe      *process.Pipeline
	hub       *Hub
	cachePath string

	mu    sync.Mutex
	roots []string
	run   *RunStatus
}

// RunStatus describes the most recent processing run.
type RunStatus struct {
	ID       string        `json:"id"`
	Folders  []string      `json:"folders"`
	Started  time.Time     `json:"started"`
	Done     bool          `json:"done"`
	Stats    process.Stats `json:"stats"`
	ErrorMsg string        `json:"error,omitempty"`
}

func New(st *store.Store, pipe *process.Pipeline, hub *Hub, cachePath string, roots []string) *Server {
	return &Server{
		store:     st,
		pipe:      pipe,
		hub:       hub,
		cachePath: cachePath,
		roots:     append([]string(nil), roots...),
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/photos", s.handleListPhotos)
		r.Get("/status", s.handleStatus)
		r.Post("/process", s.handleProcess)
		r.Get("/events", s.handleEvents)
		r.Get("/marker/*", s.handleMarker)
		r.Get("/popup/*", s.handlePopup)
	})
	return r
}

// Roots returns the folder set the current records came from.
func (s *Server) Roots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.roots...)
}
