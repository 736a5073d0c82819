package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/fotokart/fotokart/pkg/cache"
	"github.com/fotokart/fotokart/pkg/extract"
	"github.com/fotokart/fotokart/pkg/render"
)

// apiPhoto is a record decorated with the URLs the map client needs.
type apiPhoto struct {
	Filename   string  `json:"filename"`
	RelPath    string  `json:"relative_path"`
	URL        string  `json:"url"`
	MarkerIcon string  `json:"marker_icon"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Datetime   string  `json:"datetime"`
	Year       int     `json:"year"`
	IsHeif     bool    `json:"is_heif"`
}

func (s *Server) handleListPhotos(w http.ResponseWriter, _ *http.Request) {
	recs := s.store.Snapshot()
	photos := make([]apiPhoto, 0, len(recs))
	for _, r := range recs {
		photos = append(photos, apiPhoto{
			Filename:   path.Base(r.RelPath),
			RelPath:    r.RelPath,
			URL:        "/api/popup/" + r.RelPath,
			MarkerIcon: "/api/marker/" + r.RelPath,
			Lat:        r.Lat,
			Lng:        r.Lon,
			Datetime:   r.Taken,
			Year:       extract.Year(r.Taken),
			IsHeif:     r.HEIF,
		})
	}
	respondJSON(w, http.StatusOK, photos)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	var run *RunStatus
	if s.run != nil {
		cp := *s.run
		run = &cp
	}
	roots := append([]string(nil), s.roots...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, map[string]any{
		"photos":  s.store.Len(),
		"folders": roots,
		"run":     run,
	})
}

// handleProcess starts a reprocessing run in the background and
// returns immediately; progress arrives on /api/events.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Folders []string `json:"folders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Folders) == 0 {
		respondError(w, http.StatusBadRequest, "no folders given")
		return
	}

	run := &RunStatus{ID: uuid.NewString(), Folders: req.Folders, Started: time.Now()}
	s.mu.Lock()
	s.run = run
	s.mu.Unlock()

	go func() {
		stats, err := s.pipe.Reprocess(req.Folders)
		s.mu.Lock()
		run.Done = true
		run.Stats = stats
		if err != nil {
			run.ErrorMsg = err.Error()
		} else {
			s.roots = append([]string(nil), req.Folders...)
		}
		s.mu.Unlock()
		if err != nil {
			klog.Errorf("processing run %s: %v", run.ID, err)
			return
		}
		if err := cache.Save(s.cachePath, req.Folders, s.store.Snapshot()); err != nil {
			klog.Errorf("cache save: %v", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"run_id": run.ID})
}

func (s *Server) handleMarker(w http.ResponseWriter, r *http.Request) {
	s.serveScaled(w, r, render.MarkerMax)
}

func (s *Server) handlePopup(w http.ResponseWriter, r *http.Request) {
	s.serveScaled(w, r, render.PopupMax)
}

// serveScaled renders a record's image bytes at the requested maximum
// edge. HEIF pixels cannot be decoded here; the client falls back to
// its external converter route for those.
func (s *Server) serveScaled(w http.ResponseWriter, r *http.Request, maxEdge int) {
	rel := chi.URLParam(r, "*")
	rec, ok := s.store.Get(rel)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown photo")
		return
	}
	if rec.HEIF {
		respondError(w, http.StatusUnsupportedMediaType, "heif rendering is delegated to the converter")
		return
	}
	data, err := os.ReadFile(rec.AbsPath)
	if err != nil {
		klog.Warningf("read %s: %v", rec.AbsPath, err)
		respondError(w, http.StatusNotFound, "photo file unavailable")
		return
	}
	jpg, err := render.ScaledJPEG(data, rec.Orientation, maxEdge)
	if err != nil {
		klog.Warningf("render %s: %v", rec.RelPath, err)
		respondError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(jpg)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
