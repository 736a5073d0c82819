package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"k8s.io/klog/v2"

	"github.com/fotokart/fotokart/pkg/process"
)

// Hub fans processing events out to connected event-stream clients.
// Publish never blocks: a subscriber that cannot keep up loses events
// rather than stalling the pipeline.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan process.Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan process.Event]struct{})}
}

// Publish implements process.EventSink.
func (h *Hub) Publish(ev process.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (h *Hub) subscribe() chan process.Event {
	ch := make(chan process.Event, 16)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) subscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(ch chan process.Event) {
	h.mu.Lock()
	delete(h.subs, ch)
	h.mu.Unlock()
}

// handleEvents streams processing events as server-sent events until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.hub.subscribe()
	defer s.hub.unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			body, err := json.Marshal(ev)
			if err != nil {
				klog.Errorf("marshal event: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", body)
			flusher.Flush()
		}
	}
}
