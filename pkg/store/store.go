package store

import "sync"

// Store is a concurrently readable record collection. Readers never
// block each other; the single writer holds exclusive access only for
// the duration of one batch insert or clear, so a snapshot racing a
// clear observes either the full pre-clear or post-clear state.
type Store struct {
	mu    sync.RWMutex
	byRel map[string]int
	recs  []Record
}

func New() *Store {
	return &Store{byRel: map[string]int{}}
}

// InsertBatch adds records as one atomic unit, replacing any existing
// record with the same relative path. Returns the number installed.
func (s *Store) InsertBatch(recs []Record) int {
	if len(recs) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range recs {
		if i, ok := s.byRel[r.RelPath]; ok {
			s.recs[i] = r
			continue
		}
		s.byRel[r.RelPath] = len(s.recs)
		s.recs = append(s.recs, r)
	}
	return len(recs)
}

// Clear drops every record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRel = map[string]int{}
	s.recs = nil
}

// Snapshot returns a copy of the current records. The copy is the
// caller's; later writes do not affect it.
func (s *Store) Snapshot() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, len(s.recs))
	copy(out, s.recs)
	return out
}

// Get looks a record up by its relative path.
func (s *Store) Get(relPath string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byRel[relPath]
	if !ok {
		return Record{}, false
	}
	return s.recs[i], true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recs)
}
