package store

import (
	"fmt"
	"sync"
	"testing"
)

func rec(rel string, lat float64) Record {
	return Record{RelPath: rel, AbsPath: "/photos/" + rel, Lat: lat, Lon: lat / 2, Orientation: 1}
}

func TestInsertBatchReplacesByRelPath(t *testing.T) {
	s := New()
	s.InsertBatch([]Record{rec("a.jpg", 1), rec("b.jpg", 2)})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	s.InsertBatch([]Record{rec("a.jpg", 10)})
	if s.Len() != 2 {
		t.Fatalf("Len after replace = %d, want 2", s.Len())
	}
	got, ok := s.Get("a.jpg")
	if !ok || got.Lat != 10 {
		t.Errorf("Get(a.jpg) = (%+v, %v), want replaced record", got, ok)
	}
}

func TestGetMissing(t *testing.T) {
	s := New()
	if _, ok := s.Get("nope.jpg"); ok {
		t.Error("Get on empty store should miss")
	}
}

func TestClear(t *testing.T) {
	s := New()
	s.InsertBatch([]Record{rec("a.jpg", 1)})
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("Len after Clear = %d", s.Len())
	}
	if _, ok := s.Get("a.jpg"); ok {
		t.Error("record survived Clear")
	}
	// the index resets too: reinsert lands at slot 0
	s.InsertBatch([]Record{rec("b.jpg", 2)})
	if got := s.Snapshot(); len(got) != 1 || got[0].RelPath != "b.jpg" {
		t.Errorf("Snapshot after reinsert = %+v", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.InsertBatch([]Record{rec("a.jpg", 1)})
	snap := s.Snapshot()
	s.InsertBatch([]Record{rec("a.jpg", 99)})
	if snap[0].Lat != 1 {
		t.Error("snapshot mutated by a later insert")
	}
}

// Concurrent readers during batched writes: every snapshot observes a
// whole number of batches, never a partial one.
func TestConcurrentReadersSeeWholeBatches(t *testing.T) {
	const batches = 50
	const batchSize = 20

	s := New()
	done := make(chan struct{})
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := 0
			for {
				select {
				case <-done:
					return
				default:
				}
				n := len(s.Snapshot())
				if n%batchSize != 0 {
					t.Errorf("snapshot has %d records, not a whole batch multiple", n)
					return
				}
				if n < prev {
					t.Errorf("snapshot shrank from %d to %d", prev, n)
					return
				}
				prev = n
			}
		}()
	}

	for b := 0; b < batches; b++ {
		batch := make([]Record, batchSize)
		for i := range batch {
			batch[i] = rec(fmt.Sprintf("p/%d-%d.jpg", b, i), float64(i))
		}
		s.InsertBatch(batch)
	}
	close(done)
	wg.Wait()

	if s.Len() != batches*batchSize {
		t.Errorf("Len = %d, want %d", s.Len(), batches*batchSize)
	}
}
