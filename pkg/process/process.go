package process

import (
	"errors"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/klog/v2"

	"github.com/fotokart/fotokart/pkg/extract"
	"github.com/fotokart/fotokart/pkg/store"
)

var (
	// ErrNoRoots is the only pipeline-wide configuration error.
	ErrNoRoots = errors.New("no source folders configured")

	// ErrSuperseded means a newer run started while this one was in
	// flight; its remaining batches were discarded, not committed.
	ErrSuperseded = errors.New("run superseded by a newer request")
)

// Stats summarize one run. Kept photos are on the map; Skipped parsed
// fine but carry no coordinate; Unsupported never held an image
// signature; Failed could not be read at all.
type Stats struct {
	Total       int
	Kept        int
	Skipped     int
	Unsupported int
	Failed      int
}

// Pipeline coordinates scanning, extraction and committing. Workers
// are stateless; only typed outcomes cross back to the coordinator,
// so one bad file never stops a run.
type Pipeline struct {
	store     *store.Store
	sink      EventSink
	workers   int
	batchSize int
	gen       atomic.Uint64
	runMu     sync.Mutex
}

type Option func(*Pipeline)

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithSink(s EventSink) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.sink = s
		}
	}
}

func New(st *store.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     st,
		sink:      Discard,
		workers:   runtime.NumCPU(),
		batchSize: 256,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Cancel marks any in-flight run as superseded. Its workers finish
// their current file but no further batches are committed.
func (p *Pipeline) Cancel() {
	p.gen.Add(1)
}

// Reprocess clears the store and runs a full scan. The clear happens
// inside the new run, after it has exclusive ownership of the store.
func (p *Pipeline) Reprocess(roots []string) (Stats, error) {
	return p.Process(roots)
}

// Process runs one full scan-extract-commit cycle over roots. Starting
// a run supersedes any run already in flight: the generation counter
// is bumped first, the old run stops committing, and the new run waits
// for it to drain before clearing and refilling the store.
func (p *Pipeline) Process(roots []string) (Stats, error) {
	if len(roots) == 0 {
		p.sink.Publish(Event{Type: EventError, Message: ErrNoRoots.Error()})
		return Stats{}, ErrNoRoots
	}
	gen := p.gen.Add(1)
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if !p.current(gen) {
		return Stats{}, ErrSuperseded
	}
	p.store.Clear()

	cands, scanErrs := ScanRoots(roots)
	for _, err := range scanErrs {
		klog.Errorf("scan: %v", err)
		p.sink.Publish(Event{Type: EventError, Message: err.Error()})
	}
	if len(cands) == 0 && len(scanErrs) > 0 {
		return Stats{}, scanErrs[0]
	}

	total := len(cands)
	start := time.Now()
	p.sink.Publish(Event{Type: EventStarted, Total: total})
	klog.Infof("extracting metadata from %d files across %d workers", total, p.workers)

	jobs := make(chan Candidate)
	results := make(chan outcome)
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				results <- p.processFile(c)
			}
		}()
	}
	go func() {
		for _, c := range cands {
			if !p.current(gen) {
				break
			}
			jobs <- c
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	stats := Stats{Total: total}
	batch := make([]store.Record, 0, p.batchSize)
	processed := 0
	step := total / 100
	if step < 1 {
		step = 1
	}
	lastReport := time.Now()
	superseded := false

	for res := range results {
		processed++
		switch res.kind {
		case outcomeKept:
			stats.Kept++
			batch = append(batch, res.rec)
			if len(batch) >= p.batchSize {
				if !p.commit(gen, batch) {
					superseded = true
				}
				batch = batch[:0]
			}
		case outcomeNoGPS:
			stats.Skipped++
		case outcomeUnsupported:
			stats.Unsupported++
		case outcomeFailed:
			stats.Failed++
			klog.Warningf("failed to read %s: %v", res.path, res.err)
		}
		if !superseded && (processed%step == 0 || time.Since(lastReport) > 500*time.Millisecond) {
			p.sink.Publish(Event{
				Type: EventProgress, Total: total, Processed: processed,
				Kept: stats.Kept, Skipped: stats.Skipped,
				Unsupported: stats.Unsupported, Failed: stats.Failed,
			})
			lastReport = time.Now()
		}
	}
	if !p.commit(gen, batch) {
		superseded = true
	}
	if superseded {
		klog.Infof("run superseded after %d/%d files, discarding", processed, total)
		return stats, ErrSuperseded
	}
	p.sink.Publish(Event{
		Type: EventCompleted, Total: total, Processed: processed,
		Kept: stats.Kept, Skipped: stats.Skipped,
		Unsupported: stats.Unsupported, Failed: stats.Failed,
	})
	klog.Infof("completed in %s: %d on map, %d without GPS, %d not images, %d failed",
		time.Since(start).Round(time.Millisecond), stats.Kept, stats.Skipped, stats.Unsupported, stats.Failed)
	return stats, nil
}

type outcomeKind int

const (
	outcomeKept outcomeKind = iota
	outcomeNoGPS
	outcomeUnsupported
	outcomeFailed
)

// outcome is the only thing that crosses the worker boundary.
type outcome struct {
	kind outcomeKind
	rec  store.Record
	path string
	err  error
}

// processFile runs detector and extractor on one candidate.
func (p *Pipeline) processFile(c Candidate) outcome {
	data, err := os.ReadFile(c.Abs)
	if err != nil {
		return outcome{kind: outcomeFailed, path: c.Rel, err: err}
	}
	fields, format, err := extract.FromBytes(data)
	if errors.Is(err, extract.ErrUnsupportedFormat) {
		// mis-extensioned non-image; skip quietly
		return outcome{kind: outcomeUnsupported, path: c.Rel}
	}
	if err != nil {
		return outcome{kind: outcomeFailed, path: c.Rel, err: err}
	}
	if !fields.HasGPS {
		return outcome{kind: outcomeNoGPS, path: c.Rel}
	}
	taken := fields.Taken
	if taken == "" {
		// extractor found no capture time; file mtime is better than
		// nothing for year grouping
		if st, err := os.Stat(c.Abs); err == nil {
			taken = extract.FormatTaken(st.ModTime())
		}
	}
	return outcome{kind: outcomeKept, rec: store.Record{
		RelPath:     c.Rel,
		AbsPath:     c.Abs,
		Lat:         fields.Lat,
		Lon:         fields.Lon,
		Taken:       taken,
		Orientation: fields.Orientation,
		HEIF:        format == extract.FormatHEIF,
	}}
}

// commit installs a batch only when the run that produced it is still
// the newest one; stale batches from a superseded run are discarded.
func (p *Pipeline) commit(gen uint64, batch []store.Record) bool {
	if !p.current(gen) {
		return false
	}
	if len(batch) > 0 {
		p.store.InsertBatch(batch)
	}
	return true
}

func (p *Pipeline) current(gen uint64) bool {
	return p.gen.Load() == gen
}
