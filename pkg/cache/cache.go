// Package cache persists the record store to a single versioned
// binary file so restarts skip a full rescan. The cache is a
// write-behind snapshot: the in-memory store stays authoritative.
package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"k8s.io/klog/v2"

	"github.com/fotokart/fotokart/pkg/store"
)

// FormatVersion identifies the on-disk shape of the snapshot. Bump it
// whenever Record or the envelope changes; compatibility is this
// contract, never inferred structurally.
const FormatVersion = 1

// FileName is deterministic; the version lives inside the payload so
// an incompatible old file is detected and removed, not misread.
const FileName = "records.cache"

// snapshot is the gob envelope written to disk.
type snapshot struct {
	Version int
	Roots   []string
	Records []store.Record
}

// DefaultPath places the cache in the per-user application data
// directory.
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("user cache dir: %w", err)
	}
	return filepath.Join(dir, "fotokart", FileName), nil
}

// Save writes the records plus their provenance. The write goes to a
// temp file first and is renamed into place, so a crash mid-write
// never corrupts the previous valid cache.
func Save(path string, roots []string, recs []store.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), FileName+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	snap := snapshot{Version: FormatVersion, Roots: roots, Records: recs}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	klog.Infof("cached %d records to %s", len(recs), path)
	return nil
}

// Load reads a snapshot and returns its records when it is usable:
// same format version and exactly the expected root set (order does
// not matter). A missing file returns ok=false quietly; a stale or
// unreadable file is deleted so a future run with yet another
// configuration never misreads it.
func Load(path string, expectedRoots []string) ([]store.Record, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		klog.Warningf("discarding unreadable cache %s: %v", path, err)
		discard(path)
		return nil, false
	}
	if snap.Version != FormatVersion {
		klog.Infof("discarding cache %s: format v%d, want v%d", path, snap.Version, FormatVersion)
		discard(path)
		return nil, false
	}
	if !sameRootSet(snap.Roots, expectedRoots) {
		klog.Infof("discarding cache %s: source roots changed", path)
		discard(path)
		return nil, false
	}
	klog.Infof("loaded %d cached records from %s", len(snap.Records), path)
	return snap.Records, true
}

func discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		klog.Warningf("unable to remove stale cache %s: %v", path, err)
	}
}

// sameRootSet compares two root lists as sets.
func sameRootSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
