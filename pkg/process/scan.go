package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// supportedExt is checked before any byte is read; content sniffing
// happens later, in the workers.
var supportedExt = map[string]bool{
	".jpg": true, ".jpeg": true,
	".heic": true, ".heif": true, ".avif": true,
}

// ignoredDirs are skipped entirely, along with anything dot-prefixed.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	".git":         true,
}

// Candidate is one file the scanner nominated for extraction.
type Candidate struct {
	// Abs is the path used for I/O.
	Abs string
	// Rel is root-relative, forward-slash normalized, and prefixed
	// with a per-root unique path suffix when several roots are
	// configured so identical layouts under different roots cannot
	// collide.
	Rel string
}

// rootPrefixes assigns each root a distinct slash-normalized prefix.
// The base name is used where unambiguous; roots sharing a base name
// grow parent components until every prefix differs. Two literally
// identical roots keep the same prefix: they name the same files.
func rootPrefixes(roots []string) []string {
	prefixes := make([]string, len(roots))
	depth := make([]int, len(roots))
	for i := range roots {
		depth[i] = 1
		prefixes[i] = pathSuffix(roots[i], 1)
	}
	for {
		counts := map[string]int{}
		for _, p := range prefixes {
			counts[p]++
		}
		grown := false
		for i, p := range prefixes {
			if counts[p] < 2 {
				continue
			}
			if next := pathSuffix(roots[i], depth[i]+1); next != p {
				depth[i]++
				prefixes[i] = next
				grown = true
			}
		}
		if !grown {
			return prefixes
		}
	}
}

// pathSuffix returns the last n components of a path, joined with
// forward slashes.
func pathSuffix(path string, n int) string {
	clean := filepath.ToSlash(filepath.Clean(path))
	parts := strings.Split(clean, "/")
	for len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if n > len(parts) {
		n = len(parts)
	}
	return strings.Join(parts[len(parts)-n:], "/")
}

// ScanRoots enumerates candidate files under each root. An
// inaccessible root is reported and skipped; the remaining roots are
// still scanned.
func ScanRoots(roots []string) ([]Candidate, []error) {
	var out []Candidate
	var errs []error
	prefixes := rootPrefixes(roots)
	for ri, root := range roots {
		if _, err := os.Stat(root); err != nil {
			errs = append(errs, fmt.Errorf("root %s: %w", root, err))
			continue
		}
		before := len(out)
		err := godirwalk.Walk(root, &godirwalk.Options{
			Unsorted: true,
			Callback: func(path string, de *godirwalk.Dirent) error {
				base := filepath.Base(path)
				if de.IsDir() {
					if path != root && (strings.HasPrefix(base, ".") || ignoredDirs[base]) {
						return godirwalk.SkipThis
					}
					return nil
				}
				if strings.HasPrefix(base, ".") {
					return nil
				}
				if !supportedExt[strings.ToLower(filepath.Ext(base))] {
					return nil
				}
				rel, err := filepath.Rel(root, path)
				if err != nil {
					return nil
				}
				rel = filepath.ToSlash(rel)
				if len(roots) > 1 {
					rel = prefixes[ri] + "/" + rel
				}
				out = append(out, Candidate{Abs: path, Rel: rel})
				return nil
			},
			ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
				klog.Warningf("scan %s: %v", path, err)
				return godirwalk.SkipNode
			},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("walk %s: %w", root, err))
			out = out[:before]
		}
	}
	return out, errs
}
