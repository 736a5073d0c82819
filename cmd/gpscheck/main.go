// gpscheck compares the built-in coordinate extraction against
// exiftool's answer for every photo under a directory. A mismatch
// above the tolerance usually means a parser bug or an exotic maker
// variant worth a fixture.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/barasher/go-exiftool"
	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"

	"github.com/fotokart/fotokart/pkg/extract"
)

var (
	dir       = flag.String("dir", "", "directory of photos to check")
	tolerance = flag.Float64("tolerance", 0.0001, "maximum allowed coordinate delta in degrees")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *dir == "" {
		klog.Exitf("--dir is a required flag")
	}

	et, err := exiftool.NewExiftool(exiftool.CoordFormant("%+.6f"))
	if err != nil {
		klog.Exitf("exiftool: %v", err)
	}
	defer func() {
		if err := et.Close(); err != nil {
			klog.Errorf("Failed to close exiftool: %v", err)
		}
	}()

	checked := 0
	mismatches := 0

	err = godirwalk.Walk(*dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if filepath.Base(path)[0] == '.' {
				if de.IsDir() {
					return godirwalk.SkipThis
				}
				return nil
			}
			if de.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".jpg" && ext != ".jpeg" && ext != ".heic" && ext != ".heif" {
				return nil
			}

			checked++
			if !check(path, et) {
				mismatches++
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			klog.Warningf("walk %s: %v", path, err)
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		klog.Exitf("walk failed: %v", err)
	}

	fmt.Printf("checked %d files, %d mismatches\n", checked, mismatches)
	if mismatches > 0 {
		os.Exit(1)
	}
}

// check compares one file and reports agreement.
func check(path string, et *exiftool.Exiftool) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		klog.Errorf("read %s: %v", path, err)
		return false
	}

	got, _, err := extract.FromBytes(data)
	if err != nil {
		klog.V(1).Infof("%s: extract: %v", path, err)
	}

	fis := et.ExtractMetadata(path)
	fi := fis[0]
	if fi.Err != nil {
		klog.Errorf("exiftool %s: %v", path, fi.Err)
		return false
	}

	wantLat, latErr := fi.GetFloat("GPSLatitude")
	wantLon, lonErr := fi.GetFloat("GPSLongitude")
	wantGPS := latErr == nil && lonErr == nil

	if got.HasGPS != wantGPS {
		fmt.Printf("MISMATCH %s: hasGPS=%v exiftool=%v\n", path, got.HasGPS, wantGPS)
		return false
	}
	if !wantGPS {
		return true
	}

	dLat := math.Abs(got.Lat - wantLat)
	dLon := math.Abs(got.Lon - wantLon)
	if dLat > *tolerance || dLon > *tolerance {
		fmt.Printf("MISMATCH %s: got (%.6f, %.6f) exiftool (%.6f, %.6f)\n",
			path, got.Lat, got.Lon, wantLat, wantLon)
		return false
	}

	klog.V(1).Infof("%s OK (%.6f, %.6f)", path, got.Lat, got.Lon)
	return true
}
