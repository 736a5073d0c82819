// Package extract pulls GPS coordinates, capture time and orientation
// out of JPEG and HEIC/HEIF photo files. It layers several parsers,
// tried in order until one produces a coordinate: a hand-rolled
// tolerant EXIF scanner that survives malformed files, followed by the
// structured goexif reader as a second opinion.
package extract

import (
	"errors"
)

var (
	// ErrUnsupportedFormat marks files whose content signature is
	// neither JPEG nor an ISO-BMFF image. Callers skip these silently.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrCorruptContainer marks files that claim a supported format
	// but whose container structure cannot be parsed at all.
	ErrCorruptContainer = errors.New("corrupt container")
)

// Fields is the metadata extracted from a single photo. A file with
// readable bytes but no usable EXIF yields zero-value coordinates with
// HasGPS false; that is not an error.
type Fields struct {
	Lat         float64
	Lon         float64
	HasGPS      bool
	Taken       string // canonical "YYYY-MM-DD HH:MM:SS", empty if unknown
	Orientation int    // EXIF 1..8, 1 when absent
}

// FromBytes sniffs the content signature and runs the matching
// extractor. Files with a JPEG signature are decoded as JPEG even when
// their name claims HEIC; some phones save JPEG bytes under .heic.
func FromBytes(data []byte) (Fields, Format, error) {
	switch DetectFormat(data) {
	case FormatJPEG:
		f, err := FromJPEG(data)
		return f, FormatJPEG, err
	case FormatHEIF:
		f, err := FromHEIF(data)
		return f, FormatHEIF, err
	}
	return Fields{}, FormatUnsupported, ErrUnsupportedFormat
}

// fill copies datetime and orientation from later, weaker parse
// results into f without overwriting anything already found.
func (f *Fields) fill(other Fields) {
	if f.Taken == "" {
		f.Taken = other.Taken
	}
	if f.Orientation == 0 {
		f.Orientation = other.Orientation
	}
}
