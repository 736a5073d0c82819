package extract

import "bytes"

// Format is a content-signature classification. Extensions lie;
// signatures don't.
type Format int

const (
	FormatUnsupported Format = iota
	FormatJPEG
	FormatHEIF
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatHEIF:
		return "heif"
	}
	return "unsupported"
}

// SniffLen is how many leading bytes DetectFormat needs to classify a
// file. Callers may hand it a full file or just this prefix.
const SniffLen = 16

var jpegSOI = []byte{0xFF, 0xD8}

// heifBrands are ftyp major brands that put metadata in an ISO base
// media box structure we can walk. avif shares the same container.
var heifBrands = map[string]bool{
	"heic": true, "heix": true, "heim": true, "heis": true,
	"hevc": true, "hevm": true, "hevs": true,
	"mif1": true, "msf1": true,
	"avif": true, "avis": true,
}

// DetectFormat classifies a file by its leading bytes. It never fails:
// anything unrecognized is FormatUnsupported, a valid terminal state.
func DetectFormat(head []byte) Format {
	if bytes.HasPrefix(head, jpegSOI) {
		return FormatJPEG
	}
	if len(head) >= 12 && string(head[4:8]) == "ftyp" && heifBrands[string(head[8:12])] {
		return FormatHEIF
	}
	return FormatUnsupported
}
