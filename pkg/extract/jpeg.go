package extract

// A strategy attempts one parse of a byte stream. ok reports whether
// the parser located and decoded an EXIF block at all; a decoded block
// without GPS still returns ok.
type strategy struct {
	name string
	fn   func(data []byte) (Fields, bool)
}

// jpegStrategies is the ordered fallback chain. The raw parser goes
// first: it handles everything the structured reader handles plus the
// malformed files it chokes on, and it is measurably faster, so it is
// the default. The structured tiers run only when the raw parser finds
// no coordinate.
var jpegStrategies = []strategy{
	{"raw", rawJPEGFields},
	{"exif-primary", primaryIFDFields},
	{"exif-walk", walkAllFields},
}

// FromJPEG extracts metadata from a JPEG byte stream, trying each
// strategy in order and short-circuiting on the first coordinate.
// A JPEG without any EXIF block is not an error; it yields empty
// Fields with Orientation 1.
func FromJPEG(data []byte) (Fields, error) {
	if DetectFormat(data) != FormatJPEG {
		return Fields{}, ErrCorruptContainer
	}
	return runStrategies(data, jpegStrategies), nil
}

// runStrategies tries each parser in order, short-circuiting on the
// first GPS coordinate and otherwise keeping the best datetime and
// orientation seen.
func runStrategies(data []byte, strategies []strategy) Fields {
	best := Fields{}
	for _, s := range strategies {
		f, ok := s.fn(data)
		if !ok {
			continue
		}
		if f.HasGPS {
			f.fill(best)
			f.Orientation = NormalizeOrientation(f.Orientation)
			return f
		}
		best.fill(f)
	}
	best.Orientation = NormalizeOrientation(best.Orientation)
	return best
}
