package extract

import (
	"bytes"
	"encoding/binary"
)

// The raw parser reads the APP1/TIFF bytes directly. It exists for
// files that no structured EXIF reader parses: truncated segments,
// broken IFD chains, reordered tags. It skips entries it cannot make
// sense of instead of aborting, and it is fast enough to double as the
// default parser.

const (
	tagGPSLatRef        = 0x0001
	tagGPSLat           = 0x0002
	tagGPSLonRef        = 0x0003
	tagGPSLon           = 0x0004
	tagOrientation      = 0x0112
	tagDateTime         = 0x0132
	tagExifIFD          = 0x8769
	tagGPSIFD           = 0x8825
	tagDateTimeOriginal = 0x9003
)

const (
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSRational = 10
)

var exifHeader = []byte("Exif\x00\x00")

// maxIFDHops bounds the IFD next-pointer chain so a cyclic chain in a
// corrupt file cannot loop us.
const maxIFDHops = 4

// rawJPEGFields extracts fields from a JPEG byte stream using the raw
// parser. ok is false when no EXIF block could be located at all.
func rawJPEGFields(data []byte) (Fields, bool) {
	tiff := exifSegment(data)
	if tiff == nil {
		tiff = bruteExifScan(data)
	}
	if tiff == nil {
		return Fields{}, false
	}
	return parseTIFF(tiff)
}

// exifSegment walks JPEG segments looking for an APP1 EXIF block and
// returns its TIFF payload. Tolerates stray bytes between segments.
func exifSegment(data []byte) []byte {
	pos := 2 // skip SOI
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		marker := data[pos+1]
		switch {
		case marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			// standalone markers carry no length
			pos += 2
			continue
		case marker == 0xDA:
			// start of scan: entropy-coded data follows, no EXIF past here
			return nil
		}
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 {
			// malformed length; the brute scan is the fallback
			return nil
		}
		if marker == 0xE1 && pos+10 <= len(data) && bytes.Equal(data[pos+4:pos+10], exifHeader) {
			end := pos + 2 + length
			if end > len(data) {
				end = len(data)
			}
			tiff := data[pos+10 : end]
			if len(tiff) >= 8 {
				return tiff
			}
			return nil
		}
		pos += 2 + length
	}
	return nil
}

// bruteExifScan finds EXIF data by signature alone, the way the HEIC
// path does: locate "Exif\0\0" anywhere, then the II/MM byte-order
// mark after it. Handles files whose segment table is unparsable.
func bruteExifScan(data []byte) []byte {
	idx := bytes.Index(data, exifHeader)
	if idx < 0 {
		return nil
	}
	start := idx + len(exifHeader)
	for i := start; i+8 <= len(data) && i < start+64; i++ {
		if (data[i] == 'I' && data[i+1] == 'I') || (data[i] == 'M' && data[i+1] == 'M') {
			return data[i:]
		}
	}
	return nil
}

// rawTIFF wraps a TIFF block; all offsets inside the block are
// relative to its first byte.
type rawTIFF struct {
	d  []byte
	bo binary.ByteOrder
}

// rawCollector accumulates tags of interest across every IFD visited.
type rawCollector struct {
	orientation  int
	dateTime     string
	dateTimeOrig string
	exifIFD      uint32
	gpsIFD       uint32
	lat, lon     float64
	latOK, lonOK bool
	latRef       string
	lonRef       string
}

// parseTIFF decodes a TIFF block, following the IFD0 chain plus the
// Exif and GPS sub-IFDs. ok is false only when the header itself is
// unreadable; damaged entries inside are skipped.
func parseTIFF(d []byte) (Fields, bool) {
	f := Fields{Orientation: 1}
	if len(d) < 8 {
		return f, false
	}
	var bo binary.ByteOrder
	switch {
	case d[0] == 'I' && d[1] == 'I':
		bo = binary.LittleEndian
	case d[0] == 'M' && d[1] == 'M':
		bo = binary.BigEndian
	default:
		return f, false
	}
	// the magic (42) is not verified: some editors rewrite it and the
	// rest of the block is still usable
	t := rawTIFF{d: d, bo: bo}
	c := rawCollector{}

	// IFD0 chain (some vendors leave GPS tags in the thumbnail IFD)
	off := bo.Uint32(d[4:8])
	for hop := 0; hop < maxIFDHops && off != 0; hop++ {
		off = t.walkIFD(off, &c)
	}
	if c.exifIFD != 0 {
		t.walkIFD(c.exifIFD, &c)
	}
	if c.gpsIFD != 0 {
		t.walkIFD(c.gpsIFD, &c)
	}

	f.Orientation = NormalizeOrientation(c.orientation)
	ds := c.dateTimeOrig
	if ds == "" {
		ds = c.dateTime
	}
	f.Taken = ParseTaken(ds)
	if c.latOK && c.lonOK {
		lat, ok1 := applyRef(c.lat, c.latRef)
		lon, ok2 := applyRef(c.lon, c.lonRef)
		f.setGPS(lat, lon, ok1 && ok2)
	}
	return f, true
}

// walkIFD scans one IFD, recording tags of interest, and returns the
// offset of the next IFD in the chain (0 when absent or out of
// bounds). Entries that run past the buffer are skipped, not fatal.
func (t rawTIFF) walkIFD(off uint32, c *rawCollector) uint32 {
	pos := int(off)
	if pos < 0 || pos+2 > len(t.d) {
		return 0
	}
	n := int(t.bo.Uint16(t.d[pos : pos+2]))
	pos += 2
	for i := 0; i < n; i++ {
		e := pos + i*12
		if e+12 > len(t.d) {
			break
		}
		tag := t.bo.Uint16(t.d[e : e+2])
		typ := t.bo.Uint16(t.d[e+2 : e+4])
		count := t.bo.Uint32(t.d[e+4 : e+8])

		switch tag {
		case tagOrientation:
			if v, ok := t.uintVal(e, typ); ok {
				c.orientation = int(v)
			}
		case tagDateTime:
			if s := t.asciiVal(e, count); s != "" {
				c.dateTime = s
			}
		case tagDateTimeOriginal:
			if s := t.asciiVal(e, count); s != "" {
				c.dateTimeOrig = s
			}
		case tagExifIFD:
			if v, ok := t.uintVal(e, typ); ok {
				c.exifIFD = v
			}
		case tagGPSIFD:
			if v, ok := t.uintVal(e, typ); ok {
				c.gpsIFD = v
			}
		case tagGPSLatRef:
			if s := t.asciiVal(e, count); s != "" {
				c.latRef = s
			}
		case tagGPSLonRef:
			if s := t.asciiVal(e, count); s != "" {
				c.lonRef = s
			}
		case tagGPSLat:
			if v, ok := t.dmsVal(e, typ, count); ok {
				c.lat, c.latOK = v, true
			}
		case tagGPSLon:
			if v, ok := t.dmsVal(e, typ, count); ok {
				c.lon, c.lonOK = v, true
			}
		}
	}
	nextPos := pos + n*12
	if nextPos+4 > len(t.d) {
		return 0
	}
	return t.bo.Uint32(t.d[nextPos : nextPos+4])
}

// uintVal reads a SHORT or LONG entry value stored inline.
func (t rawTIFF) uintVal(e int, typ uint16) (uint32, bool) {
	switch typ {
	case typeShort:
		return uint32(t.bo.Uint16(t.d[e+8 : e+10])), true
	case typeLong:
		return t.bo.Uint32(t.d[e+8 : e+12]), true
	}
	return 0, false
}

// asciiVal reads an ASCII entry value, inline when it fits in the
// 4-byte value field, via offset otherwise.
func (t rawTIFF) asciiVal(e int, count uint32) string {
	n := int(count)
	if n <= 0 || n > 1<<16 {
		return ""
	}
	var raw []byte
	if n <= 4 {
		raw = t.d[e+8 : e+8+n]
	} else {
		off := int(t.bo.Uint32(t.d[e+8 : e+12]))
		if off < 0 || off+n > len(t.d) {
			return ""
		}
		raw = t.d[off : off+n]
	}
	return string(bytes.TrimRight(raw, "\x00"))
}

// dmsVal reads a degrees/minutes/seconds rational triple and converts
// it to decimal degrees. Accepts both RATIONAL and the SRATIONAL some
// Samsung firmwares emit. A zero denominator invalidates the value.
func (t rawTIFF) dmsVal(e int, typ uint16, count uint32) (float64, bool) {
	if (typ != typeRational && typ != typeSRational) || count < 3 {
		return 0, false
	}
	off := int(t.bo.Uint32(t.d[e+8 : e+12]))
	if off < 0 || off+24 > len(t.d) {
		return 0, false
	}
	var parts [3]float64
	for i := 0; i < 3; i++ {
		num := t.bo.Uint32(t.d[off+i*8 : off+i*8+4])
		den := t.bo.Uint32(t.d[off+i*8+4 : off+i*8+8])
		if den == 0 {
			return 0, false
		}
		if typ == typeSRational {
			parts[i] = float64(int32(num)) / float64(int32(den))
		} else {
			parts[i] = float64(num) / float64(den)
		}
	}
	return dmsToDegrees(parts[0], parts[1], parts[2]), true
}
