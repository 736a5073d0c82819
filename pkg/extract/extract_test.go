package extract

import (
	"errors"
	"testing"
)

func TestFromJPEGStandard(t *testing.T) {
	f, err := FromJPEG(wrapJPEG(standardTIFF()))
	if err != nil {
		t.Fatalf("FromJPEG: %v", err)
	}
	if !f.HasGPS {
		t.Fatal("expected GPS coordinate")
	}
	if !near(f.Lat, parisLat) || !near(f.Lon, parisLon) {
		t.Errorf("got (%f, %f), want (%f, %f)", f.Lat, f.Lon, parisLat, parisLon)
	}
	if f.Taken != "2021-07-14 12:30:00" {
		t.Errorf("Taken = %q, want canonical form", f.Taken)
	}
	if f.Orientation != 6 {
		t.Errorf("Orientation = %d, want 6", f.Orientation)
	}
}

func TestFromJPEGNoEXIF(t *testing.T) {
	f, err := FromJPEG([]byte{0xFF, 0xD8, 0xFF, 0xD9})
	if err != nil {
		t.Fatalf("FromJPEG: %v", err)
	}
	if f.HasGPS {
		t.Error("no EXIF block should mean no GPS")
	}
	if f.Orientation != 1 {
		t.Errorf("Orientation = %d, want default 1", f.Orientation)
	}
}

func TestFromJPEGNotAJPEG(t *testing.T) {
	if _, err := FromJPEG([]byte("not a jpeg at all")); !errors.Is(err, ErrCorruptContainer) {
		t.Errorf("err = %v, want ErrCorruptContainer", err)
	}
}

// A segment table with an impossible length defeats structured
// readers; the signature scan still recovers the coordinate.
func TestFromJPEGMalformedSegmentLength(t *testing.T) {
	data := concat(
		[]byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x01},
		[]byte("Exif\x00\x00"),
		standardTIFF(),
	)
	if _, ok := primaryIFDFields(data); ok {
		t.Log("structured reader unexpectedly parsed the broken segment table")
	}
	f, ok := rawJPEGFields(data)
	if !ok || !f.HasGPS {
		t.Fatal("signature scan should have recovered the EXIF block")
	}
	if !near(f.Lat, parisLat) || !near(f.Lon, parisLon) {
		t.Errorf("got (%f, %f), want (%f, %f)", f.Lat, f.Lon, parisLat, parisLon)
	}

	full, err := FromJPEG(data)
	if err != nil || !full.HasGPS {
		t.Errorf("FromJPEG = (%+v, %v), want GPS with no error", full, err)
	}
}

func TestFromBytesRouting(t *testing.T) {
	jpg := wrapJPEG(standardTIFF())

	// JPEG bytes always take the JPEG path, whatever the filename says
	_, format, err := FromBytes(jpg)
	if err != nil || format != FormatJPEG {
		t.Errorf("JPEG bytes: format=%v err=%v", format, err)
	}

	_, format, err = FromBytes(buildHEIC(standardTIFF()))
	if err != nil || format != FormatHEIF {
		t.Errorf("HEIF bytes: format=%v err=%v", format, err)
	}

	_, format, err = FromBytes([]byte("\x89PNG\r\n\x1a\n..........."))
	if !errors.Is(err, ErrUnsupportedFormat) || format != FormatUnsupported {
		t.Errorf("PNG bytes: format=%v err=%v, want unsupported", format, err)
	}
}

func TestDateTimeOriginalPrecedence(t *testing.T) {
	exifIFD := tIFD{
		entries: []tEntry{asciiEntry(tagDateTimeOriginal, "2019:03:01 08:00:00")},
		next:    -1,
	}
	ifd0 := tIFD{
		entries: []tEntry{
			asciiEntry(tagDateTime, "2022:12:31 23:59:59"),
			{tag: tagExifIFD, typ: typeLong, count: 1, subIFD: 1},
		},
		next: -1,
	}
	f, err := FromJPEG(wrapJPEG(buildTIFF([]tIFD{ifd0, exifIFD})))
	if err != nil {
		t.Fatalf("FromJPEG: %v", err)
	}
	if f.Taken != "2019-03-01 08:00:00" {
		t.Errorf("Taken = %q, want DateTimeOriginal to win", f.Taken)
	}
}

func TestSouthWestNegation(t *testing.T) {
	gps := tIFD{
		entries: []tEntry{
			asciiEntry(tagGPSLatRef, "S"),
			dmsEntry(tagGPSLat, 48, 51, 2376, 100),
			asciiEntry(tagGPSLonRef, "W"),
			dmsEntry(tagGPSLon, 2, 21, 792, 100),
		},
		next: -1,
	}
	ifd0 := tIFD{
		entries: []tEntry{{tag: tagGPSIFD, typ: typeLong, count: 1, subIFD: 1}},
		next:    -1,
	}
	f, err := FromJPEG(wrapJPEG(buildTIFF([]tIFD{ifd0, gps})))
	if err != nil {
		t.Fatalf("FromJPEG: %v", err)
	}
	if !f.HasGPS || !near(f.Lat, -parisLat) || !near(f.Lon, -parisLon) {
		t.Errorf("got (%v, %f, %f), want negated coordinate", f.HasGPS, f.Lat, f.Lon)
	}
}

// A coordinate magnitude without a hemisphere reference is discarded,
// never defaulted.
func TestMissingHemisphereRef(t *testing.T) {
	gps := tIFD{
		entries: []tEntry{
			dmsEntry(tagGPSLat, 48, 51, 2376, 100),
			dmsEntry(tagGPSLon, 2, 21, 792, 100),
		},
		next: -1,
	}
	ifd0 := tIFD{
		entries: []tEntry{{tag: tagGPSIFD, typ: typeLong, count: 1, subIFD: 1}},
		next:    -1,
	}
	f, err := FromJPEG(wrapJPEG(buildTIFF([]tIFD{ifd0, gps})))
	if err != nil {
		t.Fatalf("FromJPEG: %v", err)
	}
	if f.HasGPS {
		t.Errorf("got (%f, %f), want no GPS without hemisphere refs", f.Lat, f.Lon)
	}
}

func TestZeroDenominatorDiscards(t *testing.T) {
	gps := tIFD{
		entries: []tEntry{
			asciiEntry(tagGPSLatRef, "N"),
			dmsEntry(tagGPSLat, 48, 51, 2376, 0),
			asciiEntry(tagGPSLonRef, "E"),
			dmsEntry(tagGPSLon, 2, 21, 792, 100),
		},
		next: -1,
	}
	ifd0 := tIFD{
		entries: []tEntry{{tag: tagGPSIFD, typ: typeLong, count: 1, subIFD: 1}},
		next:    -1,
	}
	f, ok := parseTIFF(buildTIFF([]tIFD{ifd0, gps}))
	if !ok {
		t.Fatal("parseTIFF should still decode the block")
	}
	if f.HasGPS {
		t.Errorf("got (%f, %f), want zero denominator to invalidate", f.Lat, f.Lon)
	}
}

// Some Samsung firmwares encode GPS rationals as SRATIONAL.
func TestSRationalCoordinate(t *testing.T) {
	gps := tIFD{
		entries: []tEntry{
			asciiEntry(tagGPSLatRef, "N"),
			{tag: tagGPSLat, typ: typeSRational, count: 3, data: dmsData(48, 51, 2376, 100), subIFD: -1},
			asciiEntry(tagGPSLonRef, "E"),
			{tag: tagGPSLon, typ: typeSRational, count: 3, data: dmsData(2, 21, 792, 100), subIFD: -1},
		},
		next: -1,
	}
	ifd0 := tIFD{
		entries: []tEntry{{tag: tagGPSIFD, typ: typeLong, count: 1, subIFD: 1}},
		next:    -1,
	}
	f, ok := parseTIFF(buildTIFF([]tIFD{ifd0, gps}))
	if !ok || !f.HasGPS || !near(f.Lat, parisLat) || !near(f.Lon, parisLon) {
		t.Errorf("got (%v, %f, %f), want Paris from SRATIONAL", f.HasGPS, f.Lat, f.Lon)
	}
}

// GPS tags parked in the thumbnail IFD are invisible to conventional
// primary-IFD lookups but the raw chain walk records them.
func TestGPSInLaterIFD(t *testing.T) {
	ifd0 := tIFD{
		entries: []tEntry{shortEntry(tagOrientation, 1)},
		next:    1,
	}
	ifd1 := tIFD{
		entries: []tEntry{
			asciiEntry(tagGPSLatRef, "N"),
			dmsEntry(tagGPSLat, 48, 51, 2376, 100),
			asciiEntry(tagGPSLonRef, "E"),
			dmsEntry(tagGPSLon, 2, 21, 792, 100),
		},
		next: -1,
	}
	jpg := wrapJPEG(buildTIFF([]tIFD{ifd0, ifd1}))

	if f, ok := primaryIFDFields(jpg); ok && f.HasGPS {
		t.Error("primary-IFD lookup should not see thumbnail-IFD tags")
	}
	f, ok := rawJPEGFields(jpg)
	if !ok || !f.HasGPS || !near(f.Lat, parisLat) || !near(f.Lon, parisLon) {
		t.Errorf("raw parser got (%v, %f, %f), want Paris", f.HasGPS, f.Lat, f.Lon)
	}
	full, err := FromJPEG(jpg)
	if err != nil || !full.HasGPS {
		t.Errorf("FromJPEG = (%+v, %v), want GPS recovered", full, err)
	}
}

// Truncated mid-IFD: entries past the end are skipped, earlier ones
// still land.
func TestTruncatedTIFF(t *testing.T) {
	full := standardTIFF()
	f, ok := parseTIFF(full[:len(full)-10])
	if !ok {
		t.Fatal("header is intact, parse should proceed")
	}
	if f.Orientation != 6 {
		t.Errorf("Orientation = %d, want the inline tag to survive truncation", f.Orientation)
	}
}
