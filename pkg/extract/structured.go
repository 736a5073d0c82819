package extract

import (
	"bytes"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// The structured tiers run the goexif reader: first the conventional
// primary-IFD lookup, then an exhaustive walk over every decoded field
// for devices that put GPS data somewhere unconventional.

// primaryIFDFields looks GPS, datetime and orientation up at their
// standard locations. This is where the overwhelming majority of
// cameras put them.
func primaryIFDFields(data []byte) (Fields, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return Fields{}, false
	}
	f := Fields{Orientation: 1}

	lat, latOK := taggedCoord(x, exif.GPSLatitude, exif.GPSLatitudeRef)
	lon, lonOK := taggedCoord(x, exif.GPSLongitude, exif.GPSLongitudeRef)
	f.setGPS(lat, lon, latOK && lonOK)

	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		if tag, err := x.Get(name); err == nil {
			if s, err := tag.StringVal(); err == nil {
				if taken := ParseTaken(s); taken != "" {
					f.Taken = taken
					break
				}
			}
		}
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			f.Orientation = NormalizeOrientation(v)
		}
	}
	return f, true
}

// walkAllFields iterates every field goexif decoded, wherever it
// lives, looking for a GPS coordinate pair. Some Android vendors park
// GPS tags outside the GPS IFD.
func walkAllFields(data []byte) (Fields, bool) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return Fields{}, false
	}
	w := &gpsWalker{}
	_ = x.Walk(w)

	f := Fields{Orientation: 1}
	if w.latTag != nil && w.lonTag != nil {
		latMag, ok1 := tagDMS(w.latTag)
		lonMag, ok2 := tagDMS(w.lonTag)
		if ok1 && ok2 {
			lat, ok3 := applyRef(latMag, w.latRef)
			lon, ok4 := applyRef(lonMag, w.lonRef)
			f.setGPS(lat, lon, ok3 && ok4)
		}
	}
	return f, true
}

type gpsWalker struct {
	latTag, lonTag *tiff.Tag
	latRef, lonRef string
}

func (w *gpsWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	switch name {
	case exif.GPSLatitude:
		w.latTag = tag
	case exif.GPSLongitude:
		w.lonTag = tag
	case exif.GPSLatitudeRef:
		if s, err := tag.StringVal(); err == nil {
			w.latRef = s
		}
	case exif.GPSLongitudeRef:
		if s, err := tag.StringVal(); err == nil {
			w.lonRef = s
		}
	}
	return nil
}

// taggedCoord reads one coordinate plus its hemisphere reference from
// the decoded field map.
func taggedCoord(x *exif.Exif, coord, ref exif.FieldName) (float64, bool) {
	ctag, err := x.Get(coord)
	if err != nil {
		return 0, false
	}
	rtag, err := x.Get(ref)
	if err != nil {
		// magnitude without a hemisphere: discard, do not guess
		return 0, false
	}
	mag, ok := tagDMS(ctag)
	if !ok {
		return 0, false
	}
	r, err := rtag.StringVal()
	if err != nil {
		return 0, false
	}
	return applyRef(mag, r)
}

// tagDMS converts a rational degrees/minutes/seconds tag to decimal
// degrees. Works for RATIONAL and SRATIONAL encodings.
func tagDMS(tag *tiff.Tag) (float64, bool) {
	if tag == nil || tag.Count < 3 {
		return 0, false
	}
	var parts [3]float64
	for i := 0; i < 3; i++ {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		parts[i] = float64(num) / float64(den)
	}
	return dmsToDegrees(parts[0], parts[1], parts[2]), true
}
