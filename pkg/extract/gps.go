package extract

import "strings"

// dmsToDegrees combines a degrees/minutes/seconds triple into signed
// decimal degrees.
func dmsToDegrees(d, m, s float64) float64 {
	return d + m/60.0 + s/3600.0
}

// applyRef applies a hemisphere reference to a coordinate magnitude.
// S and W negate. A missing or unrecognized reference invalidates the
// coordinate: we discard rather than guess a hemisphere.
func applyRef(v float64, ref string) (float64, bool) {
	ref = strings.TrimSpace(strings.Trim(ref, "\x00"))
	if ref == "" {
		return 0, false
	}
	switch ref[0] {
	case 'S', 's', 'W', 'w':
		return -v, true
	case 'N', 'n', 'E', 'e':
		return v, true
	}
	return 0, false
}

// validCoord reports whether a lat/lon pair is inside the WGS84 range.
func validCoord(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// setGPS installs a coordinate pair on f if both values are present
// and structurally valid.
func (f *Fields) setGPS(lat, lon float64, ok bool) {
	if !ok || !validCoord(lat, lon) {
		return
	}
	f.Lat = lat
	f.Lon = lon
	f.HasGPS = true
}
