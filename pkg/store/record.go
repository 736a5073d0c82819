// Package store holds the in-memory photo record collection: the
// single source of truth while the process runs. The pipeline is its
// only writer; the serving layer reads concurrently.
package store

// Record is one successfully processed photo. Only photos with a
// usable coordinate become records; everything else is a statistic.
type Record struct {
	// RelPath is root-relative and forward-slash normalized. It is the
	// record's identity: inserting a second record with the same
	// RelPath replaces the first.
	RelPath string

	// AbsPath is used only for file I/O (serving image bytes,
	// reveal-in-explorer style operations downstream).
	AbsPath string

	Lat float64
	Lon float64

	// Taken is the capture time in the canonical
	// "YYYY-MM-DD HH:MM:SS" form, or empty when unknown.
	Taken string

	// Orientation is the EXIF value 1..8, 1 when absent.
	Orientation int

	// HEIF marks ISO-BMFF sources; the renderer cannot decode their
	// pixels and routes them to an external converter.
	HEIF bool
}
