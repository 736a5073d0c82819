// Package render produces scaled JPEGs for map markers and popups on
// demand, so no thumbnail files are generated at scan time.
package render

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"

	"github.com/fotokart/fotokart/pkg/extract"
)

// Maximum edge lengths. Images are only ever shrunk, never enlarged,
// and aspect ratio is always preserved.
const (
	MarkerMax = 40
	ThumbMax  = 60
	PopupMax  = 1024
)

const jpegQuality = 85

// ScaledJPEG decodes image bytes, undoes the EXIF orientation, shrinks
// the result so its longer edge is at most maxEdge, and re-encodes as
// JPEG. HEIF sources cannot be decoded here and belong to an external
// converter.
func ScaledJPEG(data []byte, orientation, maxEdge int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	img = applyOrientation(img, orientation)

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("degenerate image %dx%d", w, h)
	}
	longest := w
	if h > longest {
		longest = h
	}
	if longest > maxEdge {
		scale := float64(maxEdge) / float64(longest)
		nw := int(float64(w) * scale)
		nh := int(float64(h) * scale)
		if nw < 1 {
			nw = 1
		}
		if nh < 1 {
			nh = 1
		}
		img = transform.Resize(img, nw, nh, transform.Lanczos)
	}

	var buf bytes.Buffer
	enc := imgio.JPEGEncoder(jpegQuality)
	if err := enc(&buf, img); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

// applyOrientation rotates and flips pixels so the image displays
// upright regardless of how the camera was held.
func applyOrientation(img image.Image, orientation int) image.Image {
	r := extract.OrientationRotation(extract.NormalizeOrientation(orientation))
	if r.Angle != 0 {
		img = transform.Rotate(img, float64(r.Angle), &transform.RotationOptions{ResizeBounds: true})
	}
	if r.FlipH {
		img = transform.FlipH(img)
	}
	if r.FlipV {
		img = transform.FlipV(img)
	}
	return img
}
