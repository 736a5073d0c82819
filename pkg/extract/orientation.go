package extract

// Rotation tells a renderer how to transform pixels so the image
// displays upright. Angle is in clockwise degrees; flips apply after
// the rotation.
type Rotation struct {
	Angle int
	FlipH bool
	FlipV bool
}

// NormalizeOrientation clamps an EXIF orientation value to the valid
// 1..8 range, defaulting to 1 (no rotation).
func NormalizeOrientation(v int) int {
	if v < 1 || v > 8 {
		return 1
	}
	return v
}

// OrientationRotation maps an EXIF orientation value to the transform
// that undoes it.
func OrientationRotation(o int) Rotation {
	switch o {
	case 2:
		return Rotation{FlipH: true}
	case 3:
		return Rotation{Angle: 180}
	case 4:
		return Rotation{FlipV: true}
	case 5:
		return Rotation{Angle: 270, FlipH: true}
	case 6:
		return Rotation{Angle: 90}
	case 7:
		return Rotation{Angle: 90, FlipH: true}
	case 8:
		return Rotation{Angle: 270}
	}
	return Rotation{}
}
