package track

import "math"

// BBox is an axis-aligned bounding box in pixel coordinates.
// Valid boxes have X1 < X2 and Y1 < Y2; callers are trusted to supply
// valid geometry (see the detector contract in the API package).
type BBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Width returns the box width.
func (b BBox) Width() float64 { return b.X2 - b.X1 }

// Height returns the box height.
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

// Center returns the box center point.
func (b BBox) Center() (x, y float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// IsFinite reports whether every coordinate is a finite number.
// A false result marks a numerically degenerate filter prediction.
func (b BBox) IsFinite() bool {
	for _, v := range [4]float64{b.X1, b.Y1, b.X2, b.Y2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IoU computes the intersection-over-union of two boxes. Returns 0
// when the union area is non-positive (degenerate boxes).
func IoU(a, b BBox) float64 {
	ix1 := math.Max(a.X1, b.X1)
	iy1 := math.Max(a.Y1, b.Y1)
	ix2 := math.Min(a.X2, b.X2)
	iy2 := math.Min(a.Y2, b.Y2)

	intersection := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)

	union := a.Width()*a.Height() + b.Width()*b.Height() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// boxToObservation converts a box to the filter observation
// [cx, cy, s, r] where s is the area and r the width/height ratio.
// Aspect ratio falls back to 1.0 for a degenerate zero-height box.
func boxToObservation(b BBox) (cx, cy, s, r float64) {
	w := b.Width()
	h := b.Height()
	cx = b.X1 + w/2
	cy = b.Y1 + h/2
	s = w * h
	if h > 0 {
		r = w / h
	} else {
		r = 1.0
	}
	return cx, cy, s, r
}

// observationToBox converts an observation [cx, cy, s, r] back to a
// box. Height collapses to zero when the recovered width is
// non-positive (negative or zero predicted area).
func observationToBox(cx, cy, s, r float64) BBox {
	w := math.Sqrt(s * r)
	var h float64
	if w > 0 {
		h = s / w
	}
	return BBox{
		X1: cx - w/2,
		Y1: cy - h/2,
		X2: cx + w/2,
		Y2: cy + h/2,
	}
}
