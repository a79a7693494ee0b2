package facematch

import (
	"image"
	"math"
)

// RectFromBBox converts a pixel bbox [x1, y1, x2, y2] to a rectangle.
// Returns false for malformed boxes.
func RectFromBBox(bbox []float64) (image.Rectangle, bool) {
	if len(bbox) != 4 {
		return image.Rectangle{}, false
	}
	r := image.Rect(
		int(math.Round(bbox[0])),
		int(math.Round(bbox[1])),
		int(math.Round(bbox[2])),
		int(math.Round(bbox[3])),
	)
	if r.Empty() {
		return image.Rectangle{}, false
	}
	return r, true
}

// ScaleRect multiplies every coordinate by factor. Used to map boxes found on a
// downscaled frame back onto the full-size frame.
func ScaleRect(r image.Rectangle, factor float64) image.Rectangle {
	if factor == 1 {
		return r
	}
	scale := func(v int) int { return int(math.Round(float64(v) * factor)) }
	return image.Rect(scale(r.Min.X), scale(r.Min.Y), scale(r.Max.X), scale(r.Max.Y))
}

// ComputeIoU calculates Intersection over Union between two rectangles.
func ComputeIoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	area := func(r image.Rectangle) float64 { return float64(r.Dx()) * float64(r.Dy()) }

	union := area(a) + area(b) - area(inter)
	if union <= 0 {
		return 0
	}
	return area(inter) / union
}

// LargestFace returns the index of the detection with the biggest box, -1 if none.
func LargestFace(dets []Detection) int {
	best, bestArea := -1, -1
	for i, d := range dets {
		if a := d.Box.Dx() * d.Box.Dy(); a > bestArea {
			best, bestArea = i, a
		}
	}
	return best
}
