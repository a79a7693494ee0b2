package scanner

import (
	"image"
	"image/color"

	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	boxThickness = 2
	labelHeight  = 35
	labelPadding = 6
)

// Overlay colors.
var (
	colorRecorded  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorVerifying = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	colorWaiting   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorDone      = color.RGBA{R: 255, G: 215, B: 0, A: 255}
	colorUnknown   = color.RGBA{R: 100, G: 100, B: 100, A: 255}
	colorText      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// FaceStyle picks the color and caption of one face given the stream's
// verification state.
func FaceStyle(face facematch.FaceResult, state State, candidate string) (color.RGBA, string) {
	switch face.Status {
	case facematch.StatusScannable:
		active := face.Label == candidate
		switch {
		case active && state == StateConfirmed:
			return colorRecorded, face.Label + " (OK)"
		case active && state == StateVerifying:
			return colorVerifying, face.Label + "..."
		default:
			return colorWaiting, face.Label
		}
	case facematch.StatusDone:
		return colorDone, face.Label + " (Done)"
	default:
		return colorUnknown, "Unknown"
	}
}

// DrawOverlay renders boxes and labels onto a copy of frame.
func DrawOverlay(frame image.Image, faces []facematch.FaceResult, state State, candidate string) *image.RGBA {
	bounds := frame.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, frame, bounds.Min, draw.Src)

	for _, face := range faces {
		c, label := FaceStyle(face, state, candidate)
		box := face.Box.Intersect(bounds)
		if box.Empty() {
			continue
		}
		drawOutline(dst, box, c)

		bar := image.Rect(box.Min.X, box.Max.Y-labelHeight, box.Max.X, box.Max.Y).Intersect(bounds)
		draw.Draw(dst, bar, image.NewUniform(c), image.Point{}, draw.Src)
		drawLabel(dst, label, box.Min.X+labelPadding, box.Max.Y-labelPadding)
	}
	return dst
}

func drawOutline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), u, image.Point{}, draw.Src)
	}
}

func drawLabel(dst *image.RGBA, label string, x, y int) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(colorText),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
