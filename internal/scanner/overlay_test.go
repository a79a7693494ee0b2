package scanner

import (
	"image"
	"image/color"
	"testing"

	"github.com/kozaktomas/attendance-scanner/internal/facematch"
)

func TestFaceStyle(t *testing.T) {
	scannable := facematch.FaceResult{Label: "Alice", Status: facematch.StatusScannable}

	tests := []struct {
		name      string
		face      facematch.FaceResult
		state     State
		candidate string
		wantColor color.RGBA
		wantLabel string
	}{
		{"recorded", scannable, StateConfirmed, "Alice", colorRecorded, "Alice (OK)"},
		{"verifying", scannable, StateVerifying, "Alice", colorVerifying, "Alice..."},
		{"other candidate", scannable, StateVerifying, "Bob", colorWaiting, "Alice"},
		{"idle", scannable, StateIdle, "", colorWaiting, "Alice"},
		{"done", facematch.FaceResult{Label: "Carol", Status: facematch.StatusDone}, StateIdle, "", colorDone, "Carol (Done)"},
		{"unknown", facematch.FaceResult{Label: "Unknown", Status: facematch.StatusUnknown}, StateIdle, "", colorUnknown, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, label := FaceStyle(tt.face, tt.state, tt.candidate)
			if c != tt.wantColor || label != tt.wantLabel {
				t.Errorf("FaceStyle() = (%v, %q), want (%v, %q)", c, label, tt.wantColor, tt.wantLabel)
			}
		})
	}
}

func TestDrawOverlay(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 200))
	faces := []facematch.FaceResult{
		{Box: image.Rect(20, 20, 120, 120), Label: "Carol", Status: facematch.StatusDone},
		{Box: image.Rect(500, 500, 600, 600), Label: "Unknown", Status: facematch.StatusUnknown},
	}

	out := DrawOverlay(src, faces, StateIdle, "")

	if got := out.RGBAAt(20, 60); got != colorDone {
		t.Errorf("outline pixel = %v, want %v", got, colorDone)
	}
	if got := out.RGBAAt(60, 60); got != (color.RGBA{}) {
		t.Errorf("box interior = %v, want untouched", got)
	}
	if got := out.RGBAAt(110, 90); got != colorDone {
		t.Errorf("label bar pixel = %v, want %v", got, colorDone)
	}
	if src.RGBAAt(20, 60) != (color.RGBA{}) {
		t.Error("source frame must not be modified")
	}
}
