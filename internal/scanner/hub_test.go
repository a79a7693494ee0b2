package scanner

import (
	"image"
	"testing"
)

func TestHub(t *testing.T) {
	h := NewHub()
	slow := h.Subscribe()
	fast := h.Subscribe()
	if h.Listeners() != 2 {
		t.Fatalf("Listeners() = %d", h.Listeners())
	}

	h.Publish(image.NewRGBA(image.Rect(0, 0, 4, 4)))
	first := <-fast
	h.Publish(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	second := <-fast

	if len(slow) != 1 {
		t.Fatalf("slow viewer holds %d frames, want 1", len(slow))
	}
	latest := <-slow
	if string(latest) != string(second) || string(latest) == string(first) {
		t.Error("slow viewer should receive the newest frame only")
	}

	h.Unsubscribe(slow)
	if _, ok := <-slow; ok {
		t.Error("channel should be closed")
	}
	if h.Listeners() != 1 {
		t.Errorf("Listeners() = %d, want 1", h.Listeners())
	}
}
