package scanner

import (
	"bytes"
	"image"
	"image/jpeg"
	"log"
	"sync"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
)

// Hub fans encoded JPEG frames out to stream viewers. Each viewer holds at
// most one pending frame; a slow viewer skips frames instead of blocking the loop.
type Hub struct {
	listeners []chan []byte
	mu        sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe returns a channel of JPEG frames.
func (h *Hub) Subscribe() chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan []byte, 1)
	h.listeners = append(h.listeners, ch)
	return ch
}

// Unsubscribe removes and closes ch.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Listeners returns the number of subscribed viewers.
func (h *Hub) Listeners() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Publish encodes img once and hands it to every viewer, replacing any frame
// the viewer has not picked up yet.
func (h *Hub) Publish(img image.Image) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		log.Printf("Encoding stream frame failed: %v", err)
		return
	}
	data := buf.Bytes()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, listener := range h.listeners {
		select {
		case <-listener:
		default:
		}
		select {
		case listener <- data:
		default:
		}
	}
}
