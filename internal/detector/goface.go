//go:build goface

package detector

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	face "github.com/Kagami/go-face"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
)

// GoFace runs dlib face detection and 128-d descriptors in process.
// Its descriptors are compatible with a Euclidean tolerance of 0.5.
type GoFace struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewGoFace loads the dlib models from modelsDir.
func NewGoFace(modelsDir string) (*GoFace, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("load dlib models: %w", err)
	}
	return &GoFace{rec: rec}, nil
}

// Detect finds faces in img. The recognizer is not safe for concurrent use.
func (g *GoFace) Detect(ctx context.Context, img image.Image) ([]facematch.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: uploadJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	g.mu.Lock()
	faces, err := g.rec.Recognize(buf.Bytes())
	g.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("recognize faces: %w", err)
	}

	offset := img.Bounds().Min
	dets := make([]facematch.Detection, 0, len(faces))
	for _, f := range faces {
		embedding := make([]float32, len(f.Descriptor))
		copy(embedding, f.Descriptor[:])
		dets = append(dets, facematch.Detection{Box: f.Rectangle.Add(offset), Embedding: embedding})
	}
	return dets, nil
}

// Close frees the dlib models.
func (g *GoFace) Close() error {
	g.rec.Close()
	return nil
}

func newGoFace(modelsDir string) (facematch.Detector, error) {
	g, err := NewGoFace(modelsDir)
	if err != nil {
		return nil, err
	}
	return g, nil
}
