package identity

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"strings"

	// Register decoders for uploaded enrollment photos.
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxEnrollSide bounds the longer side of enrollment photos before detection.
const maxEnrollSide = 1600

// ErrNoFaces is returned when none of the enrollment images contains a face.
var ErrNoFaces = errors.New("no face found in any enrollment image")

// Service enrolls and deletes students and keeps the Cache in sync.
type Service struct {
	store    database.IdentityWriter
	detector facematch.Detector
	cache    *Cache

	// OnDeleted, when set, is called after a successful global delete.
	OnDeleted func(name string)
}

// NewService creates an identity service.
func NewService(store database.IdentityWriter, detector facematch.Detector, cache *Cache) *Service {
	return &Service{store: store, detector: detector, cache: cache}
}

// EnrollResult summarizes an enrollment.
type EnrollResult struct {
	Name       string `json:"name"`
	Images     int    `json:"images"`
	FacesUsed  int    `json:"faces_used"`
	Dimensions int    `json:"dimensions"`
}

// DecodeImage decodes a JPEG, PNG, BMP or WebP photo, applies its EXIF
// orientation and shrinks it so the longer side is at most maxEnrollSide.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := img.Bounds()
	if b.Dx() > maxEnrollSide || b.Dy() > maxEnrollSide {
		img = imaging.Fit(img, maxEnrollSide, maxEnrollSide, imaging.Lanczos)
	}
	return img, nil
}

// Enroll computes one embedding per image from its largest face, averages
// them and stores the result under name, replacing any previous embedding.
// progress, if not nil, is called once per processed image.
func (s *Service) Enroll(ctx context.Context, name string, images []image.Image, progress func()) (*EnrollResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("student name is required")
	}
	if s.detector == nil {
		return nil, errors.New("no face detector configured")
	}

	var embeddings [][]float32
	for i, img := range images {
		dets, err := s.detector.Detect(ctx, img)
		if progress != nil {
			progress()
		}
		if err != nil {
			return nil, fmt.Errorf("detect faces in image %d: %w", i+1, err)
		}
		idx := facematch.LargestFace(dets)
		if idx < 0 || len(dets[idx].Embedding) == 0 {
			log.Printf("Enrollment of %s: no face in image %d", facematch.SanitizeForLog(name), i+1)
			continue
		}
		embeddings = append(embeddings, dets[idx].Embedding)
	}
	if len(embeddings) == 0 {
		return nil, ErrNoFaces
	}

	avg := database.AverageEmbeddings(embeddings)
	if err := s.store.SaveIdentity(ctx, database.Identity{Name: name, Embedding: avg}); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}
	if _, err := s.cache.Reload(ctx); err != nil {
		return nil, err
	}

	return &EnrollResult{
		Name:       name,
		Images:     len(images),
		FacesUsed:  len(embeddings),
		Dimensions: len(avg),
	}, nil
}

// Delete removes the student everywhere and reloads the cache.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.store.DeleteStudentGlobally(ctx, name); err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if _, err := s.cache.Reload(ctx); err != nil {
		return err
	}
	if s.OnDeleted != nil {
		s.OnDeleted(name)
	}
	return nil
}

// Names lists enrolled students ordered by name. A non-empty query keeps only
// names containing it, ignoring case and diacritics.
func (s *Service) Names(ctx context.Context, query string) ([]string, error) {
	names, err := s.store.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	if query == "" {
		return names, nil
	}
	q := facematch.NormalizePersonName(query)
	filtered := names[:0]
	for _, n := range names {
		if strings.Contains(facematch.NormalizePersonName(n), q) {
			filtered = append(filtered, n)
		}
	}
	return filtered, nil
}
