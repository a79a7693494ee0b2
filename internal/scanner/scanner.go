// Package scanner runs the per-frame recognition loop: detect and label faces,
// debounce the frame's candidate and commit verified attendance.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/camera"
	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
	"golang.org/x/image/draw"
)

// KnownSource provides the current identity snapshot.
type KnownSource interface {
	Snapshot() *facematch.KnownSet
}

// Marker is the session side of the loop.
type Marker interface {
	Eligibility(ctx context.Context, name string) (facematch.Eligibility, error)
	Mark(ctx context.Context, name string) (bool, error)
}

// Config tunes the loop.
type Config struct {
	FrameScale   float64       // detection runs on frames shrunk by this factor
	ProcessEvery int           // detection runs on every Nth frame
	Dwell        time.Duration // verification dwell
}

// Scanner processes frames of one stream. Process and Run must not be called
// concurrently.
type Scanner struct {
	detector facematch.Detector
	matcher  *facematch.Matcher
	known    KnownSource
	marker   Marker
	cfg      Config
	now      func() time.Time

	debouncer *Debouncer
	frame     int
	faces     []facematch.FaceResult
	candidate string

	Live    *Hub // annotated frames
	Preview *Hub // raw frames at preview scale
}

// New creates a scanner.
func New(detector facematch.Detector, matcher *facematch.Matcher, known KnownSource, marker Marker, cfg Config) *Scanner {
	if cfg.FrameScale <= 0 || cfg.FrameScale > 1 {
		cfg.FrameScale = constants.DefaultFrameScale
	}
	if cfg.ProcessEvery <= 0 {
		cfg.ProcessEvery = constants.DefaultProcessEvery
	}
	return &Scanner{
		detector:  detector,
		matcher:   matcher,
		known:     known,
		marker:    marker,
		cfg:       cfg,
		now:       time.Now,
		debouncer: NewDebouncer(cfg.Dwell),
		Live:      NewHub(),
		Preview:   NewHub(),
	}
}

// Process runs one frame through the loop and returns the annotated frame.
// Store and detector failures are logged and leave the previous labels in
// place; they never stop the stream.
func (s *Scanner) Process(ctx context.Context, frame image.Image) *image.RGBA {
	if s.frame%s.cfg.ProcessEvery == 0 {
		s.detect(ctx, frame)
	}
	s.frame++

	if s.debouncer.Observe(s.candidate, s.now()) {
		s.commit(ctx, s.candidate)
	}

	state, candidate := s.debouncer.State()
	return DrawOverlay(frame, s.faces, state, candidate)
}

func (s *Scanner) detect(ctx context.Context, frame image.Image) {
	small := Downscale(frame, s.cfg.FrameScale)
	dets, err := s.detector.Detect(ctx, small)
	if err != nil {
		log.Printf("Face detection failed: %v", err)
		return
	}

	upscale := 1 / s.cfg.FrameScale
	origin := frame.Bounds().Min
	for i := range dets {
		dets[i].Box = facematch.ScaleRect(dets[i].Box.Sub(small.Bounds().Min), upscale).Add(origin)
	}

	faces, candidate, err := s.matcher.Label(ctx, dets, s.known.Snapshot(), s.marker.Eligibility)
	if err != nil {
		log.Printf("Resolving scan status failed: %v", err)
	}
	s.faces = faces
	s.candidate = candidate
}

func (s *Scanner) commit(ctx context.Context, name string) {
	marked, err := s.marker.Mark(ctx, name)
	if err != nil {
		log.Printf("Marking %s failed, will retry: %v", name, err)
		s.debouncer.Retry()
		return
	}
	if !marked {
		log.Printf("%s was already marked", name)
	}
}

// Run reads frames until the source ends or ctx is cancelled. Annotated
// frames go to Live, downscaled raw frames to Preview. The source is closed
// on return.
func (s *Scanner) Run(ctx context.Context, src camera.Source) error {
	defer src.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		frame, err := src.Read(ctx)
		if errors.Is(err, camera.ErrEndOfStream) {
			log.Println("Camera stream ended")
			return nil
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		if s.Preview.Listeners() > 0 {
			s.Preview.Publish(Downscale(frame, constants.PreviewScale))
		}
		out := s.Process(ctx, frame)
		if s.Live.Listeners() > 0 {
			s.Live.Publish(out)
		}
	}
}

// Downscale shrinks img by factor. factor >= 1 returns img unchanged.
func Downscale(img image.Image, factor float64) image.Image {
	if factor >= 1 || factor <= 0 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
