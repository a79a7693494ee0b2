package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var frameExtensions = []string{".jpg", ".jpeg", ".png"}

// DirSource plays the images of a directory in name order. Useful for
// replaying recorded sessions and for tests.
type DirSource struct {
	files    []string
	next     int
	interval time.Duration
	last     time.Time
}

// OpenDir lists the frames in dir. A positive interval paces Read like a camera.
func OpenDir(dir string, interval time.Duration) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(frameExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames in %s", dir)
	}
	slices.Sort(files)
	return &DirSource{files: files, interval: interval}, nil
}

// Read decodes the next frame.
func (d *DirSource) Read(ctx context.Context) (image.Image, error) {
	if d.next >= len(d.files) {
		return nil, ErrEndOfStream
	}
	if d.interval > 0 && !d.last.IsZero() {
		wait := time.Until(d.last.Add(d.interval))
		if wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	d.last = time.Now()

	path := d.files[d.next]
	d.next++
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Close is a no-op.
func (d *DirSource) Close() error {
	return nil
}
