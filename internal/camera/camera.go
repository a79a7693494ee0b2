// Package camera supplies video frames to the scanner.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"
)

// frameInterval paces directory playback at roughly 30 fps.
const frameInterval = 33 * time.Millisecond

// ErrEndOfStream is returned by Read when the source has no more frames.
var ErrEndOfStream = errors.New("end of stream")

// Source yields successive frames. Read blocks until a frame is available.
// Close releases the underlying device or connection.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Open picks a source from a config value:
//   - "0", "1", ...: local capture device (requires the gocv build tag)
//   - http:// or https:// URL: MJPEG stream
//   - directory: JPEG/PNG frames played in name order
func Open(ctx context.Context, source string) (Source, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("camera source is empty")
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		src, err := OpenMJPEG(ctx, source)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	if index, err := strconv.Atoi(source); err == nil {
		return openDevice(index)
	}
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("open camera source: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("camera source %s is not a directory", source)
	}
	src, err := OpenDir(source, frameInterval)
	if err != nil {
		return nil, err
	}
	return src, nil
}
