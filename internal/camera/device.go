//go:build gocv

package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Device captures from a local camera through OpenCV.
type Device struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// OpenDevice opens camera index with a one-frame buffer at 640x480, 30 fps.
func OpenDevice(index int) (*Device, error) {
	capture, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	capture.Set(gocv.VideoCaptureBufferSize, 1)
	capture.Set(gocv.VideoCaptureFrameWidth, 640)
	capture.Set(gocv.VideoCaptureFrameHeight, 480)
	capture.Set(gocv.VideoCaptureFPS, 30)
	return &Device{capture: capture, mat: gocv.NewMat()}, nil
}

// Read grabs the next frame.
func (d *Device) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture == nil {
		return nil, errors.New("camera closed")
	}
	if ok := d.capture.Read(&d.mat); !ok {
		return nil, ErrEndOfStream
	}
	if d.mat.Empty() {
		return nil, ErrEndOfStream
	}
	img, err := d.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	return img, nil
}

// Close releases the capture device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.capture == nil {
		return nil
	}
	d.mat.Close()
	err := d.capture.Close()
	d.capture = nil
	return err
}

func openDevice(index int) (Source, error) {
	d, err := OpenDevice(index)
	if err != nil {
		return nil, err
	}
	return d, nil
}
