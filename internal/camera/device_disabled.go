//go:build !gocv

package camera

import "fmt"

func openDevice(index int) (Source, error) {
	return nil, fmt.Errorf("camera device %d needs OpenCV, rebuild with -tags gocv or use an MJPEG URL", index)
}
