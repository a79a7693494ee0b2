//go:build !goface

package detector

import (
	"errors"

	"github.com/kozaktomas/attendance-scanner/internal/facematch"
)

func newGoFace(string) (facematch.Detector, error) {
	return nil, errors.New("goface detector not compiled in, rebuild with -tags goface")
}
