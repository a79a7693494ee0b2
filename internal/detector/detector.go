package detector

import (
	"fmt"

	"github.com/kozaktomas/attendance-scanner/internal/config"
	"github.com/kozaktomas/attendance-scanner/internal/facematch"
)

// New creates the detector selected by cfg.Kind. Callers should close the
// result when it implements io.Closer.
func New(cfg *config.DetectorConfig) (facematch.Detector, error) {
	switch cfg.Kind {
	case "", "http":
		return NewHTTPDetector(cfg.URL), nil
	case "goface":
		return newGoFace(cfg.ModelsDir)
	default:
		return nil, fmt.Errorf("unknown detector %q (want http or goface)", cfg.Kind)
	}
}
