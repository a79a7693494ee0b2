// Package facematch matches detected faces against enrolled identities.
// It never writes attendance; session eligibility is supplied by the caller.
package facematch

import (
	"context"
	"image"
)

// Detection is one face found in a frame.
type Detection struct {
	Box       image.Rectangle // in the coordinates of the image passed to the detector
	Embedding []float32
}

// Detector finds faces and computes their embeddings.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// FaceStatus is how a labelled face is treated by the verification loop.
type FaceStatus string

const (
	StatusScannable FaceStatus = "scannable" // eligible, not yet marked
	StatusDone      FaceStatus = "done"      // already marked in the active session
	StatusUnknown   FaceStatus = "unknown"   // no match, no session, or not in the roster
)

// FaceResult is a labelled detection.
type FaceResult struct {
	Box      image.Rectangle
	Label    string
	Status   FaceStatus
	Distance float64
}

// Eligibility is what the active session says about a matched identity.
type Eligibility int

const (
	// Ineligible covers "no session" and "not in the class roster".
	Ineligible Eligibility = iota
	// Ready means the identity has an Absent record in the active session.
	Ready
	// AlreadyMarked means the identity is Present or Late already.
	AlreadyMarked
)

// EligibilityFunc resolves a matched identity against the active session.
type EligibilityFunc func(ctx context.Context, name string) (Eligibility, error)
