// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchTolerance is the maximum Euclidean distance between two face
	// embeddings for them to be considered the same person
	DefaultMatchTolerance = 0.50

	// DefaultFrameScale is the factor frames are shrunk by before detection
	DefaultFrameScale = 0.25

	// DefaultProcessEvery runs detection on every Nth frame; skipped frames reuse
	// the previous overlay
	DefaultProcessEvery = 6

	// HNSWMinIdentities is the identity count above which nearest-neighbor
	// matching goes through the HNSW graph instead of a linear scan
	HNSWMinIdentities = 256

	// UnknownLabel is drawn for faces without a usable match
	UnknownLabel = "Unknown"
)

// Verification constants
const (
	// VerifyDwell is how long one candidate must remain the frame's top match
	// before the attendance commit is attempted
	VerifyDwell = 2 * time.Second
)

// Attendance constants
const (
	// DateLayout is the layout of AttendanceRecord.Date
	DateLayout = "2006-01-02"

	// ClockLayout is the layout of recorded times and subject cutoffs (e.g. "09:05 AM")
	ClockLayout = "03:04 PM"

	// DefaultLateTime is used when a subject has no late cutoff configured
	DefaultLateTime = "11:59 PM"

	// TimePlaceholder is stored as the time of day of Absent records
	TimePlaceholder = "-"

	// InsertBatchSize bounds the number of rows per INSERT during session activation
	InsertBatchSize = 200
)

// Streaming constants
const (
	// JPEGQuality is used for MJPEG stream frames
	JPEGQuality = 80

	// PreviewScale is the downscale applied to the plain preview feed
	PreviewScale = 0.5

	// EventChannelBuffer is the buffer size for attendance event listeners
	EventChannelBuffer = 32
)

// Upload constants
const (
	// MaxUploadSize is the maximum enrollment upload size in bytes (32MB)
	MaxUploadSize = 32 << 20

	// MaxEnrollImages bounds the number of images accepted per enrollment
	MaxEnrollImages = 20
)
