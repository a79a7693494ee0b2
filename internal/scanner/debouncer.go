package scanner

import (
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
)

// State is the verification state of one stream.
type State int

const (
	StateIdle      State = iota // no stable candidate
	StateVerifying              // a candidate is accumulating dwell time
	StateConfirmed              // the candidate was committed for this stream
)

func (s State) String() string {
	switch s {
	case StateVerifying:
		return "verifying"
	case StateConfirmed:
		return "confirmed"
	default:
		return "idle"
	}
}

// Debouncer requires a candidate to stay the frame's top match for the dwell
// time before one commit is attempted. One per stream; not safe for
// concurrent use.
type Debouncer struct {
	dwell     time.Duration
	state     State
	candidate string
	since     time.Time
}

// NewDebouncer creates an idle debouncer. A non-positive dwell uses the default.
func NewDebouncer(dwell time.Duration) *Debouncer {
	if dwell <= 0 {
		dwell = constants.VerifyDwell
	}
	return &Debouncer{dwell: dwell}
}

// Observe advances the state machine with this frame's candidate ("" for none)
// and reports whether the caller should attempt a commit for it now.
func (d *Debouncer) Observe(candidate string, now time.Time) bool {
	if candidate == "" {
		d.reset()
		return false
	}

	switch d.state {
	case StateIdle:
		d.verify(candidate, now)
		return false
	case StateVerifying:
		if candidate != d.candidate {
			d.verify(candidate, now)
			return false
		}
		if now.Sub(d.since) >= d.dwell {
			d.state = StateConfirmed
			return true
		}
		return false
	case StateConfirmed:
		if candidate != d.candidate {
			d.verify(candidate, now)
		}
		return false
	}
	return false
}

// Retry moves a confirmed candidate back to verifying with its original start
// time, so the next frame with the same candidate attempts the commit again.
// Used when the commit failed with a store error.
func (d *Debouncer) Retry() {
	if d.state == StateConfirmed {
		d.state = StateVerifying
	}
}

// State returns the current state and candidate.
func (d *Debouncer) State() (State, string) {
	return d.state, d.candidate
}

// Verifying reports whether name is the candidate currently accumulating dwell.
func (d *Debouncer) Verifying(name string) bool {
	return d.state == StateVerifying && d.candidate == name
}

func (d *Debouncer) verify(candidate string, now time.Time) {
	d.state = StateVerifying
	d.candidate = candidate
	d.since = now
}

func (d *Debouncer) reset() {
	d.state = StateIdle
	d.candidate = ""
	d.since = time.Time{}
}
