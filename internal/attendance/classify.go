package attendance

import (
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
)

// clockLayouts are accepted for subject cutoffs, most specific first.
var clockLayouts = []string{
	constants.ClockLayout, // 03:04 PM
	"3:04 PM",
	"03:04PM",
	"3:04PM",
	"15:04",
}

// ParseClockTime parses a wall-clock time such as "09:15 AM" or "21:15"
// and returns hour and minute.
func ParseClockTime(s string) (hour, minute int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), nil
		}
	}
	return 0, 0, fmt.Errorf("invalid clock time %q", s)
}

// Cutoff returns the late cutoff on now's day. ok is false when lateTime
// cannot be parsed.
func Cutoff(now time.Time, lateTime string) (cutoff time.Time, ok bool) {
	h, m, err := ParseClockTime(lateTime)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location()), true
}

// Classify returns Late when now is strictly after the cutoff and Present otherwise.
// An empty lateTime uses defaultLate; an unparseable one classifies as Present.
func Classify(now time.Time, lateTime, defaultLate string) database.Status {
	if strings.TrimSpace(lateTime) == "" {
		lateTime = defaultLate
	}
	if lateTime == "" {
		lateTime = constants.DefaultLateTime
	}
	cutoff, ok := Cutoff(now, lateTime)
	if !ok {
		return database.StatusPresent
	}
	if now.After(cutoff) {
		return database.StatusLate
	}
	return database.StatusPresent
}

// NormalizeClockInput converts "HH:MM" form input to "03:04 PM".
// Values that do not parse are returned unchanged.
func NormalizeClockInput(s string) string {
	s = strings.TrimSpace(s)
	h, m, err := ParseClockTime(s)
	if err != nil {
		return s
	}
	return time.Date(0, 1, 1, h, m, 0, 0, time.UTC).Format(constants.ClockLayout)
}
