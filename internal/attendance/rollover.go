package attendance

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Rollover re-opens the active session on a schedule so a session left
// running overnight gets Absent records for the new day.
type Rollover struct {
	cron    *cron.Cron
	tracker *Tracker
}

// NewRollover schedules Tracker.Refresh with a standard 5-field cron spec.
func NewRollover(tracker *Tracker, schedule string) (*Rollover, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	r := &Rollover{cron: c, tracker: tracker}

	if _, err := c.AddFunc(schedule, r.run); err != nil {
		return nil, fmt.Errorf("add rollover schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *Rollover) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess, ok := r.tracker.Current()
	if !ok {
		return
	}
	if err := r.tracker.Refresh(ctx); err != nil {
		log.Printf("Rollover of %s - %s failed: %v", sess.ClassID, sess.Subject.Name, err)
		return
	}
	log.Printf("Rolled over session %s - %s", sess.ClassID, sess.Subject.Name)
}

// Start runs the scheduler in its own goroutine.
func (r *Rollover) Start() {
	r.cron.Start()
}

// Stop stops the scheduler and waits for a running rollover to finish.
func (r *Rollover) Stop() {
	<-r.cron.Stop().Done()
}
