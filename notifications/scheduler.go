package notifications

import (
	"context"
	"log"
	"os"
	"sync"
	"time"
)

// notifyHour is the local hour of day the daily fanout fires.
const notifyHour = 9

// Scheduler runs the daily fanout at a fixed local hour in the configured
// timezone (NOTIFY_TIMEZONE, default Asia/Kolkata).
type Scheduler struct {
	fanout *Fanout
	loc    *time.Location

	mu      sync.Mutex
	cancel  context.CancelFunc
	trigger chan struct{}
}

func NewScheduler(fanout *Fanout) *Scheduler {
	zone := os.Getenv("NOTIFY_TIMEZONE")
	if zone == "" {
		zone = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		log.Printf("[Notify][Scheduler] unknown timezone %q, using UTC", zone)
		loc = time.UTC
	}
	return &Scheduler{fanout: fanout, loc: loc, trigger: make(chan struct{}, 1)}
}

// nextRun returns the next occurrence of the notify hour after now.
func nextRun(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), notifyHour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.loop(ctx)
	log.Printf("[Notify][Scheduler] daily fanout scheduled for %02d:00 %s", notifyHour, s.loc)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// TriggerNow queues an immediate run. No-op if a manual run is already queued.
func (s *Scheduler) TriggerNow() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	for {
		wait := time.Until(nextRun(time.Now(), s.loc))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.run(ctx)
		case <-s.trigger:
			timer.Stop()
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()
	if _, err := s.fanout.Run(runCtx); err != nil {
		log.Printf("[Notify][Scheduler] daily fanout failed: %v", err)
	}
}
