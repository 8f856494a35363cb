// Package scheduler runs the periodic scan on a cron expression.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron with a single tracked scan job and a pause
// switch. Pausing keeps the schedule ticking but suppresses the callback, so
// the next-run time stays accurate for the status endpoint.
type Scheduler struct {
	mu      sync.RWMutex
	c       *cron.Cron
	entryID cron.EntryID
	expr    string
	paused  bool
}

// New creates a stopped Scheduler. Call Start to activate it.
func New() *Scheduler {
	return &Scheduler{c: cron.New()}
}

// SetJob installs the scan job for the given cron expression, replacing any
// previous one. Takes effect immediately if the scheduler is running.
func (s *Scheduler) SetJob(expr string, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.c.Remove(s.entryID)
	}

	id, err := s.c.AddFunc(expr, func() {
		if s.Paused() {
			slog.Info("scheduled scan skipped: scheduler is paused")
			return
		}
		fn()
	})
	if err != nil {
		return err
	}
	s.entryID = id
	s.expr = expr
	slog.Info("scheduler: job set", "cron", expr)
	return nil
}

// Pause suppresses scheduled runs until Resume is called.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume re-enables scheduled runs.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Paused reports whether scheduled runs are currently suppressed.
func (s *Scheduler) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// Start begins the cron loop.
func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop halts the cron loop gracefully.
func (s *Scheduler) Stop() {
	s.c.Stop()
}

// NextRunAt returns the next scheduled time, or nil if no job is set.
func (s *Scheduler) NextRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entryID == 0 {
		return nil
	}
	entry := s.c.Entry(s.entryID)
	if entry.ID == 0 {
		return nil
	}
	t := entry.Next
	return &t
}

// CronExpr returns the current cron expression, empty when no job is set.
func (s *Scheduler) CronExpr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expr
}
