package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned when a scan is started while one is in progress.
var ErrAlreadyRunning = errors.New("a scan is already in progress")

// ErrNoActiveScan is returned when cancel is called with no scan running.
var ErrNoActiveScan = errors.New("no scan is currently running")

// ActiveScan holds live information about the running scan.
type ActiveScan struct {
	Request     Request
	StartedAt   time.Time
	TriggeredBy string
	Progress    *Progress
}

// Result is a completed scan retained for the API: the request, its outcome,
// and timing. Results live only in memory; nothing is persisted.
type Result struct {
	Request    Request
	Outcome    Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// Manager enforces a single-active-scan invariant and exposes start/cancel.
// It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	scanner *Scanner

	active   *ActiveScan
	cancelFn context.CancelFunc
	last     *Result
}

// NewManager creates a Manager driving the given Scanner.
func NewManager(scanner *Scanner) *Manager {
	return &Manager{scanner: scanner}
}

// Start launches an asynchronous scan. Returns an ActiveScan snapshot or
// ErrAlreadyRunning if a scan is already in progress. Cancelling parentCtx
// cancels the scan (e.g. on server shutdown).
func (m *Manager) Start(parentCtx context.Context, req Request, triggeredBy string) (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrAlreadyRunning
	}

	progress := &Progress{}
	scanCtx, cancel := context.WithCancel(parentCtx)

	active := &ActiveScan{
		Request:     req,
		StartedAt:   time.Now(),
		TriggeredBy: triggeredBy,
		Progress:    progress,
	}
	m.active = active
	m.cancelFn = cancel

	go func() {
		defer cancel()
		outcome := m.scanner.Run(scanCtx, req, progress, logNotifier{})
		if outcome.State == StateFailed {
			slog.Error("scan run error", "error", outcome.Err)
		}

		m.mu.Lock()
		m.last = &Result{
			Request:    req,
			Outcome:    outcome,
			StartedAt:  active.StartedAt,
			FinishedAt: time.Now(),
		}
		m.active = nil
		m.cancelFn = nil
		m.mu.Unlock()
	}()

	return active, nil
}

// Cancel stops the currently running scan. Returns ErrNoActiveScan if idle.
func (m *Manager) Cancel() (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveScan
	}

	snap := *m.active
	m.cancelFn()
	return &snap, nil
}

// Active returns a snapshot of the running scan, or nil when idle.
func (m *Manager) Active() *ActiveScan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	snap := *m.active
	return &snap
}

// Last returns the most recently completed scan result, or nil if none has
// finished since the process started.
func (m *Manager) Last() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// logNotifier forwards scan status to the structured log.
type logNotifier struct{}

func (logNotifier) Status(text string) { slog.Info("scan status", "text", text) }

func (logNotifier) Progress(done, total int) {
	slog.Debug("scan progress", "done", done, "total", total)
}
