package scan

import "sync/atomic"

// Progress holds live counters for a scan. All fields are atomic so they can
// be written by the orchestrator goroutine and read from an HTTP handler
// without locks.
type Progress struct {
	Total     atomic.Int64
	Processed atomic.Int64
	Failed    atomic.Int64
	state     atomic.Int32
}

func (p *Progress) setState(s State) { p.state.Store(int32(s)) }

// State returns the orchestrator's current state.
func (p *Progress) State() State { return State(p.state.Load()) }

// Notifier receives fire-and-forget scan updates. Implementations must not
// block; the engine calls them from the orchestrator goroutine.
type Notifier interface {
	Status(text string)
	Progress(done, total int)
}

type nopNotifier struct{}

func (nopNotifier) Status(string)     {}
func (nopNotifier) Progress(int, int) {}
