// Package scan runs similarity scans: signature extraction over a worker
// pool, then one greedy grouping pass over the signature cache.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/tmarcus/lookalike/internal/method"
)

// State identifies the orchestrator's position in a scan.
type State int32

const (
	StateIdle State = iota
	StateEnumerating
	StateExtracting
	StateAggregating
	StateGrouping
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumerating:
		return "enumerating"
	case StateExtracting:
		return "extracting"
	case StateAggregating:
		return "aggregating"
	case StateGrouping:
		return "grouping"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one scan.
type Outcome struct {
	State  State               // StateDone, StateCancelled, or StateFailed
	Groups map[string][]string // group key → paths; set only when Done
	Err    error               // set only when Failed
}

// Request describes one scan invocation.
type Request struct {
	Directory  string
	Extensions []string
	Recursive  bool
	Method     string
}

// Enumerator lists candidate image paths under a root. The engine depends
// only on this contract; internal/walk provides the default implementation.
type Enumerator interface {
	List(ctx context.Context, root string, extensions []string, recursive bool) ([]string, error)
}

// Resolver maps a method name to its implementation. It is called once per
// scan, before any work is dispatched.
type Resolver func(name string) (method.Method, error)

// Scanner orchestrates scans. It holds no per-scan state; every Run call
// creates its own session, so concurrent Runs do not interfere.
type Scanner struct {
	enum    Enumerator
	resolve Resolver
	workers int
}

// New creates a Scanner with the given enumerator and method resolver.
// workers bounds the extraction pool; zero means the hardware concurrency.
func New(enum Enumerator, resolve Resolver, workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{enum: enum, resolve: resolve, workers: workers}
}

// Run executes one scan and returns its outcome. It blocks until the scan
// finishes, fails, or ctx is cancelled; callers driving an interactive
// surface must invoke it off their main goroutine.
//
// progress may be nil; when given it is updated live so another goroutine
// can observe the scan. notify may be nil.
func (s *Scanner) Run(ctx context.Context, req Request, progress *Progress, notify Notifier) (out Outcome) {
	if progress == nil {
		progress = &Progress{}
	}
	if notify == nil {
		notify = nopNotifier{}
	}
	// A fault inside a single extraction task is contained by safeExtract;
	// anything that still reaches here takes the whole scan down as Failed.
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{State: StateFailed, Err: fmt.Errorf("scan: %v", r)}
			progress.setState(StateFailed)
		}
	}()

	m, err := s.resolve(req.Method)
	if err != nil {
		progress.setState(StateFailed)
		return Outcome{State: StateFailed, Err: err}
	}

	slog.Info("scan started", "dir", req.Directory, "method", m.Name())

	progress.setState(StateEnumerating)
	notify.Status(fmt.Sprintf("Enumerating images in %s...", req.Directory))
	candidates, err := s.enum.List(ctx, req.Directory, req.Extensions, req.Recursive)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancelled(progress)
		}
		progress.setState(StateFailed)
		return Outcome{State: StateFailed, Err: fmt.Errorf("enumerate %s: %w", req.Directory, err)}
	}
	progress.Total.Store(int64(len(candidates)))

	sess := newSession(candidates)

	if m.Name() == method.Exact {
		// Enumeration plus hashing is cheap enough to run inline; the
		// worker-pool stages are skipped entirely.
		notify.Status("Hashing files...")
		if err := s.extractInline(ctx, m, sess, progress, notify); err != nil {
			return s.cancelled(progress)
		}
	} else {
		progress.setState(StateExtracting)
		notify.Status(fmt.Sprintf("Computing %s signatures...", m.Name()))
		if err := s.aggregate(ctx, m, sess, progress, notify); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return s.cancelled(progress)
			}
			progress.setState(StateFailed)
			return Outcome{State: StateFailed, Err: err}
		}
	}

	progress.setState(StateGrouping)
	notify.Status("Grouping similar images...")
	groups, err := sess.group(ctx, m)
	if err != nil {
		return s.cancelled(progress)
	}

	progress.setState(StateDone)
	notify.Status(fmt.Sprintf("Found %d duplicate groups.", len(groups)))
	slog.Info("scan finished",
		"method", m.Name(),
		"candidates", len(candidates),
		"failed", progress.Failed.Load(),
		"groups", len(groups))
	return Outcome{State: StateDone, Groups: groups}
}

func (s *Scanner) cancelled(progress *Progress) Outcome {
	progress.setState(StateCancelled)
	slog.Info("scan cancelled")
	return Outcome{State: StateCancelled}
}

// extractInline hashes every candidate on the orchestrator goroutine,
// checking cancellation between files.
func (s *Scanner) extractInline(ctx context.Context, m method.Method, sess *session, progress *Progress, notify Notifier) error {
	total := len(sess.order)
	for i, p := range sess.order {
		if err := ctx.Err(); err != nil {
			return err
		}
		sig, err := safeExtract(m, p)
		if err != nil {
			progress.Failed.Add(1)
			slog.Debug("signature failed", "path", p, "error", err)
		} else {
			sess.put(p, sig)
		}
		done := i + 1
		progress.Processed.Store(int64(done))
		if done%progressInterval == 0 || done == total {
			notify.Progress(done, total)
		}
	}
	return nil
}

// safeExtract converts a panicking extractor into a per-file failure so one
// bad image cannot take down the scan.
func safeExtract(m method.Method, path string) (sig method.Signature, err error) {
	defer func() {
		if r := recover(); r != nil {
			sig, err = nil, fmt.Errorf("extract %s: %v", path, r)
		}
	}()
	return m.Extract(path)
}
