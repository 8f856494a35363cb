package scan

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tmarcus/lookalike/internal/method"
)

// progressInterval is how many completions pass between progress emissions,
// keeping a UI listener from being flooded. The final completion always
// emits.
const progressInterval = 5

type extraction struct {
	path string
	sig  method.Signature
	err  error
}

// aggregate runs one extraction task per candidate on a bounded worker pool
// and blocks until every task is accounted for or ctx is cancelled.
//
// Only this goroutine touches the session cache: workers report through the
// results channel and never mutate shared state. The channel is buffered to
// the candidate count, so workers finishing after a cancellation park their
// late results there and exit instead of blocking.
func (s *Scanner) aggregate(ctx context.Context, m method.Method, sess *session, progress *Progress, notify Notifier) error {
	total := len(sess.order)
	if total == 0 {
		return nil
	}

	tasks := make(chan string)
	results := make(chan extraction, total)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for p := range tasks {
				sig, err := safeExtract(m, p)
				results <- extraction{path: p, sig: sig, err: err}
			}
			return nil
		})
	}

	// Dispatcher: cancellation is checked before each dispatch, so no new
	// work is queued once a stop is requested.
	go func() {
		defer close(tasks)
		for _, p := range sess.order {
			select {
			case tasks <- p:
			case <-gctx.Done():
				return
			}
		}
		progress.setState(StateAggregating)
	}()

	done := 0
	for done < total {
		select {
		case r := <-results:
			done++
			progress.Processed.Store(int64(done))
			if r.err != nil {
				progress.Failed.Add(1)
				slog.Debug("signature failed", "path", r.path, "error", r.err)
			} else {
				sess.put(r.path, r.sig)
			}
			if done%progressInterval == 0 || done == total {
				notify.Progress(done, total)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.Wait()
}
