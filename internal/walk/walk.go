// Package walk enumerates candidate images under a directory tree.
package walk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// dirQueue is an unbounded, concurrency-safe queue of directory paths.
// It tracks a pending counter so that List() knows when all work is done.
//
// Termination protocol:
//   - Push increments pending BEFORE enqueuing (caller must own the increment).
//   - Done decrements pending AFTER all children of a directory have been
//     pushed. When pending reaches 0, Done closes the queue and broadcasts.
type dirQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []string
	head    int // index of the next item to pop; avoids O(n) re-slicing
	pending atomic.Int64
	closed  bool
}

func newDirQueue() *dirQueue {
	q := &dirQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a directory. Must be called after incrementing pending.
func (q *dirQueue) Push(dir string) {
	q.mu.Lock()
	q.items = append(q.items, dir)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop blocks until an item is available or the queue is closed.
// Returns ("", false) when the queue is closed and empty.
func (q *dirQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.head >= len(q.items) && !q.closed {
		q.cond.Wait()
	}
	if q.head >= len(q.items) {
		return "", false
	}
	item := q.items[q.head]
	q.items[q.head] = "" // release string reference so GC can collect it
	q.head++
	if q.head >= 1000 && q.head >= len(q.items)/2 {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}

// Done must be called once per directory after all its child-directories have
// been pushed. Decrements pending; if pending reaches 0, closes the queue.
func (q *dirQueue) Done() {
	if q.pending.Add(-1) == 0 {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		q.cond.Broadcast()
	}
}

// Enumerator walks a directory tree concurrently and collects every regular
// file whose extension is in the configured set.
type Enumerator struct {
	// Workers is the number of concurrent directory readers. Zero means 4.
	Workers int
}

// List returns the absolute paths of all candidate images under root, sorted
// lexicographically so repeated scans of an unchanged tree see the same
// order. Extensions are matched case-insensitively and must include the dot.
// When recursive is false only root's immediate entries are considered.
// Unreadable directories are skipped, not fatal.
func (e *Enumerator) List(ctx context.Context, root string, extensions []string, recursive bool) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, err
	}

	exts := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[strings.ToLower(ext)] = struct{}{}
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 4
	}

	q := newDirQueue()
	q.pending.Add(1)
	q.Push(abs)

	var mu sync.Mutex
	var paths []string

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				dir, ok := q.Pop()
				if !ok {
					return
				}

				entries, err := os.ReadDir(dir)
				if err != nil {
					q.Done()
					continue
				}

				var found []string
				for _, entry := range entries {
					path := filepath.Join(dir, entry.Name())

					if entry.IsDir() {
						if recursive {
							// Increment BEFORE pushing so pending is never
							// zero prematurely.
							q.pending.Add(1)
							q.Push(path)
						}
						continue
					}
					if entry.Type()&fs.ModeSymlink != 0 {
						continue
					}
					if !entry.Type().IsRegular() {
						continue
					}
					if _, ok := exts[strings.ToLower(filepath.Ext(path))]; !ok {
						continue
					}
					found = append(found, path)
				}

				if len(found) > 0 {
					mu.Lock()
					paths = append(paths, found...)
					mu.Unlock()
				}
				q.Done()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
