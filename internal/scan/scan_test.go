package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tmarcus/lookalike/internal/config"
	"github.com/tmarcus/lookalike/internal/method"
)

// fixedEnum returns a canned candidate list and records whether it was asked.
type fixedEnum struct {
	paths  []string
	err    error
	called atomic.Bool
}

func (e *fixedEnum) List(ctx context.Context, root string, exts []string, recursive bool) ([]string, error) {
	e.called.Store(true)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.paths, e.err
}

// stubMethod signs every path with its own name and delegates matching to a
// pairwise predicate keyed by path.
type stubMethod struct {
	name    string
	match   func(a, b string) bool
	extract func(path string) (method.Signature, error)
}

func (m stubMethod) Name() string { return m.name }

func (m stubMethod) Extract(path string) (method.Signature, error) {
	if m.extract != nil {
		return m.extract(path)
	}
	return method.ContentDigest(path), nil
}

func (m stubMethod) Matches(a, b method.Signature) bool {
	return m.match(string(a.(method.ContentDigest)), string(b.(method.ContentDigest)))
}

func stubResolver(m method.Method) Resolver {
	return func(name string) (method.Method, error) {
		if name != m.Name() {
			return nil, fmt.Errorf("%w: %q", method.ErrUnknownMethod, name)
		}
		return m, nil
	}
}

// realResolver builds production methods with default thresholds.
func realResolver(name string) (method.Method, error) {
	return method.New(name, config.DefaultThresholds(), method.Options{})
}

// recordingNotifier captures status and progress emissions.
type recordingNotifier struct {
	mu       sync.Mutex
	statuses []string
	progress [][2]int
}

func (n *recordingNotifier) Status(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, text)
}

func (n *recordingNotifier) Progress(done, total int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.progress = append(n.progress, [2]int{done, total})
}

// TestExactScanGroupsIdenticalFiles is the basic end-to-end: two
// byte-identical files and one odd one out, method=exact.
func TestExactScanGroupsIdenticalFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "b.jpg")
	c := filepath.Join(dir, "c.jpg")
	_ = os.WriteFile(a, []byte("identical content"), 0644)
	_ = os.WriteFile(b, []byte("identical content"), 0644)
	_ = os.WriteFile(c, []byte("something else"), 0644)

	s := New(&fixedEnum{paths: []string{a, b, c}}, realResolver, 2)
	out := s.Run(context.Background(), Request{Directory: dir, Method: method.Exact}, nil, nil)

	if out.State != StateDone {
		t.Fatalf("state: got %v, want done (err=%v)", out.State, out.Err)
	}
	if len(out.Groups) != 1 {
		t.Fatalf("groups: got %d, want 1: %v", len(out.Groups), out.Groups)
	}
	for key, paths := range out.Groups {
		if len(paths) != 2 {
			t.Errorf("group %s: got %v, want the two identical files", key, paths)
		}
		sort.Strings(paths)
		if paths[0] != a || paths[1] != b {
			t.Errorf("group %s: got %v, want [%s %s]", key, paths, a, b)
		}
	}
}

// TestUnknownMethodFailsBeforeWork verifies resolution happens before any
// enumeration or dispatch.
func TestUnknownMethodFailsBeforeWork(t *testing.T) {
	enum := &fixedEnum{paths: []string{"/x.jpg"}}
	s := New(enum, realResolver, 1)

	out := s.Run(context.Background(), Request{Directory: "/tmp", Method: "turbo"}, nil, nil)
	if out.State != StateFailed {
		t.Fatalf("state: got %v, want failed", out.State)
	}
	if !errors.Is(out.Err, method.ErrUnknownMethod) {
		t.Errorf("err: got %v, want ErrUnknownMethod", out.Err)
	}
	if enum.called.Load() {
		t.Error("enumerator ran for an unknown method")
	}
}

// TestSeedToRestClustering covers the documented grouping scenario:
// d(a,b)=3, d(a,c)=10, d(b,c)=10 with threshold 5 and seed order a,b,c
// yields {a,b}; c is a singleton and is dropped.
func TestSeedToRestClustering(t *testing.T) {
	near := map[string]bool{"a|b": true, "b|a": true}
	m := stubMethod{name: "phash", match: func(x, y string) bool { return x == y || near[x+"|"+y] }}

	s := New(&fixedEnum{paths: []string{"a", "b", "c"}}, stubResolver(m), 2)
	out := s.Run(context.Background(), Request{Method: "phash"}, nil, nil)

	if out.State != StateDone {
		t.Fatalf("state: got %v (err=%v)", out.State, out.Err)
	}
	if len(out.Groups) != 1 {
		t.Fatalf("groups: got %v, want exactly one", out.Groups)
	}
	got := out.Groups["phash_0"]
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("phash_0: got %v, want [a b]", got)
	}
}

// TestNonTransitiveSeedCapture: b and c both match seed a but not each
// other — they still land in one group.
func TestNonTransitiveSeedCapture(t *testing.T) {
	near := map[string]bool{"a|b": true, "b|a": true, "a|c": true, "c|a": true}
	m := stubMethod{name: "phash", match: func(x, y string) bool { return near[x+"|"+y] }}

	s := New(&fixedEnum{paths: []string{"a", "b", "c"}}, stubResolver(m), 1)
	out := s.Run(context.Background(), Request{Method: "phash"}, nil, nil)

	if out.State != StateDone {
		t.Fatalf("state: got %v", out.State)
	}
	got := out.Groups["phash_0"]
	if len(got) != 3 {
		t.Errorf("expected all of a,b,c in one group, got %v", out.Groups)
	}
}

// TestGroupsNeverContainSingletons: no pair matches, so no groups at all.
func TestGroupsNeverContainSingletons(t *testing.T) {
	m := stubMethod{name: "phash", match: func(x, y string) bool { return false }}
	s := New(&fixedEnum{paths: []string{"a", "b", "c", "d"}}, stubResolver(m), 2)

	out := s.Run(context.Background(), Request{Method: "phash"}, nil, nil)
	if out.State != StateDone {
		t.Fatalf("state: got %v", out.State)
	}
	if len(out.Groups) != 0 {
		t.Errorf("expected no groups, got %v", out.Groups)
	}
	for key, paths := range out.Groups {
		if len(paths) < 2 {
			t.Errorf("group %s has size %d", key, len(paths))
		}
	}
}

// TestExtractionFailuresAreLocal: paths whose extraction fails simply drop
// out of the cache; the rest of the scan proceeds.
func TestExtractionFailuresAreLocal(t *testing.T) {
	m := stubMethod{
		name:  "phash",
		match: func(x, y string) bool { return true },
		extract: func(path string) (method.Signature, error) {
			if path == "bad" {
				return nil, errors.New("unreadable")
			}
			return method.ContentDigest(path), nil
		},
	}
	progress := &Progress{}
	s := New(&fixedEnum{paths: []string{"a", "bad", "b"}}, stubResolver(m), 2)

	out := s.Run(context.Background(), Request{Method: "phash"}, progress, nil)
	if out.State != StateDone {
		t.Fatalf("state: got %v (err=%v)", out.State, out.Err)
	}
	got := out.Groups["phash_0"]
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("group: got %v, want [a b]", got)
	}
	if progress.Failed.Load() != 1 {
		t.Errorf("failed counter: got %d, want 1", progress.Failed.Load())
	}
	if progress.Processed.Load() != 3 {
		t.Errorf("processed counter: got %d, want 3 (failures still count)", progress.Processed.Load())
	}
}

// TestPanicInExtractorBecomesFailure: a panicking task is converted to a
// per-file failure at the task boundary, never an engine crash.
func TestPanicInExtractorBecomesFailure(t *testing.T) {
	m := stubMethod{
		name:  "phash",
		match: func(x, y string) bool { return true },
		extract: func(path string) (method.Signature, error) {
			if path == "boom" {
				panic("corrupt decoder state")
			}
			return method.ContentDigest(path), nil
		},
	}
	s := New(&fixedEnum{paths: []string{"a", "boom", "b"}}, stubResolver(m), 2)

	out := s.Run(context.Background(), Request{Method: "phash"}, nil, nil)
	if out.State != StateDone {
		t.Fatalf("state: got %v (err=%v)", out.State, out.Err)
	}
	if got := out.Groups["phash_0"]; len(got) != 2 {
		t.Errorf("group: got %v, want the two surviving paths", got)
	}
}

// TestProgressEmittedEveryFiveAndFinal: 12 candidates produce progress
// reports at 5, 10, and 12.
func TestProgressEmittedEveryFiveAndFinal(t *testing.T) {
	var paths []string
	for i := 0; i < 12; i++ {
		paths = append(paths, fmt.Sprintf("p%02d", i))
	}
	m := stubMethod{name: "phash", match: func(x, y string) bool { return false }}
	notify := &recordingNotifier{}

	s := New(&fixedEnum{paths: paths}, stubResolver(m), 3)
	out := s.Run(context.Background(), Request{Method: "phash"}, nil, notify)
	if out.State != StateDone {
		t.Fatalf("state: got %v", out.State)
	}

	want := [][2]int{{5, 12}, {10, 12}, {12, 12}}
	if len(notify.progress) != len(want) {
		t.Fatalf("progress emissions: got %v, want %v", notify.progress, want)
	}
	for i, p := range notify.progress {
		if p != want[i] {
			t.Errorf("emission %d: got %v, want %v", i, p, want[i])
		}
	}
}

// TestIdempotentGroupSets: scanning the same fixed tree twice yields the
// same path sets, whatever the ordinal keys.
func TestIdempotentGroupSets(t *testing.T) {
	near := map[string]bool{"a|b": true, "b|a": true, "c|d": true, "d|c": true}
	m := stubMethod{name: "phash", match: func(x, y string) bool { return near[x+"|"+y] }}
	s := New(&fixedEnum{paths: []string{"a", "b", "c", "d"}}, stubResolver(m), 2)

	collect := func() []string {
		out := s.Run(context.Background(), Request{Method: "phash"}, nil, nil)
		if out.State != StateDone {
			t.Fatalf("state: got %v", out.State)
		}
		var sets []string
		for _, paths := range out.Groups {
			p := append([]string(nil), paths...)
			sort.Strings(p)
			sets = append(sets, fmt.Sprint(p))
		}
		sort.Strings(sets)
		return sets
	}

	first := collect()
	second := collect()
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("group sets differ between runs: %v vs %v", first, second)
	}
}

// TestCancellationDuringExtraction: a stop requested after 2 of 10
// extractions yields Cancelled, no groups, and most dispatches suppressed.
func TestCancellationDuringExtraction(t *testing.T) {
	var paths []string
	for i := 0; i < 10; i++ {
		paths = append(paths, fmt.Sprintf("p%d", i))
	}

	var started atomic.Int32
	twoStarted := make(chan struct{})
	proceed := make(chan struct{})
	m := stubMethod{
		name:  "phash",
		match: func(x, y string) bool { return true },
		extract: func(path string) (method.Signature, error) {
			if started.Add(1) == 2 {
				close(twoStarted)
			}
			<-proceed
			return method.ContentDigest(path), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(&fixedEnum{paths: paths}, stubResolver(m), 2)

	outCh := make(chan Outcome, 1)
	go func() {
		outCh <- s.Run(ctx, Request{Method: "phash"}, nil, nil)
	}()

	select {
	case <-twoStarted:
	case <-time.After(3 * time.Second):
		t.Fatal("extractions never started")
	}
	cancel()
	close(proceed)

	var out Outcome
	select {
	case out = <-outCh:
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if out.State != StateCancelled {
		t.Fatalf("state: got %v, want cancelled", out.State)
	}
	if out.Groups != nil {
		t.Errorf("cancelled scan produced groups: %v", out.Groups)
	}
	// With 2 workers, at most the in-flight pair plus one racing dispatch
	// can have started; the rest must never execute.
	if n := started.Load(); n > 4 {
		t.Errorf("extractions started after cancel: %d of 10", n)
	}
}

// TestCancellationBeforeEnumeration: a pre-cancelled context never reaches
// grouping.
func TestCancellationBeforeEnumeration(t *testing.T) {
	m := stubMethod{name: "phash", match: func(x, y string) bool { return true }}
	s := New(&fixedEnum{paths: []string{"a", "b"}}, stubResolver(m), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := s.Run(ctx, Request{Method: "phash"}, nil, nil)
	if out.State != StateCancelled {
		t.Errorf("state: got %v, want cancelled", out.State)
	}
}

// TestExactSkipsWorkerPool: the inline path must work with zero workers
// configured, proving no pool is involved.
func TestExactSkipsWorkerPool(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.bin")
	b := filepath.Join(dir, "b.bin")
	_ = os.WriteFile(a, []byte("dup"), 0644)
	_ = os.WriteFile(b, []byte("dup"), 0644)

	// Workers value is irrelevant for exact; the scan must still finish.
	s := New(&fixedEnum{paths: []string{a, b}}, realResolver, 1)
	out := s.Run(context.Background(), Request{Method: method.Exact}, nil, nil)
	if out.State != StateDone || len(out.Groups) != 1 {
		t.Errorf("exact scan: state=%v groups=%v", out.State, out.Groups)
	}
}

// TestSessionCacheWriteOnce verifies the first signature for a path wins.
func TestSessionCacheWriteOnce(t *testing.T) {
	sess := newSession([]string{"a"})
	sess.put("a", method.ContentDigest("first"))
	sess.put("a", method.ContentDigest("second"))
	if got := sess.cache["a"]; got != method.ContentDigest("first") {
		t.Errorf("cache overwrite: got %v, want first", got)
	}
}
