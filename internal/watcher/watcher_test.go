package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(target, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w, err := NewWatcher([]string{target}, rec.record, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for _, v := range []string{"v1", "v2", "v3"} {
		if err := os.WriteFile(target, []byte(v), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !waitFor(t, 2*time.Second, func() bool { return len(rec.snapshot()) > 0 }) {
		t.Fatal("onChange was not called")
	}
	time.Sleep(250 * time.Millisecond)
	got := rec.snapshot()
	if len(got) != 1 {
		t.Errorf("expected one debounced call, got %d: %v", len(got), got)
	}
	if got[0] != filepath.Clean(target) {
		t.Errorf("path = %q, want %q", got[0], target)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(target, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w, err := NewWatcher([]string{target}, rec.record, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("unexpected calls: %v", got)
	}
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(target, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	w, err := NewWatcher([]string{target}, rec.record, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	tmp := filepath.Join(dir, ".doc.txt.swp")
	if err := os.WriteFile(tmp, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { return len(rec.snapshot()) > 0 }) {
		t.Fatal("onChange was not called after rename")
	}
}

func TestWatcher_StartMissingDirectory(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "nope", "doc.txt")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err == nil {
		w.Stop()
		t.Fatal("expected error for missing directory")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "doc.txt")
	w, err := NewWatcher([]string{target}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}

func TestRebuilder(t *testing.T) {
	var calls atomic.Int32
	var gotKey, gotPath atomic.Value
	build := func(ctx context.Context, key, path string) error {
		calls.Add(1)
		gotKey.Store(key)
		gotPath.Store(path)
		if path == "bad" {
			return errors.New("extract failed")
		}
		return nil
	}
	onChange := Rebuilder(context.Background(), "test", build, nil)
	onChange("/docs/a.txt")
	onChange("bad")
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if gotKey.Load() != "test" || gotPath.Load() != "bad" {
		t.Errorf("last call = %v %v", gotKey.Load(), gotPath.Load())
	}

}
