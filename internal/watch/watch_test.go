package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"csvsync/internal/syncer"
)

type recordingSyncer struct {
	calls []string
	err   error
}

func (r *recordingSyncer) SyncFile(_ context.Context, path string) (syncer.Result, error) {
	r.calls = append(r.calls, path)
	return syncer.Result{Inserted: 1}, r.err
}

func touch(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestPoll_SyncsOnlyOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	base := time.Now().Add(-time.Hour)
	touch(t, path, base)

	rec := &recordingSyncer{}
	l := New(rec, nil, Options{Path: path})
	ctx := context.Background()

	l.poll(ctx)
	l.poll(ctx) // unchanged, no second sync
	if len(rec.calls) != 1 {
		t.Fatalf("sync calls = %d, want 1", len(rec.calls))
	}

	touch(t, path, base.Add(time.Minute))
	l.poll(ctx)
	if len(rec.calls) != 2 {
		t.Fatalf("sync calls after touch = %d, want 2", len(rec.calls))
	}
}

func TestPoll_MissingFixedPathIsQuiet(t *testing.T) {
	t.Parallel()

	rec := &recordingSyncer{}
	l := New(rec, nil, Options{Path: filepath.Join(t.TempDir(), "absent.csv")})

	l.poll(context.Background())
	if len(rec.calls) != 0 {
		t.Fatalf("sync calls = %d, want 0", len(rec.calls))
	}
}

func TestPoll_AutoFindLatestPicksNewestFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := filepath.Join(dir, "old.csv")
	cur := filepath.Join(dir, "new.csv")
	touch(t, old, time.Now().Add(-2*time.Hour))
	touch(t, cur, time.Now().Add(-time.Hour))

	rec := &recordingSyncer{}
	l := New(rec, nil, Options{AutoFindLatest: true, Dir: dir})

	l.poll(context.Background())
	if len(rec.calls) != 1 || rec.calls[0] != cur {
		t.Fatalf("sync calls = %v, want [%s]", rec.calls, cur)
	}

	// A newer file appearing triggers another sync.
	newer := filepath.Join(dir, "newer.csv")
	touch(t, newer, time.Now())
	l.poll(context.Background())
	if len(rec.calls) != 2 || rec.calls[1] != newer {
		t.Fatalf("sync calls = %v, want second call for %s", rec.calls, newer)
	}
}

func TestPoll_SyncFailureDoesNotAdvanceState(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	touch(t, path, time.Now().Add(-time.Hour))

	rec := &recordingSyncer{err: errors.New("store down")}
	l := New(rec, nil, Options{Path: path})
	ctx := context.Background()

	l.poll(ctx)
	if len(rec.calls) != 1 {
		t.Fatalf("sync calls = %d, want 1", len(rec.calls))
	}

	// The failed file is retried on the next poll.
	rec.err = nil
	l.poll(ctx)
	if len(rec.calls) != 2 {
		t.Fatalf("sync calls = %d, want retry", len(rec.calls))
	}
}

func TestRun_ExitsCleanlyOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := New(&recordingSyncer{}, nil, Options{
		Path:     filepath.Join(t.TempDir(), "absent.csv"),
		Interval: time.Millisecond,
	})
	if err := l.Run(ctx); err != nil {
		t.Fatalf("Run returned %v on cancellation, want nil", err)
	}
}
