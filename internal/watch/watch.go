// Package watch runs the sync engine in a single-threaded polling loop,
// re-syncing whenever the current source file changes.
package watch

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"csvsync/internal/source"
	"csvsync/internal/syncer"
)

// Syncer is the engine surface the loop drives.
type Syncer interface {
	SyncFile(ctx context.Context, path string) (syncer.Result, error)
}

// Options configure file resolution and polling cadence.
type Options struct {
	// Interval between polls; 30s when <= 0.
	Interval time.Duration

	// Path is a fixed source file. Used when AutoFindLatest is false.
	Path string

	// Dir and Pattern drive latest-file discovery when AutoFindLatest is
	// true. Pattern defaults to "*.csv".
	Dir     string
	Pattern string

	AutoFindLatest bool
}

func (o Options) interval() time.Duration {
	if o.Interval <= 0 {
		return 30 * time.Second
	}
	return o.Interval
}

// Loop polls for source changes and runs one sync at a time. Between
// iterations it retains only the last processed path and its modification
// time.
type Loop struct {
	sync Syncer
	log  *zap.Logger
	opt  Options

	lastPath string
	lastMod  time.Time
}

func New(sync Syncer, log *zap.Logger, opt Options) *Loop {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{sync: sync, log: log, opt: opt}
}

// Run polls until ctx is cancelled, which is a clean exit, not an error.
// Sync failures are logged and the loop keeps polling.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("watch loop started",
		zap.Duration("interval", l.opt.interval()),
		zap.Bool("auto_find_latest", l.opt.AutoFindLatest))

	for {
		l.poll(ctx)

		select {
		case <-ctx.Done():
			l.log.Info("watch loop interrupted, exiting")
			return nil
		case <-time.After(l.opt.interval()):
		}
	}
}

func (l *Loop) poll(ctx context.Context) {
	path, mod, err := l.resolve()
	if err != nil {
		l.log.Warn("resolving source file failed", zap.Error(err))
		return
	}
	if path == "" {
		l.log.Debug("no source file present")
		return
	}
	if path == l.lastPath && !mod.After(l.lastMod) {
		return
	}

	res, err := l.sync.SyncFile(ctx, path)
	if err != nil {
		l.log.Error("sync failed", zap.String("path", path), zap.Error(err))
		return
	}

	l.lastPath = path
	l.lastMod = mod
	l.log.Info("change synced",
		zap.String("path", path),
		zap.Int64("inserted", res.Inserted),
		zap.Int64("skipped", res.Skipped))
}

// resolve returns the current source file and its modification time; an
// empty path means there is nothing to sync yet.
func (l *Loop) resolve() (string, time.Time, error) {
	if l.opt.AutoFindLatest {
		return source.FindLatest(l.opt.Dir, l.opt.Pattern)
	}

	fi, err := os.Stat(l.opt.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", time.Time{}, nil
		}
		return "", time.Time{}, err
	}
	return l.opt.Path, fi.ModTime(), nil
}
