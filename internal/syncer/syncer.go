// Package syncer implements the incremental sync engine: ensure the target
// table exists, load the stored fingerprint set, stream rows from the
// source, and write the rows whose fingerprints are not yet present.
package syncer

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"csvsync/internal/fingerprint"
	"csvsync/internal/metrics"
	"csvsync/internal/schema"
	"csvsync/internal/source"
	"csvsync/internal/storage"
)

// State is the engine's position in a sync pass.
type State int

const (
	StateIdle State = iota
	StateSchemaEnsuring
	StateHashesLoading
	StateRowsScanning
	StateRowsWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSchemaEnsuring:
		return "schema_ensuring"
	case StateHashesLoading:
		return "hashes_loading"
	case StateRowsScanning:
		return "rows_scanning"
	case StateRowsWriting:
		return "rows_writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options tune one engine instance.
type Options struct {
	// Table is the target table name.
	Table string

	// BatchSize bounds each insert statement; 1000 when <= 0.
	BatchSize int

	// SampleRows bounds the schema-inference sample; 10 when <= 0.
	SampleRows int

	// AutoCreateTable materializes the inferred schema when the table is
	// absent. When false, a missing table is fatal.
	AutoCreateTable bool

	// Limits bound inferred text lengths and decimal precision.
	Limits schema.Limits

	// Separator and Encoding are passed through to the CSV reader.
	Separator rune
	Encoding  string
}

func (o Options) batchSize() int {
	if o.BatchSize <= 0 {
		return 1000
	}
	return o.BatchSize
}

// Result summarizes one sync pass.
type Result struct {
	Inserted int64
	Skipped  int64
	Failed   int64
	Source   string
	Table    string
	Duration time.Duration
}

// Engine runs sync passes against one store and one target table. It is not
// safe for concurrent use; one pass runs at a time.
type Engine struct {
	store storage.Store
	log   *zap.Logger
	opt   Options
	state State
}

func New(store storage.Store, log *zap.Logger, opt Options) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log, opt: opt}
}

// State returns the engine's current state.
func (e *Engine) State() State { return e.state }

func (e *Engine) transition(s State) {
	e.log.Debug("state transition",
		zap.String("from", e.state.String()),
		zap.String("to", s.String()))
	e.state = s
}

// SyncFile runs one full pass over path. A missing source file is a no-op
// returning a zero Result, not an error. Connection and schema failures
// abort the pass; per-row failures are logged and skipped.
func (e *Engine) SyncFile(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	res := Result{Source: path, Table: e.opt.Table}

	fail := func(err error) (Result, error) {
		e.transition(StateFailed)
		return res, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			e.log.Info("source file absent, nothing to sync", zap.String("path", path))
			e.transition(StateDone)
			return res, nil
		}
		return fail(fmt.Errorf("stat source %s: %w", path, err))
	}

	opt := source.Options{Path: path, Separator: e.opt.Separator, Encoding: e.opt.Encoding}

	e.transition(StateSchemaEnsuring)
	spec, err := e.ensureSchema(ctx, opt)
	if err != nil {
		return fail(err)
	}

	e.transition(StateHashesLoading)
	seen, err := e.store.Fingerprints(ctx, e.opt.Table)
	if err != nil {
		return fail(err)
	}
	e.log.Debug("loaded stored fingerprints",
		zap.String("table", e.opt.Table),
		zap.Int("count", len(seen)))

	e.transition(StateRowsScanning)
	columns := append(spec.ColumnNames(), schema.FingerprintColumn)
	batch := make([][]any, 0, e.opt.batchSize())

	scanErr := source.Scan(opt, func(line int, row []string) error {
		hash := fingerprint.Sum(row)
		if _, ok := seen[hash]; ok {
			res.Skipped++
			return nil
		}
		// Marking the fingerprint seen here also collapses duplicates
		// within the file itself to a single insert.
		seen[hash] = struct{}{}

		values := make([]any, 0, len(columns))
		for i, col := range spec.Columns {
			values = append(values, col.Coerce(row[i]))
		}
		values = append(values, hash)
		batch = append(batch, values)

		if len(batch) >= e.opt.batchSize() {
			e.transition(StateRowsWriting)
			if err := e.flush(ctx, columns, batch, &res); err != nil {
				return err
			}
			batch = batch[:0]
			e.transition(StateRowsScanning)
		}
		return nil
	}, func(line int, err error) {
		res.Failed++
		e.log.Warn("skipping malformed row",
			zap.String("path", path),
			zap.Int("line", line),
			zap.Error(err))
	})
	if scanErr != nil {
		return fail(scanErr)
	}

	if len(batch) > 0 {
		e.transition(StateRowsWriting)
		if err := e.flush(ctx, columns, batch, &res); err != nil {
			return fail(err)
		}
	}

	res.Duration = time.Since(start)
	e.transition(StateDone)
	e.log.Info("sync pass complete",
		zap.String("source", path),
		zap.String("table", e.opt.Table),
		zap.Int64("inserted", res.Inserted),
		zap.Int64("skipped", res.Skipped),
		zap.Int64("failed", res.Failed),
		zap.Duration("duration", res.Duration))

	metrics.AddCounter("csvsync.rows.inserted", float64(res.Inserted), "table:"+e.opt.Table)
	metrics.AddCounter("csvsync.rows.skipped", float64(res.Skipped), "table:"+e.opt.Table)
	metrics.AddCounter("csvsync.rows.failed", float64(res.Failed), "table:"+e.opt.Table)
	metrics.ObserveDuration("csvsync.sync.duration_seconds", res.Duration.Seconds(), "table:"+e.opt.Table)

	return res, nil
}

// ensureSchema infers the table spec from a sample of the source and
// materializes it when auto-create is enabled. The spec is needed on every
// pass regardless, for column names and value coercion.
func (e *Engine) ensureSchema(ctx context.Context, opt source.Options) (schema.TableSpec, error) {
	headers, sample, err := source.ReadSample(opt, e.opt.SampleRows)
	if err != nil {
		return schema.TableSpec{}, fmt.Errorf("sample source %s: %w", opt.Path, err)
	}

	spec, err := schema.Build(e.opt.Table, headers, sample, e.opt.Limits)
	if err != nil {
		return schema.TableSpec{}, err
	}

	exists, err := e.store.TableExists(ctx, e.opt.Table)
	if err != nil {
		return schema.TableSpec{}, err
	}

	switch {
	case exists:
		// Created once, never altered.
	case e.opt.AutoCreateTable:
		e.log.Info("creating target table",
			zap.String("table", e.opt.Table),
			zap.Int("columns", len(spec.Columns)))
		if err := e.store.EnsureTable(ctx, spec); err != nil {
			return schema.TableSpec{}, err
		}
	default:
		return schema.TableSpec{}, fmt.Errorf("table %q does not exist and auto-create is disabled", e.opt.Table)
	}

	return spec, nil
}

// flush writes one batch. A failed batch is retried row by row so a single
// bad row cannot sink its neighbours; rows that still fail are logged and
// skipped. If every row of the batch fails individually the pass is aborted
// rather than silently dropping the whole file (the usual cause is a source
// whose columns no longer match the table).
func (e *Engine) flush(ctx context.Context, columns []string, batch [][]any, res *Result) error {
	n, err := e.store.InsertIgnoringDuplicates(ctx, e.opt.Table, columns, batch)
	if err == nil {
		res.Inserted += n
		res.Skipped += int64(len(batch)) - n
		return nil
	}

	e.log.Warn("batch insert failed, retrying row by row",
		zap.String("table", e.opt.Table),
		zap.Int("batch_size", len(batch)),
		zap.Error(err))

	var failed int64
	for _, row := range batch {
		n, err := e.store.InsertIgnoringDuplicates(ctx, e.opt.Table, columns, [][]any{row})
		if err != nil {
			failed++
			res.Failed++
			e.log.Warn("skipping row", zap.String("table", e.opt.Table), zap.Error(err))
			continue
		}
		res.Inserted += n
		res.Skipped += 1 - n
	}

	if failed == int64(len(batch)) {
		return fmt.Errorf("no row of a %d-row batch could be inserted into %q: %w", len(batch), e.opt.Table, err)
	}
	return nil
}
