// Command csvsync synchronizes CSV files into a relational table, inferring
// the table schema from the data and skipping rows already imported.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvsync/internal/config"
	"csvsync/internal/logging"
	"csvsync/internal/metrics"
	"csvsync/internal/metrics/datadog"
	"csvsync/internal/schema"
	"csvsync/internal/storage"
	_ "csvsync/internal/storage/all"
	"csvsync/internal/syncer"
)

var (
	configPath string
	tableFlag  string
	fileFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "csvsync",
	Short:         "Sync CSV files into a database table",
	Long:          "csvsync infers a table schema from CSV sample data and incrementally\nloads new rows, using per-row fingerprints to skip rows already imported.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	rootCmd.AddCommand(syncCmd, watchCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, config.ErrConfigCreated) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the collaborators every command needs.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store storage.Store

	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, flush, err := logging.New(logging.Options{
		Level:  cfg.LogLevel(),
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, flush)

	if cfg.Metrics.Backend == "datadog" {
		b, err := datadog.NewBackend(ctx, datadog.Options{
			FlushEvery: cfg.Metrics.FlushInterval,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		metrics.SetBackend(b)
		a.closers = append(a.closers, func() { _ = metrics.Close() })
	}

	store, err := storage.New(ctx, storage.Config{Kind: cfg.Database.Driver, DSN: cfg.DSN()})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to %s database: %w", cfg.Database.Driver, err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	log.Debug("connected",
		zap.String("driver", cfg.Database.Driver),
		zap.String("database", cfg.Database.Database))
	return a, nil
}

// engineOptions maps the validated configuration onto the sync engine.
func engineOptions(cfg *config.Config) syncer.Options {
	table := tableFlag
	if table == "" {
		table = cfg.CSV.DefaultTableName
	}
	return syncer.Options{
		Table:           table,
		BatchSize:       cfg.Monitor.BatchSize,
		SampleRows:      cfg.CSV.SampleRows,
		AutoCreateTable: cfg.Monitor.AutoCreateTable,
		Limits: schema.Limits{
			TextMax:          cfg.DataTypes.VarcharLength,
			DecimalPrecision: cfg.DataTypes.DecimalPrecision,
			DecimalScale:     cfg.DataTypes.DecimalScale,
		},
		Separator: cfg.SeparatorRune(),
		Encoding:  cfg.CSV.Encoding,
	}
}
