package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"csvsync/internal/syncer"
	"csvsync/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously poll for source changes and sync them",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		eng := syncer.New(a.store, a.log, engineOptions(a.cfg))
		loop := watch.New(eng, a.log, watch.Options{
			Interval:       a.cfg.Monitor.CheckInterval,
			Path:           fileFlag,
			Dir:            a.cfg.CSV.ScanDirectory,
			Pattern:        a.cfg.CSV.FilePattern,
			AutoFindLatest: fileFlag == "" && a.cfg.CSV.AutoFindLatest,
		})
		return loop.Run(ctx)
	},
}

func init() {
	watchCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "watch this file instead of discovering the latest one")
	watchCmd.Flags().StringVarP(&tableFlag, "table", "t", "", "target table (default from configuration)")
}
