package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvsync/internal/source"
	"csvsync/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		path := fileFlag
		if path == "" && a.cfg.CSV.AutoFindLatest {
			found, _, err := source.FindLatest(a.cfg.CSV.ScanDirectory, a.cfg.CSV.FilePattern)
			if err != nil {
				return err
			}
			if found == "" {
				a.log.Info("no source file found, nothing to do",
					zap.String("dir", a.cfg.CSV.ScanDirectory),
					zap.String("pattern", a.cfg.CSV.FilePattern))
				return nil
			}
			path = found
		}
		if path == "" {
			a.log.Info("no source file configured, nothing to do")
			return nil
		}

		eng := syncer.New(a.store, a.log, engineOptions(a.cfg))
		_, err = eng.SyncFile(ctx, path)
		return err
	},
}

func init() {
	syncCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "sync this file instead of discovering the latest one")
	syncCmd.Flags().StringVarP(&tableFlag, "table", "t", "", "target table (default from configuration)")
}
