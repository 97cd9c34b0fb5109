package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"csvsync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file if none exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.Load(configPath)
		switch {
		case errors.Is(err, config.ErrConfigCreated):
			fmt.Printf("Wrote default configuration to %s\n", configPath)
			return nil
		case err != nil:
			return err
		default:
			fmt.Fprintf(os.Stderr, "%s already exists, leaving it untouched\n", configPath)
			return nil
		}
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fmt.Printf("driver:      %s\n", cfg.Database.Driver)
		fmt.Printf("database:    %s\n", cfg.Database.Database)
		fmt.Printf("table:       %s\n", cfg.CSV.DefaultTableName)
		fmt.Printf("scan dir:    %s (%s)\n", cfg.CSV.ScanDirectory, cfg.CSV.FilePattern)
		fmt.Printf("interval:    %s\n", cfg.Monitor.CheckInterval)
		fmt.Printf("auto create: %v\n", cfg.Monitor.AutoCreateTable)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
}
