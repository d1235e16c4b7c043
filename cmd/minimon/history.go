package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/minimon/internal/config"
	"github.com/garrettladley/minimon/internal/history"
	"github.com/garrettladley/minimon/internal/paths"
)

func historyCmd() *cobra.Command {
	var (
		hours int
		prune bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded glucose samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if hours < 1 {
				return fmt.Errorf("hours must be positive, got %d", hours)
			}

			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			path, err := paths.History(cfg.History.Path)
			if err != nil {
				return err
			}

			store, err := history.Open(ctx, path)
			if err != nil {
				return fmt.Errorf("failed to open history: %w", err)
			}
			defer func() { _ = store.Close() }()

			if prune {
				n, err := store.Prune(ctx, time.Now().Add(-cfg.History.Retention))
				if err != nil {
					return fmt.Errorf("failed to prune history: %w", err)
				}
				fmt.Printf("Pruned %d samples older than %s\n", n, cfg.History.Retention)
			}

			samples, err := store.Since(ctx, time.Now().Add(-time.Duration(hours)*time.Hour))
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			for _, s := range samples {
				fmt.Printf("%s  %3d mg/dL\n", s.SampledAt.Local().Format("2006-01-02 15:04"), s.Value)
			}
			fmt.Printf("%d samples in the last %d hours\n", len(samples), hours)

			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 24, "how far back to print")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete samples past the retention window first")

	return cmd
}
