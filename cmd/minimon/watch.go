package main

import (
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/garrettladley/minimon/internal/client/dashboard"
	"github.com/garrettladley/minimon/internal/config"
	"github.com/garrettladley/minimon/internal/tui"
)

func watchCmd() *cobra.Command {
	var (
		serverURL string
		interval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Launch the terminal dashboard",
		Long:  "Opens a full-screen terminal view of a running minimon server.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if serverURL == "" {
				cfg, err := config.Read()
				if err != nil {
					return fmt.Errorf("failed to read config: %w", err)
				}
				serverURL = "http://localhost:" + cfg.Port
			}

			model := tui.New(tui.Deps{
				Ctx:      cmd.Context(),
				Client:   dashboard.New(serverURL, 10*time.Second),
				Interval: interval,
			})

			p := tea.NewProgram(&model)

			if _, err := p.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "url", "", "dashboard server URL (default http://localhost:$PORT)")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "refresh interval")

	return cmd
}
