package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/minimon/internal/config"
	"github.com/garrettladley/minimon/internal/credentials"
)

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Show the stored CareLink credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read()
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			store := credentials.NewStore(cfg.TokenFile)
			creds, err := store.Load()
			if errors.Is(err, credentials.ErrNotFound) {
				fmt.Printf("No credentials stored at %s\n", store.Path())
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load credentials: %w", err)
			}

			token := creds.Token()

			fmt.Printf("File:          %s\n", store.Path())
			fmt.Printf("Client ID:     %s\n", creds.ClientID)
			fmt.Printf("Refresh Token: %t\n", token.RefreshToken != "")

			switch {
			case token.Expiry.IsZero():
				fmt.Printf("Expiry:        none\n")
			case token.Expiry.Before(time.Now()):
				fmt.Printf("Expiry:        %s\n", token.Expiry.Format(time.RFC3339))
				fmt.Printf("Status:        EXPIRED\n")
			default:
				fmt.Printf("Expiry:        %s\n", token.Expiry.Format(time.RFC3339))
				fmt.Printf("Status:        Valid (expires in %s)\n", time.Until(token.Expiry).Round(time.Second))
			}

			return nil
		},
	}
}
