package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formloom/formloom/internal/config"
	"github.com/formloom/formloom/internal/store"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show dashboard URL with access token",
	Long: `Show the dashboard URL with your access token.

Use this when you've scrolled past the startup message or need to
share the dashboard link.

Example:
  formloom token`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	return withStore(func(cfg *config.Config, s *store.SQLStore) error {
		data, err := os.ReadFile(tokenFilePath(cfg))
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("no server running. Start with: formloom serve")
			}
			return fmt.Errorf("failed to read token file: %w", err)
		}

		token := string(data)
		if token == "" {
			return fmt.Errorf("token file is empty. Restart the server with: formloom serve")
		}

		serverURL := cfg.Server.PublicURL
		if serverURL == "" {
			serverURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
		}

		fmt.Printf("%s/dashboard?token=%s\n", serverURL, token)
		return nil
	})
}
