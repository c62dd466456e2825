package cli

import (
	"fmt"

	"github.com/juanjtov/bidmate/internal/config"
	"github.com/juanjtov/bidmate/internal/version"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show bidmate status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Bidmate %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Printf("Config:   %s\n", paths.Config)
			fmt.Printf("Sessions: %s\n", paths.Sessions)
			fmt.Printf("Logs:     %s\n", paths.Logs)
			fmt.Println()

			// Load config; a missing file just means defaults.
			cfg, err := config.Load(paths.Config)
			if err != nil {
				fmt.Printf("Config:   error loading: %v\n", err)
				return nil
			}

			// API config
			baseURL := cfg.API.BaseURL
			if baseURL == "" {
				baseURL = "(not configured)"
			}
			orgID := cfg.API.OrgID
			if orgID == "" {
				orgID = "(not configured)"
			}
			token := "set"
			if cfg.API.Token == "" {
				token = "(not set)"
			}
			fmt.Printf("API:      url=%s org=%s token=%s\n", baseURL, orgID, token)

			// Session config
			store := cfg.Session.Store
			if store == "" {
				store = "sqlite"
			}
			fmt.Printf("Session:  store=%s\n", store)

			// Search config
			fmt.Printf("Search:   debounce=%s\n", cfg.SearchDebounce())

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
