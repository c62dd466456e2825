package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/juanjtov/bidmate/internal/api"
	"github.com/juanjtov/bidmate/internal/domain"
	"github.com/spf13/cobra"
)

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Browse and manage the conversation catalogue",
	}

	cmd.AddCommand(newConversationsListCmd())
	cmd.AddCommand(newConversationsSearchCmd())
	cmd.AddCommand(newConversationsShowCmd())
	cmd.AddCommand(newConversationsDeleteCmd())
	cmd.AddCommand(newConversationsSaveCmd())
	cmd.AddCommand(newConversationsExportCmd())

	return cmd
}

// newClient builds a bare API client for catalogue commands that don't need
// the full engine.
func newClient() (*api.Client, string, error) {
	cfg := loadConfigOrDefaults()
	if cfg.API.BaseURL == "" {
		return nil, "", fmt.Errorf("api.baseUrl is not configured")
	}
	if cfg.API.OrgID == "" {
		return nil, "", fmt.Errorf("api.orgId is not configured")
	}
	return api.NewClient(cfg.API.BaseURL, cfg.API.Token), cfg.API.OrgID, nil
}

func printCatalogue(cmd *cobra.Command, conversations []domain.Conversation) {
	if len(conversations) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no conversations")
		return
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tSAVED\tUPDATED")
	for _, c := range conversations {
		saved := ""
		if c.IsSaved {
			saved = "yes"
		}
		updated := ""
		if !c.UpdatedAt.IsZero() {
			updated = c.UpdatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", c.ID, c.DisplayTitle(), c.MessageCount, saved, updated)
	}
	w.Flush()
}

func newConversationsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, orgID, err := newClient()
			if err != nil {
				return err
			}
			conversations, err := client.ListConversations(context.Background(), orgID)
			if err != nil {
				return err
			}
			printCatalogue(cmd, conversations)
			return nil
		},
	}
}

func newConversationsSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversations by content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, orgID, err := newClient()
			if err != nil {
				return err
			}
			results, err := client.SearchConversations(context.Background(), orgID, args[0])
			if err != nil {
				return err
			}
			printCatalogue(cmd, results)
			return nil
		},
	}
}

func newConversationsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, orgID, err := newClient()
			if err != nil {
				return err
			}
			detail, err := client.GetConversation(context.Background(), orgID, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n\n", detail.DisplayTitle(), detail.ID)
			for _, m := range detail.Messages {
				fmt.Fprintf(out, "[%s] %s\n\n", m.Role, m.Content)
			}
			return nil
		},
	}
}

func newConversationsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Goes through the engine so deleting the remembered active
			// conversation also clears the stored session.
			eng, cleanup, err := newEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := context.Background()
			eng.Restore(ctx)
			if err := eng.DeleteConversation(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newConversationsSaveCmd() *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "save <id>",
		Short: "Mark a conversation as saved, optionally renaming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, orgID, err := newClient()
			if err != nil {
				return err
			}
			conv, err := client.SaveConversation(context.Background(), orgID, args[0], title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", conv.ID, conv.DisplayTitle())
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new conversation title")
	return cmd
}

func newConversationsExportCmd() *cobra.Command {
	var messageID string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export an assistant reply as a document and print its download URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, orgID, err := newClient()
			if err != nil {
				return err
			}
			url, err := client.ExportMessage(context.Background(), orgID, args[0], messageID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().StringVar(&messageID, "message", "", "message ID to export (default: last assistant reply)")
	return cmd
}
