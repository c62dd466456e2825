package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/juanjtov/bidmate/internal/engine"
	"github.com/juanjtov/bidmate/internal/stream"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		fresh          bool
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the estimation assistant",
		Long: "Send a message and stream the assistant's reply. With no arguments an " +
			"interactive session is started. The active conversation is remembered " +
			"between invocations.",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cleanup, err := newEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng.Restore(ctx)
			switch {
			case fresh:
				eng.StartNewConversation()
			case conversationID != "":
				if err := eng.LoadConversation(ctx, conversationID); err != nil {
					return fmt.Errorf("loading conversation %s: %w", conversationID, err)
				}
			}

			if len(args) > 0 {
				return sendAndRender(ctx, cmd, eng, strings.Join(args, " "))
			}
			return runInteractive(ctx, cmd, eng)
		},
	}

	cmd.Flags().BoolVar(&fresh, "new", false, "start a new conversation instead of resuming")
	cmd.Flags().StringVar(&conversationID, "conversation", "", "conversation ID to resume")

	return cmd
}

func sendAndRender(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, content string) error {
	out := cmd.OutOrStdout()

	err := eng.SendMessage(ctx, content, func(ev stream.Event) {
		if ev.Type == stream.EventChunk {
			fmt.Fprint(out, ev.Content)
		}
	})
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if msg := eng.Snapshot().Err; msg != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", msg)
	}
	return nil
}

func runInteractive(ctx context.Context, cmd *cobra.Command, eng *engine.Engine) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "bidmate interactive chat (/new starts over, /exit quits)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/new":
			eng.StartNewConversation()
			fmt.Fprintln(out, "started a new conversation")
			continue
		}

		if err := sendAndRender(ctx, cmd, eng, line); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}
