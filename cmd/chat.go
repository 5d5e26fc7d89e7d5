package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"llm-bridge/internal/session"
)

var (
	promptText    = color.New(color.FgCyan, color.Bold)
	assistantText = color.New(color.FgGreen)
	toolText      = color.New(color.FgMagenta)
	mutedText     = color.New(color.FgHiBlack)
	errorText     = color.New(color.FgRed)
)

const chatHelp = `Commands:
  /history  print the transcript
  /usage    print cumulative token usage
  /reset    start a new conversation
  /exit     leave the chat`

func newChatCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive multi-turn conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			vendor, err := opts.parsedVendor()
			if err != nil {
				return err
			}

			cfg := session.Config{
				MaxTokens:    opts.maxTokens,
				Temperature:  opts.temperature,
				SystemPrompt: opts.system,
			}
			s, err := a.router.Session(opts.model, vendor, cfg)
			if err != nil {
				return err
			}

			return runChat(cmd.Context(), s, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// runChat reads one user turn per line until EOF, /exit or cancellation of
// ctx.
func runChat(ctx context.Context, s session.Session, in io.Reader, out io.Writer) error {
	mutedText.Fprintf(out, "session %s. Type /help for commands.\n", s.ID())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for ctx.Err() == nil {
		promptText.Fprint(out, "you> ")
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
		case "/help":
			fmt.Fprintln(out, chatHelp)
			continue
		case "/history":
			for _, m := range s.History() {
				fmt.Fprintf(out, "%s: %s\n", m.Role, m.Content)
			}
			continue
		case "/usage":
			mutedText.Fprintf(out, "turns: %d, tokens in/out: %d/%d\n", s.Turns(), s.InputTokens(), s.OutputTokens())
			continue
		case "/reset":
			s = s.Reset()
			mutedText.Fprintf(out, "new session %s\n", s.ID())
			continue
		}

		next, msg, err := s.Send(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				fmt.Fprintln(out)
				return nil
			}
			errorText.Fprintf(out, "error: %v\n", err)
			continue
		}
		s = next

		assistantText.Fprintf(out, "%s> ", msg.Role())
		fmt.Fprintln(out, msg.FirstMessage())
		if calls, ok := msg.Tools(); ok {
			for _, call := range calls {
				toolText.Fprintf(out, "  tool %s(%s)\n", call.Name, call.Input)
			}
		}
	}
	return nil
}
