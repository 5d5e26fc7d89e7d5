package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(opts *options) *cobra.Command {
	var showRaw bool

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send one prompt and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			b, err := opts.builder(a, false)
			if err != nil {
				return err
			}

			msg, err := b.UserMessage(strings.Join(args, " ")).Send(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showRaw {
				return printJSON(out, msg)
			}

			fmt.Fprintln(out, msg.FirstMessage())
			if calls, ok := msg.Tools(); ok {
				for _, call := range calls {
					fmt.Fprintf(out, "tool %s(%s) id=%s\n", call.Name, call.Input, call.ID)
				}
			}
			usage := msg.Usage()
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s %s, stop: %s, tokens in/out: %d/%d]\n",
				msg.Kind(), msg.Model(), msg.StopReason(), usage.InputTokens, usage.OutputTokens)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showRaw, "raw", false, "print the vendor response document")
	return cmd
}
