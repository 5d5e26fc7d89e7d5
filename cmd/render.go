package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newRenderCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "render <prompt>",
		Short: "Print the vendor request document without sending it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			b, err := opts.builder(a, true)
			if err != nil {
				return err
			}

			body, err := b.UserMessage(strings.Join(args, " ")).Render()
			if err != nil {
				return err
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, body, "", "  "); err != nil {
				return fmt.Errorf("format rendered document: %w", err)
			}
			pretty.WriteByte('\n')
			_, err = pretty.WriteTo(cmd.OutOrStdout())
			return err
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
