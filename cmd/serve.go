package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"llm-bridge/internal/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var overridePort int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("port") {
				if overridePort <= 0 || overridePort > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
				}
				a.cfg.Server.Port = overridePort
			}

			srv, err := server.New(a.cfg, a.router)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&overridePort, "port", "p", 0, "override server port from configuration")
	return cmd
}
