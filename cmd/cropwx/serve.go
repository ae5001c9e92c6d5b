package main

import (
	"github.com/spf13/cobra"

	"github.com/tigerroll/cropwx/internal/app"
	config "github.com/tigerroll/cropwx/pkg/batch/core/config"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API, /healthz and /metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(func(c *config.Config) {
				if addr != "" {
					c.Cropwx.API.Address = addr
				}
			})
			if err != nil {
				return err
			}
			return app.Serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, e.g. :8080")
	return cmd
}
