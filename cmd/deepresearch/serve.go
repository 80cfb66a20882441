package main

import (
	"github.com/spf13/cobra"
	"github.com/smallnest/deepresearch/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research pipeline over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Server runs are non-interactive; clarification resolves with the
		// model's suggested refinement.
		p, err := buildPipeline(settings, nil)
		if err != nil {
			return err
		}
		defer p.close()

		opts := []server.Option{}
		if p.clarifier != nil {
			opts = append(opts, server.WithClarifier(p.clarifier))
		}
		srv := server.New(p.engine, opts...)

		addr := serveAddr
		if addr == "" {
			addr = settings.ServerAddr
		}
		return srv.Start(addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}
