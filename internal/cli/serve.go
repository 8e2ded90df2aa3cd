package cli

import (
	"log"
	"net/http"

	"github.com/spf13/cobra"

	"demodesk/internal/config"
)

// ServeCommand runs the JSON HTTP API for the presentation layer.
func ServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo provisioning HTTP API",
		Long: `Starts the JSON HTTP API exposing the five demo lifecycle
operations (initial state, create user, reset password, generate
script, delete account). The authenticated requester is taken from
the X-Requester header set by the fronting layer.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.ListenAddr = addr
			}

			d, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			log.Printf("Serving demo provisioning API on %s (domain %s, model %s)",
				cfg.ListenAddr, cfg.DemoDomain, cfg.GeminiModel)
			return http.ListenAndServe(cfg.ListenAddr, d.server)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	return cmd
}
