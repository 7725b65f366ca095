package main

import (
	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-loans-go/shell/config"
	"github.com/AntonStoeckl/library-loans-go/shell/httpapi"
)

func newServeCommand(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s, err := a.open(cmd, true, func(cfg *config.Config) {
				if port > 0 {
					cfg.HTTP.Port = port
				}
			})
			if err != nil {
				return err
			}
			defer closeSession(s, &err)

			s.logger.Info("library service starting",
				"driver", s.backend.Driver,
				"isolation_level", s.cfg.Database.IsolationLevel,
				"observability", s.cfg.Observability.Enabled,
			)

			return httpapi.ListenAndServe(cmd.Context(), s.cfg.HTTP, httpapi.NewServer(s.library, s.logger), s.logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override http.port from the configuration")

	return cmd
}
