package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/sketch-tools-mcp/internal/httpapi"
)

func newHTTPCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve exports and rectangle detection over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			loader := a.newLoader()
			detector := a.newDetector(loader)
			defer detector.Close()

			app := httpapi.New(httpapi.Options{
				Detector:  detector,
				Loader:    loader,
				Detection: a.cfg.Detection,
				Grid:      a.cfg.LayoutGrid(),
				HTTP:      a.cfg.HTTP,
				Logger:    a.logger.With("component", "http"),
			})
			a.logger.Info("http server starting", "addr", addr)
			return httpapi.Serve(cmd.Context(), app, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	return cmd
}
