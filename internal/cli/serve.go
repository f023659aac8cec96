package cli

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/sketch-tools-mcp/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin and stdout",
		Long: `Run the MCP server. Requests are read as JSON-RPC 2.0, one per line, from
stdin and responses are written to stdout. Logs go to stderr.

Configure it in an MCP client as a stdio server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := a.newLoader()
			detector := a.newDetector(loader)
			defer detector.Close()

			srv := server.New(
				server.WithSession(a.newSession(detector)),
				server.WithDetector(detector),
				server.WithDetectionDefaults(a.cfg.Detection),
				server.WithLogger(a.logger.With("component", "mcp")),
			)
			a.logger.Info("mcp server starting", "version", cmd.Root().Version, "vision", a.cfg.Vision.Sources)
			return srv.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
