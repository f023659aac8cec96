package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sketch-tools-mcp/internal/config"
	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/log"
	"github.com/ironsheep/sketch-tools-mcp/internal/session"
	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

// app is the state shared by every subcommand once the root has loaded the
// configuration.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	logger *slog.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "sketch-mcp",
		Short:         "Turn layout sketches into widget layouts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = log.Close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file (default $SKETCH_CONFIG)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Logging level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(a),
		newHTTPCmd(a),
		newExportCmd(a),
		newDetectCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	opts := log.FromConfig(cfg.Logging)
	opts.Output = cmd.ErrOrStderr()
	a.cfg = cfg
	a.logger = log.Init(opts)
	return nil
}

// newLoader builds the vision loader from the configured sources.
func (a *app) newLoader() *vision.Loader {
	return vision.NewLoader(
		vision.Sources(a.cfg.Vision.Sources...),
		vision.WithTimeout(a.cfg.Vision.VisionTimeout()),
		vision.WithLogf(log.Printf(a.logger.With("component", "vision"), slog.LevelInfo)),
	)
}

// newDetector starts a detection client whose worker logs are forwarded to
// the application logger. The caller closes it.
func (a *app) newDetector(loader *vision.Loader) *detection.Client {
	client := detection.NewClient(loader)
	l := a.logger.With("component", "detection")
	client.OnLog(func(m detection.Message) {
		l.Debug(m.Message, "request", m.ID)
	})
	return client
}

// newSession builds the editing session served over MCP.
func (a *app) newSession(d session.Detector) *session.Session {
	s := session.New(a.cfg.LayoutGrid(),
		session.WithDetector(d),
		session.WithLabelExtractor(nil, a.cfg.OCR),
		session.WithLogger(a.logger.With("component", "session")),
	)
	s.SetOpacity(a.cfg.Reference.Opacity)
	return s
}
