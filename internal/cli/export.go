package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sketch-tools-mcp/internal/export"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export <document>",
		Short: "Convert a sketch document into a layout",
		Long: `Convert a JSON or YAML sketch document into a layout. Use - to read the
document from stdin.

Formats: ` + formatNames() + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			doc, err := sketch.ParseDocument(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			sk := sketch.New(a.cfg.LayoutGrid())
			doc.Load(sk)
			out, err := export.Render(f, sk.Shapes(), sk.Grid())
			if err != nil {
				return err
			}
			a.logger.Debug("exported", "document", args[0], "format", f, "shapes", sk.Len())
			return writeOutput(cmd, output, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatJSON), "Output format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func formatNames() string {
	names := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
