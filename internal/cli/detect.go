package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/imaging"
)

type detectResult struct {
	Image      string         `json:"image"`
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Count      int            `json:"count"`
	Rectangles []geometry.Box `json:"rectangles"`
}

func newDetectCmd(a *app) *cobra.Command {
	var (
		flags  detection.Options
		output string
	)

	cmd := &cobra.Command{
		Use:   "detect <image>",
		Short: "Find rectangles in an image",
		Long: `Find rectangles in an image and print them as JSON. Coordinates are in the
pixels of the image. Tunables left at zero take their configured values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := imaging.NewImageCache().Load(args[0])
			if err != nil {
				return err
			}
			frame := imaging.ToFrame(img)
			res := detectResult{Image: args[0], Width: frame.Width, Height: frame.Height}

			detector := a.newDetector(a.newLoader())
			defer detector.Close()

			boxes, err := detector.Detect(cmd.Context(), &frame, mergeOptions(a.cfg.Detection, flags))
			if err != nil {
				return err
			}
			res.Count = len(boxes)
			res.Rectangles = boxes

			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			return writeOutput(cmd, output, out)
		},
	}
	cmd.Flags().IntVar(&flags.MinSize, "min-size", 0, "Minimum rectangle side in pixels of the analysed image")
	cmd.Flags().Float64Var(&flags.Canny1, "canny1", 0, "Low edge hysteresis threshold")
	cmd.Flags().Float64Var(&flags.Canny2, "canny2", 0, "High edge hysteresis threshold")
	cmd.Flags().Float64Var(&flags.ApproxEps, "approx-eps", 0, "Polygon approximation tolerance in pixels")
	cmd.Flags().Float64Var(&flags.IoUThresh, "iou-thresh", 0, "Overlap at which rectangles are merged")
	cmd.Flags().IntVar(&flags.MaxDim, "max-dim", 0, "Longest side analysed; larger images are downscaled")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

// mergeOptions overlays the positive fields of o on base.
func mergeOptions(base, o detection.Options) detection.Options {
	if o.MinSize > 0 {
		base.MinSize = o.MinSize
	}
	if o.Canny1 > 0 {
		base.Canny1 = o.Canny1
	}
	if o.Canny2 > 0 {
		base.Canny2 = o.Canny2
	}
	if o.ApproxEps > 0 {
		base.ApproxEps = o.ApproxEps
	}
	if o.IoUThresh > 0 {
		base.IoUThresh = o.IoUThresh
	}
	if o.MaxDim > 0 {
		base.MaxDim = o.MaxDim
	}
	return base
}
