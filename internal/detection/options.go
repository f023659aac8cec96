package detection

// Default detection parameters.
const (
	DefaultMinSize   = 40
	DefaultCanny1    = 50
	DefaultCanny2    = 150
	DefaultApproxEps = 8
	DefaultIoUThresh = 0.15
	DefaultMaxDim    = 1400
)

// blurKernel is the side of the square Gaussian kernel applied before edge
// detection.
const blurKernel = 5

// Options tunes a detection request. Zero fields take their defaults.
type Options struct {
	// MinSize is the exclusive lower bound, in pixels of the analysed image,
	// on both sides of a kept rectangle.
	MinSize int `json:"minSize,omitempty" yaml:"min_size"`

	// Canny1 and Canny2 are the low and high hysteresis thresholds.
	Canny1 float64 `json:"canny1,omitempty" yaml:"canny1"`
	Canny2 float64 `json:"canny2,omitempty" yaml:"canny2"`

	// ApproxEps is the polygon approximation tolerance in pixels.
	ApproxEps float64 `json:"approxEps,omitempty" yaml:"approx_eps"`

	// IoUThresh is the overlap at which two rectangles are merged.
	IoUThresh float64 `json:"iouThresh,omitempty" yaml:"iou_thresh"`

	// MaxDim caps the longer side of the analysed image. Larger frames are
	// downscaled first and results scaled back up.
	MaxDim int `json:"maxDim,omitempty" yaml:"max_dim"`
}

// DefaultOptions returns the parameters used when none are given.
func DefaultOptions() Options {
	return Options{
		MinSize:   DefaultMinSize,
		Canny1:    DefaultCanny1,
		Canny2:    DefaultCanny2,
		ApproxEps: DefaultApproxEps,
		IoUThresh: DefaultIoUThresh,
		MaxDim:    DefaultMaxDim,
	}
}

// WithDefaults returns o with every zero or negative field replaced by its
// default.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.MinSize <= 0 {
		o.MinSize = d.MinSize
	}
	if o.Canny1 <= 0 {
		o.Canny1 = d.Canny1
	}
	if o.Canny2 <= 0 {
		o.Canny2 = d.Canny2
	}
	if o.ApproxEps <= 0 {
		o.ApproxEps = d.ApproxEps
	}
	if o.IoUThresh <= 0 {
		o.IoUThresh = d.IoUThresh
	}
	if o.MaxDim <= 0 {
		o.MaxDim = d.MaxDim
	}
	return o
}
