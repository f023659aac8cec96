// Package config loads the runtime configuration: built-in defaults, then an
// optional YAML file, then SKETCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/imaging"
	"github.com/ironsheep/sketch-tools-mcp/internal/ocr"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

type GridConfig struct {
	Cols         int     `yaml:"cols"`
	Rows         int     `yaml:"rows"`
	CanvasWidth  float64 `yaml:"canvas_width"`
	CanvasHeight float64 `yaml:"canvas_height"`
	Snap         bool    `yaml:"snap"`
}

type VisionConfig struct {
	// Sources are backend names tried in order.
	Sources   []string `yaml:"sources"`
	TimeoutMs int      `yaml:"timeout_ms"`
}

type ReferenceConfig struct {
	Opacity float64 `yaml:"opacity"`
}

type HTTPConfig struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	BodyLimitMB    int    `yaml:"body_limit_mb"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type Config struct {
	Grid      GridConfig        `yaml:"grid"`
	Detection detection.Options `yaml:"detection"`
	Vision    VisionConfig      `yaml:"vision"`
	Reference ReferenceConfig   `yaml:"reference"`
	OCR       ocr.Options       `yaml:"ocr"`
	HTTP      HTTPConfig        `yaml:"http"`
	Logging   LoggingConfig     `yaml:"logging"`
}

// Defaults returns the configuration used when nothing else is given.
func Defaults() Config {
	g := sketch.DefaultGrid()
	return Config{
		Grid: GridConfig{
			Cols:         g.Cols,
			Rows:         g.Rows,
			CanvasWidth:  g.CanvasW,
			CanvasHeight: g.CanvasH,
			Snap:         g.Snap,
		},
		Detection: detection.DefaultOptions(),
		Vision: VisionConfig{
			Sources:   []string{"gocv", vision.BildName},
			TimeoutMs: int(vision.DefaultLoadTimeout / time.Millisecond),
		},
		Reference: ReferenceConfig{Opacity: imaging.DefaultOpacity},
		OCR: ocr.Options{
			Language:      ocr.DefaultLanguage,
			MinConfidence: ocr.DefaultMinConfidence,
		},
		HTTP: HTTPConfig{
			Addr:           "127.0.0.1:8080",
			ReadTimeoutMs:  30000,
			WriteTimeoutMs: 120000,
			BodyLimitMB:    32,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile      = "SKETCH_CONFIG"
	EnvGridCols        = "SKETCH_GRID_COLS"
	EnvGridRows        = "SKETCH_GRID_ROWS"
	EnvCanvasWidth     = "SKETCH_CANVAS_WIDTH"
	EnvCanvasHeight    = "SKETCH_CANVAS_HEIGHT"
	EnvSnap            = "SKETCH_SNAP"
	EnvMinSize         = "SKETCH_DETECT_MIN_SIZE"
	EnvMaxDim          = "SKETCH_DETECT_MAX_DIM"
	EnvVisionSources   = "SKETCH_VISION_SOURCES"
	EnvVisionTimeoutMs = "SKETCH_VISION_TIMEOUT_MS"
	EnvOpacity         = "SKETCH_REFERENCE_OPACITY"
	EnvOCRLanguage     = "SKETCH_OCR_LANGUAGE"
	EnvTessdataPrefix  = "SKETCH_TESSDATA_PREFIX"
	EnvHTTPAddr        = "SKETCH_HTTP_ADDR"
	EnvLogLevel        = "SKETCH_LOG_LEVEL"
	EnvLogFormat       = "SKETCH_LOG_FORMAT"
	EnvLogSource       = "SKETCH_LOG_SOURCE"
	EnvLogFile         = "SKETCH_LOG_FILE"
)

// Load builds the configuration. path names a YAML file; when empty the
// SKETCH_CONFIG variable is consulted, and with neither only defaults and
// environment overrides apply. A named file that cannot be read or parsed is
// an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigFile))
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML onto cfg. Fields the document leaves out keep their
// current values.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	var errs []error
	if err := c.LayoutGrid().CheckCanvas(); err != nil {
		errs = append(errs, err)
	}
	if c.Reference.Opacity < 0 || c.Reference.Opacity > 1 {
		errs = append(errs, fmt.Errorf("reference opacity must be within [0, 1], got %v", c.Reference.Opacity))
	}
	if len(c.Vision.Sources) == 0 {
		errs = append(errs, errors.New("at least one vision source is required"))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// LayoutGrid returns the grid new sketches start with.
func (c Config) LayoutGrid() geometry.Grid {
	return geometry.Grid{
		Cols:    c.Grid.Cols,
		Rows:    c.Grid.Rows,
		CanvasW: c.Grid.CanvasWidth,
		CanvasH: c.Grid.CanvasHeight,
		Snap:    c.Grid.Snap,
	}.Clamp()
}

// VisionTimeout is the per-source load timeout.
func (v VisionConfig) VisionTimeout() time.Duration {
	if v.TimeoutMs <= 0 {
		return vision.DefaultLoadTimeout
	}
	return time.Duration(v.TimeoutMs) * time.Millisecond
}

// ReadTimeout and WriteTimeout fall back to the defaults when unset.
func (h HTTPConfig) ReadTimeout() time.Duration {
	return millisOr(h.ReadTimeoutMs, Defaults().HTTP.ReadTimeoutMs)
}

func (h HTTPConfig) WriteTimeout() time.Duration {
	return millisOr(h.WriteTimeoutMs, Defaults().HTTP.WriteTimeoutMs)
}

// BodyLimit is the largest accepted request body in bytes.
func (h HTTPConfig) BodyLimit() int {
	mb := h.BodyLimitMB
	if mb <= 0 {
		mb = Defaults().HTTP.BodyLimitMB
	}
	return mb * 1024 * 1024
}

func millisOr(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	if n, ok := envInt(EnvGridCols); ok {
		cfg.Grid.Cols = n
	}
	if n, ok := envInt(EnvGridRows); ok {
		cfg.Grid.Rows = n
	}
	if f, ok := envFloat(EnvCanvasWidth); ok {
		cfg.Grid.CanvasWidth = f
	}
	if f, ok := envFloat(EnvCanvasHeight); ok {
		cfg.Grid.CanvasHeight = f
	}
	if b, ok := envBool(EnvSnap); ok {
		cfg.Grid.Snap = b
	}
	if n, ok := envInt(EnvMinSize); ok {
		cfg.Detection.MinSize = n
	}
	if n, ok := envInt(EnvMaxDim); ok {
		cfg.Detection.MaxDim = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvVisionSources)); v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		cfg.Vision.Sources = names
	}
	if n, ok := envInt(EnvVisionTimeoutMs); ok {
		cfg.Vision.TimeoutMs = n
	}
	if f, ok := envFloat(EnvOpacity); ok {
		cfg.Reference.Opacity = f
	}
	if v := strings.TrimSpace(os.Getenv(EnvOCRLanguage)); v != "" {
		cfg.OCR.Language = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTessdataPrefix)); v != "" {
		cfg.OCR.TessdataPrefix = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHTTPAddr)); v != "" {
		cfg.HTTP.Addr = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if b, ok := envBool(EnvLogSource); ok {
		cfg.Logging.Source = b
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func envFloat(key string) (float64, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

func envBool(key string) (bool, bool) {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return false, false
	}
	return v == "1" || v == "true" || v == "on" || v == "yes", true
}
