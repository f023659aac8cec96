package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/ironsheep/sketch-tools-mcp/internal/config"
	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/export"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/imaging"
	"github.com/ironsheep/sketch-tools-mcp/internal/session"
	"github.com/ironsheep/sketch-tools-mcp/internal/sketch"
	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

// Options wires the service to its collaborators.
type Options struct {
	// Detector serves POST /detect. Without one the route answers 503.
	Detector session.Detector

	// Loader, when set, is reported by the readiness probe.
	Loader *vision.Loader

	Detection detection.Options
	Grid      geometry.Grid
	HTTP      config.HTTPConfig
	Logger    *slog.Logger
}

type api struct {
	opts   Options
	logger *slog.Logger
}

// New builds the fiber application.
func New(opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Detection = opts.Detection.WithDefaults()
	if opts.Grid.CanvasW <= 0 || opts.Grid.CanvasH <= 0 {
		opts.Grid = sketch.DefaultGrid()
	}
	a := &api{opts: opts, logger: opts.Logger}

	app := fiber.New(fiber.Config{
		ReadTimeout:  opts.HTTP.ReadTimeout(),
		WriteTimeout: opts.HTTP.WriteTimeout(),
		BodyLimit:    opts.HTTP.BodyLimit(),
		AppName:      "sketch-tools-mcp",
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	app.Get("/health/live", a.live)
	app.Get("/health/ready", a.ready)
	app.Post("/export/:format", a.export)
	app.Post("/detect", a.detect)

	return app
}

// Serve listens on addr until ctx is cancelled, then shuts the app down.
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errc
	}
}

func (a *api) live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "alive"})
}

func (a *api) ready(c fiber.Ctx) error {
	if a.opts.Loader == nil {
		return c.JSON(fiber.Map{"status": "ready"})
	}
	state := a.opts.Loader.State()
	if state == vision.StateFailed {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"vision": state.String(),
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "vision": state.String()})
}

func (a *api) export(c fiber.Ctx) error {
	f, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err)
	}
	doc, err := sketch.ParseDocument(c.Body())
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err)
	}

	sk := sketch.New(a.opts.Grid)
	doc.Load(sk)
	out, err := export.Render(f, sk.Shapes(), sk.Grid())
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, err)
	}

	c.Set(fiber.HeaderContentType, f.ContentType())
	return c.Send(out)
}

type detectResponse struct {
	Width      int            `json:"width"`
	Height     int            `json:"height"`
	Count      int            `json:"count"`
	Rectangles []geometry.Box `json:"rectangles"`
}

func (a *api) detect(c fiber.Ctx) error {
	if a.opts.Detector == nil {
		return jsonError(c, fiber.StatusServiceUnavailable, errors.New("rectangle detection is not configured"))
	}
	opts, err := a.detectOptions(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, errors.New("file required in multipart/form-data"))
	}
	file, err := fh.Open()
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, fmt.Errorf("open upload: %w", err))
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, err)
	}
	frame := imaging.ToFrame(img)
	resp := detectResponse{Width: frame.Width, Height: frame.Height}

	boxes, err := a.opts.Detector.Detect(c.Context(), &frame, opts)
	if err != nil {
		a.logger.Warn("detect request failed", "file", fh.Filename, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, err)
	}
	resp.Count = len(boxes)
	resp.Rectangles = boxes
	return c.JSON(resp)
}

// detectOptions reads the tunables from the query string on top of the
// configured defaults.
func (a *api) detectOptions(c fiber.Ctx) (detection.Options, error) {
	o := a.opts.Detection
	ints := map[string]*int{"min_size": &o.MinSize, "max_dim": &o.MaxDim}
	for key, dst := range ints {
		if v := c.Query(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return o, fmt.Errorf("%s must be a positive integer, got %q", key, v)
			}
			*dst = n
		}
	}
	floats := map[string]*float64{
		"canny1":     &o.Canny1,
		"canny2":     &o.Canny2,
		"approx_eps": &o.ApproxEps,
		"iou_thresh": &o.IoUThresh,
	}
	for key, dst := range floats {
		if v := c.Query(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				return o, fmt.Errorf("%s must be a positive number, got %q", key, v)
			}
			*dst = f
		}
	}
	return o, nil
}

func jsonError(c fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
