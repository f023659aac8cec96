package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

type fakeDetector struct {
	boxes []geometry.Box
	err   error
	opts  detection.Options
	frame detection.Frame
}

func (f *fakeDetector) Detect(_ context.Context, fr *detection.Frame, opts detection.Options) ([]geometry.Box, error) {
	f.frame = *fr
	f.opts = opts
	return f.boxes, f.err
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := app.Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func pngUpload(t *testing.T, width, height int, dark image.Rectangle) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if image.Pt(x, y).In(dark) {
				c = color.RGBA{34, 34, 34, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "sketch.png")
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, mw.FormDataContentType()
}

func TestHealth(t *testing.T) {
	app := New(Options{})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if status != http.StatusOK || !strings.Contains(string(body), "alive") {
		t.Errorf("live: %d %s", status, body)
	}
	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if status != http.StatusOK || !strings.Contains(string(body), "ready") {
		t.Errorf("ready: %d %s", status, body)
	}
}

func TestReadyReportsFailedLoader(t *testing.T) {
	loader := vision.NewLoader(vision.Sources("missing"))
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("loading a missing backend should fail")
	}
	app := New(Options{Loader: loader})

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
	if !strings.Contains(string(body), `"failed"`) {
		t.Errorf("body = %s", body)
	}
}

func TestExport(t *testing.T) {
	app := New(Options{})
	doc := `{"grid":{"cols":4,"rows":4},"canvas":{"width":400,"height":400},"shapes":[
		{"type":"rect","x":0,"y":0,"w":400,"h":100,"label":"header"}]}`

	req := httptest.NewRequest(http.MethodPost, "/export/json", strings.NewReader(doc))
	req.Header.Set("Content-Type", "application/json")
	status, body := do(t, app, req)
	if status != http.StatusOK {
		t.Fatalf("status = %d: %s", status, body)
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	widgets, _ := out["widgets"].([]any)
	if len(widgets) != 1 {
		t.Errorf("widgets = %v", out["widgets"])
	}

	yamlDoc := "grid: {cols: 4, rows: 4}\nshapes:\n  - {type: rect, x: 0, y: 0, w: 300, h: 200, label: nav}\n"
	req = httptest.NewRequest(http.MethodPost, "/export/ascii", strings.NewReader(yamlDoc))
	status, body = do(t, app, req)
	if status != http.StatusOK || !strings.Contains(string(body), "nav") {
		t.Errorf("ascii: %d %s", status, body)
	}
}

func TestExportErrors(t *testing.T) {
	app := New(Options{})
	tests := []struct {
		name, path, body, want string
	}{
		{"unknown format", "/export/svg", `{"shapes":[]}`, "unknown export format"},
		{"invalid document", "/export/json", `{"shapes":[{"type":"blob"}]}`, "invalid sketch document"},
		{"empty body", "/export/tk-grid", ``, "invalid sketch document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, app, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body = %s, want %q", body, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	det := &fakeDetector{boxes: []geometry.Box{{X: 1, Y: 2, W: 50, H: 60}}}
	app := New(Options{Detector: det, Detection: detection.Options{MinSize: 30}})

	body, ctype := pngUpload(t, 80, 90, image.Rect(1, 2, 51, 62))
	req := httptest.NewRequest(http.MethodPost, "/detect?canny2=99&iou_thresh=0.3", body)
	req.Header.Set("Content-Type", ctype)

	status, raw := do(t, app, req)
	if status != http.StatusOK {
		t.Fatalf("status = %d: %s", status, raw)
	}
	var out detectResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Width != 80 || out.Height != 90 || out.Count != 1 || out.Rectangles[0] != det.boxes[0] {
		t.Errorf("response = %+v", out)
	}
	if det.opts.MinSize != 30 || det.opts.Canny2 != 99 || det.opts.IoUThresh != 0.3 || det.opts.Canny1 != detection.DefaultCanny1 {
		t.Errorf("options = %+v", det.opts)
	}
	if det.frame.Width != 80 || len(det.frame.Pix) != 80*90*4 {
		t.Errorf("frame = %dx%d, %d bytes", det.frame.Width, det.frame.Height, len(det.frame.Pix))
	}
}

func TestDetectErrors(t *testing.T) {
	t.Run("no detector", func(t *testing.T) {
		body, ctype := pngUpload(t, 10, 10, image.Rectangle{})
		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", ctype)
		if status, _ := do(t, New(Options{}), req); status != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", status)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		app := New(Options{Detector: &fakeDetector{}})
		req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader("x"))
		if status, _ := do(t, app, req); status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("bad query", func(t *testing.T) {
		app := New(Options{Detector: &fakeDetector{}})
		body, ctype := pngUpload(t, 10, 10, image.Rectangle{})
		req := httptest.NewRequest(http.MethodPost, "/detect?min_size=-3", body)
		req.Header.Set("Content-Type", ctype)
		status, raw := do(t, app, req)
		if status != http.StatusBadRequest || !strings.Contains(string(raw), "min_size") {
			t.Errorf("status = %d: %s", status, raw)
		}
	})

	t.Run("not an image", func(t *testing.T) {
		app := New(Options{Detector: &fakeDetector{}})
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, _ := mw.CreateFormFile("file", "notes.txt")
		part.Write([]byte("hello"))
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/detect", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		if status, _ := do(t, app, req); status != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", status)
		}
	})

	t.Run("detector failure", func(t *testing.T) {
		app := New(Options{Detector: &fakeDetector{err: errors.New("worker crashed")}})
		body, ctype := pngUpload(t, 10, 10, image.Rectangle{})
		req := httptest.NewRequest(http.MethodPost, "/detect", body)
		req.Header.Set("Content-Type", ctype)
		status, raw := do(t, app, req)
		if status != http.StatusInternalServerError || !strings.Contains(string(raw), "worker crashed") {
			t.Errorf("status = %d: %s", status, raw)
		}
	})
}

func TestDetectWithBildClient(t *testing.T) {
	client := detection.NewClient(vision.NewLoader(vision.Sources(vision.BildName)))
	defer client.Close()
	app := New(Options{Detector: client})

	body, ctype := pngUpload(t, 200, 150, image.Rect(32, 24, 144, 96))
	req := httptest.NewRequest(http.MethodPost, "/detect?min_size=20", body)
	req.Header.Set("Content-Type", ctype)

	status, raw := do(t, app, req)
	if status != http.StatusOK {
		t.Fatalf("status = %d: %s", status, raw)
	}
	var out detectResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 {
		t.Fatalf("rectangles = %+v", out.Rectangles)
	}
	r := out.Rectangles[0]
	if r.X < 26 || r.X > 38 || r.W < 106 || r.W > 118 {
		t.Errorf("rectangle = %+v, want about {32 24 112 72}", r)
	}
}
