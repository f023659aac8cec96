package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/sketch-tools-mcp/internal/config"
	"github.com/ironsheep/sketch-tools-mcp/internal/detection"
)

// run executes the command tree with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigFile, "")
	t.Setenv(config.EnvVisionSources, "bild")

	root := NewRootCmd("test")
	var stdout, stderr bytes.Buffer
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const headerDoc = `{"grid":{"cols":4,"rows":4},"canvas":{"width":400,"height":400},"shapes":[
	{"type":"rect","x":0,"y":0,"w":400,"h":100,"label":"header"},
	{"type":"rect","x":0,"y":100,"w":400,"h":300,"label":"body"}]}`

func TestExportCommand(t *testing.T) {
	doc := writeFile(t, "doc.json", headerDoc)

	out, _, err := run(t, "", "export", doc, "--format", "tk-grid")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("tk-grid output is not JSON: %v\n%s", err, out)
	}

	out, _, err = run(t, headerDoc, "export", "-", "-f", "ascii")
	if err != nil {
		t.Fatalf("export from stdin: %v", err)
	}
	if !strings.Contains(out, "header") || !strings.Contains(out, "body") {
		t.Errorf("ascii output:\n%s", out)
	}
}

func TestExportCommandToFile(t *testing.T) {
	doc := writeFile(t, "doc.yaml", "shapes:\n  - {type: text, x: 1, y: 1, text: Hello}\n")
	dst := filepath.Join(t.TempDir(), "out.json")

	out, _, err := run(t, "", "export", doc, "-o", dst)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if out != "" {
		t.Errorf("stdout should be empty, got %q", out)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(b) {
		t.Errorf("output file is not JSON: %s", b)
	}
}

func TestExportCommandErrors(t *testing.T) {
	doc := writeFile(t, "doc.json", headerDoc)
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown format", []string{"export", doc, "-f", "html"}, "unknown export format"},
		{"missing file", []string{"export", filepath.Join(t.TempDir(), "none.json")}, "read document"},
		{"invalid document", []string{"export", writeFile(t, "bad.json", `{"grid":{}}`)}, "invalid sketch document"},
		{"no argument", []string{"export"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestConfigErrorStopsCommand(t *testing.T) {
	cfg := writeFile(t, "bad.yaml", "reference:\n  opacity: 7\n")
	_, _, err := run(t, "", "--config", cfg, "export", "-")
	if err == nil || !strings.Contains(err.Error(), "opacity") {
		t.Errorf("error = %v, want config validation error", err)
	}
}

func TestDetectCommand(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 150))
	for y := 0; y < 150; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= 32 && x < 144 && y >= 24 && y < 96 {
				c = color.RGBA{34, 34, 34, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out, _, err := run(t, "", "detect", path, "--min-size", "20")
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	var res detectResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("detect output is not JSON: %v\n%s", err, out)
	}
	if res.Width != 200 || res.Height != 150 || res.Count != 1 {
		t.Fatalf("result = %+v", res)
	}
	if r := res.Rectangles[0]; r.X < 26 || r.X > 38 || r.Y < 18 || r.Y > 30 {
		t.Errorf("rectangle = %+v, want about {32 24 112 72}", r)
	}
}

func TestServeCommand(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sketch_add_rect","arguments":{"x":0,"y":0,"w":100,"h":100,"label":"panel"}}}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"sketch_export","arguments":{"format":"ascii"}}}`,
	}, "\n")

	out, stderr, err := run(t, in, "serve", "--log-level", "debug")
	if err != nil {
		t.Fatalf("serve: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("responses: got %d\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "sketch-tools-mcp") {
		t.Errorf("initialize response: %s", lines[0])
	}
	if !strings.Contains(lines[2], "panel") {
		t.Errorf("export response: %s", lines[2])
	}
	if !strings.Contains(stderr, "mcp server starting") {
		t.Errorf("startup log missing from stderr: %q", stderr)
	}
}

func TestMergeOptions(t *testing.T) {
	base := detection.DefaultOptions()
	got := mergeOptions(base, detection.Options{Canny1: 10, MaxDim: 800})
	if got.Canny1 != 10 || got.MaxDim != 800 || got.MinSize != base.MinSize {
		t.Errorf("mergeOptions = %+v", got)
	}
}
