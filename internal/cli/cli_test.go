package cli

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/ironsheep/photo-forensics-mcp/internal/config"
	"github.com/ironsheep/photo-forensics-mcp/internal/exiftest"
	"github.com/ironsheep/photo-forensics-mcp/internal/metadata"
	"github.com/ironsheep/photo-forensics-mcp/internal/parallel"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func taggedJPEG(t *testing.T) []byte {
	return exiftest.SolidJPEG(t, 32, 24, color.Gray{Y: 128}, exiftest.Tags{
		Make:      "Acme",
		Model:     "X1",
		HasGPS:    true,
		Latitude:  10,
		Longitude: 20,
	})
}

// run parses args and runs the selected command, returning its stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var c CLI
	parser, err := kong.New(&c, kong.Vars{"version": "test"})
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	env := &Env{
		Config: config.Default(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Stdout: &out,
	}
	if c.Workers >= 0 {
		env.Config.Workers = c.Workers
	}
	pool := parallel.Start(env.Config.Workers)
	err = kctx.Run(env, pool.Do, pool.Wait)
	return out.String(), err
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.png", pngBytes(t, 20, 20, color.RGBA{0, 0, 255, 255}))
	writeFile(t, dir, "a.jpg", taggedJPEG(t))

	out, err := run(t, "analyze", dir)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var results []struct {
		Name   string `json:"name"`
		Report *struct {
			HasGPS bool `json:"has_gps"`
		} `json:"report"`
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results[0].Name != "a.jpg" || results[1].Name != "b.png" {
		t.Errorf("order: got %s, %s", results[0].Name, results[1].Name)
	}
	if results[0].Report == nil || !results[0].Report.HasGPS {
		t.Error("a.jpg should report GPS")
	}
}

func TestAnalyze_PartialFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.png", pngBytes(t, 8, 8, color.White))
	bad := writeFile(t, dir, "bad.jpg", []byte("not an image"))

	out, err := run(t, "analyze", "--workers=1", good, bad)
	if err == nil || !strings.Contains(err.Error(), "error processing 1 files") {
		t.Errorf("expected one failure, got %v", err)
	}
	if !strings.Contains(out, "could not analyze this image") {
		t.Errorf("output should carry the user message:\n%s", out)
	}
}

func TestAnalyze_MissingPath(t *testing.T) {
	if _, err := run(t, "analyze", filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestStrip(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "holiday.jpg", taggedJPEG(t))

	if _, err := run(t, "strip", src); err != nil {
		t.Fatalf("strip failed: %v", err)
	}

	dest := filepath.Join(dir, "holiday-stripped.jpg")
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("stripped file not written: %v", err)
	}
	md, err := metadata.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if !md.Empty() {
		t.Errorf("stripped file still has metadata: %+v", md)
	}

	// A second run refuses to overwrite without --force.
	if _, err := run(t, "strip", src); err == nil {
		t.Error("expected error when destination exists")
	}
	if _, err := run(t, "strip", "--force", src); err != nil {
		t.Errorf("strip --force failed: %v", err)
	}
}

func TestStrip_Dest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", taggedJPEG(t))
	writeFile(t, dir, "b.png", pngBytes(t, 10, 10, color.Black))
	dest := filepath.Join(t.TempDir(), "clean")

	if _, err := run(t, "strip", "--workers=2", "--dest", dest, "--quality", "80", dir); err != nil {
		t.Fatalf("strip failed: %v", err)
	}
	for _, name := range []string{"a-stripped.jpg", "b-stripped.jpg"} {
		if _, err := os.Stat(filepath.Join(dest, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestStrip_InvalidQuality(t *testing.T) {
	src := writeFile(t, t.TempDir(), "a.jpg", taggedJPEG(t))
	if _, err := run(t, "strip", "--quality", "101", src); err == nil {
		t.Error("expected validation error for quality 101")
	}
}

func TestHash(t *testing.T) {
	dir := t.TempDir()
	first := writeFile(t, dir, "one.bin", []byte("first"))
	second := writeFile(t, dir, "two.bin", []byte("second"))

	out, err := run(t, "hash", "--workers=2", first, second)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2\n%s", len(lines), out)
	}
	sum := sha256.Sum256([]byte("first"))
	if want := hex.EncodeToString(sum[:]) + "  " + first; lines[0] != want {
		t.Errorf("line 0: got %q, want %q", lines[0], want)
	}
	if !strings.HasSuffix(lines[1], "  "+second) {
		t.Errorf("line 1: got %q", lines[1])
	}

	out, err = run(t, "hash", "--algorithm", "blake3", first)
	if err != nil {
		t.Fatalf("blake3 hash failed: %v", err)
	}
	if strings.HasPrefix(out, hex.EncodeToString(sum[:])) {
		t.Error("blake3 output matches sha256")
	}

	if _, err := run(t, "hash", "--algorithm", "md5", first); err == nil {
		t.Error("expected enum error for md5")
	}
}

func TestExpandPaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.jpg", nil)
	writeFile(t, dir, "a.jpg", nil)
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	single := writeFile(t, t.TempDir(), "z.png", nil)

	got, err := expandPaths([]string{single, dir})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{single, filepath.Join(dir, "a.jpg"), filepath.Join(dir, "c.jpg")}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: got %s, want %s", i, got[i], want[i])
		}
	}

	if _, err := expandPaths([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestStrippedName(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":      "photo-stripped.jpg",
		"scan.PNG":       "scan-stripped.jpg",
		"archive.tar.gz": "archive.tar-stripped.jpg",
		"noext":          "noext-stripped.jpg",
	}
	for in, want := range tests {
		if got := StrippedName(in); got != want {
			t.Errorf("StrippedName(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestSetup(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cfg.yaml", []byte("palette:\n  size: 4\n"))
	t.Setenv("FORENSICS_WORKERS", "")

	c := CLI{Config: path, LogLevel: "debug", Workers: 3}
	env, err := c.Setup(io.Discard)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if env.Config.Palette.Size != 4 || env.Config.LogLevel != "debug" || env.Config.Workers != 3 {
		t.Errorf("config: %+v", env.Config)
	}

	c = CLI{LogLevel: "chatty", Workers: -1}
	if _, err := c.Setup(io.Discard); err == nil {
		t.Error("expected error for unknown log level")
	}
}
