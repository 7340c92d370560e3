// Package cli holds the commands of the forensics tool.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/ironsheep/photo-forensics-mcp/internal/config"
	"github.com/ironsheep/photo-forensics-mcp/internal/forensics"
	"github.com/ironsheep/photo-forensics-mcp/internal/httpapi"
	"github.com/ironsheep/photo-forensics-mcp/internal/parallel"
	"github.com/ironsheep/photo-forensics-mcp/internal/server"
	"github.com/ironsheep/photo-forensics-mcp/internal/workspace"
)

// Env is bound into every command's Run.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Stdout io.Writer
}

// CLI is the command grammar.
type CLI struct {
	Config   string           `help:"YAML configuration file" type:"path" env:"FORENSICS_CONFIG"`
	LogLevel string           `help:"Log level (debug, info, warn, error)" name:"log-level"`
	Workers  int              `help:"Parallel workers; 0 selects one per CPU" default:"-1"`
	Version  kong.VersionFlag `help:"Print version information"`

	Analyze AnalyzeCmd `cmd:"" help:"Analyze photos and print JSON reports"`
	Strip   StripCmd   `cmd:"" help:"Write metadata-free copies of photos"`
	Hash    HashCmd    `cmd:"" help:"Print digests of the original file bytes"`
	Serve   ServeCmd   `cmd:"" help:"Serve the HTTP API"`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Serve MCP over stdin/stdout"`
}

// Setup loads the configuration and applies global flag overrides.
func (c *CLI) Setup(stderr io.Writer) (*Env, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.Workers >= 0 {
		cfg.Workers = c.Workers
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Env{Config: cfg, Logger: cfg.NewLogger(stderr), Stdout: os.Stdout}, nil
}

// AnalyzeCmd runs the full pipeline over files and directories.
type AnalyzeCmd struct {
	Paths   []string `arg:"" help:"Image files or folders to scan" type:"path"`
	Overlay bool     `help:"Include the configured overlay" default:"false"`
	Strip   bool     `help:"Include metadata-free copy details" default:"false"`
	Mode    string   `help:"Overlay mode" enum:"difference,recompress," default:""`
}

func (c *AnalyzeCmd) Validate(kctx *kong.Context) error {
	return checkPaths(c.Paths)
}

func (c *AnalyzeCmd) Run(env *Env) error {
	files, err := expandPaths(c.Paths)
	if err != nil {
		return err
	}

	items := make([]forensics.Item, len(files))
	for i, f := range files {
		items[i] = forensics.Item{Path: f}
	}

	opts := env.Config.ForensicsOptions(env.Logger)
	opts.Overlay = c.Overlay
	opts.Strip = c.Strip
	if c.Mode != "" {
		opts.OverlayOptions.Mode = c.Mode
	}

	results := forensics.AnalyzeBatch(context.Background(), items, opts)

	enc := json.NewEncoder(env.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("error processing %d files", failed)
	}
	return nil
}

// StripCmd writes a metadata-free JPEG next to each photo, or into Dest.
type StripCmd struct {
	Paths   []string `arg:"" help:"Image files or folders to scan" type:"path"`
	Dest    string   `help:"Destination folder; defaults to each source's folder" type:"path"`
	Quality int      `help:"JPEG quality 1-100; 0 selects the configured quality" default:"0"`
	Force   bool     `help:"Overwrite existing output files" default:"false"`
}

func (c *StripCmd) Validate(kctx *kong.Context) error {
	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("invalid quality: %d", c.Quality)
	}
	return checkPaths(c.Paths)
}

// StrippedName is the output file name for a stripped copy of name.
func StrippedName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "-stripped.jpg"
}

func (c *StripCmd) Run(env *Env, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	files, err := expandPaths(c.Paths)
	if err != nil {
		return err
	}
	if c.Dest != "" {
		if err := os.MkdirAll(c.Dest, 0o755); err != nil {
			return fmt.Errorf("unable to create destination folder %q: %w", c.Dest, err)
		}
	}
	quality := c.Quality
	if quality == 0 {
		quality = env.Config.Strip.Quality
	}

	var processedCount, errCount atomic.Uint64
	for _, file := range files {
		worker(func() {
			logger := env.Logger.With("file", file)

			dir := filepath.Dir(file)
			if c.Dest != "" {
				dir = c.Dest
			}
			dest := filepath.Join(dir, StrippedName(filepath.Base(file)))

			if !c.Force {
				if _, err := os.Stat(dest); err == nil {
					errCount.Add(1)
					logger.Error("destination file already exists", "dest", dest)
					return
				}
			}

			raw, err := os.ReadFile(file)
			if err != nil {
				errCount.Add(1)
				logger.Error("could not read image", "error", err)
				return
			}
			artifact, err := forensics.StripBytes(raw, quality)
			if err != nil {
				errCount.Add(1)
				logger.Error("could not strip image", "error", err)
				return
			}
			if err := os.WriteFile(dest, artifact.Data, 0o644); err != nil {
				errCount.Add(1)
				logger.Error("could not save image", "dest", dest, "error", err)
				return
			}
			logger.Debug("stripped", "dest", dest, "size", artifact.Size())
			processedCount.Add(1)
		})
	}

	wait(true)

	processed := processedCount.Load()
	errs := errCount.Load()
	env.Logger.Info("stats", "processed", processed, "errors", errs,
		"total", processed+errs)

	if errs > 0 {
		return fmt.Errorf("error processing %d files", errs)
	}
	return nil
}

// HashCmd prints one "<hex>  <path>" line per file, in argument order.
type HashCmd struct {
	Paths     []string `arg:"" help:"Files to hash" type:"existingfile"`
	Algorithm string   `help:"Digest algorithm" enum:"sha256,blake3," default:""`
}

func (c *HashCmd) Run(env *Env, worker parallel.WorkerFunc, wait parallel.WaitFunc) error {
	algo := c.Algorithm
	if algo == "" {
		algo = env.Config.HashAlgorithm
	}

	digests := make([]forensics.Digest, len(c.Paths))
	errs := make([]error, len(c.Paths))
	for i, path := range c.Paths {
		worker(func() {
			digests[i], errs[i] = hashFile(algo, path)
		})
	}
	wait(true)

	var failed int
	for i, path := range c.Paths {
		if errs[i] != nil {
			failed++
			env.Logger.Error("could not hash file", "file", path, "error", errs[i])
			continue
		}
		fmt.Fprintf(env.Stdout, "%s  %s\n", digests[i].Hex, path)
	}
	if failed > 0 {
		return fmt.Errorf("error processing %d files", failed)
	}
	return nil
}

func hashFile(algo, path string) (forensics.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return forensics.Digest{}, err
	}
	defer f.Close()
	return forensics.HashReader(algo, f)
}

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	Addr string `help:"Listen address; defaults to the configured address"`
}

func (c *ServeCmd) Run(env *Env) error {
	addr := c.Addr
	if addr == "" {
		addr = env.Config.HTTP.Addr
	}

	api := httpapi.New(env.Config, workspace.New(), env.Logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		env.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// MCPCmd serves the MCP protocol on stdio.
type MCPCmd struct{}

func (c *MCPCmd) Run(env *Env) error {
	return server.NewWithConfig(env.Config, env.Logger).Run()
}

func checkPaths(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("invalid path %q: %w", p, err)
		}
	}
	return nil
}

// expandPaths replaces each folder with the regular files directly inside
// it, sorted by name. Files are kept as given.
func expandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", p, err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("unable to read folder %q: %w", p, err)
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, filepath.Join(p, n))
		}
	}
	return out, nil
}
