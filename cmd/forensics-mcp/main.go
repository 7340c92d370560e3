package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ironsheep/photo-forensics-mcp/internal/config"
	"github.com/ironsheep/photo-forensics-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("photo-forensics-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("photo-forensics-mcp - MCP server for photo forensics")
			fmt.Println()
			fmt.Println("Usage: photo-forensics-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  FORENSICS_CONFIG=path.yaml   Load settings from a YAML file")
			fmt.Println("  FORENSICS_LOG_LEVEL=debug    Enable debug logging")
			fmt.Println("  FORENSICS_HASH=blake3        Default digest algorithm")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.Load(os.Getenv("FORENSICS_CONFIG"))
	if err == nil {
		err = cfg.ApplyEnv(os.LookupEnv)
	}
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr (stdout is for MCP protocol)
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("starting", "version", Version, "built", BuildTime, "commit", GitCommit)

	srv := server.NewWithConfig(cfg, logger)
	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
