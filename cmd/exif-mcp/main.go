package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ironsheep/exif-extractor-mcp/internal/config"
	"github.com/ironsheep/exif-extractor-mcp/internal/exif"
	"github.com/ironsheep/exif-extractor-mcp/internal/logging"
	"github.com/ironsheep/exif-extractor-mcp/internal/metrics"
	"github.com/ironsheep/exif-extractor-mcp/internal/server"
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
			fmt.Printf("exif-extractor-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	flags := pflag.NewFlagSet("exif-extractor-mcp", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML/TOML/JSON config file")
	httpAddr := flags.String("http", "", "serve Streamable HTTP on this address instead of stdio")
	dotEnv := flags.Bool("env", true, "load a .env file from the working directory")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(config.LoadOptions{
		Path:      *configPath,
		DotEnv:    *dotEnv,
		UserAgent: "exif-extractor-mcp/" + Version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	// stdout carries the protocol; logs go to stderr.
	logger, err := logging.New(cfg.LogLevel, os.Stderr)
	if err != nil {
		logger.Warn("unknown log level, using info", "log_level", cfg.LogLevel)
	}
	slog.SetDefault(logger)
	logger.Debug("starting", "version", Version, "build_time", BuildTime, "commit", GitCommit)

	var recorder metrics.Recorder = metrics.Noop{}
	if cfg.HTTP.Addr != "" {
		recorder = metrics.NewProm("exif_mcp", nil)
	}

	srv := server.New(server.Options{
		Extractor: exif.NewExtractor(exif.ExtractorOptions{
			Fetcher: exif.NewFetcher(nil, cfg.Fetch.UserAgent),
			Logger:  logger,
			Metrics: recorder,
		}),
		Defaults: cfg.Defaults,
		Logger:   logger,
		Version:  Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.HTTP.Addr != "" {
		logger.Info("serving streamable HTTP", "addr", cfg.HTTP.Addr)
		err = srv.ListenAndServeHTTP(ctx, cfg.HTTP.Addr, server.HTTPOptions{
			AccessLog: os.Stderr,
			Metrics:   metrics.Handler(),
		})
	} else {
		err = srv.Run(ctx)
	}
	if err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("exif-extractor-mcp - MCP server for reading image metadata")
	fmt.Println()
	fmt.Println("Usage: exif-extractor-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v      Print version information")
	fmt.Println("  --help, -h         Print this help message")
	fmt.Println("  --config <path>    Config file (default ./exif-mcp.yaml if present)")
	fmt.Println("  --http <addr>      Serve Streamable HTTP on addr, e.g. :8080")
	fmt.Println("  --env=false        Do not load .env")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  EXIF_MCP_LOG_LEVEL=debug                 Enable debug logging")
	fmt.Println("  EXIF_MCP_HTTP_ADDR=:8080                 Same as --http")
	fmt.Println("  EXIF_MCP_DEFAULTS_TIMEOUT=30             Fetch timeout in seconds")
	fmt.Println("  EXIF_MCP_DEFAULTS_MAX_FILE_SIZE=52428800 Size limit in bytes")
	fmt.Println("  EXIF_MCP_DEFAULTS_INCLUDE_TECHNICAL=true Include camera settings")
	fmt.Println("  EXIF_MCP_DEFAULTS_INCLUDE_LOCATION=false Include GPS coordinates")
	fmt.Println()
	fmt.Println("Without --http the server speaks MCP over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
