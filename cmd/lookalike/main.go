package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tmarcus/lookalike/internal/api"
	"github.com/tmarcus/lookalike/internal/config"
	"github.com/tmarcus/lookalike/internal/method"
	"github.com/tmarcus/lookalike/internal/scan"
	"github.com/tmarcus/lookalike/internal/scheduler"
	"github.com/tmarcus/lookalike/internal/walk"
)

// Injected at build time via -ldflags; defaults to "dev".
var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single scan, print the groups as JSON, and exit")
	dir := flag.String("dir", "", "directory to scan (overrides config)")
	methodName := flag.String("method", "", "similarity method (overrides config)")
	flag.Parse()

	// ── Logging (initial — overridden below once config is loaded) ─────────
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// ── Config ─────────────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.ScanPath = *dir
	}
	if *methodName != "" {
		cfg.Method = *methodName
	}

	// Re-configure logging with the level from config (default: info).
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("lookalike starting",
		"version", version,
		"log_level", cfg.LogLevel,
		"scan_path", cfg.ScanPath,
		"method", cfg.Method)

	// ── Method resolver ────────────────────────────────────────────────────
	var opts method.Options
	if cfg.ModelPath != "" {
		embedder, err := method.NewOnnxEmbedder(cfg.ModelPath, cfg.ModelInputSize)
		if err != nil {
			slog.Error("load embedding model", "path", cfg.ModelPath, "error", err)
			os.Exit(1)
		}
		defer embedder.Close()
		opts.Embedder = embedder
	}
	resolver := func(name string) (method.Method, error) {
		return method.New(name, cfg.Thresholds, opts)
	}

	// ── Scanner and manager ────────────────────────────────────────────────
	enum := &walk.Enumerator{Workers: cfg.Workers}
	scanner := scan.New(enum, resolver, cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		os.Exit(runOnce(ctx, scanner, cfg))
	}

	mgr := scan.NewManager(scanner)

	// ── Scheduler ──────────────────────────────────────────────────────────
	sched := scheduler.New()
	if cfg.Schedule != "" {
		job := func() {
			slog.Info("scheduled scan triggered")
			req := requestFromConfig(cfg)
			if _, err := mgr.Start(context.Background(), req, "schedule"); err != nil {
				slog.Warn("scheduled scan start", "error", err)
			}
		}
		if err := sched.SetJob(cfg.Schedule, job); err != nil {
			slog.Warn("invalid cron expression", "expr", cfg.Schedule, "error", err)
		}
		if cfg.ScanPaused {
			sched.Pause()
		}
	}
	sched.Start()
	defer sched.Stop()

	// ── HTTP server ────────────────────────────────────────────────────────
	srv := api.New(cfg.HTTPAddr, cfg, mgr, sched, version)
	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("lookalike stopped")
}

// runOnce executes one synchronous scan and prints the duplicate groups to
// stdout as JSON. Returns the process exit code.
func runOnce(ctx context.Context, scanner *scan.Scanner, cfg *config.Config) int {
	if cfg.ScanPath == "" {
		slog.Error("no scan directory configured; use -dir or set scan_path")
		return 1
	}

	out := scanner.Run(ctx, requestFromConfig(cfg), nil, nil)
	switch out.State {
	case scan.StateDone:
	case scan.StateCancelled:
		slog.Warn("scan cancelled")
		return 1
	default:
		slog.Error("scan failed", "error", out.Err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out.Groups); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func requestFromConfig(cfg *config.Config) scan.Request {
	return scan.Request{
		Directory:  cfg.ScanPath,
		Extensions: cfg.Extensions,
		Recursive:  cfg.Recursive == nil || *cfg.Recursive,
		Method:     cfg.Method,
	}
}

// parseLogLevel converts a config string ("debug", "info", "warn", "error")
// to its slog.Level equivalent. Unknown values default to Info.
func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
