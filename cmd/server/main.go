package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/suppliers/internal/config"
	"github.com/JonMunkholm/suppliers/internal/core"
	"github.com/JonMunkholm/suppliers/internal/dataset"
	"github.com/JonMunkholm/suppliers/internal/logging"
	"github.com/JonMunkholm/suppliers/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config, teed into LOG_FILE when set
	out, logFile := logging.Output(os.Stdout, logging.FileOptions{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		MaxBackups: cfg.Logging.FileMaxBackups,
		MaxAgeDays: cfg.Logging.FileMaxAgeDays,
		Compress:   cfg.Logging.FileCompress,
	})
	defer logFile.Close()
	logger := logging.SetupWriter(out, cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"data_dir", cfg.Dataset.DataDir,
		"max_file_size", cfg.Dataset.MaxFileSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"require_api_key", cfg.Security.RequireAPIKey,
	)

	catalog, err := core.NewCatalog(cfg.Dataset.DataDir)
	if err != nil {
		slog.Error("failed to open data directory", "error", err)
		os.Exit(1)
	}

	engine := dataset.NewEngine(dataset.Config{
		MaxFileSize: cfg.Dataset.MaxFileSize,
		Logger:      logger,
	})

	if cfg.Dataset.InitialFile != "" {
		loadInitial(engine, catalog, cfg.Dataset.InitialFile)
	}

	if files, err := catalog.List(); err == nil {
		slog.Info("data directory ready", "dir", catalog.Dir(), "csv_files", len(files))
	}

	var opts []web.Option
	if cfg.Dataset.Watch {
		watcher, err := core.WatchDir(catalog.Dir(), logger)
		if err != nil {
			slog.Warn("data directory watch disabled", "error", err)
		} else {
			defer watcher.Close()
			opts = append(opts, web.WithWatcher(watcher))
		}
	}

	server := web.NewServer(engine, catalog, cfg, opts...)

	ln, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.Server.Addr(), "error", err)
		os.Exit(1)
	}

	// Graceful shutdown: Run drains in-flight requests before returning
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Run(ctx, ln); err != nil {
		slog.Error("server stopped with error", "error", err)
		return
	}
	slog.Info("server stopped")
}

// loadInitial loads the configured startup file. A failure is logged and
// the server starts with no table.
func loadInitial(engine *dataset.Engine, catalog *core.Catalog, name string) {
	path, err := catalog.Resolve(name)
	if err != nil {
		slog.Warn("initial file rejected", "file", name, "error", core.FormatUserError(err))
		return
	}
	t, err := engine.Load(path)
	if err != nil {
		slog.Warn("initial file not loaded", "file", name, "error", err, "message", core.FormatUserError(err))
		return
	}
	if _, err := engine.RecordSourceInfo(path); err != nil {
		slog.Warn("initial file info unavailable", "file", name, "error", err)
	}
	slog.Info("initial file loaded", "file", name, "rows", t.RowCount(), "columns", len(t.Columns))
}
