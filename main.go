package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stridebet/stridebet/stridebet"
	"github.com/stridebet/stridebet/stridebet/database"
	"github.com/stridebet/stridebet/stridebet/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	skipSeed := flag.Bool("skip-seed", false, "skip seeding default settings on startup")
	flag.Parse()

	cfg, err := stridebet.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting StrideBet settlement service",
		slog.String("version", version),
		slog.String("commit", commit))

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("error", err.Error()))
		db.Close()
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	app := stridebet.New(*cfg, version, commit)
	app.DB = db

	if !*skipSeed {
		if err := db.SeedSettings(ctx, app.SettingDefaults()); err != nil {
			slog.Error("Failed to seed settings",
				slog.String("error", err.Error()))
			db.Close()
			os.Exit(-1)
		}
	}

	if err := app.Setup(); err != nil {
		slog.Error("Failed to build application",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "app_setup"),
			slog.String("status", "failed"),
		)
		db.Close()
		os.Exit(-1)
	}

	go func() {
		slog.Info("HTTP server listening",
			slog.String("type", "http"),
			slog.String("addr", cfg.Server.Addr))
		if err := app.Server.Start(); err != nil {
			slog.Error("HTTP server stopped",
				slog.String("type", "http"),
				slog.Any("error", err))
			os.Exit(-1)
		}
	}()

	slog.Info("Service is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	app.Shutdown(shutdownCtx)
}
