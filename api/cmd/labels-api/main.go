package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/app"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/config"
	handle "github.com/marshmallow3210/patent-drawing-parser/api/internal/handle"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/httpserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := app.InstallLogger(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if app.TelemetryEnabled() {
		shutdown, err := app.SetupTracing(ctx, "labels-api")
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer a.Close()

	h := handle.New(a.Service, a.Engines, handle.Info{
		Provider:  a.Default.Name(),
		Model:     a.Default.GetModel(),
		DPI:       cfg.DPI,
		KeyLoaded: cfg.KeyLoaded(),
	}, cfg.MaxUploadBytes(), logger)

	if err := httpserver.Serve(ctx, ":"+cfg.Port, h.Routes(), logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
