// Package app wires configuration into the services shared by the HTTP
// and Telegram entrypoints.
package app

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"golang.org/x/time/rate"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/config"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/extract"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm/gemini"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm/vertex"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/ocr/tesseract"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/raster"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/store"
)

type App struct {
	Config  *config.Config
	Engines *lmm.Engines
	Default lmm.Engine
	Service *extract.Service
	DB      *sql.DB
	Logger  *slog.Logger
}

// NewLogger returns the process logger: text on stderr, Debug level when
// debug is set.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// InstallLogger builds the process logger and makes it the slog default,
// so packages that fall back to slog.Default share its level.
func InstallLogger(debug bool) *slog.Logger {
	logger := NewLogger(debug)
	slog.SetDefault(logger)
	return logger
}

// NewEngines builds the model engines, each rate limited and traced.
func NewEngines(cfg *config.Config) *lmm.Engines {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	wrap := func(e lmm.Engine) lmm.Engine {
		return lmm.NewObservable(lmm.NewLimited(limiter, e))
	}

	return &lmm.Engines{
		Gemini: wrap(gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.MaxOutputTokens)),
		Vertex: wrap(vertex.New(cfg.VertexAPIKey, cfg.GeminiModel, cfg.MaxOutputTokens)),
	}
}

// Build wires every shared component. The result cache is enabled only
// when a database is configured and reachable.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	engines := NewEngines(cfg)

	def, err := engines.GetEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}

	if !cfg.KeyLoaded() {
		logger.Warn("no API key configured; model calls will fail", "engine", cfg.Engine)
	}

	a := &App{
		Config:  cfg,
		Engines: engines,
		Default: def,
		Logger:  logger,
	}

	opts := []extract.Option{extract.WithLogger(logger)}

	if cfg.DatabaseURL != "" {
		db, err := openDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("result cache disabled", "db", config.SafeDSNSummary(cfg.DatabaseURL), "error", err)
		} else {
			repo := store.NewResultRepo(db)
			if err := repo.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
			if n, err := repo.PurgeOlderThan(ctx, cfg.CacheMaxAge); err == nil && n > 0 {
				logger.Info("purged stale results", "rows", n)
			}

			logger.Info("db connected", "db", config.SafeDSNSummary(cfg.DatabaseURL))
			a.DB = db
			opts = append(opts, extract.WithCache(repo))
		}
	}

	a.Service = extract.New(
		raster.New(),
		tesseract.New(cfg.TesseractLanguages...),
		extract.Options{
			DPI:          cfg.DPI,
			Debug:        cfg.Debug,
			CallTimeout:  cfg.CallTimeout,
			HintLogDir:   cfg.HintLogDir,
			CorrectedDir: cfg.CorrectedDir,
			CacheMaxAge:  cfg.CacheMaxAge,
		},
		opts...,
	)

	return a, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// connection pool tune
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
