package handle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/extract"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"
)

// Extractor is the request-level service behind the HTTP surface.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request, engine lmm.Engine) (*extract.Response, error)
	Inspect(ctx context.Context, doc extract.Document, page int, engine lmm.Engine) (string, int, error)
}

// Info is reported by the health endpoint.
type Info struct {
	Provider  string
	Model     string
	DPI       int
	KeyLoaded bool
}

type Handle struct {
	svc       Extractor
	engs      *lmm.Engines
	info      Info
	maxUpload int64
	logger    *slog.Logger
}

func New(svc Extractor, engs *lmm.Engines, info Info, maxUpload int64, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{
		svc:       svc,
		engs:      engs,
		info:      info,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Routes mounts the API under /api with permissive CORS and tracing.
func (h *Handle) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Run-Id"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Post("/parse", h.Parse)
		r.Post("/debug", h.Debug)
	})

	return otelhttp.NewHandler(r, "labels-api")
}

// engine picks the request's engine: ?engine=... or the configured provider.
func (h *Handle) engine(r *http.Request) (lmm.Engine, error) {
	name := r.URL.Query().Get("engine")
	if name == "" {
		name = h.info.Provider
	}
	return h.engs.GetEngine(name)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps service errors: caller mistakes are 400, everything else
// is a failed run.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrInvalidRequest), errors.Is(err, errMissingFile), errors.Is(err, errEmptyFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
