package lmm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const instrumentationName = "github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"

type observableEngine struct {
	Engine
}

// NewObservable wraps e so every call is recorded as a span.
func NewObservable(e Engine) Engine {
	return &observableEngine{Engine: e}
}

func (e *observableEngine) Generate(ctx context.Context, req Request) (string, error) {
	model := ModelFor(req, e.GetModel())

	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "generate "+model)
	defer span.End()

	span.SetAttributes(
		attribute.String("lmm.engine", e.Name()),
		attribute.String("lmm.model", model),
		attribute.Int("lmm.image_bytes", len(req.Image)),
	)

	text, err := e.Engine.Generate(ctx, req)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("lmm.response_chars", len(text)))
	return text, nil
}
