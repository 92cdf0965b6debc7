package lmm

import (
	"context"

	"golang.org/x/time/rate"
)

type limitedEngine struct {
	limiter *rate.Limiter
	Engine
}

// NewLimited delays calls to e so they respect l. A nil limiter disables
// limiting. The limiter is shared across runs; it carries no run state.
func NewLimited(l *rate.Limiter, e Engine) Engine {
	if l == nil {
		return e
	}

	return &limitedEngine{
		limiter: l,
		Engine:  e,
	}
}

func (e *limitedEngine) Generate(ctx context.Context, req Request) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	return e.Engine.Generate(ctx, req)
}
