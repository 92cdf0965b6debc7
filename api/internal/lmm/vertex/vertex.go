// Package vertex calls Gemini models hosted on Vertex AI using an API key
// (Vertex AI express mode).
package vertex

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"
)

var _ lmm.Engine = (*Engine)(nil)

type Engine struct {
	APIKey string
	Model  string

	MaxOutputTokens int

	client *http.Client
}

type Option func(*Engine)

// WithClient sets the HTTP client used for API calls.
func WithClient(client *http.Client) Option {
	return func(e *Engine) {
		e.client = client
	}
}

func New(apiKey, model string, maxOutputTokens int, options ...Option) *Engine {
	if maxOutputTokens <= 0 {
		maxOutputTokens = lmm.DefaultMaxOutputTokens
	}

	e := &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),

		MaxOutputTokens: maxOutputTokens,
	}

	for _, option := range options {
		option(e)
	}

	return e
}

func (e *Engine) Name() string     { return "vertex" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) newClient(ctx context.Context) (*genai.Client, error) {
	config := &genai.ClientConfig{
		APIKey:  e.APIKey,
		Backend: genai.BackendVertexAI,

		HTTPClient: e.client,
	}

	return genai.NewClient(ctx, config)
}

// Generate sends the page image and prompt and returns the response text.
func (e *Engine) Generate(ctx context.Context, req lmm.Request) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("vertex: %w", lmm.ErrMissingKey)
	}

	client, err := e.newClient(ctx)
	if err != nil {
		return "", fmt.Errorf("vertex client: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(req.Image, lmm.MIMEFor(req)),
		}, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(lmm.Temperature),
		MaxOutputTokens:  int32(e.MaxOutputTokens),
		ResponseMIMEType: lmm.ResponseMIMEType,
	}

	resp, err := client.Models.GenerateContent(ctx, lmm.ModelFor(req, e.Model), contents, config)
	if err != nil {
		return "", fmt.Errorf("vertex generate: %w", err)
	}

	return resp.Text(), nil
}
