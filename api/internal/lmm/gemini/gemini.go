// Package gemini calls Gemini models through the Gemini API SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"
)

var _ lmm.Engine = (*Engine)(nil)

type Engine struct {
	APIKey string
	Model  string

	MaxOutputTokens int

	options []option.ClientOption
}

func New(apiKey, model string, maxOutputTokens int, opts ...option.ClientOption) *Engine {
	if maxOutputTokens <= 0 {
		maxOutputTokens = lmm.DefaultMaxOutputTokens
	}

	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),

		MaxOutputTokens: maxOutputTokens,

		options: opts,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// Generate sends the page image and prompt and returns the response text.
func (e *Engine) Generate(ctx context.Context, req lmm.Request) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("gemini: %w", lmm.ErrMissingKey)
	}

	opts := append([]option.ClientOption{option.WithAPIKey(e.APIKey)}, e.options...)

	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(lmm.ModelFor(req, e.Model))
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(lmm.Temperature),
		MaxOutputTokens:  ptrInt32(int32(e.MaxOutputTokens)),
		ResponseMIMEType: lmm.ResponseMIMEType,
	}

	parts := []genai.Part{
		genai.Text(req.Prompt),
		genai.Blob{MIMEType: lmm.MIMEFor(req), Data: req.Image},
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	return firstText(resp), nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder

	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	return sb.String()
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
