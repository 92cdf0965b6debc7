// Package lmm defines the contract for the large multimodal model that reads
// a drawing page and answers with its figure/component labels.
package lmm

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Generation settings shared by every engine. Extraction must be
// deterministic, so temperature is pinned to zero and JSON output requested.
const (
	Temperature            float32 = 0
	DefaultMaxOutputTokens         = 4096
	ResponseMIMEType               = "application/json"
)

var ErrMissingKey = errors.New("api key is empty")

// Request is a single page extraction call.
type Request struct {
	Image    []byte // PNG encoded page
	MIMEType string
	Prompt   string

	// Model overrides the engine default when set.
	Model string
}

// Engine performs one model call and returns the raw response text.
type Engine interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelFor picks the model of a request, falling back to def.
func ModelFor(req Request, def string) string {
	if m := strings.TrimSpace(req.Model); m != "" {
		return m
	}
	return strings.TrimSpace(def)
}

// MIMEFor returns the request image type, PNG by default.
func MIMEFor(req Request) string {
	if req.MIMEType != "" {
		return req.MIMEType
	}
	return "image/png"
}

type Engines struct {
	Gemini Engine
	Vertex Engine
}

// GetEngine resolves an engine by its configured name.
func (e *Engines) GetEngine(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gemini":
		if e.Gemini != nil {
			return e.Gemini, nil
		}
	case "vertex":
		if e.Vertex != nil {
			return e.Vertex, nil
		}
	default:
		return nil, errors.New("unknown engine; use 'gemini' or 'vertex'")
	}

	return nil, errors.New("engine " + name + " is not configured")
}

// Manager tracks a per-conversation engine choice on top of a default.
type Manager struct {
	def Engine
	m   sync.Map // chat id -> Engine
}

func NewManager(defaultEngine Engine) *Manager {
	return &Manager{def: defaultEngine}
}

func (m *Manager) Get(chatID int64) Engine {
	if v, ok := m.m.Load(chatID); ok {
		return v.(Engine)
	}
	return m.def
}

func (m *Manager) Set(chatID int64, e Engine) {
	m.m.Store(chatID, e)
}
