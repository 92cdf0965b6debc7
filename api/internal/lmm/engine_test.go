package lmm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type stubEngine struct {
	name  string
	model string

	calls []Request
	text  string
	err   error
}

func (s *stubEngine) Name() string     { return s.name }
func (s *stubEngine) GetModel() string { return s.model }

func (s *stubEngine) Generate(ctx context.Context, req Request) (string, error) {
	s.calls = append(s.calls, req)
	return s.text, s.err
}

func TestGetEngine(t *testing.T) {
	g := &stubEngine{name: "gemini"}
	v := &stubEngine{name: "vertex"}

	engines := &Engines{Gemini: g, Vertex: v}

	e, err := engines.GetEngine("")
	require.NoError(t, err)
	assert.Same(t, g, e)

	e, err = engines.GetEngine(" Vertex ")
	require.NoError(t, err)
	assert.Same(t, v, e)

	_, err = engines.GetEngine("gpt")
	require.Error(t, err)

	_, err = (&Engines{Gemini: g}).GetEngine("vertex")
	require.Error(t, err)
}

func TestModelFor(t *testing.T) {
	assert.Equal(t, "gemini-2.5-flash", ModelFor(Request{}, " gemini-2.5-flash "))
	assert.Equal(t, "gemini-3-flash", ModelFor(Request{Model: "gemini-3-flash"}, "gemini-2.5-flash"))
	assert.Equal(t, "image/png", MIMEFor(Request{}))
	assert.Equal(t, "image/jpeg", MIMEFor(Request{MIMEType: "image/jpeg"}))
}

func TestManager(t *testing.T) {
	def := &stubEngine{name: "gemini"}
	other := &stubEngine{name: "vertex"}

	m := NewManager(def)
	assert.Same(t, def, m.Get(1))

	m.Set(1, other)
	assert.Same(t, other, m.Get(1))
	assert.Same(t, def, m.Get(2))
}

func TestLimitedPassesThrough(t *testing.T) {
	s := &stubEngine{name: "gemini", text: "[]"}

	e := NewLimited(rate.NewLimiter(rate.Inf, 1), s)

	text, err := e.Generate(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, "gemini", e.Name())
	require.Len(t, s.calls, 1)

	assert.Same(t, s, NewLimited(nil, s))
}

func TestLimitedHonoursDeadline(t *testing.T) {
	s := &stubEngine{name: "gemini"}

	l := rate.NewLimiter(rate.Every(time.Hour), 1)
	require.True(t, l.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewLimited(l, s).Generate(ctx, Request{})
	require.Error(t, err)
	assert.Empty(t, s.calls)
}

func TestObservable(t *testing.T) {
	boom := errors.New("boom")
	s := &stubEngine{name: "gemini", model: "m", err: boom}

	_, err := NewObservable(s).Generate(context.Background(), Request{})
	require.ErrorIs(t, err, boom)

	s.err = nil
	s.text = "ok"

	text, err := NewObservable(s).Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}
