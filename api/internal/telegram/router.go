package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/extract"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/lmm"
)

// Bot is the part of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Extractor runs one document through the pipeline.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request, engine lmm.Engine) (*extract.Response, error)
}

type Router struct {
	Bot        Bot
	EngManager *lmm.Manager
	Engines    *lmm.Engines
	Service    Extractor

	// MaxUpload limits accepted documents, in bytes. Zero means no limit.
	MaxUpload int64
	DPI       int

	Logger     *slog.Logger
	HTTPClient *http.Client
}

func (r *Router) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}

	msg := upd.Message

	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}

	if msg.Document != nil {
		r.acceptDocument(ctx, msg)
		return
	}

	if msg.Text != "" || len(msg.Photo) > 0 {
		r.send(msg.Chat.ID, textSendPDF)
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID

	switch msg.Command() {
	case "start", "help":
		r.send(cid, textStart)
	case "health":
		eng := r.EngManager.Get(cid)
		r.send(cid, fmt.Sprintf("✅ OK\nengine: %s (%s)\ndpi: %d", eng.Name(), eng.GetModel(), r.DPI))
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Unknown command. "+textCommands)
	}
}

// handleEngineCommand switches the chat's engine.
//
//	/engine
//	/engine gemini
//	/engine vertex
func (r *Router) handleEngineCommand(chatID int64, args string) {
	name := strings.ToLower(strings.TrimSpace(args))
	if name == "" {
		cur := r.EngManager.Get(chatID)
		r.send(chatID, "Current engine: "+cur.Name()+" ("+cur.GetModel()+")\nUsage: /engine gemini | /engine vertex")
		return
	}

	eng, err := r.Engines.GetEngine(name)
	if err != nil {
		r.send(chatID, "❌ "+err.Error())
		return
	}

	r.EngManager.Set(chatID, eng)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+").")
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Warn("telegram send failed", "chat", chatID, "error", err)
	}
}

func (r *Router) sendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("❌ %v", err))
}

func (r *Router) httpClient() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}
