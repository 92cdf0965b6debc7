package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/extract"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/util"
)

// ParseCaption reads a page selection from a document caption: "" for all
// pages, "3" for one page, "2-5" for a range.
func ParseCaption(caption string) (extract.Selection, error) {
	caption = strings.TrimSpace(caption)

	if from, to, ok := strings.Cut(caption, "-"); ok {
		return extract.ParseSelection("", from, to)
	}

	return extract.ParseSelection(caption, "", "")
}

func (r *Router) acceptDocument(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	d := msg.Document

	if !looksLikePDF(d) {
		r.send(cid, textSendPDF)
		return
	}

	if r.MaxUpload > 0 && int64(d.FileSize) > r.MaxUpload {
		r.send(cid, fmt.Sprintf("❌ file too large (max %d MB)", r.MaxUpload>>20))
		return
	}

	sel, err := ParseCaption(msg.Caption)
	if err != nil {
		r.sendError(cid, err)
		return
	}

	if !markBusy(cid) {
		r.send(cid, textBusy)
		return
	}
	defer clearBusy(cid)

	// download errors carry the file URL, which embeds the bot token
	data, err := r.download(ctx, d.FileID)
	if err != nil {
		r.logger().Error("download failed", "chat", cid, "file", d.FileName, "error", err)
		r.send(cid, textDownloadFailed)
		return
	}

	if !util.IsPDF(data) {
		r.send(cid, textSendPDF)
		return
	}

	engine := r.EngManager.Get(cid)
	r.send(cid, fmt.Sprintf(textAccepted, d.FileName, engine.Name()))

	res, err := r.Service.Extract(ctx, extract.Request{
		Document:     extract.Document{Name: d.FileName, Data: data},
		Selection:    sel,
		ShowRotation: true,
	}, engine)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidRequest) {
			r.sendError(cid, err)
			return
		}
		r.logger().Error("extract failed", "chat", cid, "file", d.FileName, "error", err)
		r.send(cid, textFailed)
		return
	}

	if len(res.Records) == 0 {
		r.send(cid, textNoFigures)
		return
	}

	body, err := json.MarshalIndent(res.Records, "", "  ")
	if err != nil {
		r.sendError(cid, err)
		return
	}

	stem := strings.TrimSuffix(d.FileName, filepath.Ext(d.FileName))
	doc := tgbotapi.NewDocument(cid, tgbotapi.FileBytes{Name: "labels_" + stem + ".json", Bytes: body})
	doc.Caption = summary(res)

	if _, err := r.Bot.Send(doc); err != nil {
		r.logger().Warn("telegram send failed", "chat", cid, "error", err)
	}
}

func looksLikePDF(d *tgbotapi.Document) bool {
	return d.MimeType == "application/pdf" || strings.EqualFold(filepath.Ext(d.FileName), ".pdf")
}

func summary(res *extract.Response) string {
	pages := map[int]struct{}{}
	labels := 0
	for _, rec := range res.Records {
		pages[rec.Page] = struct{}{}
		labels += len(rec.Components)
	}

	s := fmt.Sprintf("%d figures on %d pages, %d labels", len(res.Records), len(pages), labels)
	if res.Cached {
		s += " (cached)"
	}
	return s
}

func (r *Router) download(ctx context.Context, fileID string) ([]byte, error) {
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}

	var body io.Reader = resp.Body
	if r.MaxUpload > 0 {
		body = io.LimitReader(resp.Body, r.MaxUpload+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if r.MaxUpload > 0 && int64(len(data)) > r.MaxUpload {
		return nil, errors.New("file too large")
	}
	return data, nil
}
