package handle

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/marshmallow3210/patent-drawing-parser/api/internal/extract"
	"github.com/marshmallow3210/patent-drawing-parser/api/internal/util"
)

var (
	errMissingFile = errors.New("missing file")
	errEmptyFile   = errors.New("empty file")
)

// readFile reads the multipart "file" field, bounded by the upload limit.
func (h *Handle) readFile(w http.ResponseWriter, r *http.Request) (extract.Document, error) {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return extract.Document{}, err
		}
		return extract.Document{}, errMissingFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return extract.Document{}, errMissingFile
	}
	defer file.Close()

	if header.Filename == "" {
		return extract.Document{}, errEmptyFile
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return extract.Document{}, err
	}

	if len(data) == 0 {
		return extract.Document{}, errEmptyFile
	}

	h.logger.Debug("upload received", "file", header.Filename, "bytes", len(data),
		"mime", util.PickMIME(header.Header.Get("Content-Type"), data))

	return extract.Document{Name: header.Filename, Data: data}, nil
}

// Parse handles POST /api/parse?page=N | from=A&to=B [&show_rotation=1].
func (h *Handle) Parse(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readFile(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	q := r.URL.Query()

	sel, err := extract.ParseSelection(q.Get("page"), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	engine, err := h.engine(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := h.svc.Extract(r.Context(), extract.Request{
		Document:     doc,
		Selection:    sel,
		ShowRotation: q.Get("show_rotation") == "1",
	}, engine)
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("parse failed", "file", doc.Name, "error", err)
		}
		writeError(w, code, err)
		return
	}

	w.Header().Set("X-Run-Id", res.RunID)
	w.Header().Set("X-Cache", cacheHeader(res.Cached))
	writeJSON(w, http.StatusOK, res.Records)
}

// Debug handles POST /api/debug?page=N and returns the unparsed model reply.
func (h *Handle) Debug(w http.ResponseWriter, r *http.Request) {
	doc, err := h.readFile(w, r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if page, err = strconv.Atoi(v); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("page must be int"))
			return
		}
	}

	engine, err := h.engine(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	raw, rotation, err := h.svc.Inspect(r.Context(), doc, page, engine)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"raw":           raw,
		"page_rotation": rotation,
	})
}

// Health handles GET /api/health.
func (h *Handle) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"provider":   h.info.Provider,
		"model":      h.info.Model,
		"dpi":        h.info.DPI,
		"key_loaded": h.info.KeyLoaded,
	})
}

func cacheHeader(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
