package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-dropzone/internal/storage"
)

// FilesHandler serves stored files for backends without their own public URLs
type FilesHandler struct {
	store   storage.Store
	metrics *Metrics
}

// NewFilesHandler creates a new files handler. metrics may be nil.
func NewFilesHandler(store storage.Store, metrics *Metrics) *FilesHandler {
	return &FilesHandler{store: store, metrics: metrics}
}

// Routes returns the router for file downloads
func (h *FilesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.Download)
	return r
}

// Download streams the object named by the wildcard path
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		// chi routes on the raw path when it differs from the default encoding
		unescaped, err := url.PathUnescape(key)
		if err != nil {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		key = unescaped
	}

	reader, obj, err := h.store.Get(r.Context(), key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		h.metrics.download("not_found")
		http.Error(w, "File not found", http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrInvalidKey):
		h.metrics.download("bad_request")
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("Failed to open file", "key", key, "error", err)
		h.metrics.download("error")
		http.Error(w, "Failed to open file", http.StatusInternalServerError)
		return
	}
	defer reader.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	h.metrics.download("ok")

	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("Failed to stream file", "key", key, "error", err)
	}
}
