package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-dropzone/internal/ledger"
	"github.com/tendant/simple-dropzone/internal/storage"
	"github.com/tendant/simple-dropzone/pkg/dropzone"
)

// DefaultMaxUploadBytes limits the request body when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// in-memory part of a parsed multipart form; the rest spills to temp files
const formMemory = 8 << 20

// UploadHandler serves the drop zone upload endpoint
type UploadHandler struct {
	store    storage.Store
	ledger   ledger.Repository
	policy   dropzone.ExtensionPolicy
	maxBytes int64
	metrics  *Metrics
	newID    func() uuid.UUID
	logger   *slog.Logger
}

// UploadOption configures an UploadHandler
type UploadOption func(*UploadHandler)

// WithExtensionPolicy restricts accepted file names
func WithExtensionPolicy(policy dropzone.ExtensionPolicy) UploadOption {
	return func(h *UploadHandler) {
		h.policy = policy
	}
}

// WithMaxUploadBytes caps the request body size
func WithMaxUploadBytes(n int64) UploadOption {
	return func(h *UploadHandler) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithMetrics records endpoint counters
func WithMetrics(m *Metrics) UploadOption {
	return func(h *UploadHandler) {
		h.metrics = m
	}
}

// WithLogger sets the handler logger
func WithLogger(logger *slog.Logger) UploadOption {
	return func(h *UploadHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(store storage.Store, repo ledger.Repository, opts ...UploadOption) *UploadHandler {
	h := &UploadHandler{
		store:    store,
		ledger:   repo,
		policy:   dropzone.NewAllowList(false, dropzone.DefaultExtensions...),
		maxBytes: DefaultMaxUploadBytes,
		newID:    uuid.New,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router for upload endpoints
func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/upload", h.Upload)
	r.Get("/uploads", h.ListUploads)
	r.Get("/uploads/{upload_id}", h.GetUpload)
	return r
}

// Upload accepts a multipart form with file, domain, sitepath and channelname
// and answers with the URL of the stored file as plain text.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Upload too large", "limit", h.maxBytes)
			h.metrics.upload("too_large")
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error("Fail to parse multipart form", "error", err)
		h.metrics.upload("bad_request")
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(dropzone.FieldFile)
	if err != nil {
		h.logger.Error("Missing file part", "error", err)
		h.metrics.upload("bad_request")
		http.Error(w, "File is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	domain := strings.TrimSpace(r.FormValue(dropzone.FieldDomain))
	sitePath := strings.TrimSpace(r.FormValue(dropzone.FieldSitePath))
	channelName := strings.TrimSpace(r.FormValue(dropzone.FieldChannelName))
	for _, field := range [][2]string{
		{dropzone.FieldDomain, domain},
		{dropzone.FieldSitePath, sitePath},
		{dropzone.FieldChannelName, channelName},
	} {
		if field[1] == "" {
			h.logger.Error("Missing form field", "field", field[0])
			h.metrics.upload("bad_request")
			http.Error(w, field[0]+" is required", http.StatusBadRequest)
			return
		}
	}

	if !h.policy.Allowed(header.Filename) {
		h.logger.Warn("Rejected file extension", "file", header.Filename)
		h.metrics.upload("unsupported")
		http.Error(w, "Unsupported file type", http.StatusUnsupportedMediaType)
		return
	}

	id := h.newID()
	key, err := storage.ObjectKey(domain, sitePath, channelName, id.String(), header.Filename)
	if err != nil {
		h.logger.Error("Invalid object key", "file", header.Filename, "site_path", sitePath, "error", err)
		h.metrics.upload("bad_request")
		http.Error(w, "Invalid upload location", http.StatusBadRequest)
		return
	}

	obj, err := h.store.Put(ctx, key, file, header.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("Failed to store file", "key", key, "error", err)
		h.metrics.upload("error")
		http.Error(w, "Failed to store file", http.StatusInternalServerError)
		return
	}

	fileURL, err := h.store.URL(ctx, key)
	if err != nil {
		h.logger.Error("Failed to build file URL", "key", key, "error", err)
		h.discard(ctx, obj.Key)
		h.metrics.upload("error")
		http.Error(w, "Failed to build file URL", http.StatusInternalServerError)
		return
	}

	record := &ledger.Record{
		ID:          id,
		FileName:    header.Filename,
		Domain:      domain,
		SitePath:    sitePath,
		ChannelName: channelName,
		Uploader:    subject(r),
		ObjectKey:   obj.Key,
		URL:         fileURL,
		ContentType: obj.ContentType,
		Size:        obj.Size,
	}
	if err := h.ledger.Create(ctx, record); err != nil {
		h.logger.Error("Failed to record upload", "id", id, "error", err)
		h.discard(ctx, obj.Key)
		h.metrics.upload("error")
		http.Error(w, "Failed to record upload", http.StatusInternalServerError)
		return
	}

	h.logger.Info("File uploaded",
		"id", id,
		"file", header.Filename,
		"size", obj.Size,
		"channel", channelName,
		"uploader", record.Uploader)
	h.metrics.upload("ok")
	h.metrics.uploaded(obj.Size)

	render.PlainText(w, r, fileURL)
}

// discard removes a stored object that has no ledger record.
func (h *UploadHandler) discard(ctx context.Context, key string) {
	if err := h.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		h.logger.Error("Failed to remove unrecorded file", "key", key, "error", err)
	}
}

// ListUploads returns ledger records filtered by domain, sitepath and channelname
func (h *UploadHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ledger.Filter{
		Domain:      q.Get(dropzone.FieldDomain),
		SitePath:    q.Get(dropzone.FieldSitePath),
		ChannelName: q.Get(dropzone.FieldChannelName),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	records, err := h.ledger.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list uploads", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*ledger.Record{}
	}

	render.JSON(w, r, records)
}

// GetUpload returns a single ledger record
func (h *UploadHandler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "upload_id"))
	if err != nil {
		http.Error(w, "Invalid upload ID", http.StatusBadRequest)
		return
	}

	record, err := h.ledger.Get(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		http.Error(w, "Upload not found", http.StatusNotFound)
		return
	} else if err != nil {
		h.logger.Error("Failed to get upload", "id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	render.JSON(w, r, record)
}

// subject returns the sub claim of the verified bearer token, if any
func subject(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}
