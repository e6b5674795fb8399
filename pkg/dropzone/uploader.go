package dropzone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Multipart field names of the upload endpoint contract.
const (
	FieldFile        = "file"
	FieldDomain      = "domain"
	FieldSitePath    = "sitepath"
	FieldChannelName = "channelname"
)

// maxResponseBody bounds how much of a response body is read.
const maxResponseBody = 64 << 10

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

const tracerName = "github.com/tendant/simple-dropzone/pkg/dropzone"

// Uploader sends one transfer request with the given bearer token.
type Uploader interface {
	Upload(ctx context.Context, token string, req TransferRequest) (UploadResult, error)
}

// UploaderFunc adapts a function to Uploader.
type UploaderFunc func(ctx context.Context, token string, req TransferRequest) (UploadResult, error)

// Upload calls f.
func (f UploaderFunc) Upload(ctx context.Context, token string, req TransferRequest) (UploadResult, error) {
	return f(ctx, token, req)
}

// HTTPUploader posts transfer requests as multipart forms.
type HTTPUploader struct {
	endpoint   string
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewHTTPUploader creates an uploader posting to endpoint. A nil client
// means http.DefaultClient; its timeout, if any, is the only one applied.
func NewHTTPUploader(endpoint string, client *http.Client) *HTTPUploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPUploader{
		endpoint:   endpoint,
		httpClient: client,
		tracer:     otel.Tracer(tracerName),
	}
}

// Endpoint returns the URL requests are posted to.
func (u *HTTPUploader) Endpoint() string {
	return u.endpoint
}

// Upload streams the file and context fields to the endpoint and returns
// the URL from the response body.
func (u *HTTPUploader) Upload(ctx context.Context, token string, req TransferRequest) (UploadResult, error) {
	ctx, span := u.tracer.Start(ctx, "dropzone.upload", trace.WithAttributes(
		attribute.String("dropzone.file", req.File.Name),
		attribute.Int64("dropzone.size", req.File.Size),
		attribute.String("dropzone.endpoint", u.endpoint),
	))
	defer span.End()

	result, err := u.do(ctx, token, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return UploadResult{}, err
	}
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (u *HTTPUploader) do(ctx context.Context, token string, req TransferRequest) (UploadResult, error) {
	src, err := req.File.Open()
	if err != nil {
		return UploadResult{}, &TransferError{File: req.File.Name, Err: fmt.Errorf("failed to open file: %w", err)}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		defer src.Close()
		pw.CloseWithError(writeForm(mw, src, req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, pr)
	if err != nil {
		pr.CloseWithError(err)
		return UploadResult{}, &TransferError{File: req.File.Name, Err: fmt.Errorf("failed to create upload request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.httpClient.Do(httpReq)
	if err != nil {
		pr.CloseWithError(err)
		return UploadResult{}, &TransferError{File: req.File.Name, Err: fmt.Errorf("upload request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return UploadResult{}, &TransferError{File: req.File.Name, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return UploadResult{}, &TransferError{File: req.File.Name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	url, err := parseURLBody(body)
	if err != nil {
		return UploadResult{}, &TransferError{File: req.File.Name, StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	return UploadResult{URL: url}, nil
}

func writeForm(mw *multipart.Writer, src io.Reader, req TransferRequest) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldFile, quoteEscaper.Replace(req.File.Name)))
	contentType := req.File.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to write file part: %w", err)
	}

	fields := [][2]string{
		{FieldDomain, req.Domain},
		{FieldSitePath, req.SitePath},
		{FieldChannelName, req.ChannelName},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

// parseURLBody returns the URL carried by a success body. The body is
// either plain text or a JSON string literal; its shape is not checked.
// Only trailing line breaks are dropped from plain text.
func parseURLBody(body []byte) (string, error) {
	text := strings.TrimRight(string(body), "\r\n")
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return "", fmt.Errorf("malformed response body: %w", err)
		}
		text = s
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response body")
	}
	return text, nil
}
