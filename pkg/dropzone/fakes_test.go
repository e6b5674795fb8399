package dropzone_test

import (
	"context"
	"errors"
	"sync"

	"github.com/tendant/simple-dropzone/pkg/dropzone"
)

// fakeHost is a hand-written Host with func fields and call recording
type fakeHost struct {
	mu sync.Mutex

	inHost       bool
	hostContext  dropzone.HostContext
	contextErr   error
	requestToken func(ctx context.Context, resource string) (string, error)

	tokenRequests []string
	successes     int
	failures      []hostFailure
}

type hostFailure struct {
	reason  dropzone.FailedReason
	message string
}

func (h *fakeHost) InHost(ctx context.Context) bool {
	return h.inHost
}

func (h *fakeHost) Context(ctx context.Context) (dropzone.HostContext, error) {
	if h.contextErr != nil {
		return dropzone.HostContext{}, h.contextErr
	}
	return h.hostContext, nil
}

func (h *fakeHost) RequestToken(ctx context.Context, resource string) (string, error) {
	h.mu.Lock()
	h.tokenRequests = append(h.tokenRequests, resource)
	h.mu.Unlock()
	if h.requestToken != nil {
		return h.requestToken(ctx, resource)
	}
	return "", errors.New("not implemented")
}

func (h *fakeHost) NotifySuccess(ctx context.Context) {
	h.mu.Lock()
	h.successes++
	h.mu.Unlock()
}

func (h *fakeHost) NotifyFailure(ctx context.Context, reason dropzone.FailedReason, message string) {
	h.mu.Lock()
	h.failures = append(h.failures, hostFailure{reason: reason, message: message})
	h.mu.Unlock()
}

func (h *fakeHost) tokenRequestCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tokenRequests)
}

// fakeUploader records requests and answers through uploadFunc
type fakeUploader struct {
	mu         sync.Mutex
	requests   []dropzone.TransferRequest
	tokens     []string
	uploadFunc func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error)
}

func (u *fakeUploader) Upload(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
	u.mu.Lock()
	u.requests = append(u.requests, req)
	u.tokens = append(u.tokens, token)
	fn := u.uploadFunc
	u.mu.Unlock()
	if fn != nil {
		return fn(ctx, token, req)
	}
	return dropzone.UploadResult{URL: "https://example/files/" + req.File.Name}, nil
}

func (u *fakeUploader) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

// recordingSink counts sink events
type recordingSink struct {
	dropzone.NoopEventSink

	mu       sync.Mutex
	skipped  []string
	started  []dropzone.AttemptID
	uploaded map[dropzone.AttemptID]bool
	failed   map[dropzone.AttemptID]bool
	resets   int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		uploaded: make(map[dropzone.AttemptID]bool),
		failed:   make(map[dropzone.AttemptID]bool),
	}
}

func (s *recordingSink) FileSkipped(ctx context.Context, filename string) {
	s.mu.Lock()
	s.skipped = append(s.skipped, filename)
	s.mu.Unlock()
}

func (s *recordingSink) TransferStarted(ctx context.Context, id dropzone.AttemptID, req dropzone.TransferRequest) {
	s.mu.Lock()
	s.started = append(s.started, id)
	s.mu.Unlock()
}

func (s *recordingSink) TransferUploaded(ctx context.Context, id dropzone.AttemptID, result dropzone.UploadResult, current bool) {
	s.mu.Lock()
	s.uploaded[id] = current
	s.mu.Unlock()
}

func (s *recordingSink) TransferFailed(ctx context.Context, id dropzone.AttemptID, err error, current bool) {
	s.mu.Lock()
	s.failed[id] = current
	s.mu.Unlock()
}

func (s *recordingSink) StateReset(ctx context.Context) {
	s.mu.Lock()
	s.resets++
	s.mu.Unlock()
}

var readyContext = dropzone.HostContext{
	Embedded:    true,
	EntityID:    "pdf-uploader-tab",
	SiteDomain:  "contoso.sharepoint.com",
	SitePath:    "/sites/Marketing",
	ChannelName: "General",
}

// readySession returns a session holding a token and a complete context.
func readySession(host *fakeHost) *dropzone.Session {
	host.inHost = true
	host.hostContext = readyContext
	host.requestToken = func(ctx context.Context, resource string) (string, error) {
		return "token-123", nil
	}
	s := dropzone.NewSession(host, "api://example.com/app-id")
	if err := s.Initialize(context.Background()); err != nil {
		panic(err)
	}
	return s
}
