package dropzone

import "context"

// StaticHost is a Host with fixed answers, for command line tools and tests
// that run the drop zone outside a real host application.
type StaticHost struct {
	Embedded    bool
	HostContext HostContext

	// Token is returned by RequestToken unless TokenFunc is set
	Token     string
	TokenFunc func(ctx context.Context, resource string) (string, error)

	OnSuccess func(ctx context.Context)
	OnFailure func(ctx context.Context, reason FailedReason, message string)
}

var _ Host = (*StaticHost)(nil)

func (h *StaticHost) InHost(context.Context) bool {
	return h.Embedded
}

func (h *StaticHost) Context(context.Context) (HostContext, error) {
	return h.HostContext, nil
}

func (h *StaticHost) RequestToken(ctx context.Context, resource string) (string, error) {
	if h.TokenFunc != nil {
		return h.TokenFunc(ctx, resource)
	}
	if h.Token == "" {
		return "", &TokenError{Reason: ReasonAuthFailed, Message: "no token configured"}
	}
	return h.Token, nil
}

func (h *StaticHost) NotifySuccess(ctx context.Context) {
	if h.OnSuccess != nil {
		h.OnSuccess(ctx)
	}
}

func (h *StaticHost) NotifyFailure(ctx context.Context, reason FailedReason, message string) {
	if h.OnFailure != nil {
		h.OnFailure(ctx, reason, message)
	}
}
