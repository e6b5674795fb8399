package dropzone

import "context"

// Host is the embedding application that supplies context and auth.
type Host interface {
	// InHost reports whether the page runs embedded in the host.
	InHost(ctx context.Context) bool

	// Context returns the host's current context.
	Context(ctx context.Context) (HostContext, error)

	// RequestToken asks the host for a token for resource. Failures should
	// be a *TokenError; other errors are reported as ReasonAuthFailed.
	RequestToken(ctx context.Context, resource string) (string, error)

	// NotifySuccess signals that initialization succeeded.
	NotifySuccess(ctx context.Context)

	// NotifyFailure signals that initialization failed.
	NotifyFailure(ctx context.Context, reason FailedReason, message string)
}
