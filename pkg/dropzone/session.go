package dropzone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// displayNameClaims are checked in order when deriving a display name from a token.
var displayNameClaims = []string{"name", "preferred_username", "upn"}

// Session holds the host context and auth token for one page session.
// It is written only by its On* methods and read by Machine.
type Session struct {
	host     Host
	resource string
	logger   *slog.Logger

	mu          sync.RWMutex
	hctx        HostContext
	identity    string
	token       string
	displayName string
	err         string
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithSessionLogger sets the session logger
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session bound to host. resource is the identifier
// the token is requested for.
func NewSession(host Host, resource string, options ...SessionOption) *Session {
	s := &Session{
		host:     host,
		resource: resource,
		logger:   slog.Default(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Initialize determines embedding, fetches the host context and acquires a
// token, in that order. It returns ErrNotEmbedded outside the host and a
// *TokenError when auth fails.
func (s *Session) Initialize(ctx context.Context) error {
	embedded := s.host.InHost(ctx)
	if embedded {
		hc, err := s.host.Context(ctx)
		if err != nil {
			msg := fmt.Sprintf("failed to get host context: %v", err)
			s.setError(msg)
			s.host.NotifyFailure(ctx, ReasonOther, msg)
			return fmt.Errorf("failed to get host context: %w", err)
		}
		hc.Embedded = true
		s.OnContextAvailable(hc)
	}
	return s.OnEmbeddedDetermined(ctx, embedded)
}

// OnEmbeddedDetermined handles the host's embedding answer. Outside the
// host the identity becomes NotEmbeddedIdentity and no token is requested.
func (s *Session) OnEmbeddedDetermined(ctx context.Context, embedded bool) error {
	if !embedded {
		s.mu.Lock()
		s.hctx.Embedded = false
		s.identity = NotEmbeddedIdentity
		s.mu.Unlock()
		s.logger.InfoContext(ctx, "Not embedded in host, skipping token request")
		return ErrNotEmbedded
	}

	s.mu.Lock()
	s.hctx.Embedded = true
	s.mu.Unlock()

	token, err := s.host.RequestToken(ctx, s.resource)
	if err != nil {
		reason, message := ReasonAuthFailed, err.Error()
		var tokenErr *TokenError
		switch {
		case errors.As(err, &tokenErr):
			reason, message = tokenErr.Reason, tokenErr.Message
		case errors.Is(err, context.DeadlineExceeded):
			reason = ReasonTimeout
		}
		s.OnTokenFailed(ctx, reason, message)
		return &TokenError{Reason: reason, Message: message}
	}

	s.OnTokenAcquired(ctx, token)
	return nil
}

// OnTokenAcquired stores the token and signals the host that initialization succeeded.
func (s *Session) OnTokenAcquired(ctx context.Context, token string) {
	name := displayNameFromToken(token)

	s.mu.Lock()
	s.token = token
	s.displayName = name
	s.err = ""
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Auth token acquired", "display_name", name)
	s.host.NotifySuccess(ctx)
}

// OnTokenFailed stores the failure message and signals the host that
// initialization failed. There is no retry.
func (s *Session) OnTokenFailed(ctx context.Context, reason FailedReason, message string) {
	s.setError(message)
	s.logger.ErrorContext(ctx, "Auth token request failed", "reason", reason, "error", message)
	s.host.NotifyFailure(ctx, reason, message)
}

// OnContextAvailable replaces the identity and site identifiers together.
func (s *Session) OnContextAvailable(hc HostContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hctx.Embedded {
		hc.Embedded = true
	}
	s.hctx = hc
	s.identity = hc.EntityID
}

// Token returns the acquired token, or "" before acquisition.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Context returns a copy of the current host context.
func (s *Session) Context() HostContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hctx
}

// Identity returns the entity id, or the not-embedded placeholder.
func (s *Session) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// DisplayName returns the user name carried by the token, if any.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// Err returns the last initialization error message.
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// snapshot returns token and context under one lock so an upload never
// pairs a token with a context from a different update.
func (s *Session) snapshot() (string, HostContext) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.hctx
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// displayNameFromToken reads a name claim without verifying the token.
// The endpoint verifies; the client only needs it for display.
func displayNameFromToken(token string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	for _, key := range displayNameClaims {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
