package dropzone

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrPrecondition indicates an upload was started before the session was ready
	ErrPrecondition = errors.New("upload precondition failed")

	// ErrNoToken indicates no auth token has been acquired
	ErrNoToken = fmt.Errorf("%w: no auth token", ErrPrecondition)

	// ErrIncompleteContext indicates the host context is missing identifiers
	ErrIncompleteContext = fmt.Errorf("%w: host context incomplete", ErrPrecondition)

	// ErrNotEmbedded indicates the page is not running inside the host
	ErrNotEmbedded = errors.New("not embedded in host")

	// ErrTransferFailed indicates an upload request failed
	ErrTransferFailed = errors.New("transfer failed")
)

// FailedReason is the reason code reported to the host when initialization fails.
type FailedReason string

const (
	ReasonAuthFailed FailedReason = "AuthFailed"
	ReasonTimeout    FailedReason = "Timeout"
	ReasonOther      FailedReason = "Other"
)

// TokenError is returned by a Host when token acquisition fails.
type TokenError struct {
	Reason  FailedReason
	Message string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token acquisition failed (%s): %s", e.Reason, e.Message)
}

// TransferError describes a failed upload request.
type TransferError struct {
	File       string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransferError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("upload of %s failed: %v", e.File, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("upload of %s failed with status %d: %s", e.File, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("upload of %s failed", e.File)
	}
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is makes every TransferError match ErrTransferFailed.
func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}
