package dropzone

import (
	"context"
	"log/slog"
)

// EventSink receives transfer lifecycle events from a Machine.
// Calls happen outside the machine's lock and must not block for long.
type EventSink interface {
	// FileSkipped is fired when a dropped file fails the extension check
	FileSkipped(ctx context.Context, filename string)

	// TransferStarted is fired when an attempt enters running
	TransferStarted(ctx context.Context, id AttemptID, req TransferRequest)

	// TransferUploaded is fired when an attempt's upload succeeded
	TransferUploaded(ctx context.Context, id AttemptID, result UploadResult, current bool)

	// TransferFailed is fired when an attempt's upload failed
	TransferFailed(ctx context.Context, id AttemptID, err error, current bool)

	// StateReset is fired when the machine returns to idle through Reset
	StateReset(ctx context.Context)
}

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return NoopEventSink{}
}

func (NoopEventSink) FileSkipped(context.Context, string) {}
func (NoopEventSink) TransferStarted(context.Context, AttemptID, TransferRequest) {}
func (NoopEventSink) TransferUploaded(context.Context, AttemptID, UploadResult, bool) {}
func (NoopEventSink) TransferFailed(context.Context, AttemptID, error, bool) {}
func (NoopEventSink) StateReset(context.Context) {}

// LoggingEventSink logs events but takes no other action
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates an event sink that writes to logger, or slog.Default when nil
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

func (l *LoggingEventSink) FileSkipped(ctx context.Context, filename string) {
	l.logger.DebugContext(ctx, "File skipped", "file", filename)
}

func (l *LoggingEventSink) TransferStarted(ctx context.Context, id AttemptID, req TransferRequest) {
	l.logger.InfoContext(ctx, "Transfer started",
		"attempt", id,
		"file", req.File.Name,
		"size", req.File.Size,
		"domain", req.Domain,
		"channel", req.ChannelName)
}

func (l *LoggingEventSink) TransferUploaded(ctx context.Context, id AttemptID, result UploadResult, current bool) {
	l.logger.InfoContext(ctx, "Transfer uploaded", "attempt", id, "url", result.URL, "current", current)
}

func (l *LoggingEventSink) TransferFailed(ctx context.Context, id AttemptID, err error, current bool) {
	l.logger.ErrorContext(ctx, "Transfer failed", "attempt", id, "error", err, "current", current)
}

func (l *LoggingEventSink) StateReset(ctx context.Context) {
	l.logger.InfoContext(ctx, "Drop zone reset")
}

// multiSink fans events out to several sinks in order.
type multiSink []EventSink

// MultiEventSink combines sinks. Nil entries are ignored.
func MultiEventSink(sinks ...EventSink) EventSink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) FileSkipped(ctx context.Context, filename string) {
	for _, s := range m {
		s.FileSkipped(ctx, filename)
	}
}

func (m multiSink) TransferStarted(ctx context.Context, id AttemptID, req TransferRequest) {
	for _, s := range m {
		s.TransferStarted(ctx, id, req)
	}
}

func (m multiSink) TransferUploaded(ctx context.Context, id AttemptID, result UploadResult, current bool) {
	for _, s := range m {
		s.TransferUploaded(ctx, id, result, current)
	}
}

func (m multiSink) TransferFailed(ctx context.Context, id AttemptID, err error, current bool) {
	for _, s := range m {
		s.TransferFailed(ctx, id, err, current)
	}
}

func (m multiSink) StateReset(ctx context.Context) {
	for _, s := range m {
		s.StateReset(ctx)
	}
}
