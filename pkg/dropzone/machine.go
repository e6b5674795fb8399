package dropzone

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Machine is the transfer state machine behind a drop zone. It turns drag
// events into upload attempts and tracks one shared status for the zone.
//
// Status follows the most recently started attempt. A completion from an
// attempt that has been superseded by a newer BeginUpload or by Reset is
// reported to the EventSink but does not change the state.
type Machine struct {
	session  *Session
	uploader Uploader
	policy   ExtensionPolicy
	sink     EventSink
	logger   *slog.Logger

	mu          sync.Mutex
	status      Status
	result      UploadResult
	transferErr string
	highlight   bool
	current     AttemptID
	lastID      AttemptID

	inflight sync.WaitGroup
}

// Option represents a functional option for configuring the machine
type Option func(*Machine)

// WithSession sets the session providing token and host context
func WithSession(session *Session) Option {
	return func(m *Machine) {
		m.session = session
	}
}

// WithUploader sets the uploader used for transfer requests
func WithUploader(uploader Uploader) Option {
	return func(m *Machine) {
		m.uploader = uploader
	}
}

// WithExtensionPolicy sets the policy deciding which dropped files are uploaded
func WithExtensionPolicy(policy ExtensionPolicy) Option {
	return func(m *Machine) {
		m.policy = policy
	}
}

// WithEventSink sets the event sink for the machine
func WithEventSink(sink EventSink) Option {
	return func(m *Machine) {
		m.sink = sink
	}
}

// WithLogger sets the machine logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New creates a machine in the idle state
func New(options ...Option) (*Machine, error) {
	m := &Machine{
		policy: NewAllowList(false, DefaultExtensions...),
		sink:   NewNoopEventSink(),
		logger: slog.Default(),
		status: StatusIdle,
	}

	for _, option := range options {
		option(m)
	}

	if m.session == nil {
		return nil, errors.New("session is required")
	}
	if m.uploader == nil {
		return nil, errors.New("uploader is required")
	}
	if m.policy == nil {
		return nil, errors.New("extension policy is required")
	}
	if m.sink == nil {
		m.sink = NewNoopEventSink()
	}

	return m, nil
}

// HandleDragEnter turns the drop zone highlight on.
func (m *Machine) HandleDragEnter(ev DragEvent) {
	allowDrop(ev)
	m.setHighlight(true)
}

// HandleDragOver keeps the drop allowed and the cursor on copy.
func (m *Machine) HandleDragOver(ev DragEvent) {
	allowDrop(ev)
}

// HandleDragLeave turns the drop zone highlight off.
func (m *Machine) HandleDragLeave(ev DragEvent) {
	allowDrop(ev)
	m.setHighlight(false)
}

// HandleDrop starts one upload attempt per dropped file with an accepted
// extension. Other files are skipped without any state change. It stops at
// the first precondition failure.
func (m *Machine) HandleDrop(ctx context.Context, ev DragEvent) ([]AttemptID, error) {
	allowDrop(ev)
	m.setHighlight(false)

	var started []AttemptID
	for _, file := range ev.Files() {
		if !m.IsValidExtension(file.Name) {
			m.logger.DebugContext(ctx, "Skipping file with disallowed extension", "file", file.Name)
			m.sink.FileSkipped(ctx, file.Name)
			continue
		}
		id, err := m.BeginUpload(ctx, file)
		if err != nil {
			return started, err
		}
		started = append(started, id)
	}
	return started, nil
}

// IsValidExtension reports whether filename passes the extension policy.
func (m *Machine) IsValidExtension(filename string) bool {
	return m.policy.Allowed(filename)
}

// BeginUpload moves the zone to running and dispatches one upload of file.
// It returns ErrNoToken or ErrIncompleteContext, without touching state or
// the network, when the session is not ready. The upload itself runs on its
// own goroutine and is not cancelled when ctx is.
func (m *Machine) BeginUpload(ctx context.Context, file File) (AttemptID, error) {
	token, hc := m.session.snapshot()
	if token == "" {
		return 0, ErrNoToken
	}
	if !hc.Complete() {
		return 0, ErrIncompleteContext
	}

	req := TransferRequest{
		File:        file,
		Domain:      hc.SiteDomain,
		SitePath:    hc.SitePath,
		ChannelName: hc.ChannelName,
	}

	m.mu.Lock()
	m.lastID++
	id := m.lastID
	m.current = id
	m.status = StatusRunning
	m.result = UploadResult{}
	m.transferErr = ""
	m.inflight.Add(1)
	m.mu.Unlock()

	m.sink.TransferStarted(ctx, id, req)

	go m.run(context.WithoutCancel(ctx), id, token, req)
	return id, nil
}

func (m *Machine) run(ctx context.Context, id AttemptID, token string, req TransferRequest) {
	defer m.inflight.Done()

	result, err := m.uploader.Upload(ctx, token, req)

	m.mu.Lock()
	current := m.current == id
	if current {
		if err != nil {
			m.status = StatusErrored
			m.result = UploadResult{}
			m.transferErr = err.Error()
		} else {
			m.status = StatusUploaded
			m.result = result
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.sink.TransferFailed(ctx, id, err, current)
		return
	}
	m.sink.TransferUploaded(ctx, id, result, current)
}

// Reset returns the zone to idle and drops the last result. Attempts still
// in flight are superseded. It never fails and may be called repeatedly.
func (m *Machine) Reset(ctx context.Context) {
	m.mu.Lock()
	m.status = StatusIdle
	m.result = UploadResult{}
	m.transferErr = ""
	m.current = 0
	m.mu.Unlock()

	m.sink.StateReset(ctx)
}

// State returns the current rendering state.
func (m *Machine) State() State {
	m.mu.Lock()
	st := State{
		Status:        m.status,
		URL:           m.result.URL,
		Highlight:     m.highlight,
		TransferError: m.transferErr,
		Attempt:       m.current,
	}
	m.mu.Unlock()

	st.Error = m.session.Err()
	st.Identity = m.session.Identity()
	st.DisplayName = m.session.DisplayName()
	return st
}

// Wait blocks until every dispatched upload has completed.
func (m *Machine) Wait() {
	m.inflight.Wait()
}

func (m *Machine) setHighlight(on bool) {
	m.mu.Lock()
	m.highlight = on
	m.mu.Unlock()
}

// allowDrop keeps the platform from opening the file and marks the drop as a copy.
func allowDrop(ev DragEvent) {
	ev.PreventDefault()
	ev.StopPropagation()
	ev.SetDropEffect(DropEffectCopy)
}
