package dropzone_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-dropzone/pkg/dropzone"
)

func newTestMachine(t *testing.T, session *dropzone.Session, uploader dropzone.Uploader, options ...dropzone.Option) *dropzone.Machine {
	t.Helper()
	opts := append([]dropzone.Option{
		dropzone.WithSession(session),
		dropzone.WithUploader(uploader),
	}, options...)
	m, err := dropzone.New(opts...)
	require.NoError(t, err)
	return m
}

func TestNew_RequiresSessionAndUploader(t *testing.T) {
	_, err := dropzone.New(dropzone.WithUploader(&fakeUploader{}))
	assert.Error(t, err)

	_, err = dropzone.New(dropzone.WithSession(dropzone.NewSession(&fakeHost{}, testResource)))
	assert.Error(t, err)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, dropzone.StatusIdle.IsTerminal())
	assert.False(t, dropzone.StatusRunning.IsTerminal())
	assert.True(t, dropzone.StatusUploaded.IsTerminal())
	assert.True(t, dropzone.StatusErrored.IsTerminal())
}

func TestMachine_LogsSkippedFiles(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := newTestMachine(t, readySession(&fakeHost{}), &fakeUploader{}, dropzone.WithLogger(logger))

	ids, err := m.HandleDrop(context.Background(), dropzone.NewEvent(dropzone.BytesFile("notes.txt", []byte("x"))))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Contains(t, buf.String(), "Skipping file with disallowed extension")
	assert.Contains(t, buf.String(), "file=notes.txt")
}

func TestMachine_InitialState(t *testing.T) {
	m := newTestMachine(t, readySession(&fakeHost{}), &fakeUploader{})

	st := m.State()
	assert.Equal(t, dropzone.StatusIdle, st.Status)
	assert.Empty(t, st.URL)
	assert.False(t, st.Highlight)
	assert.Zero(t, st.Attempt)
}

func TestMachine_DragHandlersSuppressDefaults(t *testing.T) {
	m := newTestMachine(t, readySession(&fakeHost{}), &fakeUploader{})

	enter := dropzone.NewEvent()
	m.HandleDragEnter(enter)
	assert.True(t, enter.DefaultPrevented())
	assert.True(t, enter.PropagationStopped())
	assert.Equal(t, dropzone.DropEffectCopy, enter.Effect())
	assert.True(t, m.State().Highlight)

	over := dropzone.NewEvent()
	m.HandleDragOver(over)
	assert.True(t, over.DefaultPrevented())
	assert.True(t, over.PropagationStopped())
	assert.Equal(t, dropzone.DropEffectCopy, over.Effect())
	assert.True(t, m.State().Highlight, "dragover leaves highlight unchanged")

	leave := dropzone.NewEvent()
	m.HandleDragLeave(leave)
	assert.True(t, leave.DefaultPrevented())
	assert.True(t, leave.PropagationStopped())
	assert.Equal(t, dropzone.DropEffectCopy, leave.Effect())
	assert.False(t, m.State().Highlight)
}

func TestMachine_DropUploadsOnlyValidFiles(t *testing.T) {
	uploader := &fakeUploader{}
	sink := newRecordingSink()
	m := newTestMachine(t, readySession(&fakeHost{}), uploader, dropzone.WithEventSink(sink))

	ev := dropzone.NewEvent(
		dropzone.BytesFile("a.docx", []byte("a")),
		dropzone.BytesFile("b.png", []byte("b")),
		dropzone.BytesFile("c.pptx", []byte("c")),
		dropzone.BytesFile("d", []byte("d")),
		dropzone.BytesFile("e.xlsx", []byte("e")),
	)
	m.HandleDragEnter(dropzone.NewEvent())
	ids, err := m.HandleDrop(context.Background(), ev)
	require.NoError(t, err)
	m.Wait()

	assert.Len(t, ids, 3)
	assert.Equal(t, 3, uploader.calls())
	assert.Equal(t, []string{"b.png", "d"}, sink.skipped)
	assert.Len(t, sink.started, 3)
	assert.True(t, ev.DefaultPrevented())
	assert.True(t, ev.PropagationStopped())
	assert.False(t, m.State().Highlight)

	var names []string
	for _, req := range uploader.requests {
		names = append(names, req.File.Name)
		assert.Equal(t, readyContext.SiteDomain, req.Domain)
		assert.Equal(t, readyContext.SitePath, req.SitePath)
		assert.Equal(t, readyContext.ChannelName, req.ChannelName)
	}
	assert.ElementsMatch(t, []string{"a.docx", "c.pptx", "e.xlsx"}, names)
	assert.Equal(t, []string{"token-123", "token-123", "token-123"}, uploader.tokens)
}

func TestMachine_DropWithOnlyInvalidFilesChangesNothing(t *testing.T) {
	uploader := &fakeUploader{}
	m := newTestMachine(t, readySession(&fakeHost{}), uploader)

	ids, err := m.HandleDrop(context.Background(), dropzone.NewEvent(
		dropzone.BytesFile("a.pdf", nil),
		dropzone.BytesFile("b.exe", nil),
	))
	require.NoError(t, err)
	m.Wait()

	assert.Empty(t, ids)
	assert.Equal(t, 0, uploader.calls())
	st := m.State()
	assert.Equal(t, dropzone.StatusIdle, st.Status)
	assert.Empty(t, st.TransferError)
}

func TestMachine_InjectedPolicy(t *testing.T) {
	uploader := &fakeUploader{}
	m := newTestMachine(t, readySession(&fakeHost{}), uploader,
		dropzone.WithExtensionPolicy(dropzone.NewAllowList(true, "pdf")))

	_, err := m.HandleDrop(context.Background(), dropzone.NewEvent(
		dropzone.BytesFile("a.pdf", nil),
		dropzone.BytesFile("b.PDF", nil),
		dropzone.BytesFile("c.docx", nil),
	))
	require.NoError(t, err)
	m.Wait()

	require.Equal(t, 1, uploader.calls())
	assert.Equal(t, "a.pdf", uploader.requests[0].File.Name)
}

func TestMachine_BeginUploadGoesRunningBeforeRequest(t *testing.T) {
	release := make(chan struct{})
	seen := make(chan dropzone.Status, 1)
	var m *dropzone.Machine
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			seen <- m.State().Status
			<-release
			return dropzone.UploadResult{URL: "https://example/files/x.pdf"}, nil
		},
	}
	m = newTestMachine(t, readySession(&fakeHost{}), uploader)

	for _, from := range []dropzone.Status{dropzone.StatusIdle, dropzone.StatusUploaded} {
		assert.Equal(t, from, m.State().Status)

		_, err := m.BeginUpload(context.Background(), dropzone.BytesFile("x.docx", []byte("x")))
		require.NoError(t, err)
		assert.Equal(t, dropzone.StatusRunning, m.State().Status)
		assert.Equal(t, dropzone.StatusRunning, <-seen)

		release <- struct{}{}
		m.Wait()
	}
}

func TestMachine_SuccessStoresURLVerbatim(t *testing.T) {
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			return dropzone.UploadResult{URL: "https://example/files/x.pdf"}, nil
		},
	}
	m := newTestMachine(t, readySession(&fakeHost{}), uploader)

	id, err := m.BeginUpload(context.Background(), dropzone.BytesFile("x.docx", []byte("x")))
	require.NoError(t, err)
	m.Wait()

	st := m.State()
	assert.Equal(t, dropzone.StatusUploaded, st.Status)
	assert.Equal(t, "https://example/files/x.pdf", st.URL)
	assert.Equal(t, id, st.Attempt)
}

func TestMachine_FailureSetsErrored(t *testing.T) {
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			return dropzone.UploadResult{}, &dropzone.TransferError{File: req.File.Name, StatusCode: 500, Body: "conversion failed"}
		},
	}
	sink := newRecordingSink()
	m := newTestMachine(t, readySession(&fakeHost{}), uploader, dropzone.WithEventSink(sink))

	id, err := m.BeginUpload(context.Background(), dropzone.BytesFile("x.docx", []byte("x")))
	require.NoError(t, err)
	m.Wait()

	st := m.State()
	assert.Equal(t, dropzone.StatusErrored, st.Status)
	assert.Empty(t, st.URL)
	assert.Contains(t, st.TransferError, "500")
	assert.Equal(t, 1, uploader.calls(), "failed uploads are not retried")
	assert.True(t, sink.failed[id])
}

func TestMachine_ErroredThenNewDropRecovers(t *testing.T) {
	fail := true
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			if fail {
				return dropzone.UploadResult{}, errors.New("network down")
			}
			return dropzone.UploadResult{URL: "https://example/files/ok.pdf"}, nil
		},
	}
	m := newTestMachine(t, readySession(&fakeHost{}), uploader)

	_, err := m.HandleDrop(context.Background(), dropzone.NewEvent(dropzone.BytesFile("x.docx", nil)))
	require.NoError(t, err)
	m.Wait()
	require.Equal(t, dropzone.StatusErrored, m.State().Status)

	fail = false
	_, err = m.HandleDrop(context.Background(), dropzone.NewEvent(dropzone.BytesFile("x.docx", nil)))
	require.NoError(t, err)
	m.Wait()

	st := m.State()
	assert.Equal(t, dropzone.StatusUploaded, st.Status)
	assert.Equal(t, "https://example/files/ok.pdf", st.URL)
	assert.Empty(t, st.TransferError)
}

func TestMachine_Reset(t *testing.T) {
	uploader := &fakeUploader{}
	sink := newRecordingSink()
	m := newTestMachine(t, readySession(&fakeHost{}), uploader, dropzone.WithEventSink(sink))

	_, err := m.BeginUpload(context.Background(), dropzone.BytesFile("x.docx", nil))
	require.NoError(t, err)
	m.Wait()
	require.Equal(t, dropzone.StatusUploaded, m.State().Status)

	m.Reset(context.Background())
	st := m.State()
	assert.Equal(t, dropzone.StatusIdle, st.Status)
	assert.Empty(t, st.URL)

	m.Reset(context.Background())
	assert.Equal(t, st, m.State(), "reset is idempotent")
	assert.Equal(t, 2, sink.resets)
}

func TestMachine_ResetFromErrored(t *testing.T) {
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			return dropzone.UploadResult{}, errors.New("nope")
		},
	}
	m := newTestMachine(t, readySession(&fakeHost{}), uploader)

	_, err := m.BeginUpload(context.Background(), dropzone.BytesFile("x.docx", nil))
	require.NoError(t, err)
	m.Wait()

	m.Reset(context.Background())
	st := m.State()
	assert.Equal(t, dropzone.StatusIdle, st.Status)
	assert.Empty(t, st.URL)
	assert.Empty(t, st.TransferError)
}

func TestMachine_ResetFromIdle(t *testing.T) {
	m := newTestMachine(t, readySession(&fakeHost{}), &fakeUploader{})

	m.Reset(context.Background())
	assert.Equal(t, dropzone.StatusIdle, m.State().Status)
}

func TestMachine_PreconditionNoToken(t *testing.T) {
	host := &fakeHost{inHost: false}
	s := dropzone.NewSession(host, testResource)
	_ = s.Initialize(context.Background())
	s.OnContextAvailable(readyContext)

	uploader := &fakeUploader{}
	sink := newRecordingSink()
	m := newTestMachine(t, s, uploader, dropzone.WithEventSink(sink))

	_, err := m.BeginUpload(context.Background(), dropzone.BytesFile("x.docx", nil))
	assert.ErrorIs(t, err, dropzone.ErrNoToken)
	assert.ErrorIs(t, err, dropzone.ErrPrecondition)

	_, err = m.HandleDrop(context.Background(), dropzone.NewEvent(dropzone.BytesFile("x.docx", nil)))
	assert.ErrorIs(t, err, dropzone.ErrPrecondition)

	m.Wait()
	assert.Equal(t, 0, uploader.calls(), "no request without a token")
	assert.Empty(t, sink.started)
	assert.Equal(t, dropzone.StatusIdle, m.State().Status)
}

func TestMachine_PreconditionIncompleteContext(t *testing.T) {
	s := dropzone.NewSession(&fakeHost{}, testResource)
	s.OnTokenAcquired(context.Background(), "token-123")
	s.OnContextAvailable(dropzone.HostContext{EntityID: "tab", SiteDomain: "contoso.sharepoint.com"})

	uploader := &fakeUploader{}
	m := newTestMachine(t, s, uploader)

	_, err := m.BeginUpload(context.Background(), dropzone.BytesFile("x.docx", nil))
	assert.ErrorIs(t, err, dropzone.ErrIncompleteContext)
	assert.ErrorIs(t, err, dropzone.ErrPrecondition)
	assert.Equal(t, 0, uploader.calls())
}

func TestMachine_SupersededAttemptIsDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			if req.File.Name == "slow.docx" {
				<-releaseFirst
				return dropzone.UploadResult{URL: "https://example/files/slow.pdf"}, nil
			}
			return dropzone.UploadResult{URL: "https://example/files/fast.pdf"}, nil
		},
	}
	sink := newRecordingSink()
	m := newTestMachine(t, readySession(&fakeHost{}), uploader, dropzone.WithEventSink(sink))

	slowID, err := m.BeginUpload(context.Background(), dropzone.BytesFile("slow.docx", nil))
	require.NoError(t, err)
	fastID, err := m.BeginUpload(context.Background(), dropzone.BytesFile("fast.docx", nil))
	require.NoError(t, err)

	close(releaseFirst)
	m.Wait()

	st := m.State()
	assert.Equal(t, dropzone.StatusUploaded, st.Status)
	assert.Equal(t, "https://example/files/fast.pdf", st.URL)
	assert.Equal(t, fastID, st.Attempt)
	assert.False(t, sink.uploaded[slowID])
	assert.True(t, sink.uploaded[fastID])
}

func TestMachine_LateResultAfterResetIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			<-release
			return dropzone.UploadResult{URL: "https://example/files/late.pdf"}, nil
		},
	}
	m := newTestMachine(t, readySession(&fakeHost{}), uploader)

	_, err := m.BeginUpload(context.Background(), dropzone.BytesFile("late.docx", nil))
	require.NoError(t, err)
	m.Reset(context.Background())

	close(release)
	m.Wait()

	st := m.State()
	assert.Equal(t, dropzone.StatusIdle, st.Status)
	assert.Empty(t, st.URL)
}

func TestMachine_UploadOutlivesCallerContext(t *testing.T) {
	release := make(chan struct{})
	uploader := &fakeUploader{
		uploadFunc: func(ctx context.Context, token string, req dropzone.TransferRequest) (dropzone.UploadResult, error) {
			<-release
			if err := ctx.Err(); err != nil {
				return dropzone.UploadResult{}, err
			}
			return dropzone.UploadResult{URL: "https://example/files/x.pdf"}, nil
		},
	}
	m := newTestMachine(t, readySession(&fakeHost{}), uploader)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := m.BeginUpload(ctx, dropzone.BytesFile("x.docx", nil))
	require.NoError(t, err)
	cancel()
	close(release)
	m.Wait()

	assert.Equal(t, dropzone.StatusUploaded, m.State().Status)
}

func TestMachine_StateCarriesSession(t *testing.T) {
	host := &fakeHost{inHost: false}
	s := dropzone.NewSession(host, testResource)
	_ = s.Initialize(context.Background())
	m := newTestMachine(t, s, &fakeUploader{})

	st := m.State()
	assert.Equal(t, dropzone.NotEmbeddedIdentity, st.Identity)
	assert.Empty(t, st.Error)
}
