package dropzone

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// Status is the single transfer status shown for the whole drop zone.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusUploaded Status = "uploaded"
	StatusErrored  Status = "errored"
)

// IsTerminal reports whether the status ends an attempt.
func (s Status) IsTerminal() bool {
	return s == StatusUploaded || s == StatusErrored
}

// NotEmbeddedIdentity is the identity shown when the page runs outside the host.
const NotEmbeddedIdentity = "Not in Microsoft Teams"

// HostContext carries the identifiers delivered by the host application.
// An empty string means the field is absent.
type HostContext struct {
	Embedded    bool
	EntityID    string
	SiteDomain  string
	SitePath    string
	ChannelName string
	Theme       string
}

// Complete reports whether every identifier embedded in an upload request is present.
func (c HostContext) Complete() bool {
	return c.SiteDomain != "" && c.SitePath != "" && c.ChannelName != ""
}

// File is a dropped file handle. The content is opened lazily so a drop
// of many files does not hold them all in memory.
type File struct {
	Name        string
	Size        int64
	ContentType string

	open func() (io.ReadCloser, error)
}

// NewFile creates a file handle backed by the given opener.
func NewFile(name string, size int64, open func() (io.ReadCloser, error)) File {
	return File{
		Name:        name,
		Size:        size,
		ContentType: contentTypeFor(name),
		open:        open,
	}
}

// BytesFile creates a file handle over in-memory data.
func BytesFile(name string, data []byte) File {
	return NewFile(name, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// OpenLocal creates a file handle for a file on the local filesystem.
func OpenLocal(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return NewFile(filepath.Base(path), info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

// Open returns a reader over the file content.
func (f File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, errors.New("file has no content")
	}
	return f.open()
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// TransferRequest is one upload: the file plus the context identifiers
// captured when the attempt began.
type TransferRequest struct {
	File        File
	Domain      string
	SitePath    string
	ChannelName string
}

// UploadResult is what the endpoint returned for a successful upload.
type UploadResult struct {
	URL string
}

// AttemptID identifies one transfer attempt. Zero means no attempt.
type AttemptID uint64

// State is the complete observable state needed to render the drop zone.
type State struct {
	Status        Status
	URL           string
	Highlight     bool
	Error         string
	TransferError string
	Identity      string
	DisplayName   string
	Attempt       AttemptID
}
