package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no object exists under a key
	ErrNotFound = errors.New("object not found")

	// ErrInvalidKey is returned for keys that are empty or escape the store root
	ErrInvalidKey = errors.New("invalid object key")

	// ErrNoPublicURL is returned by backends configured without a URL prefix
	ErrNoPublicURL = errors.New("public url not configured")
)

// Object describes a stored blob
type Object struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// Store defines the interface for uploaded file storage backends
type Store interface {
	// Put writes the content of r under key
	Put(ctx context.Context, key string, r io.Reader, contentType string) (*Object, error)

	// Get opens the object stored under key
	Get(ctx context.Context, key string) (io.ReadCloser, *Object, error)

	// URL returns the address clients use to fetch the object
	URL(ctx context.Context, key string) (string, error)

	// Delete removes the object stored under key
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds the key for an uploaded file:
// <domain>/<sitepath>/<channel>/<id>-<filename>.
func ObjectKey(domain, sitePath, channel, id, filename string) (string, error) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("%w: bad filename %q", ErrInvalidKey, filename)
	}
	for _, part := range []string{domain, channel, id} {
		if strings.ContainsAny(part, "/\\") || part == "." || part == ".." {
			return "", fmt.Errorf("%w: bad key segment %q", ErrInvalidKey, part)
		}
	}
	if hasDotDot(sitePath) {
		return "", fmt.Errorf("%w: bad site path %q", ErrInvalidKey, sitePath)
	}
	return CleanKey(path.Join(domain, sitePath, channel, id+"-"+name))
}

func hasDotDot(p string) bool {
	for _, seg := range strings.Split(strings.ReplaceAll(p, "\\", "/"), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// CleanKey normalizes key and rejects keys that would leave the store root.
func CleanKey(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}
	if hasDotDot(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+key), "/")
	if cleaned == "" {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// JoinURL appends an escaped key to prefix.
func JoinURL(prefix, key string) (string, error) {
	if prefix == "" {
		return "", ErrNoPublicURL
	}
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.Join(segs, "/"), nil
}
