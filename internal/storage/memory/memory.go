package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-dropzone/internal/storage"
)

type object struct {
	data []byte
	meta storage.Object
}

// Backend is an in-memory implementation of the storage.Store interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string]object
	urlPrefix string
}

// Config options for the memory backend
type Config struct {
	URLPrefix string // Prefix for object URLs, usually <public base>/files
}

// New creates a new in-memory storage backend
func New(config Config) *Backend {
	return &Backend{
		objects:   make(map[string]object),
		urlPrefix: config.URLPrefix,
	}
}

// Put stores the content in memory
func (b *Backend) Put(ctx context.Context, key string, r io.Reader, contentType string) (*storage.Object, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	meta := storage.Object{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
		UpdatedAt:   time.Now().UTC(),
	}

	b.mu.Lock()
	b.objects[key] = object{data: data, meta: meta}
	b.mu.Unlock()

	return &meta, nil
}

// Get returns a reader over a copy of the stored content
func (b *Backend) Get(ctx context.Context, key string) (io.ReadCloser, *storage.Object, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return nil, nil, err
	}

	b.mu.RLock()
	obj, ok := b.objects[key]
	b.mu.RUnlock()
	if !ok {
		return nil, nil, storage.ErrNotFound
	}

	meta := obj.meta
	return io.NopCloser(bytes.NewReader(obj.data)), &meta, nil
}

// URL returns the prefixed URL for key
func (b *Backend) URL(ctx context.Context, key string) (string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	return storage.JoinURL(b.urlPrefix, key)
}

// Delete removes the object
func (b *Backend) Delete(ctx context.Context, key string) error {
	key, err := storage.CleanKey(key)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(b.objects, key)
	return nil
}
