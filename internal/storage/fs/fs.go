package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/tendant/simple-dropzone/internal/storage"
)

// Backend is a filesystem implementation of the storage.Store interface
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // Prefix for object URLs, usually <public base>/files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: config.URLPrefix,
	}, nil
}

func (b *Backend) path(key string) (string, string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(b.baseDir, filepath.FromSlash(key)), nil
}

// Put writes the content to a file under the base directory.
// The file is written to a temporary name first and renamed into place.
func (b *Backend) Put(ctx context.Context, key string, r io.Reader, contentType string) (*storage.Object, error) {
	key, filePath, err := b.path(key)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	return &storage.Object{
		Key:         key,
		Size:        n,
		ContentType: detectContentType(filePath, contentType),
		UpdatedAt:   info.ModTime(),
	}, nil
}

// Get opens the file stored under key
func (b *Backend) Get(ctx context.Context, key string) (io.ReadCloser, *storage.Object, error) {
	key, filePath, err := b.path(key)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(filePath)
	if os.IsNotExist(err) {
		return nil, nil, storage.ErrNotFound
	} else if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to get file info: %w", err)
	}

	return file, &storage.Object{
		Key:         key,
		Size:        info.Size(),
		ContentType: detectContentType(filePath, ""),
		UpdatedAt:   info.ModTime(),
	}, nil
}

// URL returns the prefixed URL for key
func (b *Backend) URL(ctx context.Context, key string) (string, error) {
	key, _, err := b.path(key)
	if err != nil {
		return "", err
	}
	return storage.JoinURL(b.urlPrefix, key)
}

// Delete deletes the file and any directories left empty
func (b *Backend) Delete(ctx context.Context, key string) error {
	_, filePath, err := b.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); os.IsNotExist(err) {
		return storage.ErrNotFound
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(filePath))
	return nil
}

// cleanupEmptyDirectories removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	for dir != b.baseDir && len(dir) > len(b.baseDir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if os.Remove(dir) != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// the filesystem keeps no metadata, so the type comes from the extension
func detectContentType(filePath, declared string) string {
	if declared != "" {
		return declared
	}
	if ct := mime.TypeByExtension(filepath.Ext(filePath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
