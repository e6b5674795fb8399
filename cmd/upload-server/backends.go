package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-dropzone/internal/ledger"
	ledgermemory "github.com/tendant/simple-dropzone/internal/ledger/memory"
	ledgerpostgres "github.com/tendant/simple-dropzone/internal/ledger/postgres"
	"github.com/tendant/simple-dropzone/internal/storage"
	fsstorage "github.com/tendant/simple-dropzone/internal/storage/fs"
	memorystorage "github.com/tendant/simple-dropzone/internal/storage/memory"
	s3storage "github.com/tendant/simple-dropzone/internal/storage/s3"
)

// openStore selects a storage backend from STORAGE_URL:
// memory://, file:///path or s3://bucket[/prefix].
// servesFiles reports whether /files must be mounted to serve the objects.
func openStore(ctx context.Context, cfg Config) (store storage.Store, servesFiles bool, err error) {
	raw := cfg.StorageURL
	if raw == "" || raw == "memory" || raw == "memory://" {
		slog.Info("Using in-memory storage")
		return memorystorage.New(memorystorage.Config{URLPrefix: cfg.filesURLPrefix()}), true, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, false, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		dir := u.Path
		if u.Host != "" {
			// file://relative/dir
			dir = u.Host + u.Path
		}
		slog.Info("Using filesystem storage", "dir", dir)
		backend, err := fsstorage.New(fsstorage.Config{BaseDir: dir, URLPrefix: cfg.filesURLPrefix()})
		if err != nil {
			return nil, false, fmt.Errorf("failed to create filesystem storage: %w", err)
		}
		return backend, true, nil
	case "s3":
		if u.Host == "" {
			return nil, false, fmt.Errorf("STORAGE_URL %s is missing the bucket", raw)
		}
		slog.Info("Using S3 storage", "bucket", u.Host, "endpoint", cfg.S3.Endpoint)
		backend, err := s3storage.New(ctx, s3storage.Config{
			Bucket:                 u.Host,
			Prefix:                 strings.Trim(u.Path, "/"),
			Region:                 cfg.S3.Region,
			AccessKeyID:            cfg.S3.AccessKeyID,
			SecretAccessKey:        cfg.S3.SecretAccessKey,
			Endpoint:               cfg.S3.Endpoint,
			UsePathStyle:           cfg.S3.UsePathStyle,
			PublicURL:              cfg.S3.PublicURL,
			PresignDuration:        cfg.S3.PresignSeconds,
			CreateBucketIfNotExist: cfg.S3.CreateBucket,
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to create S3 storage: %w", err)
		}
		return backend, false, nil
	default:
		return nil, false, fmt.Errorf("unsupported STORAGE_URL format: %s", raw)
	}
}

// openLedger selects the upload ledger from DATABASE_URL. The returned
// close function releases the database pool, if any.
func openLedger(ctx context.Context, databaseURL string) (ledger.Repository, func(), error) {
	if databaseURL == "" || databaseURL == "memory" {
		slog.Info("Using in-memory ledger")
		return ledgermemory.New(), func() {}, nil
	}
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return nil, nil, fmt.Errorf("unsupported DATABASE_URL format")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := ledgerpostgres.NewWithPool(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Info("Using postgres ledger")
	return repo, pool.Close, nil
}
