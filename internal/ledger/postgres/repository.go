package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-dropzone/internal/ledger"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Schema creates the upload table. It is safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS dropzone_upload (
	id UUID PRIMARY KEY,
	file_name VARCHAR(1024) NOT NULL,
	domain VARCHAR(255) NOT NULL,
	site_path VARCHAR(1024) NOT NULL,
	channel_name VARCHAR(255) NOT NULL,
	uploader VARCHAR(255) NOT NULL DEFAULT '',
	object_key VARCHAR(2048) NOT NULL,
	url TEXT NOT NULL,
	content_type VARCHAR(255) NOT NULL,
	size_bytes BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS dropzone_upload_channel_idx
	ON dropzone_upload (domain, site_path, channel_name, created_at DESC);
`

const columns = `id, file_name, domain, site_path, channel_name, uploader,
	object_key, url, content_type, size_bytes, created_at`

// Repository implements ledger.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL ledger
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL ledger with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate creates the schema if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("migrate", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("upload record already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.ErrNotFound
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) Create(ctx context.Context, record *ledger.Record) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO dropzone_upload (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.FileName, record.Domain, record.SitePath, record.ChannelName,
		record.Uploader, record.ObjectKey, record.URL, record.ContentType,
		record.Size, record.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create upload", err)
	}

	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*ledger.Record, error) {
	query := `SELECT ` + columns + ` FROM dropzone_upload WHERE id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.handlePostgresError("get upload", err)
	}
	return record, nil
}

func (r *Repository) List(ctx context.Context, filter ledger.Filter) ([]*ledger.Record, error) {
	var conds []string
	var args []interface{}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("domain", filter.Domain)
	add("site_path", filter.SitePath)
	add("channel_name", filter.ChannelName)

	query := `SELECT ` + columns + ` FROM dropzone_upload`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, filter.EffectiveLimit())
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list uploads", err)
	}
	defer rows.Close()

	var result []*ledger.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan upload", err)
		}
		result = append(result, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list uploads", err)
	}

	return result, nil
}

func scanRecord(row pgx.Row) (*ledger.Record, error) {
	var record ledger.Record
	err := row.Scan(
		&record.ID, &record.FileName, &record.Domain, &record.SitePath, &record.ChannelName,
		&record.Uploader, &record.ObjectKey, &record.URL, &record.ContentType,
		&record.Size, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
