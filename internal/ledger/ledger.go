// Package ledger records files accepted by the upload endpoint.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps List results when the filter sets no limit.
const DefaultListLimit = 100

// ErrNotFound is returned when no record matches an id
var ErrNotFound = errors.New("upload record not found")

// Record describes one accepted upload
type Record struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	Domain      string    `json:"domain"`
	SitePath    string    `json:"site_path"`
	ChannelName string    `json:"channel_name"`
	Uploader    string    `json:"uploader,omitempty"`
	ObjectKey   string    `json:"object_key"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Domain      string
	SitePath    string
	ChannelName string
	Limit       int
}

// Matches reports whether r satisfies every non-empty field of f.
func (f Filter) Matches(r *Record) bool {
	if f.Domain != "" && f.Domain != r.Domain {
		return false
	}
	if f.SitePath != "" && f.SitePath != r.SitePath {
		return false
	}
	if f.ChannelName != "" && f.ChannelName != r.ChannelName {
		return false
	}
	return true
}

// EffectiveLimit returns Limit, or DefaultListLimit when unset.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Repository stores upload records
type Repository interface {
	Create(ctx context.Context, record *Record) error
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// List returns matching records, newest first
	List(ctx context.Context, filter Filter) ([]*Record, error)
}
