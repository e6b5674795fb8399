package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-dropzone/internal/ledger"
)

// Repository is an in-memory implementation of ledger.Repository
type Repository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*ledger.Record
}

// New creates a new in-memory ledger
func New() *Repository {
	return &Repository{
		records: make(map[uuid.UUID]*ledger.Record),
	}
}

func (r *Repository) Create(ctx context.Context, record *ledger.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if _, exists := r.records[record.ID]; exists {
		return fmt.Errorf("upload record %s already exists", record.ID)
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	stored := *record
	r.records[record.ID] = &stored
	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*ledger.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	out := *record
	return &out, nil
}

func (r *Repository) List(ctx context.Context, filter ledger.Filter) ([]*ledger.Record, error) {
	r.mu.RLock()
	var result []*ledger.Record
	for _, record := range r.records {
		if filter.Matches(record) {
			out := *record
			result = append(result, &out)
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() > result[j].ID.String()
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit := filter.EffectiveLimit(); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
