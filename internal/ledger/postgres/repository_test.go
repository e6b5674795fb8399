package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-dropzone/internal/ledger"
)

// newTestRepository connects to TEST_DATABASE_URL and resets the upload table.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping database test in short mode")
	}
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)
	require.NoError(t, pool.Ping(ctx), "Failed to ping test database")

	repo := NewWithPool(pool)
	require.NoError(t, repo.Migrate(ctx))
	_, err = pool.Exec(ctx, "TRUNCATE dropzone_upload")
	require.NoError(t, err, "Failed to truncate dropzone_upload table")

	return repo
}

func TestRepository_CreateGetList(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	var ids []uuid.UUID
	for i, channel := range []string{"General", "Deals", "General"} {
		record := &ledger.Record{
			FileName:    channel + ".docx",
			Domain:      "contoso.sharepoint.com",
			SitePath:    "/sites/Marketing",
			ChannelName: channel,
			Uploader:    "megan",
			ObjectKey:   "k",
			URL:         "https://example/files/" + channel,
			ContentType: "application/msword",
			Size:        int64(i),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.Create(ctx, record))
		ids = append(ids, record.ID)
	}

	got, err := repo.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "General.docx", got.FileName)
	assert.True(t, base.Equal(got.CreatedAt))

	general, err := repo.List(ctx, ledger.Filter{ChannelName: "General"})
	require.NoError(t, err)
	require.Len(t, general, 2)
	assert.Equal(t, ids[2], general[0].ID)

	limited, err := repo.List(ctx, ledger.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRepository_DuplicateID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	record := &ledger.Record{FileName: "a.docx", Domain: "d", SitePath: "/s", ChannelName: "c", ObjectKey: "k", URL: "u", ContentType: "x"}
	require.NoError(t, repo.Create(ctx, record))

	err := repo.Create(ctx, record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
