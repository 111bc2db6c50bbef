package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ticketdesk/internal/persistence"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data", "ticketdesk.db")
	store, err := Open(context.Background(), DefaultConfig(path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_GetMissingKey(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)
	_, err := store.Get(context.Background(), "ticketapp_session")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestStore_SetReplacesRecord(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ticketapp_tickets", `[]`))
	require.NoError(t, store.Set(ctx, "ticketapp_tickets", `[{"id":7}]`))

	value, err := store.Get(ctx, "ticketapp_tickets")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":7}]`, value)
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ticketapp_session", `{}`))
	require.NoError(t, store.Remove(ctx, "ticketapp_session"))
	require.NoError(t, store.Remove(ctx, "ticketapp_session"))

	_, err := store.Get(ctx, "ticketapp_session")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestStore_RecordsSurviveReopen(t *testing.T) {
	t.Parallel()

	store, path := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "ticketapp_session", `{"email":"demo@test.com"}`))
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, DefaultConfig(path), nil)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get(ctx, "ticketapp_session")
	require.NoError(t, err)
	assert.Equal(t, `{"email":"demo@test.com"}`, value)

	version, err := reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), version)
}

func TestStore_ClosedStoreRejectsCalls(t *testing.T) {
	t.Parallel()

	store, _ := openTestStore(t)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	ctx := context.Background()
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, persistence.ErrClosed)
	assert.ErrorIs(t, store.Set(ctx, "k", "v"), persistence.ErrClosed)
	assert.ErrorIs(t, store.Remove(ctx, "k"), persistence.ErrClosed)
}

func TestStore_InMemoryDatabase(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := Open(ctx, Config{Path: MemoryPath, BusyTimeout: time.Second}, nil)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "k", "v"))
	value, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultConfig("db.sqlite")},
		{name: "empty path", cfg: Config{}, wantErr: true},
		{name: "negative timeout", cfg: Config{Path: "x", BusyTimeout: -time.Second}, wantErr: true},
		{name: "bad journal mode", cfg: Config{Path: "x", JournalMode: "ROLLBACK"}, wantErr: true},
		{name: "lower case modes", cfg: Config{Path: "x", JournalMode: "wal", Synchronous: "full"}},
		{name: "bad synchronous", cfg: Config{Path: "x", Synchronous: "SOMETIMES"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
