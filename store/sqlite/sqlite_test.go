package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/benefit-engine/claim"
	"github.com/warp/benefit-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestEventLog_AppendAndReplayOrder(t *testing.T) {
	// The three appends land within the same clock tick, and "app-1"
	// sorts before "cert-1": only insertion order gets this right.

	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"cert-1", "app-1", "not-1"} {
		require.NoError(t, store.AppendEvent(ctx, sqlite.EventRecord{
			ID:         id,
			EmployeeID: "12029912345",
			EmployerID: "org-1",
			Kind:       "document",
			Payload:    []byte(`{}`),
			ProducedAt: at.Add(time.Duration(i) * time.Minute),
		}))
	}

	records, err := store.LoadEvents(ctx, "12029912345")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "cert-1", records[0].ID)
	assert.Equal(t, "app-1", records[1].ID)
	assert.Equal(t, "not-1", records[2].ID)
}

func TestEventLog_DuplicateIDIsRefused(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := sqlite.EventRecord{
		ID:         "cert-1",
		EmployeeID: "12029912345",
		EmployerID: "org-1",
		Kind:       "document",
		Payload:    []byte(`{}`),
		ProducedAt: time.Now().UTC(),
	}

	require.NoError(t, store.AppendEvent(ctx, rec))
	err := store.AppendEvent(ctx, rec)

	assert.ErrorIs(t, err, sqlite.ErrDuplicateEvent)
}

func TestSnapshots_LatestWins(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, "12029912345", 3, []byte(`{"v":1}`)))
	require.NoError(t, store.SaveSnapshot(ctx, "12029912345", 3, []byte(`{"v":2}`)))

	data, err := store.LoadSnapshot(ctx, "12029912345")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), data)

	ids, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"12029912345"}, ids)
}

func TestSnapshots_MissingEmployeeYieldsNil(t *testing.T) {
	store := newStore(t)

	data, err := store.LoadSnapshot(context.Background(), "nobody")

	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestAuditTrail_PreservesInsertionOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2018, time.February, 1, 9, 0, 0, 0, time.UTC)

	entries := []claim.AuditEntry{
		{At: at, Level: claim.AuditInfo, Message: "claim period opened", EventID: "cert-1"},
		{At: at, Level: claim.AuditWarning, Message: "stale reminder", EventID: "rem-1"},
	}
	require.NoError(t, store.AppendAudit(ctx, "12029912345", entries))

	loaded, err := store.LoadAudit(ctx, "12029912345")
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, claim.AuditInfo, loaded[0].Level)
	assert.Equal(t, "stale reminder", loaded[1].Message)
	assert.True(t, loaded[0].At.Equal(at))
}
