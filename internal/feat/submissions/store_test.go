package submissions

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stereo-express/touch/internal/testutil"
	"github.com/stereo-express/touch/pkg/cl/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (Store, *sql.DB) {
	t.Helper()

	db, err := testutil.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(&testutil.TestDBProvider{DB: db}, logger.NewNoopLogger()), db
}

func janeSubmission() Submission {
	return Submission{
		Name:           "Jane",
		Mail:           "jane@x.com",
		SubjectID:      5,
		SubjectName:    "Sales",
		Message:        "Hi",
		Newsletter:     true,
		Language:       "en",
		Timestamp:      1700000000,
		IPAddress:      "203.0.113.7",
		IPAddressProxy: "198.51.100.1",
		UserAgent:      "Mozilla/5.0",
	}
}

func TestInsertSelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	in := janeSubmission()
	id := store.Insert(ctx, in)
	require.Greater(t, id, int64(0))

	got := store.Select(ctx, id)
	require.Len(t, got, 1)

	in.ID = id
	assert.Equal(t, in, got[0])
	assert.NotEmpty(t, got[0].SubjectName)
}

func TestInsertMultipleReturnsLastID(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	a, b := janeSubmission(), janeSubmission()
	b.Name = "John"

	last := store.Insert(ctx, a, b)
	require.Greater(t, last, int64(0))

	all := store.Select(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, last, all[1].ID)
	assert.Equal(t, "John", all[1].Name)
}

func TestInsertNothing(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.Zero(t, store.Insert(context.Background()))
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	first := store.Insert(ctx, janeSubmission())
	second := store.Insert(ctx, janeSubmission())
	third := store.Insert(ctx, janeSubmission())

	tests := []struct {
		name    string
		ids     []int64
		wantIDs []int64
	}{
		{name: "all", wantIDs: []int64{first, second, third}},
		{name: "subset", ids: []int64{third, first}, wantIDs: []int64{first, third}},
		{name: "no match", ids: []int64{999}, wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.Select(ctx, tt.ids...)
			assert.NotNil(t, got)
			var ids []int64
			for _, s := range got {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestUpdateMessageOnly(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	id := store.Insert(ctx, janeSubmission())
	before := store.Select(ctx, id)[0]

	changed := before
	changed.Message = "Hello again"
	require.Equal(t, int64(1), store.Update(ctx, changed))

	after := store.Select(ctx, id)[0]
	assert.Equal(t, "Hello again", after.Message)

	after.Message = before.Message
	assert.Equal(t, before, after)
}

func TestUpdateNeverWritesRequestMetadata(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	id := store.Insert(ctx, janeSubmission())
	changed := store.Select(ctx, id)[0]
	changed.IPAddress = "10.0.0.1"
	changed.IPAddressProxy = "10.0.0.2"
	changed.UserAgent = "curl"
	changed.Timestamp = 1600000000

	require.Equal(t, int64(1), store.Update(ctx, changed))

	got := store.Select(ctx, id)[0]
	assert.Equal(t, "203.0.113.7", got.IPAddress)
	assert.Equal(t, "198.51.100.1", got.IPAddressProxy)
	assert.Equal(t, "Mozilla/5.0", got.UserAgent)
	assert.Equal(t, int64(1600000000), got.Timestamp)
}

func TestUpdateAccumulates(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	a := store.Insert(ctx, janeSubmission())
	b := store.Insert(ctx, janeSubmission())
	subs := store.Select(ctx, a, b)

	missing := janeSubmission()
	missing.ID = 999

	assert.Equal(t, int64(2), store.Update(ctx, subs[0], missing, subs[1]))
}

func TestUpdateFailureKeepsCount(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t)

	id := store.Insert(ctx, janeSubmission())
	sub := store.Select(ctx, id)[0]
	require.Equal(t, int64(1), store.Update(ctx, sub))

	_, err := db.Exec(`DROP TABLE submissions`)
	require.NoError(t, err)
	assert.Zero(t, store.Update(ctx, sub))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestStore(t)

	id := store.Insert(ctx, janeSubmission())
	other := store.Insert(ctx, janeSubmission())

	assert.Equal(t, int64(1), store.Delete(ctx, id))
	assert.Empty(t, store.Select(ctx, id))
	assert.Len(t, store.Select(ctx, other), 1)

	assert.Zero(t, store.Delete(ctx, id), "deleting twice")
	assert.Zero(t, store.Delete(ctx))
}

func TestStorageErrorsDegrade(t *testing.T) {
	ctx := context.Background()
	store, db := setupTestStore(t)

	id := store.Insert(ctx, janeSubmission())
	require.NoError(t, db.Close())

	assert.Empty(t, store.Select(ctx))
	assert.NotNil(t, store.Select(ctx))
	assert.Zero(t, store.Insert(ctx, janeSubmission()))
	assert.Zero(t, store.Update(ctx, Submission{ID: id}))
	assert.Zero(t, store.Delete(ctx, id))
}
