package subjects

import (
	"context"
	"testing"

	"github.com/stereo-express/touch/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepository(t *testing.T) Repository {
	t.Helper()

	db, err := testutil.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(&testutil.TestDBProvider{DB: db})
}

func seedSubjects(t *testing.T, repo Repository, list ...Subject) {
	t.Helper()
	for _, s := range list {
		require.NoError(t, repo.Upsert(context.Background(), s))
	}
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	seedSubjects(t, repo, Subject{
		ID:          5,
		Name:        "Sales",
		Description: "Orders and **quotes**",
		Weight:      2,
		HasMail:     true,
		Mail:        "sales@x.com",
		Published:   true,
		Translations: map[string]Translation{
			"fr": {Name: "Ventes", Description: "Commandes"},
		},
	})

	got, err := repo.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Sales", got.Name)
	assert.Equal(t, "Orders and **quotes**", got.Description)
	assert.Equal(t, 2, got.Weight)
	assert.True(t, got.HasMail)
	assert.Equal(t, "sales@x.com", got.Mail)
	assert.True(t, got.Published)
	assert.Equal(t, Translation{Name: "Ventes", Description: "Commandes"}, got.Translations["fr"])

	// upsert replaces fields and translations
	seedSubjects(t, repo, Subject{ID: 5, Name: "Sales team", Published: true})

	got, err = repo.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Sales team", got.Name)
	assert.False(t, got.HasMail)
	assert.Empty(t, got.Translations)
}

func TestRepositoryGetNotFound(t *testing.T) {
	repo := setupTestRepository(t)

	_, err := repo.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrSubjectNotFound)
}

func TestRepositoryMailField(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	seedSubjects(t, repo,
		Subject{ID: 1, Name: "No mail field", Published: true},
		Subject{ID: 2, Name: "Empty mail", HasMail: true, Published: true},
	)

	noField, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, noField.HasMail)

	empty, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.True(t, empty.HasMail)
	assert.Equal(t, "", empty.Mail)
}

func TestRepositoryPublished(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepository(t)

	seedSubjects(t, repo,
		Subject{ID: 3, Name: "Press", HasMail: true, Published: true,
			Translations: map[string]Translation{"de": {Name: "Presse"}}},
		Subject{ID: 1, Name: "Archived", HasMail: true, Published: false},
		Subject{ID: 2, Name: "Sales", HasMail: true, Published: true},
	)

	list, err := repo.Published(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, int64(3), list[1].ID)
	assert.Equal(t, "Presse", list[1].Translations["de"].Name)
	assert.Nil(t, list[0].Translations)
}

func TestRepositoryPublishedEmpty(t *testing.T) {
	list, err := setupTestRepository(t).Published(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
