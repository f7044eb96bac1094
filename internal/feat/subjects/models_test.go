package subjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSubjectSetOrdering(t *testing.T) {
	set := NewSubjectSet([]Info{
		{ID: 1, Name: "support", Weight: 1},
		{ID: 2, Name: "Billing", Weight: 1},
		{ID: 3, Name: "Sales", Weight: 0},
		{ID: 4, Name: "agency", Weight: 2},
		{ID: 5, Name: "Press", Weight: 0},
	})

	assert.Equal(t, []int64{5, 3, 2, 1, 4}, set.IDs())
	assert.Equal(t, 5, set.Len())

	info, ok := set.Get(2)
	assert.True(t, ok)
	assert.Equal(t, "Billing", info.Name)

	_, ok = set.Get(99)
	assert.False(t, ok)
}

func TestNewSubjectSetDoesNotModifyInput(t *testing.T) {
	items := []Info{{ID: 1, Name: "B"}, {ID: 2, Name: "A"}}
	NewSubjectSet(items)
	assert.Equal(t, int64(1), items[0].ID)
}

func TestEmptySubjectSet(t *testing.T) {
	var set SubjectSet
	_, ok := set.Get(1)
	assert.False(t, ok)
	assert.Zero(t, set.Len())
	assert.Empty(t, set.IDs())
}

func TestTranslate(t *testing.T) {
	s := Subject{
		ID:          5,
		Name:        "Sales",
		Description: "Orders and quotes",
		Translations: map[string]Translation{
			"fr": {Name: "Ventes", Description: "Commandes et devis"},
			"de": {Name: "Vertrieb"},
		},
	}

	tests := []struct {
		locale   string
		wantName string
		wantDesc string
	}{
		{"fr", "Ventes", "Commandes et devis"},
		{"de", "Vertrieb", "Orders and quotes"},
		{"en", "Sales", "Orders and quotes"},
	}
	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			got := s.Translate(tt.locale)
			assert.Equal(t, tt.wantName, got.Name)
			assert.Equal(t, tt.wantDesc, got.Description)
			assert.Equal(t, int64(5), got.ID)
		})
	}
	assert.Equal(t, "Sales", s.Name, "Translate must not modify the receiver")
}
