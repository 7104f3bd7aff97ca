package seed

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"framekit/internal/domain"
	"framekit/internal/repository/filestore"
	"framekit/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoFixture = `
projects:
  - name: Demo
    resources:
      - folder: Palette
        children:
          - name: red
            kind: r_colour
            id: 40
            data:
              Colour: 4278190335
          - name: muted
            kind: r_colour
            online: false
      - name: Title
        kind: r_txtstyle
        data:
          FontSize: 48
`

func newSeeder(t *testing.T) (*Seeder, *filestore.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := filestore.NewStore(t.TempDir(), logger)
	require.NoError(t, err)
	return NewSeeder(
		filestore.NewProjectRepository(store),
		filestore.NewResourceDocumentRepository(store),
		filestore.NewTransactionManager(store),
		nil,
		logger,
	), store
}

func TestImportFixture(t *testing.T) {
	ctx := context.Background()
	s, store := newSeeder(t)

	f, err := ParseFixture(strings.NewReader(demoFixture))
	require.NoError(t, err)
	require.Len(t, f.Projects, 1)

	res, err := s.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Projects: 1, Folders: 1, Items: 3}, res)

	projects, err := filestore.NewProjectRepository(store).List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	doc, err := filestore.NewResourceDocumentRepository(store).Load(ctx, projects[0].ID)
	require.NoError(t, err)

	m := resource.NewManager(nil)
	require.NoError(t, m.Deserialise(doc.Data, resource.DefaultRegistry()))
	require.Equal(t, 2, m.Root().Len())

	palette, ok := m.Root().At(0).(*resource.Folder)
	require.True(t, ok)
	red := palette.At(0).(*resource.Item)
	assert.Equal(t, uint64(40), red.UniqueID())
	assert.Equal(t, uint32(0xFF0000FF), red.Content().(*resource.Colour).RGBA())

	muted := palette.At(1).(*resource.Item)
	assert.True(t, muted.IsOfflineByUser())
	assert.False(t, red.IsOfflineByUser())

	// importing again replaces the stored tree of the same project
	res, err = s.Import(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replaced)
	projects, err = filestore.NewProjectRepository(store).List(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestImportRejectsBadFixtures(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{"unknown kind", "projects:\n  - name: x\n    resources:\n      - name: a\n        kind: r_nope\n"},
		{"item with children", "projects:\n  - name: x\n    resources:\n      - name: a\n        kind: r_colour\n        children:\n          - folder: b\n"},
		{"folder with kind", "projects:\n  - name: x\n    resources:\n      - folder: a\n        kind: r_colour\n"},
		{"no name", "projects:\n  - resources: []\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newSeeder(t)
			f, err := ParseFixture(strings.NewReader(tt.fixture))
			require.NoError(t, err)
			_, err = s.Import(context.Background(), f)
			assert.Error(t, err)
		})
	}

	_, err := ParseFixture(strings.NewReader("projects:\n  - name: x\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestImportNameRequired(t *testing.T) {
	s, _ := newSeeder(t)
	_, err := s.Import(context.Background(), &Fixture{Projects: []ProjectFixture{{Name: "  "}}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
