package resources

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"framekit/internal/docmodel"
	"framekit/internal/domain"
	"framekit/internal/domain/models"
	svc "framekit/internal/domain/services"
	"framekit/internal/repository/filestore"
	"framekit/internal/resource"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc       *ResourceService
	projectID string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWith(t, Options{
		LoadTimeout:     5 * time.Second,
		LoadConcurrency: 2,
	})
}

func newFixtureWith(t *testing.T, opts Options) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := filestore.NewStore(t.TempDir(), logger)
	require.NoError(t, err)

	projects := filestore.NewProjectRepository(store)
	docs := filestore.NewResourceDocumentRepository(store)
	s := NewResourceService(projects, docs, filestore.NewTransactionManager(store), opts, logger)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	p := &models.Project{Name: "demo"}
	require.NoError(t, projects.Create(context.Background(), p))
	return fixture{svc: s, projectID: p.ID}
}

func (f fixture) open(t *testing.T) *models.ResourceTree {
	t.Helper()
	tree, err := f.svc.OpenProject(context.Background(), f.projectID)
	require.NoError(t, err)
	return tree
}

func (f fixture) waitOpened(t *testing.T) loadReport {
	t.Helper()
	var ch <-chan loadReport
	sess, err := f.svc.session(f.projectID)
	require.NoError(t, err)
	_, err = call(context.Background(), sess, func() (struct{}, error) {
		ch = sess.opening
		return struct{}{}, nil
	})
	require.NoError(t, err)
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("background load did not finish")
		return loadReport{}
	}
}

func colourData(rgba uint64) docmodel.Dict {
	d := docmodel.NewDict()
	d.SetUint64("Colour", rgba)
	return d
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestOpenEmptyProject(t *testing.T) {
	f := newFixture(t)
	tree := f.open(t)
	assert.Equal(t, f.projectID, tree.ProjectID)
	assert.Equal(t, resource.FolderKind, tree.Root.Kind)
	assert.Empty(t, tree.Root.Children)
	assert.False(t, tree.Modified)

	report := f.waitOpened(t)
	assert.Equal(t, 0, report.Enabled)
}

func TestOperationsRequireOpenProject(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetTree(context.Background(), f.projectID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.svc.CloseProject(context.Background(), f.projectID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.OpenProject(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveAndReopen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	folder, err := f.svc.CreateFolder(ctx, &svc.CreateFolderRequest{ProjectID: f.projectID, Name: "Palette"})
	require.NoError(t, err)
	assert.Equal(t, "0", folder.Path)

	red, err := f.svc.CreateItem(ctx, &svc.CreateItemRequest{
		ProjectID: f.projectID,
		Parent:    "0",
		Name:      "red",
		Kind:      resource.ColourKind,
		Data:      colourData(0xFF0000FF),
		Enable:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, red.Item)
	assert.Equal(t, "0/0", red.Path)
	assert.True(t, red.Item.Online)

	blue, err := f.svc.CreateItem(ctx, &svc.CreateItemRequest{
		ProjectID: f.projectID,
		Parent:    "0",
		Name:      "blue",
		Kind:      resource.ColourKind,
		Enable:    true,
	})
	require.NoError(t, err)
	_, err = f.svc.SetOnline(ctx, &svc.SetOnlineRequest{ProjectID: f.projectID, Paths: []string{blue.Path}, Online: false})
	require.NoError(t, err)

	tree, err := f.svc.GetTree(ctx, f.projectID)
	require.NoError(t, err)
	assert.True(t, tree.Modified)

	require.NoError(t, f.svc.SaveProject(ctx, f.projectID))
	tree, err = f.svc.GetTree(ctx, f.projectID)
	require.NoError(t, err)
	assert.False(t, tree.Modified)

	require.NoError(t, f.svc.CloseProject(ctx, f.projectID))

	f.open(t)
	report := f.waitOpened(t)
	assert.Equal(t, 1, report.Enabled)

	tree, err = f.svc.GetTree(ctx, f.projectID)
	require.NoError(t, err)
	require.Len(t, tree.Root.Children, 1)
	palette := tree.Root.Children[0]
	assert.Equal(t, "Palette", palette.Name)
	require.Len(t, palette.Children, 2)

	reloadedRed := palette.Children[0]
	assert.Equal(t, red.Item.ID, reloadedRed.Item.ID)
	assert.True(t, reloadedRed.Item.Online, "saved online item comes back online")

	reloadedBlue := palette.Children[1]
	assert.False(t, reloadedBlue.Item.Online)
	assert.True(t, reloadedBlue.Item.OfflineByUser)
	assert.False(t, tree.Modified)
}

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	tests := []struct {
		name string
		req  svc.CreateItemRequest
	}{
		{"unknown kind", svc.CreateItemRequest{Name: "x", Kind: "r_nope"}},
		{"folder kind", svc.CreateItemRequest{Name: "x", Kind: resource.FolderKind}},
		{"blank name", svc.CreateItemRequest{Name: "  ", Kind: resource.ColourKind}},
		{"bad path", svc.CreateItemRequest{Parent: "a/b", Name: "x", Kind: resource.ColourKind}},
		{"bad data", svc.CreateItemRequest{Name: "x", Kind: resource.ColourKind, Data: colourData(1 << 40)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.ProjectID = f.projectID
			_, err := f.svc.CreateItem(ctx, &req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err := f.svc.CreateItem(ctx, &svc.CreateItemRequest{ProjectID: f.projectID, Parent: "7", Name: "x", Kind: resource.ColourKind})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCopyMoveAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	_, err := f.svc.CreateFolder(ctx, &svc.CreateFolderRequest{ProjectID: f.projectID, Name: "a"})
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, &svc.CreateFolderRequest{ProjectID: f.projectID, Name: "b"})
	require.NoError(t, err)
	_, err = f.svc.CreateItem(ctx, &svc.CreateItemRequest{ProjectID: f.projectID, Parent: "0", Name: "Clip", Kind: resource.ColourKind})
	require.NoError(t, err)

	copied, err := f.svc.Copy(ctx, &svc.TransferRequest{ProjectID: f.projectID, Target: "0", Paths: []string{"0/0"}})
	require.NoError(t, err)
	require.Len(t, copied.Nodes, 1)
	assert.Equal(t, "copy", copied.DropType)
	assert.Equal(t, "Clip (1)", copied.Nodes[0].Name)
	assert.True(t, copied.Nodes[0].Item.Online, "copies are loaded")

	moved, err := f.svc.Move(ctx, &svc.TransferRequest{ProjectID: f.projectID, Target: "1", Paths: []string{"0/1"}})
	require.NoError(t, err)
	require.Len(t, moved.Nodes, 1)
	assert.Equal(t, "1/0", moved.Nodes[0].Path)

	_, err = f.svc.Move(ctx, &svc.TransferRequest{ProjectID: f.projectID, Target: "0", Paths: []string{""}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	census, err := f.svc.Census(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, &models.Census{Folders: 2, Items: 2, Online: 1}, census)

	// 1/0 is covered by its folder
	require.NoError(t, f.svc.Delete(ctx, &svc.DeleteRequest{ProjectID: f.projectID, Paths: []string{"1/0", "1"}}))
	census, err = f.svc.Census(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, &models.Census{Folders: 1, Items: 1}, census)
}

func TestMoveFolderIntoItselfIsCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	_, err := f.svc.CreateFolder(ctx, &svc.CreateFolderRequest{ProjectID: f.projectID, Name: "a"})
	require.NoError(t, err)
	_, err = f.svc.CreateFolder(ctx, &svc.CreateFolderRequest{ProjectID: f.projectID, Parent: "0", Name: "b"})
	require.NoError(t, err)

	_, err = f.svc.Move(ctx, &svc.TransferRequest{ProjectID: f.projectID, Target: "0/0", Paths: []string{"0"}})
	assert.ErrorIs(t, err, domain.ErrCycle)
}

func TestRenameAndCurrentFolder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	_, err := f.svc.CreateFolder(ctx, &svc.CreateFolderRequest{ProjectID: f.projectID, Name: "a"})
	require.NoError(t, err)
	node, err := f.svc.Rename(ctx, &svc.RenameRequest{ProjectID: f.projectID, Path: "0", Name: " renamed "})
	require.NoError(t, err)
	assert.Equal(t, "renamed", node.Name)

	_, err = f.svc.Rename(ctx, &svc.RenameRequest{ProjectID: f.projectID, Path: "", Name: "root"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, f.svc.SetCurrentFolder(ctx, &svc.SetCurrentFolderRequest{ProjectID: f.projectID, Path: "0"}))
	tree, err := f.svc.GetTree(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, "0", tree.CurrentFolder)
}

func TestDropFilesAndResolveLoadError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	dir := t.TempDir()
	logo := filepath.Join(dir, "logo.png")
	writePNG(t, logo)
	missing := filepath.Join(dir, "missing.png")

	res, err := f.svc.DropFiles(ctx, &svc.DropFilesRequest{
		ProjectID: f.projectID,
		Files:     []string{logo, missing, filepath.Join(dir, "notes.txt")},
	})
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.Equal(t, []string{filepath.Join(dir, "notes.txt")}, res.Unhandled)
	assert.True(t, res.Created[0].Item.Online)
	assert.False(t, res.Created[1].Item.Online)

	loadErrors, err := f.svc.ListLoadErrors(ctx, f.projectID)
	require.NoError(t, err)
	require.Len(t, loadErrors, 1)
	assert.Equal(t, missing, loadErrors[0].FilePath)

	_, err = f.svc.DropFiles(ctx, &svc.DropFilesRequest{ProjectID: f.projectID, Files: []string{"relative.png"}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	fixed := filepath.Join(dir, "found.png")
	writePNG(t, fixed)
	ok, err := f.svc.ResolveLoadError(ctx, &svc.ResolveLoadErrorRequest{ProjectID: f.projectID, Index: 0, FilePath: fixed})
	require.NoError(t, err)
	assert.True(t, ok)

	loadErrors, err = f.svc.ListLoadErrors(ctx, f.projectID)
	require.NoError(t, err)
	assert.Empty(t, loadErrors)

	census, err := f.svc.Census(ctx, f.projectID)
	require.NoError(t, err)
	assert.Equal(t, 2, census.Online)
}

func TestSetOnlineRejectsFolders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	_, err := f.svc.CreateFolder(ctx, &svc.CreateFolderRequest{ProjectID: f.projectID, Name: "a"})
	require.NoError(t, err)
	_, err = f.svc.SetOnline(ctx, &svc.SetOnlineRequest{ProjectID: f.projectID, Paths: []string{"0"}, Online: true})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionPanicClosesSession(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	sess, err := f.svc.session(f.projectID)
	require.NoError(t, err)

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = call(context.Background(), sess, func() (int, error) { panic("boom") })
	})
	assert.Eventually(t, sess.isClosed, time.Second, 10*time.Millisecond)

	_, err = f.svc.GetTree(context.Background(), f.projectID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// a closed session is replaced on the next open
	tree, err := f.svc.OpenProject(context.Background(), f.projectID)
	require.NoError(t, err)
	assert.Equal(t, f.projectID, tree.ProjectID)
}

func TestCallHonoursContext(t *testing.T) {
	f := newFixture(t)
	f.open(t)
	sess, err := f.svc.session(f.projectID)
	require.NoError(t, err)

	release := make(chan struct{})
	sess.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = call(ctx, sess, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
