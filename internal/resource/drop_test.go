package resource

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"framekit/internal/domain"
)

func TestDropCopy_RenamesAwayFromSiblings(t *testing.T) {
	reg := testRegistry()
	m := NewManager(nil)
	src := NewFolder("src")
	dest := NewFolder("dest")
	mustAdd(t, m.Root(), src)
	mustAdd(t, m.Root(), dest)

	orig, _ := newProbeItem("Clip")
	mustAdd(t, src, orig)
	c0, _ := newProbeItem("Clip")
	c1, _ := newProbeItem("Clip (1)")
	mustAdd(t, dest, c0)
	mustAdd(t, dest, c1)

	var loaded []*Item
	load := func(ctx context.Context, items []*Item) error {
		loaded = append(loaded, items...)
		return nil
	}

	copies, err := DropResourceList(context.Background(), dest, []Resource{orig}, DropCopy, reg, load)
	if err != nil {
		t.Fatal(err)
	}
	if len(copies) != 1 || copies[0].DisplayName() != "Clip (2)" {
		t.Fatalf("copies = %v", copies)
	}
	clone := copies[0].(*Item)
	if clone == orig || clone.Parent() != dest || orig.Parent() != src {
		t.Error("copy must be a new item in dest, leaving the source alone")
	}
	if clone.UniqueID() == orig.UniqueID() || clone.UniqueID() == EmptyID {
		t.Errorf("copy id %d (source %d)", clone.UniqueID(), orig.UniqueID())
	}
	if len(loaded) != 1 || loaded[0] != clone {
		t.Errorf("loader got %v", loaded)
	}
}

func TestDropCopy_FolderIsDeepCopied(t *testing.T) {
	reg := testRegistry()
	m := NewManager(nil)
	f := NewFolder("f")
	mustAdd(t, m.Root(), f)
	inner, p := newProbeItem("inner")
	p.Label = "payload"
	mustAdd(t, f, inner)

	copies, err := DropResourceList(context.Background(), m.Root(), []Resource{f}, DropCopy, reg, LoadSequential(nil))
	if err != nil {
		t.Fatal(err)
	}
	cp := copies[0].(*Folder)
	if cp.DisplayName() != "f (1)" || cp.Len() != 1 {
		t.Fatalf("copy = %q with %d items", cp.DisplayName(), cp.Len())
	}
	innerCopy := cp.At(0).(*Item)
	if innerCopy == inner || innerCopy.Content() == inner.Content() {
		t.Error("children must be independent")
	}
	if innerCopy.Content().(*probe).Label != "payload" {
		t.Error("content not copied")
	}
	if !innerCopy.IsOnline() {
		t.Error("copied item should have been auto-enabled")
	}
}

func TestDropMove(t *testing.T) {
	reg := testRegistry()
	m := NewManager(nil)
	a := NewFolder("a")
	b := NewFolder("b")
	mustAdd(t, m.Root(), a)
	mustAdd(t, m.Root(), b)
	x, _ := newProbeItem("x")
	y, _ := newProbeItem("y")
	mustAdd(t, a, x)
	mustAdd(t, b, y)

	moved, err := DropResourceList(context.Background(), b, []Resource{x, y}, DropMove, reg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(moved) != 1 || moved[0] != x {
		t.Errorf("moved = %v", moved)
	}
	if got := names(b); !equalNames(got, []string{"y", "x"}) {
		t.Errorf("b = %v", got)
	}
	if a.Len() != 0 {
		t.Error("x still in a")
	}
}

func TestCanDropResourceList(t *testing.T) {
	m := NewManager(nil)
	a := NewFolder("a")
	b := NewFolder("b")
	mustAdd(t, m.Root(), a)
	mustAdd(t, a, b)
	it, _ := newProbeItem("it")
	mustAdd(t, m.Root(), it)

	tests := []struct {
		name  string
		dest  *Folder
		items []Resource
		want  bool
	}{
		{"item into sub folder", b, []Resource{it}, true},
		{"folder into its child", b, []Resource{a}, false},
		{"folder into itself", a, []Resource{a}, false},
		{"anything into root", m.Root(), []Resource{a, it}, true},
		{"nothing", b, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanDropResourceList(tt.dest, tt.items, DropMove); got != tt.want {
				t.Errorf("CanDropResourceList() = %v, want %v", got, tt.want)
			}
		})
	}

	_, err := DropResourceList(context.Background(), b, []Resource{a}, DropMove, testRegistry(), nil)
	if !errors.Is(err, domain.ErrCycle) {
		t.Errorf("DropResourceList(cycle) error = %v", err)
	}
}

func TestParseDropType(t *testing.T) {
	if d, err := ParseDropType("Copy"); err != nil || d != DropCopy {
		t.Errorf("copy: %v %v", d, err)
	}
	if d, err := ParseDropType("move"); err != nil || d != DropMove {
		t.Errorf("move: %v %v", d, err)
	}
	if _, err := ParseDropType("link"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("link: %v", err)
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestNativeDrop_FirstMatchWinsAndLoads(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "logo.png")
	writePNG(t, pngPath)
	mediaPath := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(mediaPath, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(nil)
	loader := NewLoader()
	reg := DefaultNativeDropRegistry()

	res, err := reg.DropFiles(context.Background(), m.Root(),
		[]string{pngPath, mediaPath, filepath.Join(dir, "notes.txt")}, LoadSequential(loader))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 2 || len(res.Unhandled) != 1 {
		t.Fatalf("created %d, unhandled %v", len(res.Created), res.Unhandled)
	}
	if res.Created[0].FactoryID() != ImageKind || res.Created[1].FactoryID() != AVMediaKind {
		t.Errorf("kinds = %s, %s", res.Created[0].FactoryID(), res.Created[1].FactoryID())
	}
	for _, it := range res.Created {
		if !it.IsOnline() {
			t.Errorf("%s not online: %v", it.DisplayName(), loader.Entries())
		}
	}
	if img := res.Created[0].Content().(*Image).Decoded(); img == nil || img.Bounds().Dx() != 2 {
		t.Error("image not decoded")
	}
	if err := res.Created[1].Destroy(); err != nil {
		t.Errorf("closing media: %v", err)
	}
}

func TestNativeDrop_MissingFileStaysWithLoaderEntry(t *testing.T) {
	m := NewManager(nil)
	loader := NewLoader()
	missing := filepath.Join(t.TempDir(), "gone.png")

	res, err := DefaultNativeDropRegistry().DropFiles(context.Background(), m.Root(), []string{missing}, LoadSequential(loader))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Created) != 1 || res.Created[0].IsOnline() {
		t.Fatal("expected one offline item")
	}
	entries := loader.Entries()
	if len(entries) != 1 || entries[0].Path != missing {
		t.Fatalf("entries = %+v", entries)
	}

	fixed := filepath.Join(t.TempDir(), "found.png")
	writePNG(t, fixed)
	ok, err := loader.Resolve(context.Background(), 0, fixed)
	if err != nil || !ok {
		t.Fatalf("Resolve = %v, %v", ok, err)
	}
	if got := res.Created[0].Content().(*Image).Path; got != fixed {
		t.Errorf("path not re-pointed: %s", got)
	}
}

func TestNativeDrop_CancelledLoadRollsBack(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.png")
	writePNG(t, p)

	m := NewManager(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := DefaultNativeDropRegistry().DropFiles(ctx, m.Root(), []string{p}, LoadSequential(nil))
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(res.Created) != 0 || m.Root().Len() != 0 || m.Len() != 0 {
		t.Error("dropped items were not rolled back")
	}
}
