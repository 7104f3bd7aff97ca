package resource

import (
	"errors"
	"testing"

	"framekit/internal/domain"
)

func names(f *Folder) []string {
	out := make([]string, 0, f.Len())
	for _, r := range f.Items() {
		out = append(out, r.DisplayName())
	}
	return out
}

func equalNames(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestFolder_InsertPreconditions(t *testing.T) {
	m := NewManager(nil)
	a := NewFolder("a")
	b := NewFolder("b")
	if err := m.Root().AddItem(a); err != nil {
		t.Fatalf("AddItem(a): %v", err)
	}

	tests := []struct {
		name    string
		target  *Folder
		index   int
		item    Resource
		wantErr error
	}{
		{name: "nil item", target: b, index: 0, item: nil, wantErr: domain.ErrInvalidState},
		{name: "already parented", target: b, index: 0, item: a, wantErr: domain.ErrInvalidState},
		{name: "root folder", target: b, index: 0, item: m.Root(), wantErr: domain.ErrInvalidState},
		{name: "index too large", target: b, index: 1, item: NewFolder("x"), wantErr: domain.ErrInvalidState},
		{name: "negative index", target: b, index: -1, item: NewFolder("x"), wantErr: domain.ErrInvalidState},
		{name: "into itself", target: b, index: 0, item: b, wantErr: domain.ErrCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.InsertItem(tt.index, tt.item)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("InsertItem() error = %v, want %v", err, tt.wantErr)
			}
			if tt.target.Len() != 0 {
				t.Errorf("target mutated: %v", names(tt.target))
			}
		})
	}
}

func TestFolder_InsertDetachedAncestorIsCycle(t *testing.T) {
	outer := NewFolder("outer")
	inner := NewFolder("inner")
	if err := outer.AddItem(inner); err != nil {
		t.Fatal(err)
	}

	err := inner.AddItem(outer)
	if !errors.Is(err, domain.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if outer.Parent() != nil {
		t.Error("outer gained a parent")
	}
}

func TestFolder_MoveIntoDescendantRejected(t *testing.T) {
	m := NewManager(nil)
	a := NewFolder("a")
	b := NewFolder("b")
	c := NewFolder("c")
	mustAdd(t, m.Root(), a)
	mustAdd(t, a, b)
	mustAdd(t, b, c)

	if !c.IsParentInHierarchy(a, true) {
		t.Fatal("a should be an ancestor of c")
	}
	if c.IsParentInHierarchy(c, false) {
		t.Fatal("c is not its own parent")
	}

	err := m.Root().MoveItemTo(c, 0, 0)
	if !errors.Is(err, domain.ErrCycle) {
		t.Fatalf("MoveItemTo(descendant) error = %v, want ErrCycle", err)
	}
	if a.Parent() != m.Root() || m.Root().Len() != 1 {
		t.Error("tree changed after rejected move")
	}

	err = a.MoveItemTo(b, 0, 0)
	if !errors.Is(err, domain.ErrCycle) {
		t.Fatalf("MoveItemTo(self) error = %v, want ErrCycle", err)
	}
}

func TestFolder_MoveAcrossFolders(t *testing.T) {
	m := NewManager(nil)
	a := NewFolder("A")
	b := NewFolder("B")
	mustAdd(t, m.Root(), a)
	mustAdd(t, m.Root(), b)
	for _, n := range []string{"a0", "a1", "a2"} {
		it, _ := newProbeItem(n)
		mustAdd(t, a, it)
	}
	b0, _ := newProbeItem("b0")
	mustAdd(t, b, b0)

	moving := a.At(2).(*Item)
	id := moving.UniqueID()

	var moves []ItemMove
	a.ItemMoved.Subscribe(func(mv ItemMove) { moves = append(moves, mv) })
	b.ItemMoved.Subscribe(func(mv ItemMove) { moves = append(moves, mv) })

	if err := a.MoveItemTo(b, 2, 0); err != nil {
		t.Fatalf("MoveItemTo: %v", err)
	}

	if got := names(a); !equalNames(got, []string{"a0", "a1"}) {
		t.Errorf("A = %v", got)
	}
	if got := names(b); !equalNames(got, []string{"a2", "b0"}) {
		t.Errorf("B = %v", got)
	}
	if moving.Parent() != b {
		t.Error("moved item parent is not B")
	}
	if moving.UniqueID() != id {
		t.Errorf("unique id changed from %d to %d", id, moving.UniqueID())
	}
	if len(moves) != 2 {
		t.Errorf("expected a move notification from both folders, got %d", len(moves))
	}
}

func TestFolder_MoveWithinFolder(t *testing.T) {
	f := NewFolder("f")
	for _, n := range []string{"0", "1", "2", "3"} {
		mustAdd(t, f, NewFolder(n))
	}
	if err := f.MoveItemTo(f, 0, 3); err != nil {
		t.Fatal(err)
	}
	if got := names(f); !equalNames(got, []string{"1", "2", "3", "0"}) {
		t.Errorf("order = %v", got)
	}
	if err := f.MoveItemTo(f, 0, 5); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("out of range destination error = %v", err)
	}
}

func TestFolder_MoveWithinFolderEdges(t *testing.T) {
	tests := []struct {
		name     string
		src, dst int
		want     []string
		moved    bool
	}{
		{"end index means last", 0, 3, []string{"1", "2", "0"}, true},
		{"end index from last is a no-op", 2, 3, []string{"0", "1", "2"}, false},
		{"same index is a no-op", 1, 1, []string{"0", "1", "2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFolder("f")
			for _, n := range []string{"0", "1", "2"} {
				mustAdd(t, f, NewFolder(n))
			}
			moves := 0
			f.ItemMoved.Subscribe(func(ItemMove) { moves++ })

			if err := f.MoveItemTo(f, tt.src, tt.dst); err != nil {
				t.Fatalf("MoveItemTo(%d, %d): %v", tt.src, tt.dst, err)
			}
			if got := names(f); !equalNames(got, tt.want) {
				t.Errorf("order = %v, want %v", got, tt.want)
			}
			if (moves == 1) != tt.moved || moves > 1 {
				t.Errorf("move notifications = %d, moved = %v", moves, tt.moved)
			}
		})
	}
}

func TestFolder_MoveBetweenManagersRejected(t *testing.T) {
	m1 := NewManager(nil)
	m2 := NewManager(nil)
	it, _ := newProbeItem("x")
	mustAdd(t, m1.Root(), it)

	err := m1.Root().MoveItemTo(m2.Root(), 0, 0)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	detached := NewFolder("loose")
	if err := m1.Root().MoveItemTo(detached, 0, 0); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("move to detached folder error = %v", err)
	}
	if it.Manager() != m1 || m1.Len() != 1 || m2.Len() != 0 {
		t.Error("state changed after rejected move")
	}
}

func TestFolder_AttachDetachSymmetry(t *testing.T) {
	m := NewManager(nil)
	sub := NewFolder("sub")
	deep := NewFolder("deep")
	mustAdd(t, sub, deep)
	it1, p1 := newProbeItem("one")
	it2, p2 := newProbeItem("two")
	mustAdd(t, sub, it1)
	mustAdd(t, deep, it2)

	check := func(stage string, want int) {
		t.Helper()
		for _, p := range []*probe{p1, p2} {
			if got := p.attached - p.detached; got != want {
				t.Errorf("%s: outstanding attaches = %d, want %d", stage, got, want)
			}
		}
	}

	check("detached tree", 0)
	if it1.Manager() != nil || it1.UniqueID() != EmptyID {
		t.Fatal("detached item must have no manager or id")
	}

	mustAdd(t, m.Root(), sub)
	check("attached", 1)
	if it2.Manager() != m || deep.Manager() != m {
		t.Error("manager not propagated to subtree")
	}

	other := NewFolder("other")
	mustAdd(t, m.Root(), other)
	if err := m.Root().MoveItemTo(other, 0, 0); err != nil {
		t.Fatal(err)
	}
	check("moved", 1)

	if _, err := other.RemoveItemAt(0); err != nil {
		t.Fatal(err)
	}
	check("removed", 0)
	if it2.Manager() != nil || it2.UniqueID() != EmptyID {
		t.Error("removed subtree still attached")
	}
	if m.Len() != 0 {
		t.Errorf("id table has %d entries after removal", m.Len())
	}

	mustAdd(t, m.Root(), sub)
	check("re-attached", 1)
}

func TestClearHierarchy_ContinuesPastFailures(t *testing.T) {
	m := NewManager(nil)
	f := NewFolder("f")
	mustAdd(t, m.Root(), f)

	var probes []*probe
	for _, n := range []string{"1", "2", "3"} {
		it, p := newProbeItem(n)
		probes = append(probes, p)
		mustAdd(t, f, it)
	}
	probes[1].destroyErr = errors.New("disk on fire")

	err := ClearHierarchy(f, true)
	if err == nil {
		t.Fatal("expected an aggregate error")
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("error %T is not a joined error", err)
	}
	if n := len(joined.Unwrap()); n != 1 {
		t.Errorf("aggregate holds %d failures, want 1", n)
	}
	for i, p := range probes {
		if p.destroyed != 1 {
			t.Errorf("item %d destroyed %d times", i+1, p.destroyed)
		}
	}
	if f.Len() != 0 {
		t.Errorf("folder still has %d items", f.Len())
	}
	if m.Len() != 0 {
		t.Errorf("manager still has %d entries", m.Len())
	}
}

func TestClearHierarchy_Recursive(t *testing.T) {
	root := NewFolder("r")
	sub := NewFolder("sub")
	mustAdd(t, root, sub)
	it, p := newProbeItem("leaf")
	mustAdd(t, sub, it)

	if err := ClearHierarchy(root, false); err != nil {
		t.Fatal(err)
	}
	if sub.Len() != 0 || root.Len() != 0 {
		t.Error("hierarchy not emptied")
	}
	if p.destroyed != 0 {
		t.Error("items destroyed without destroy flag")
	}
}

func TestFolder_CountHierarchy(t *testing.T) {
	root := NewFolder("r")
	a := NewFolder("a")
	b := NewFolder("b")
	mustAdd(t, root, a)
	mustAdd(t, a, b)
	i1, _ := newProbeItem("i1")
	i2, _ := newProbeItem("i2")
	mustAdd(t, root, i1)
	mustAdd(t, b, i2)
	if err := i1.AddReference(&holder{}); err != nil {
		t.Fatal(err)
	}
	if err := i2.AddReference(&holder{}); err != nil {
		t.Fatal(err)
	}
	if err := i2.AddReference(&holder{}); err != nil {
		t.Fatal(err)
	}

	got := root.CountHierarchy()
	want := Census{Folders: 2, Items: 2, References: 3}
	if got != want {
		t.Errorf("CountHierarchy() = %+v, want %+v", got, want)
	}
}

func TestFolder_RemoveResetsCurrentFolder(t *testing.T) {
	m := NewManager(nil)
	a := NewFolder("a")
	b := NewFolder("b")
	mustAdd(t, m.Root(), a)
	mustAdd(t, a, b)
	if err := m.SetCurrentFolder(b); err != nil {
		t.Fatal(err)
	}

	var switches []FolderSwitch
	m.CurrentFolderChanged.Subscribe(func(s FolderSwitch) { switches = append(switches, s) })

	if _, err := m.Root().RemoveItem(a, false); err != nil {
		t.Fatal(err)
	}
	if m.CurrentFolder() != m.Root() {
		t.Error("cursor still points at a removed folder")
	}
	if len(switches) != 1 || switches[0].Old != b {
		t.Errorf("unexpected cursor notifications: %+v", switches)
	}
}

func TestFolder_NameHelpers(t *testing.T) {
	f := NewFolder("f")
	x := NewFolder("x")
	mustAdd(t, f, x)
	if f.IsNameFree("x") {
		t.Error("x should be taken")
	}
	if !f.IsNameFree("y") {
		t.Error("y should be free")
	}
	if !f.Contains(x) || f.IndexOf(x) != 0 {
		t.Error("x not found")
	}
	if f.Contains(NewFolder("x")) {
		t.Error("Contains must compare identity")
	}
}

func mustAdd(t *testing.T, f *Folder, r Resource) {
	t.Helper()
	if err := f.AddItem(r); err != nil {
		t.Fatalf("AddItem(%q) into %q: %v", r.DisplayName(), f.DisplayName(), err)
	}
}
