package store

import "testing"

func TestTablesLeafSetAndGet(t *testing.T) {
	tb := NewTables()
	if err := tb.LeafSet([]string{"a", "b"}, "v"); err != nil {
		t.Fatalf("LeafSet: %v", err)
	}
	node := tb.NodeGet([]string{"a", "b"})
	text, ok := node.(string)
	if !ok || text != "v" {
		t.Fatalf("NodeGet = %v, want leaf %q", node, "v")
	}
}

func TestTablesLeafSetRejectsOverwritingDict(t *testing.T) {
	tb := NewTables()
	tb.NodeEnsureDict([]string{"a", "b"})
	if err := tb.LeafSet([]string{"a"}, "v"); err == nil {
		t.Fatal("LeafSet should refuse to overwrite an interior dict")
	}
}

func TestTablesLeafAppend(t *testing.T) {
	tb := NewTables()
	tb.LeafAppend([]string{"log"}, "a")
	tb.LeafAppend([]string{"log"}, "b")
	node := tb.NodeGet([]string{"log"})
	if node != "ab" {
		t.Fatalf("NodeGet = %v, want %q", node, "ab")
	}
}

func TestTablesCloneNodeDeepCopies(t *testing.T) {
	tb := NewTables()
	tb.LeafSet([]string{"a", "b"}, "v")

	cloned, ok := tb.CloneNode([]string{"a"})
	if !ok {
		t.Fatal("CloneNode should succeed")
	}
	m := cloned.(map[string]any)
	m["b"] = "mutated"

	node := tb.NodeGet([]string{"a", "b"})
	if node != "v" {
		t.Fatalf("mutating the clone affected the store: got %v", node)
	}
}

func TestTablesTakeNodeRemovesOriginal(t *testing.T) {
	tb := NewTables()
	tb.LeafSet([]string{"a", "b"}, "v")

	node, ok, err := tb.TakeNode([]string{"a", "b"})
	if err != nil || !ok || node != "v" {
		t.Fatalf("TakeNode = %v, %v, %v, want v, true, nil", node, ok, err)
	}
	if got := tb.NodeGet([]string{"a", "b"}); got != nil {
		t.Fatalf("node should be gone after TakeNode, got %v", got)
	}
}

func TestTablesWalkLeavesSortedByPath(t *testing.T) {
	tb := NewTables()
	tb.LeafSet([]string{"root", "b"}, "2")
	tb.LeafSet([]string{"root", "a"}, "1")
	tb.LeafSet([]string{"root", "nested", "c"}, "3")

	leaves := tb.WalkLeaves([]string{"root"})
	if len(leaves) != 3 {
		t.Fatalf("WalkLeaves returned %d leaves, want 3", len(leaves))
	}
	if leaves[0].Text != "1" || leaves[1].Text != "2" || leaves[2].Text != "3" {
		t.Fatalf("WalkLeaves not sorted by path: %+v", leaves)
	}
}

func TestTablesNodeLsRejectsLeaf(t *testing.T) {
	tb := NewTables()
	tb.LeafSet([]string{"a"}, "v")
	if _, err := tb.NodeLs([]string{"a"}); err == nil {
		t.Fatal("NodeLs on a leaf should error")
	}
}
