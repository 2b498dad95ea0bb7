package store

import "testing"

func TestTextsSetRequiresSub(t *testing.T) {
	tx := NewTexts()
	if ok := tx.Set("missing", "k", "v"); ok {
		t.Fatal("Set on a non-existent sub should fail")
	}
}

func TestTextsAppendConcatenates(t *testing.T) {
	tx := NewTexts()
	tx.SubMake("notes")
	tx.EnsureKey("notes", "log")
	tx.Append("notes", "log", "a")
	tx.Append("notes", "log", "b")

	v, ok := tx.Get("notes", "log")
	if !ok || v != "ab" {
		t.Fatalf("Get = %q, %v, want %q, true", v, ok, "ab")
	}
}

func TestTextsRenameMovesAndRemovesSource(t *testing.T) {
	tx := NewTexts()
	tx.SubMake("src")
	tx.EnsureKey("src", "k")
	tx.Set("src", "k", "v")

	if _, ok := tx.Rename("src", "dst"); !ok {
		t.Fatal("Rename on existing sub should succeed")
	}
	if tx.SubExists("src") {
		t.Fatal("src should no longer exist after rename")
	}
	v, ok := tx.Get("dst", "k")
	if !ok || v != "v" {
		t.Fatalf("Get(dst, k) = %q, %v, want %q, true", v, ok, "v")
	}
}

func TestTextsCloneSubIsIndependent(t *testing.T) {
	tx := NewTexts()
	tx.SubMake("s")
	tx.EnsureKey("s", "k")
	tx.Set("s", "k", "v1")

	clone, ok := tx.CloneSub("s")
	if !ok {
		t.Fatal("CloneSub should succeed")
	}
	clone["k"] = "mutated"

	v, _ := tx.Get("s", "k")
	if v != "v1" {
		t.Fatalf("mutating the clone affected the store: got %q", v)
	}
}

func TestTextsSubListSorted(t *testing.T) {
	tx := NewTexts()
	tx.SubMake("zeta")
	tx.SubMake("alpha")
	tx.SubMake("mu")

	got := tx.SubList()
	want := []string{"alpha", "mu", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("SubList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SubList() = %v, want %v", got, want)
		}
	}
}
