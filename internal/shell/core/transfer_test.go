package core

import "testing"

func TestCpTextTextWholeSub(t *testing.T) {
	e := NewEngine()
	e.Execute("mk $src")
	e.Execute("add.item $src k1")
	e.Execute("cat $src:k1") // read-only; the result is not checked here

	if out := e.Execute("cp $src $dst"); out != "OK" {
		t.Fatalf("cp $src $dst = %q", out)
	}
	if out := e.Execute("ls $dst"); out != "k1" {
		t.Fatalf("ls $dst after cp = %q, want k1", out)
	}
}

func TestCpTextTextSingleKey(t *testing.T) {
	e := NewEngine()
	e.Execute("mk $src")
	e.Execute("add.item $src:k1 hello")

	if out := e.Execute("cp $src:k1 $dst:k2"); out != "OK" {
		t.Fatalf("cp $src:k1 $dst:k2 = %q", out)
	}
	if out := e.Execute("cat $dst:k2"); out != "hello" {
		t.Fatalf("cat $dst:k2 = %q, want hello", out)
	}
}

func TestCpRejectsMismatchedLevels(t *testing.T) {
	e := NewEngine()
	e.Execute("mk $src")
	e.Execute("add.item $src:k1 hello")

	if out := e.Execute("cp $src:k1 $dst"); out[:6] != "Error:" {
		t.Fatalf("cp sub<->key mismatch = %q, want an Error:", out)
	}
}

func TestCpTableToFlatSub(t *testing.T) {
	e := NewEngine()
	e.Execute("mk #cfg")
	e.Execute("add.item #cfg:a 1")
	e.Execute("add.item #cfg:b 2")

	if out := e.Execute("cp #cfg $flat"); out != "OK" {
		t.Fatalf("cp #cfg $flat = %q", out)
	}
	if out := e.Execute("cat $flat:a"); out != "1" {
		t.Fatalf("cat $flat:a = %q, want 1", out)
	}
}

func TestCpTableToSubRejectsNestedDict(t *testing.T) {
	e := NewEngine()
	e.Execute("mk #cfg:nested:leaf")

	if out := e.Execute("cp #cfg $flat"); out[:6] != "Error:" {
		t.Fatalf("cp nested #cfg $flat = %q, want an Error: (not flat)", out)
	}
}

func TestMvNoOpWhenSrcEqualsDst(t *testing.T) {
	e := NewEngine()
	e.Execute("mk $notes")
	e.Execute("add.item $notes:k hello")

	out := e.Execute("mv $notes:k $notes:k")
	if out != "no-op: src == dst" {
		t.Fatalf("mv same src/dst = %q, want the no-op sentinel", out)
	}
	if val := e.Execute("cat $notes:k"); val != "hello" {
		t.Fatalf("mv no-op should not touch the value, got %q", val)
	}
}

func TestMvRequiresSameLevel(t *testing.T) {
	e := NewEngine()
	e.Execute("mk $notes")
	e.Execute("add.item $notes:k hello")
	e.Execute("mk &deploy")

	if out := e.Execute("mv $notes:k &deploy"); out[:6] != "Error:" {
		t.Fatalf("mv across levels = %q, want an Error:", out)
	}
}

func TestMvRoutineRefusesWhenSourceLocked(t *testing.T) {
	e := NewEngine()
	e.Execute("mk &src")
	e.Execute("mk &dst")
	e.Routines.Lock("src", "runner1", "running")

	if out := e.Execute("mv &src &dst"); out[:6] != "Error:" {
		t.Fatalf("mv &src &dst (src locked) = %q, want an Error:", out)
	}
}

func TestMvTextRenamesSub(t *testing.T) {
	e := NewEngine()
	e.Execute("mk $src")
	e.Execute("add.item $src:k hello")

	if out := e.Execute("mv $src $dst"); out != "OK" {
		t.Fatalf("mv $src $dst = %q", out)
	}
	if out := e.Execute("ls $"); out != "dst" {
		t.Fatalf("ls $ after mv = %q, want dst", out)
	}
}

func TestCpTableTableClonesSubtree(t *testing.T) {
	e := NewEngine()
	e.Execute("mk #a:b")
	e.Execute("add.item #a:b:c v")

	if out := e.Execute("cp #a #z"); out != "OK" {
		t.Fatalf("cp #a #z = %q", out)
	}
	if out := e.Execute("cat #z:b:c"); out != "v" {
		t.Fatalf("cat #z:b:c = %q, want v", out)
	}
	// mutating the original must not affect the clone.
	e.Execute("add.item #a:b:c more")
	if out := e.Execute("cat #z:b:c"); out != "v" {
		t.Fatalf("clone was not independent: cat #z:b:c = %q, want v", out)
	}
}
