package core

import "testing"

func TestPlanShardsLeavesUnderMaxFiles(t *testing.T) {
	e := NewEngine()
	e.Execute("mk #docs")
	e.Execute("add.item #docs:one.txt a")
	e.Execute("add.item #docs:two.txt b")

	if out := e.Execute("plan #docs refactor the docs max_files=1"); out != "OK" {
		t.Fatalf("plan = %q", out)
	}

	shown := e.Execute("plan.show #docs")
	if shown == "" {
		t.Fatal("plan.show should return the stored plan JSON")
	}
	want := `{"root":"docs","intent":"refactor the docs","shards":[["one.txt"],["two.txt"]]}`
	if shown != want {
		t.Fatalf("plan.show = %s, want %s", shown, want)
	}
}

func TestPlanRejectsNonPositiveMaxFiles(t *testing.T) {
	e := NewEngine()
	e.Execute("mk #docs")
	if out := e.Execute("plan #docs intent max_files=0"); out[:6] != "Error:" {
		t.Fatalf("plan with max_files=0 = %q, want an Error:", out)
	}
}

func TestPlanRmDeletesStoredPlan(t *testing.T) {
	e := NewEngine()
	e.Execute("mk #docs")
	e.Execute("plan #docs intent")
	e.Execute("plan.rm #docs")

	if out := e.Execute("plan.show #docs"); out != "" {
		t.Fatalf("plan.show after plan.rm = %q, want empty", out)
	}
}
