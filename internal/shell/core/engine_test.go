package core

import "testing"

func TestExecuteUnknownAliasHead(t *testing.T) {
	e := NewEngine()
	if got := e.Execute("frobnicate $x"); got != "Unknown command" {
		t.Fatalf("Execute(unknown head) = %q, want %q", got, "Unknown command")
	}
}

func TestExecuteMkCatRoundTrip(t *testing.T) {
	e := NewEngine()
	if got := e.Execute("mk $notes"); got != "OK" {
		t.Fatalf("mk $notes = %q, want OK", got)
	}
	if got := e.Execute("add.item $notes:todo buy milk"); got != "OK" {
		t.Fatalf("add.item = %q, want OK", got)
	}
	if got := e.Execute("cat $notes:todo"); got != "buy milk" {
		t.Fatalf("cat $notes:todo = %q, want %q", got, "buy milk")
	}
}

func TestExecuteEmptyLineReturnsEmpty(t *testing.T) {
	e := NewEngine()
	if got := e.Execute("   "); got != "" {
		t.Fatalf("Execute(blank) = %q, want empty", got)
	}
}

func TestExpandDetectsAliasCycle(t *testing.T) {
	e := NewEngine()
	// seed a two-alias cycle: x -> y, y -> x.
	e.Aliases.table["x"] = "y"
	e.Aliases.table["y"] = "x"
	e.SetMaxPasses(3)

	out := e.Execute("x")
	if out == "" || out[:6] != "Error:" {
		t.Fatalf("Execute(cyclic alias) = %q, want an Error:", out)
	}
}

func TestExpandDepthExceeded(t *testing.T) {
	e := NewEngine()
	e.SetMaxPasses(2)
	// each pass rewrites "ping" -> "ping pong" -> never stabilizes.
	e.AddExpander(func(parts []string) []string {
		if len(parts) == 1 && parts[0] == "ping" {
			return []string{"ping", "pong"}
		}
		if len(parts) == 2 && parts[0] == "ping" && parts[1] == "pong" {
			return []string{"ping"}
		}
		return parts
	})

	if _, err := e.Expand([]string{"ping"}); err == nil {
		t.Fatal("Expand should report a depth/cycle error for a non-stabilizing chain")
	}
}

func TestRegisterPrimitiveAndHelp(t *testing.T) {
	e := NewEngine()
	help, usage, ok := e.Help("sys.mk")
	if !ok || help == "" || usage == "" {
		t.Fatalf("Help(sys.mk) = %q, %q, %v; want non-empty, non-empty, true", help, usage, ok)
	}
	if _, _, ok := e.Help("sys.nonexistent"); ok {
		t.Fatal("Help for an unregistered primitive should report ok=false")
	}
}

func TestDispatchInternalBypassesGate(t *testing.T) {
	e := NewEngine()
	e.Execute("mk $notes")
	e.Execute("add.item $notes:todo hello")

	out, err := e.DispatchInternal([]string{"sys.cat", "$notes:todo"})
	if err != nil || out != "hello" {
		t.Fatalf("DispatchInternal = %q, %v, want %q, nil", out, err, "hello")
	}
}
