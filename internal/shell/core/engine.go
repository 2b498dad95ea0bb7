// Package core implements the token-expansion pipeline and dispatch
// loop: the alias table and registered expanders that rewrite a typed
// command line into a sys.* primitive invocation, the primitive
// registry itself, and the Engine that ties both together behind a
// single dispatch gate.
package core

import (
	"strings"
	"sync"

	"github.com/rakunlabs/symshell/internal/shell/store"
)

// DefaultMaxPasses is the expansion pass ceiling used when no
// configuration overrides it.
const DefaultMaxPasses = 10

// logCapacity bounds the dispatch log's ring buffer rather than letting
// it grow unboundedly for the lifetime of the process.
const logCapacity = 500

// HandlerFunc implements one sys.* primitive. args excludes the
// primitive name itself.
type HandlerFunc func(args []string) (string, error)

// Expander rewrites a token sequence. It must return parts unchanged
// (the same slice, or an equal one) when it has nothing to contribute;
// Engine's expansion loop uses that to detect a stable pass.
type Expander func(parts []string) []string

type commandEntry struct {
	handler HandlerFunc
	help    string
	usage   string
}

// LogEntry records one dispatch cycle for diagnostics.
type LogEntry struct {
	In  string
	Out string
}

// Engine owns the three stores, the alias table, the registered
// primitives and expanders, and the single dispatch gate serializing
// Execute across the REPL, the Runner's background workers, and the
// Event bus poller.
type Engine struct {
	Texts    *store.Texts
	Routines *store.Routines
	Tables   *store.Tables

	Aliases *Aliases

	// gate serializes top-level Execute calls. DispatchInternal is
	// the factored-out, unlocked inner path nested calls use instead
	// of re-entering this mutex.
	gate sync.Mutex

	cmdMu    sync.RWMutex
	commands map[string]commandEntry

	expMu     sync.Mutex
	expanders []Expander

	maxPasses int

	logMu sync.Mutex
	log   []LogEntry

	trgMu     sync.Mutex
	runnerTrg RunnerTrigger
}

// NewEngine wires an empty engine: fresh stores, the default alias
// table (with its own Expand method registered as the first
// expander), and no primitives yet — callers register those via
// RegisterPrimitive before the first Execute.
func NewEngine() *Engine {
	e := &Engine{
		Texts:     store.NewTexts(),
		Routines:  store.NewRoutines(),
		Tables:    store.NewTables(),
		Aliases:   NewAliases(),
		commands:  make(map[string]commandEntry),
		maxPasses: DefaultMaxPasses,
	}
	e.AddExpander(e.Aliases.Expand)
	registerTriggerExpanders(e)
	registerSurface(e)
	registerPlanner(e)
	return e
}

// SetMaxPasses overrides the expansion pass ceiling (config.LoadCore
// applies the core.json value here after validating it).
func (e *Engine) SetMaxPasses(n int) {
	e.maxPasses = n
}

// RegisterPrimitive adds a sys.* handler under name.
func (e *Engine) RegisterPrimitive(name string, fn HandlerFunc, help, usage string) {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	e.commands[name] = commandEntry{handler: fn, help: help, usage: usage}
}

// AddExpander appends fn to the expander chain, consulted in
// registration order each pass.
func (e *Engine) AddExpander(fn Expander) {
	e.expMu.Lock()
	defer e.expMu.Unlock()
	e.expanders = append(e.expanders, fn)
}

// Help returns the help/usage text registered for a primitive name
// (used by the help package to render per-alias detail views for the
// sys.* target an alias expands to, if ever needed).
func (e *Engine) Help(name string) (help, usage string, ok bool) {
	e.cmdMu.RLock()
	defer e.cmdMu.RUnlock()
	entry, ok := e.commands[name]
	return entry.help, entry.usage, ok
}

// Execute is the single entry point every surface caller (REPL,
// Runner step, Event bus firing) funnels through. It logs the raw
// input, enforces the alias-or-help surface gate, expands the token
// sequence to a sys.* primitive call, dispatches it, and logs the
// outcome.
func (e *Engine) Execute(raw string) string {
	e.gate.Lock()
	defer e.gate.Unlock()
	return e.executeInner(raw)
}

// ExecuteNested runs a full raw command line (surface gate, expansion,
// dispatch) without acquiring the dispatch gate. It exists for a
// recursive Execute call made from inside a running handler that is
// already under the gate — single-shot "run <tokens...>". Calling this
// from outside a handler invoked by Execute/DispatchInternal is unsafe;
// it bypasses the serialization guarantee the gate otherwise provides.
func (e *Engine) ExecuteNested(raw string) string {
	return e.executeInner(raw)
}

func (e *Engine) executeInner(raw string) string {
	e.appendLog(raw, "")

	parts := strings.Fields(raw)
	if len(parts) == 0 {
		return ""
	}

	head := parts[0]
	if head != "help" && !e.Aliases.Has(head) {
		out := "Unknown command"
		e.setLastOut(out)
		return out
	}

	expanded, err := e.expand(parts)
	if err != nil {
		out := "Error: " + err.Error()
		e.setLastOut(out)
		return out
	}

	out, derr := e.dispatch(expanded)
	if derr != nil {
		out = "Error: " + derr.Error()
	}
	e.setLastOut(out)
	return out
}

// Expand runs parts through the registered expander chain to a fixed
// point, without the surface gate or alias/help gate check. The Event
// bus poller uses this to resolve a bare *.trg token's current integer
// value from outside the dispatch gate — reading trigger state never
// mutates anything, so no serialization is needed until a bound command
// actually fires through Execute.
func (e *Engine) Expand(parts []string) ([]string, error) {
	return e.expand(parts)
}

// DispatchInternal dispatches an already-expanded sys.* token sequence
// directly, without running the expansion loop and without acquiring
// the dispatch gate. It exists for nested calls made from inside a
// running handler — the Q primitive resolving a $/&/# argument via
// sys.cat is the motivating case — where re-acquiring the gate would
// deadlock a non-reentrant mutex.
func (e *Engine) DispatchInternal(parts []string) (string, error) {
	return e.dispatch(parts)
}

func (e *Engine) dispatch(parts []string) (string, error) {
	if len(parts) == 0 {
		return "", nil
	}
	cmd, args := parts[0], parts[1:]
	e.cmdMu.RLock()
	entry, ok := e.commands[cmd]
	e.cmdMu.RUnlock()
	if !ok {
		return "", Unknown("unknown command: %s", cmd)
	}
	return entry.handler(args)
}

// expand runs the token sequence to a fixed point: each pass consults
// the registered expanders in order and applies the first one whose
// output differs from the input, then restarts the pass with the new
// sequence. A pass that produces no change at all means the sequence
// is stable. Cycling back to a previously seen sequence, or failing to
// stabilize within maxPasses, is reported as an expansion error.
func (e *Engine) expand(parts []string) ([]string, error) {
	seen := make(map[string]bool)

	e.expMu.Lock()
	expanders := make([]Expander, len(e.expanders))
	copy(expanders, e.expanders)
	e.expMu.Unlock()

	for i := 0; i < e.maxPasses; i++ {
		sig := strings.Join(parts, "\x00")
		if seen[sig] {
			return nil, Expansion("expansion loop detected")
		}
		seen[sig] = true

		changed := false
		for _, ex := range expanders {
			next := ex(parts)
			if !equalParts(next, parts) {
				parts = next
				changed = true
				break
			}
		}
		if !changed {
			return parts, nil
		}
	}

	return nil, Expansion("expansion depth exceeded (max_passes=%d)", e.maxPasses)
}

func equalParts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func splitFields(s string) []string {
	return strings.Fields(s)
}

func (e *Engine) appendLog(in, out string) {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	e.log = append(e.log, LogEntry{In: in, Out: out})
	if len(e.log) > logCapacity {
		e.log = e.log[len(e.log)-logCapacity:]
	}
}

func (e *Engine) setLastOut(out string) {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	if len(e.log) == 0 {
		return
	}
	e.log[len(e.log)-1].Out = out
}

// Log returns a copy of the most recent dispatch cycles, oldest first.
func (e *Engine) Log() []LogEntry {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	out := make([]LogEntry, len(e.log))
	copy(out, e.log)
	return out
}
