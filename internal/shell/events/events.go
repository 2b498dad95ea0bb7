// Package events implements the Event bus: one-shot latched bindings on
// *.trg symbols, polled every 50ms by a github.com/worldline-go/hardloop
// cron job that re-invokes the dispatcher (the same re-entry point the
// Runner's worker threads use).
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/worldline-go/hardloop"

	"github.com/rakunlabs/symshell/internal/shell/core"
)

const pollSpec = "@every 50ms"

// purgeValue is the distinguished trigger value that removes every
// binding on its symbol without firing anything.
const purgeValue = 3

// cronRunner is satisfied by hardloop's unexported cron job type
// (returned by hardloop.NewCron).
type cronRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// controlPrefixes mirrors runner.controlPrefixes: an event-bound command
// may not control a %runner.
var controlPrefixes = map[string]bool{
	"run": true, "status": true, "pause": true, "stop": true,
}

// binding is one ON registration.
type binding struct {
	Symbol  string
	Value   int
	Command []string
}

// Bus owns the binding list, the per-symbol arm/latch state, and the
// lazily-started poller.
type Bus struct {
	engine *core.Engine
	ctx    context.Context

	mu       sync.Mutex
	bindings []binding
	armed    map[string]bool

	startOnce sync.Once
	cron      cronRunner
}

// New wires a Bus onto engine: registers sys.ev.on/show/reset. The
// poller is not started until the first successful ON.
func New(ctx context.Context, e *core.Engine) *Bus {
	b := &Bus{engine: e, ctx: ctx, armed: make(map[string]bool)}
	e.RegisterPrimitive("sys.ev.on", b.on,
		"Bind a command to fire once per rising edge of a *.trg symbol to a value",
		"sys.ev.on <symbol.trg> <N> <command...>")
	e.RegisterPrimitive("sys.ev.show", b.show,
		"List bindings whose symbol matches a pattern (exact, or *.trg for any)",
		"sys.ev.show <pattern>")
	e.RegisterPrimitive("sys.ev.reset", b.reset,
		"Remove bindings matching a pattern and clear their latch state",
		"sys.ev.reset <pattern>")
	return b
}

func (b *Bus) on(args []string) (string, error) {
	if len(args) < 3 {
		return "", core.Shape("ON expects <symbol.trg> <N> <command...>")
	}
	symbol, nStr, cmd := args[0], args[1], args[2:]
	if !strings.HasSuffix(symbol, ".trg") {
		return "", core.Shape("ON symbol must end with .trg")
	}
	n, err := strconv.Atoi(nStr)
	if err != nil {
		return "", core.Shape("ON value must be an integer")
	}
	if n == 0 {
		return "", core.Shape("ON value must be non-zero")
	}
	if n == purgeValue {
		return "", core.Shape("ON value 3 is reserved for purge")
	}
	if isRunnerControl(cmd) {
		return "", core.Shape("ON command must not control a %%runner")
	}

	b.mu.Lock()
	b.bindings = append(b.bindings, binding{Symbol: symbol, Value: n, Command: append([]string{}, cmd...)})
	b.mu.Unlock()

	b.ensureStarted()
	return "OK", nil
}

func (b *Bus) show(args []string) (string, error) {
	if len(args) != 1 {
		return "", core.Shape("ON.show expects <pattern>")
	}
	pattern := args[0]

	b.mu.Lock()
	defer b.mu.Unlock()

	var lines []string
	for _, bd := range b.bindings {
		if matchPattern(pattern, bd.Symbol) {
			lines = append(lines, fmt.Sprintf("%s %d %s", bd.Symbol, bd.Value, strings.Join(bd.Command, " ")))
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (b *Bus) reset(args []string) (string, error) {
	if len(args) != 1 {
		return "", core.Shape("ON.reset expects <pattern>")
	}
	pattern := args[0]

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.bindings[:0:0]
	removedSymbols := map[string]bool{}
	for _, bd := range b.bindings {
		if matchPattern(pattern, bd.Symbol) {
			removedSymbols[bd.Symbol] = true
			continue
		}
		kept = append(kept, bd)
	}
	b.bindings = kept
	for sym := range removedSymbols {
		delete(b.armed, sym)
	}
	return "OK", nil
}

func matchPattern(pattern, symbol string) bool {
	if pattern == "*.trg" {
		return strings.HasSuffix(symbol, ".trg")
	}
	return pattern == symbol
}

func isRunnerControl(cmd []string) bool {
	if len(cmd) == 0 {
		return false
	}
	if !controlPrefixes[cmd[0]] {
		return false
	}
	for _, a := range cmd[1:] {
		if strings.HasPrefix(a, "%") {
			return true
		}
	}
	return false
}

func (b *Bus) ensureStarted() {
	b.startOnce.Do(func() {
		cronJob, err := hardloop.NewCron(hardloop.Cron{
			Name:  "symshell-event-bus",
			Specs: []string{pollSpec},
			Func:  b.tick,
		})
		if err != nil {
			slog.Error("events: failed to create poller", "error", err)
			return
		}
		if err := cronJob.Start(b.ctx); err != nil {
			slog.Error("events: failed to start poller", "error", err)
			return
		}
		b.cron = cronJob
	})
}

// tick is the poller body: resolve each distinct bound symbol's current
// value, purge on 3, arm on 0, and fire latched bindings on the first
// nonzero value observed since the last 0.
func (b *Bus) tick(ctx context.Context) error {
	b.mu.Lock()
	snapshot := append([]binding{}, b.bindings...)
	b.mu.Unlock()

	seen := make(map[string]bool, len(snapshot))
	symbols := make([]string, 0, len(snapshot))
	for _, bd := range snapshot {
		if !seen[bd.Symbol] {
			seen[bd.Symbol] = true
			symbols = append(symbols, bd.Symbol)
		}
	}

	for _, sym := range symbols {
		val := b.resolve(sym)

		switch {
		case val == purgeValue:
			b.purge(sym)

		case val == 0:
			b.mu.Lock()
			b.armed[sym] = true
			b.mu.Unlock()

		default:
			b.mu.Lock()
			wasArmed := b.armed[sym]
			if wasArmed {
				b.armed[sym] = false
			}
			b.mu.Unlock()
			if wasArmed {
				b.fire(sym, val, snapshot)
			}
		}
	}
	return nil
}

func (b *Bus) resolve(symbol string) int {
	out, err := b.engine.Expand([]string{symbol})
	if err != nil || len(out) != 1 {
		return 0
	}
	n, err := strconv.Atoi(out[0])
	if err != nil {
		return 0
	}
	return n
}

func (b *Bus) purge(symbol string) {
	b.mu.Lock()
	kept := b.bindings[:0:0]
	for _, bd := range b.bindings {
		if bd.Symbol != symbol {
			kept = append(kept, bd)
		}
	}
	b.bindings = kept
	delete(b.armed, symbol)
	b.mu.Unlock()
}

func (b *Bus) fire(symbol string, value int, snapshot []binding) {
	for _, bd := range snapshot {
		if bd.Symbol != symbol || bd.Value != value {
			continue
		}
		line := strings.Join(bd.Command, " ")
		result := b.engine.Execute(line)
		slog.Info("event fired", "symbol", symbol, "value", value, "command", line, "result", result)
	}
}
