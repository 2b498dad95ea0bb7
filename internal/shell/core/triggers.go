package core

import (
	"strconv"
	"strings"

	"github.com/rakunlabs/symshell/internal/shell/store"
)

// registerTriggerExpanders wires the three *.trg expanders: a
// %name.trg token resolves against the runner trigger table, a
// $sub:key.trg or #a:b:...trg token resolves against the matching store
// leaf. All three coerce "" and non-integer text to 0.
func registerTriggerExpanders(e *Engine) {
	e.AddExpander(e.expandRunnerTrg)
	e.AddExpander(e.expandTextTrg)
	e.AddExpander(e.expandTableTrg)
}

// RunnerTrigger is consulted by the %name.trg expander. The runner
// package implements it and installs itself via SetRunnerTrigger so
// core never imports runner (avoiding an import cycle with the
// primitives runner registers back onto the engine).
type RunnerTrigger interface {
	Trigger(name string) (int, bool)
}

// SetRunnerTrigger installs the runner subsystem's trigger lookup. Until
// called, %name.trg expands to 0 for any name (no runner exists yet).
func (e *Engine) SetRunnerTrigger(rt RunnerTrigger) {
	e.trgMu.Lock()
	defer e.trgMu.Unlock()
	e.runnerTrg = rt
}

func coerceTrg(s string) string {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return "0"
	}
	return strconv.Itoa(n)
}

func (e *Engine) expandRunnerTrg(parts []string) []string {
	for i, p := range parts {
		if !strings.HasPrefix(p, "%") || !strings.HasSuffix(p, ".trg") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "%"), ".trg")
		if name == "" {
			continue
		}
		e.trgMu.Lock()
		rt := e.runnerTrg
		e.trgMu.Unlock()
		val := 0
		if rt != nil {
			if v, ok := rt.Trigger(name); ok {
				val = v
			}
		}
		out := append([]string{}, parts...)
		out[i] = strconv.Itoa(val)
		return out
	}
	return parts
}

func (e *Engine) expandTextTrg(parts []string) []string {
	for i, p := range parts {
		if !strings.HasPrefix(p, "$") || !strings.HasSuffix(p, ".trg") {
			continue
		}
		body := strings.TrimSuffix(p, ".trg")
		sub, key, hasKey, err := store.SplitKV(body)
		if err != nil || !hasKey {
			continue
		}
		v, _ := e.Texts.Get(sub, key)
		out := append([]string{}, parts...)
		out[i] = coerceTrg(v)
		return out
	}
	return parts
}

func (e *Engine) expandTableTrg(parts []string) []string {
	for i, p := range parts {
		if !strings.HasPrefix(p, "#") || !strings.HasSuffix(p, ".trg") {
			continue
		}
		body := strings.TrimSuffix(p, ".trg")
		path, err := store.ParseHash(body)
		if err != nil {
			continue
		}
		node := e.Tables.NodeGet(path)
		text, _ := node.(string)
		out := append([]string{}, parts...)
		out[i] = coerceTrg(text)
		return out
	}
	return parts
}
