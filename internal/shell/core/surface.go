package core

import (
	"strings"

	"github.com/rakunlabs/symshell/internal/shell/store"
)

// registerSurface wires the sys.mk/rm/ls/add.item/cat/cp/mv primitives,
// grounded on original_source/system/topics/surface.py. These are the
// only primitives that reach directly into all three stores; everything
// else (runner, events, planner, llmbridge, fsio) builds on top of them
// or on the store package's own tree helpers.
func registerSurface(e *Engine) {
	e.RegisterPrimitive("sys.mk", e.mk,
		"Create a routine (&), text namespace ($), or table path (#)",
		"sys.mk &<name> | sys.mk $<sub> | sys.mk #<path>")
	e.RegisterPrimitive("sys.rm", e.rm,
		"Remove a routine (&), text namespace ($), or table node (#)",
		"sys.rm &<name> | sys.rm $<sub> | sys.rm #<path>")
	e.RegisterPrimitive("sys.ls", e.ls,
		"List routines, steps, text namespaces/keys, or table keys",
		"sys.ls [ &<name> | $ | $<sub> | #<path> ]")
	e.RegisterPrimitive("sys.add.item", e.addItem,
		"Add routine step, write/append text key, or write/append table leaf",
		"sys.add.item &<name> <step...> | sys.add.item $<sub> <key> | sys.add.item $<sub>:<key> <text...> | sys.add.item #<path> <text...>")
	e.RegisterPrimitive("sys.cat", e.cat,
		"Show the contents of a $ key, & routine, or # leaf",
		"sys.cat (&<name> | $<sub>:<key> | #<path>)")
	e.RegisterPrimitive("sys.cp", e.cp,
		"Copy between $, &, and #. Dict<->dict supports subtree clone.",
		"sys.cp <src> <dst>")
	e.RegisterPrimitive("sys.mv", e.mv,
		"Move/rename within $ (texts), within & (routines), or within # (tables/tree). No cross moves.",
		"sys.mv <src> <dst>")
}

// checkRoutineUnlocked rejects a mutation against routine name while a
// runner holds its lock: a locked routine refuses mutation. name is the
// bare routine name, matching the key the Runner subsystem locks under,
// not the "&name" surface token.
func (e *Engine) checkRoutineUnlocked(name string) error {
	if lock, locked := e.Routines.LockOf(name); locked {
		return Shape("routine is locked by %s (%s)", lock.Runner, lock.State)
	}
	return nil
}

func (e *Engine) mk(args []string) (string, error) {
	if len(args) != 1 {
		return "", Shape("mk expects &<name> OR $<sub> OR #<path>")
	}
	target := args[0]

	switch {
	case strings.HasPrefix(target, "&"):
		name, err := store.ParseAmp(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		e.Routines.Make(name)
		return "OK", nil

	case strings.HasPrefix(target, "$"):
		sub, _, hasKey, err := store.SplitKV(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if hasKey {
			return "", Shape("mk expects $<sub> only (not $<sub>:<key>)")
		}
		e.Texts.SubMake(sub)
		return "OK", nil

	case strings.HasPrefix(target, "#"):
		path, err := store.ParseHash(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if err := e.Tables.NodeEnsureDict(path); err != nil {
			return "", Shape("%s", err)
		}
		return "OK", nil
	}

	return "", Shape("mk expects &<name> OR $<sub> OR #<path>")
}

func (e *Engine) rm(args []string) (string, error) {
	if len(args) != 1 {
		return "", Shape("rm expects &<name> OR $<sub> OR #<path>")
	}
	target := args[0]

	switch {
	case strings.HasPrefix(target, "&"):
		name, err := store.ParseAmp(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if !e.Routines.Exists(name) {
			return "", Shape("sub not found: routines/%s", name)
		}
		if err := e.checkRoutineUnlocked(name); err != nil {
			return "", err
		}
		e.Routines.Remove(name)
		return "OK", nil

	case strings.HasPrefix(target, "$"):
		sub, _, hasKey, err := store.SplitKV(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if hasKey {
			return "", Shape("rm expects $<sub> only (not $<sub>:<key>)")
		}
		if !e.Texts.SubExists(sub) {
			return "", Shape("sub not found: texts/%s", sub)
		}
		e.Texts.SubRemove(sub)
		return "OK", nil

	case strings.HasPrefix(target, "#"):
		path, err := store.ParseHash(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if _, err := e.Tables.NodeRemove(path); err != nil {
			return "", Shape("%s", err)
		}
		return "OK", nil
	}

	return "", Shape("rm expects &<name> OR $<sub> OR #<path>")
}

func (e *Engine) ls(args []string) (string, error) {
	if len(args) == 0 {
		return "$  texts      (key/value symbol store)\n" +
			"&  routines   (linear execution lists)\n" +
			"#  tables     (infinite dict store)", nil
	}
	target := args[0]

	switch {
	case target == "$":
		return strings.Join(e.Texts.SubList(), "\n"), nil

	case target == "&":
		return strings.Join(e.Routines.List(), "\n"), nil

	case strings.HasPrefix(target, "$"):
		sub, _, hasKey, err := store.SplitKV(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if hasKey {
			return "", Shape("ls expects $<sub> only (not $<sub>:<key>)")
		}
		keys, ok := e.Texts.KeyList(sub)
		if !ok {
			return "", Shape("sub not found: texts/%s", sub)
		}
		return strings.Join(keys, "\n"), nil

	case strings.HasPrefix(target, "&"):
		name, err := store.ParseAmp(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		steps, ok := e.Routines.Steps(name)
		if !ok {
			return "", Shape("sub not found: routines/%s", name)
		}
		return strings.Join(steps, "\n"), nil

	case strings.HasPrefix(target, "#"):
		path, err := store.ParseHash(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		node := e.Tables.NodeGet(path)
		if node == nil {
			return "", nil
		}
		keys, err := e.Tables.NodeLs(path)
		if err != nil {
			return "", Shape("ls expects a dict node; use cat for leaf values")
		}
		return strings.Join(keys, "\n"), nil
	}

	return "", Shape("ls usage: ls | ls &<name> | ls $ | ls $<sub> | ls #<path>")
}

func (e *Engine) addItem(args []string) (string, error) {
	if len(args) == 0 {
		return "", Shape("add.item expects &... or $... or #...")
	}
	target, rest := args[0], args[1:]

	switch {
	case strings.HasPrefix(target, "&"):
		name, err := store.ParseAmp(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if !e.Routines.Exists(name) {
			return "", Shape("sub not found: routines/%s", name)
		}
		if err := e.checkRoutineUnlocked(name); err != nil {
			return "", err
		}
		step := strings.TrimSpace(strings.Join(rest, " "))
		e.Routines.Append(name, step)
		return "OK", nil

	case strings.HasPrefix(target, "$"):
		sub, key, hasKey, err := store.SplitKV(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		e.Texts.SubMake(sub)
		if !hasKey {
			if len(rest) != 1 {
				return "", Shape("add.item $<sub> expects exactly one <key>")
			}
			e.Texts.EnsureKey(sub, rest[0])
			return "OK", nil
		}
		text := strings.TrimSpace(strings.Join(rest, " "))
		e.Texts.Append(sub, key, text)
		return "OK", nil

	case strings.HasPrefix(target, "#"):
		text := strings.TrimSpace(strings.Join(rest, " "))
		if text == "" {
			return "", Shape("add.item #<path> expects <text...>")
		}
		path, err := store.ParseHash(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if err := e.Tables.LeafAppend(path, text); err != nil {
			return "", Shape("%s", err)
		}
		return "OK", nil
	}

	return "", Shape("add.item expects &... or $... or #...")
}

func (e *Engine) cat(args []string) (string, error) {
	if len(args) != 1 {
		return "", Shape("cat expects $... or &... or #...")
	}
	target := args[0]

	switch {
	case strings.HasPrefix(target, "$"):
		sub, key, hasKey, err := store.SplitKV(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		if !hasKey {
			return "", Shape("expected $<sub>:<key>")
		}
		if !e.Texts.SubExists(sub) {
			return "", Shape("sub not found: texts/%s", sub)
		}
		value, ok := e.Texts.Get(sub, key)
		if !ok {
			return "", Shape("key not found")
		}
		return value, nil

	case strings.HasPrefix(target, "&"):
		name, err := store.ParseAmp(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		steps, ok := e.Routines.Steps(name)
		if !ok {
			return "", Shape("sub not found: routines/%s", name)
		}
		return strings.Join(steps, "\n"), nil

	case strings.HasPrefix(target, "#"):
		path, err := store.ParseHash(target)
		if err != nil {
			return "", Shape("%s", err)
		}
		node := e.Tables.NodeGet(path)
		if node == nil {
			return "", nil
		}
		if _, isDict := node.(map[string]any); isDict {
			return "", Shape("cat expects a leaf; use ls for dict nodes")
		}
		text, _ := node.(string)
		return text, nil
	}

	return "", Shape("cat expects $... or &... or #...")
}
