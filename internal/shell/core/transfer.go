package core

import (
	"strings"

	"github.com/rakunlabs/symshell/internal/shell/store"
)

// level identifies which store a target token addresses, so cp/mv can
// reject cross-level transfers outside the closed matrix with a single
// "requires same level" error.
type level int

const (
	levelText level = iota
	levelRoutine
	levelTable
	levelUnknown
)

func levelOf(tok string) level {
	switch {
	case strings.HasPrefix(tok, "$"):
		return levelText
	case strings.HasPrefix(tok, "&"):
		return levelRoutine
	case strings.HasPrefix(tok, "#"):
		return levelTable
	default:
		return levelUnknown
	}
}

// cp implements sys.cp: the closed transfer matrix across $/&/# levels.
func (e *Engine) cp(args []string) (string, error) {
	if len(args) != 2 {
		return "", Shape("cp expects <src> <dst>")
	}
	src, dst := args[0], args[1]
	ls, ld := levelOf(src), levelOf(dst)
	if ls == levelUnknown || ld == levelUnknown {
		return "", Shape("cp: unrecognized target prefix")
	}

	switch {
	case ls == levelText && ld == levelText:
		return e.cpTextText(src, dst)
	case ls == levelRoutine && ld == levelRoutine:
		return e.cpRoutineRoutine(src, dst)
	case (ls == levelText && ld == levelRoutine) || (ls == levelRoutine && ld == levelText):
		return e.cpTextRoutine(src, dst, ls)
	case (ls == levelText && ld == levelTable) || (ls == levelTable && ld == levelText):
		return e.cpTextTable(src, dst, ls)
	case (ls == levelRoutine && ld == levelTable) || (ls == levelTable && ld == levelRoutine):
		return e.cpRoutineTable(src, dst, ls)
	case ls == levelTable && ld == levelTable:
		return e.cpTableTable(src, dst)
	}
	return "", Shape("cp: requires same level")
}

func (e *Engine) cpTextText(src, dst string) (string, error) {
	srcSub, srcKey, srcHasKey, err := store.SplitKV(src)
	if err != nil {
		return "", Shape("%s", err)
	}
	dstSub, dstKey, dstHasKey, err := store.SplitKV(dst)
	if err != nil {
		return "", Shape("%s", err)
	}
	if srcHasKey != dstHasKey {
		return "", Shape("cp $<->$ requires same level (sub<->sub or key<->key)")
	}
	if !srcHasKey {
		data, ok := e.Texts.CloneSub(srcSub)
		if !ok {
			return "", Shape("sub not found: texts/%s", srcSub)
		}
		e.Texts.ReplaceSub(dstSub, data)
		return "OK", nil
	}
	if !e.Texts.SubExists(srcSub) {
		return "", Shape("sub not found: texts/%s", srcSub)
	}
	val, ok := e.Texts.Get(srcSub, srcKey)
	if !ok {
		return "", Shape("key not found")
	}
	e.Texts.SubMake(dstSub)
	e.Texts.EnsureKey(dstSub, dstKey)
	e.Texts.Set(dstSub, dstKey, val)
	return "OK", nil
}

func (e *Engine) cpRoutineRoutine(src, dst string) (string, error) {
	srcName, srcIdx, srcHasIdx, err := store.ParseAmpIdx(src)
	if err != nil {
		return "", Shape("%s", err)
	}
	dstName, dstIdx, dstHasIdx, err := store.ParseAmpIdx(dst)
	if err != nil {
		return "", Shape("%s", err)
	}
	if !srcHasIdx && !dstHasIdx {
		steps, ok := e.Routines.Clone(srcName)
		if !ok {
			return "", Shape("sub not found: routines/%s", srcName)
		}
		if err := e.checkRoutineUnlocked(dstName); err != nil {
			return "", err
		}
		e.Routines.ReplaceAll(dstName, steps)
		return "OK", nil
	}
	if srcHasIdx && dstHasIdx {
		step, err := e.Routines.Get(srcName, srcIdx)
		if err != nil {
			return "", Shape("%s", err)
		}
		if err := e.checkRoutineUnlocked(dstName); err != nil {
			return "", err
		}
		if err := e.Routines.Set(dstName, dstIdx, step); err != nil {
			return "", Shape("%s", err)
		}
		return "OK", nil
	}
	return "", Shape("cp &<->& requires same level (name<->name or name:idx<->name:idx)")
}

// cpTextRoutine handles $<->& in both directions, srcLevel tells us
// which side is which.
func (e *Engine) cpTextRoutine(src, dst string, srcLevel level) (string, error) {
	textTok, routineTok := src, dst
	if srcLevel == levelRoutine {
		textTok, routineTok = dst, src
	}
	sub, key, hasKey, err := store.SplitKV(textTok)
	if err != nil {
		return "", Shape("%s", err)
	}
	if !hasKey {
		return "", Shape("cp $<->& requires $<sub>:<key>")
	}
	name, idx, hasIdx, err := store.ParseAmpIdx(routineTok)
	if err != nil {
		return "", Shape("%s", err)
	}

	if srcLevel == levelText {
		if !e.Texts.SubExists(sub) {
			return "", Shape("sub not found: texts/%s", sub)
		}
		val, ok := e.Texts.Get(sub, key)
		if !ok {
			return "", Shape("key not found")
		}
		if err := e.checkRoutineUnlocked(name); err != nil {
			return "", err
		}
		if hasIdx {
			if err := e.Routines.Set(name, idx, val); err != nil {
				return "", Shape("%s", err)
			}
		} else {
			if !e.Routines.Append(name, val) {
				return "", Shape("sub not found: routines/%s", name)
			}
		}
		return "OK", nil
	}

	// routine -> text: always a single step (index required or implicit 0).
	step, err := e.Routines.Get(name, idx)
	if err != nil {
		return "", Shape("%s", err)
	}
	e.Texts.SubMake(sub)
	e.Texts.EnsureKey(sub, key)
	e.Texts.Set(sub, key, step)
	return "OK", nil
}

// cpTextTable handles $<-># in both directions.
func (e *Engine) cpTextTable(src, dst string, srcLevel level) (string, error) {
	textTok, tableTok := src, dst
	if srcLevel == levelTable {
		textTok, tableTok = dst, src
	}
	sub, key, hasKey, err := store.SplitKV(textTok)
	if err != nil {
		return "", Shape("%s", err)
	}
	path, err := store.ParseHash(tableTok)
	if err != nil {
		return "", Shape("%s", err)
	}

	if srcLevel == levelText {
		if !hasKey {
			// whole $sub -> flat mapping under #p (texts has no nesting).
			data, ok := e.Texts.CloneSub(sub)
			if !ok {
				return "", Shape("sub not found: texts/%s", sub)
			}
			node := make(map[string]any, len(data))
			for k, v := range data {
				node[k] = v
			}
			if err := e.Tables.NodeSet(path, node); err != nil {
				return "", Shape("%s", err)
			}
			return "OK", nil
		}
		if !e.Texts.SubExists(sub) {
			return "", Shape("sub not found: texts/%s", sub)
		}
		val, ok := e.Texts.Get(sub, key)
		if !ok {
			return "", Shape("key not found")
		}
		if err := e.Tables.LeafSet(path, val); err != nil {
			return "", Shape("%s", err)
		}
		return "OK", nil
	}

	// # -> $: only leaf <-> key is defined for cp in this direction
	// (the flat-dict constraint applies to interior->sub, covered by
	// cpTableToSub below when dst has no key).
	if !hasKey {
		return e.cpTableToSub(path, sub)
	}
	node := e.Tables.NodeGet(path)
	if node == nil {
		return "", Shape("table path not found")
	}
	if _, isDict := node.(map[string]any); isDict {
		return "", Shape("cp #<->$ requires a leaf (or use $<sub> with a flat dict node)")
	}
	text, _ := node.(string)
	e.Texts.SubMake(sub)
	e.Texts.EnsureKey(sub, key)
	e.Texts.Set(sub, key, text)
	return "OK", nil
}

// cpTableToSub implements "cp #p $sub requires #p to be an interior
// whose children are all leaves" — the flat-dict constraint.
func (e *Engine) cpTableToSub(path []string, sub string) (string, error) {
	node := e.Tables.NodeGet(path)
	m, ok := node.(map[string]any)
	if !ok {
		return "", Shape("cp #<path> $<sub> requires an interior table node")
	}
	flat := make(map[string]string, len(m))
	for k, v := range m {
		text, isLeaf := v.(string)
		if !isLeaf {
			return "", Shape("cp #<path> $<sub> requires a flat interior (no nested dict)")
		}
		flat[k] = text
	}
	e.Texts.ReplaceSub(sub, flat)
	return "OK", nil
}

// cpRoutineTable handles &<-># in both directions: only one step <-> one leaf.
func (e *Engine) cpRoutineTable(src, dst string, srcLevel level) (string, error) {
	routineTok, tableTok := src, dst
	if srcLevel == levelTable {
		routineTok, tableTok = dst, src
	}
	name, idx, hasIdx, err := store.ParseAmpIdx(routineTok)
	if err != nil {
		return "", Shape("%s", err)
	}
	path, err := store.ParseHash(tableTok)
	if err != nil {
		return "", Shape("%s", err)
	}

	if srcLevel == levelRoutine {
		step, err := e.Routines.Get(name, idx)
		if err != nil {
			return "", Shape("%s", err)
		}
		if err := e.Tables.LeafSet(path, step); err != nil {
			return "", Shape("%s", err)
		}
		return "OK", nil
	}

	node := e.Tables.NodeGet(path)
	if node == nil {
		return "", Shape("table path not found")
	}
	if _, isDict := node.(map[string]any); isDict {
		return "", Shape("cp &<-># requires a leaf")
	}
	text, _ := node.(string)
	if err := e.checkRoutineUnlocked(name); err != nil {
		return "", err
	}
	if hasIdx {
		if err := e.Routines.Set(name, idx, text); err != nil {
			return "", Shape("%s", err)
		}
	} else {
		if !e.Routines.Append(name, text) {
			return "", Shape("sub not found: routines/%s", name)
		}
	}
	return "OK", nil
}

// cpTableTable handles #<->#: arbitrary subtree clone, destination
// overwritten wholesale via a recursive deep copy.
func (e *Engine) cpTableTable(src, dst string) (string, error) {
	srcPath, err := store.ParseHash(src)
	if err != nil {
		return "", Shape("%s", err)
	}
	dstPath, err := store.ParseHash(dst)
	if err != nil {
		return "", Shape("%s", err)
	}
	node, ok := e.Tables.CloneNode(srcPath)
	if !ok {
		return "", Shape("table path not found")
	}
	if err := e.Tables.NodeSet(dstPath, node); err != nil {
		return "", Shape("%s", err)
	}
	return "OK", nil
}

// mv implements sys.mv: same-kind-only moves, with src==dst as a no-op
// sentinel.
func (e *Engine) mv(args []string) (string, error) {
	if len(args) != 2 {
		return "", Shape("mv expects <src> <dst>")
	}
	src, dst := args[0], args[1]
	if src == dst {
		return "no-op: src == dst", nil
	}
	ls, ld := levelOf(src), levelOf(dst)
	if ls == levelUnknown || ld == levelUnknown {
		return "", Shape("mv: unrecognized target prefix")
	}
	if ls != ld {
		return "", Shape("mv: requires same level")
	}

	switch ls {
	case levelText:
		return e.mvText(src, dst)
	case levelRoutine:
		return e.mvRoutine(src, dst)
	case levelTable:
		return e.mvTable(src, dst)
	}
	return "", Shape("mv: requires same level")
}

func (e *Engine) mvText(src, dst string) (string, error) {
	srcSub, srcKey, srcHasKey, err := store.SplitKV(src)
	if err != nil {
		return "", Shape("%s", err)
	}
	dstSub, dstKey, dstHasKey, err := store.SplitKV(dst)
	if err != nil {
		return "", Shape("%s", err)
	}
	if srcHasKey != dstHasKey {
		return "", Shape("mv $<->$ requires same level (sub<->sub or key<->key)")
	}
	if !srcHasKey {
		if _, ok := e.Texts.Rename(srcSub, dstSub); !ok {
			return "", Shape("sub not found: texts/%s", srcSub)
		}
		return "OK", nil
	}
	if !e.Texts.SubExists(srcSub) {
		return "", Shape("sub not found: texts/%s", srcSub)
	}
	val, ok := e.Texts.Delete(srcSub, srcKey)
	if !ok {
		return "", Shape("key not found")
	}
	e.Texts.SubMake(dstSub)
	e.Texts.EnsureKey(dstSub, dstKey)
	e.Texts.Set(dstSub, dstKey, val)
	return "OK", nil
}

func (e *Engine) mvRoutine(src, dst string) (string, error) {
	srcName, srcIdx, srcHasIdx, err := store.ParseAmpIdx(src)
	if err != nil {
		return "", Shape("%s", err)
	}
	dstName, dstIdx, dstHasIdx, err := store.ParseAmpIdx(dst)
	if err != nil {
		return "", Shape("%s", err)
	}
	if srcHasIdx != dstHasIdx {
		return "", Shape("mv &<->& requires same level (name<->name or name:idx<->name:idx)")
	}
	if err := e.checkRoutineUnlocked(srcName); err != nil {
		return "", err
	}
	if !srcHasIdx {
		if err := e.checkRoutineUnlocked(dstName); err != nil {
			return "", err
		}
		if _, ok := e.Routines.Rename(srcName, dstName); !ok {
			return "", Shape("sub not found: routines/%s", srcName)
		}
		return "OK", nil
	}
	if err := e.checkRoutineUnlocked(dstName); err != nil {
		return "", err
	}
	before, _ := e.Routines.Steps(srcName)
	step, err := e.Routines.Pop(srcName, srcIdx)
	if err != nil {
		return "", Shape("%s", err)
	}
	if err := e.Routines.Set(dstName, dstIdx, step); err != nil {
		// restore the source so a failed move leaves it unchanged.
		e.Routines.ReplaceAll(srcName, before)
		return "", Shape("%s", err)
	}
	return "OK", nil
}

func (e *Engine) mvTable(src, dst string) (string, error) {
	srcPath, err := store.ParseHash(src)
	if err != nil {
		return "", Shape("%s", err)
	}
	dstPath, err := store.ParseHash(dst)
	if err != nil {
		return "", Shape("%s", err)
	}
	node, ok, err := e.Tables.TakeNode(srcPath)
	if err != nil {
		return "", Shape("%s", err)
	}
	if !ok {
		return "", Shape("table path not found")
	}
	if err := e.Tables.NodeSet(dstPath, node); err != nil {
		// put the node back so a failed move leaves the tree unchanged.
		_ = e.Tables.NodeSet(srcPath, node)
		return "", Shape("%s", err)
	}
	return "OK", nil
}
