package store

import (
	"fmt"
	"sort"
	"sync"
)

// TablesRoot names the single table tree every # path is addressed
// against. The distilled source carried two spellings of this constant
// (a local ROOT and the string "tables") that disagreed in one call
// site; this store collapses both to the one exported constant.
const TablesRoot = "tables"

// Tables is the # store: an arbitrarily deep tree whose interior nodes
// are dicts and whose leaves are scalar strings. Safe for concurrent
// use: the event poller reads trigger leaves from outside the
// dispatcher's gate.
type Tables struct {
	mu   sync.RWMutex
	root map[string]any
}

// NewTables returns an empty table tree.
func NewTables() *Tables {
	return &Tables{root: make(map[string]any)}
}

func nodeGet(root map[string]any, path []string) any {
	var cur any = root
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		nxt, ok := m[p]
		if !ok {
			return nil
		}
		cur = nxt
	}
	return cur
}

func nodeEnsureDict(root map[string]any, path []string) (map[string]any, error) {
	cur := root
	for _, p := range path {
		nxt, ok := cur[p]
		if !ok {
			m := make(map[string]any)
			cur[p] = m
			cur = m
			continue
		}
		m, ok := nxt.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path collision at '%s'", p)
		}
		cur = m
	}
	return cur, nil
}

// NodeGet returns the node at path, or nil if absent. The returned value
// is either a map[string]any (interior) or a string (leaf). The map, if
// any, is a live reference; callers must not mutate it.
func (t *Tables) NodeGet(path []string) any {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return nodeGet(t.root, path)
}

// NodeEnsureDict walks path, creating empty interior dicts as needed, and
// reports whether it succeeded (an existing leaf blocks the walk).
func (t *Tables) NodeEnsureDict(path []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := nodeEnsureDict(t.root, path)
	return err
}

// NodeLs returns the sorted child keys of the dict node at path.
func (t *Tables) NodeLs(path []string) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node := nodeGet(t.root, path)
	m, ok := node.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ls expects dict node")
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// LeafSet writes text at path, overwriting any prior leaf. Path must not
// address an existing interior dict.
func (t *Tables) LeafSet(path []string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(path) == 0 {
		return fmt.Errorf("empty # path")
	}
	parent, err := nodeEnsureDict(t.root, path[:len(path)-1])
	if err != nil {
		return err
	}
	k := path[len(path)-1]
	if _, ok := parent[k].(map[string]any); ok {
		return fmt.Errorf("cannot overwrite dict node with scalar")
	}
	parent[k] = text
	return nil
}

// LeafAppend concatenates text onto the scalar leaf at path, creating it
// if absent.
func (t *Tables) LeafAppend(path []string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(path) == 0 {
		return fmt.Errorf("empty # path")
	}
	parent, err := nodeEnsureDict(t.root, path[:len(path)-1])
	if err != nil {
		return err
	}
	k := path[len(path)-1]
	cur, ok := parent[k]
	if ok {
		if _, isDict := cur.(map[string]any); isDict {
			return fmt.Errorf("cannot overwrite dict node with scalar")
		}
	}
	curStr, _ := cur.(string)
	if curStr != "" {
		parent[k] = curStr + text
	} else {
		parent[k] = text
	}
	return nil
}

// NodeRemove deletes the node at path, reporting whether anything was
// removed.
func (t *Tables) NodeRemove(path []string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(path) == 0 {
		return false, fmt.Errorf("empty # path")
	}
	var parent map[string]any
	if len(path) > 1 {
		node := nodeGet(t.root, path[:len(path)-1])
		m, ok := node.(map[string]any)
		if !ok {
			return false, nil
		}
		parent = m
	} else {
		parent = t.root
	}
	k := path[len(path)-1]
	if _, ok := parent[k]; !ok {
		return false, nil
	}
	delete(parent, k)
	return true, nil
}

// NodeSet writes an arbitrary node (dict or leaf) at path, overwriting
// whatever was there.
func (t *Tables) NodeSet(path []string, node any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(path) == 0 {
		return fmt.Errorf("empty # path")
	}
	parent, err := nodeEnsureDict(t.root, path[:len(path)-1])
	if err != nil {
		return err
	}
	parent[path[len(path)-1]] = node
	return nil
}

// CloneNode returns a deep copy of the node at path, for cp-style
// subtree duplication.
func (t *Tables) CloneNode(path []string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node := nodeGet(t.root, path)
	if node == nil {
		return nil, false
	}
	return deepCloneNode(node), true
}

// TakeNode atomically removes and returns the node at path, for
// mv-style subtree relocation.
func (t *Tables) TakeNode(path []string) (any, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(path) == 0 {
		return nil, false, fmt.Errorf("empty # path")
	}
	var parent map[string]any
	if len(path) > 1 {
		node := nodeGet(t.root, path[:len(path)-1])
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		parent = m
	} else {
		parent = t.root
	}
	k := path[len(path)-1]
	node, ok := parent[k]
	if !ok {
		return nil, false, nil
	}
	delete(parent, k)
	return node, true, nil
}

// LeafPath pairs a leaf's absolute path tokens with its text.
type LeafPath struct {
	Path []string
	Text string
}

// WalkLeaves returns every leaf under base, sorted by path.
func (t *Tables) WalkLeaves(base []string) []LeafPath {
	t.mu.RLock()
	defer t.mu.RUnlock()
	start := nodeGet(t.root, base)
	if start == nil {
		return nil
	}
	var out []LeafPath
	var rec func(cur []string, node any)
	rec = func(cur []string, node any) {
		if m, ok := node.(map[string]any); ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				rec(append(append([]string{}, cur...), k), m[k])
			}
			return
		}
		text, _ := node.(string)
		out = append(out, LeafPath{Path: append([]string{}, cur...), Text: text})
	}
	rec(append([]string{}, base...), start)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Path, out[j].Path
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		for k := 0; k < n; k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return out
}

func deepCloneNode(node any) any {
	if m, ok := node.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = deepCloneNode(v)
		}
		return out
	}
	return node
}
