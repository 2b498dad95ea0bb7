// Package store holds the three typed symbol stores (texts, routines,
// tables) that back the $, &, and # addressing namespaces.
package store

import (
	"sort"
	"sync"
)

// Texts is the $ store: a locked root of named sub-dictionaries mapping
// key to scalar value. Safe for concurrent use: the event poller and
// runner workers read it from outside the dispatcher's gate.
type Texts struct {
	mu   sync.RWMutex
	subs map[string]map[string]string
}

// NewTexts returns an empty texts store.
func NewTexts() *Texts {
	return &Texts{subs: make(map[string]map[string]string)}
}

// SubMake creates sub if it does not already exist. No-op otherwise.
func (t *Texts) SubMake(sub string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subs[sub]; !ok {
		t.subs[sub] = make(map[string]string)
	}
}

// SubExists reports whether sub has been created.
func (t *Texts) SubExists(sub string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.subs[sub]
	return ok
}

// SubRemove deletes sub and every key under it.
func (t *Texts) SubRemove(sub string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subs[sub]; !ok {
		return false
	}
	delete(t.subs, sub)
	return true
}

// SubList returns every sub name, sorted.
func (t *Texts) SubList() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.subs))
	for k := range t.subs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeyList returns every key under sub, sorted.
func (t *Texts) KeyList(sub string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.subs[sub]
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, true
}

// Get returns the value of key under sub.
func (t *Texts) Get(sub, key string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.subs[sub]
	if !ok {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// Set writes key=value under sub, which must already exist.
func (t *Texts) Set(sub, key, value string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[sub]
	if !ok {
		return false
	}
	m[key] = value
	return true
}

// EnsureKey creates key under sub with an empty value if absent.
func (t *Texts) EnsureKey(sub, key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[sub]
	if !ok {
		return false
	}
	if _, exists := m[key]; !exists {
		m[key] = ""
	}
	return true
}

// Append concatenates text onto the current value of key under sub.
func (t *Texts) Append(sub, key, text string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[sub]
	if !ok {
		return false
	}
	if cur := m[key]; cur != "" {
		m[key] = cur + text
	} else {
		m[key] = text
	}
	return true
}

// Delete removes key from sub, returning its prior value.
func (t *Texts) Delete(sub, key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[sub]
	if !ok {
		return "", false
	}
	v, existed := m[key]
	delete(m, key)
	return v, existed
}

// Clear empties every key under sub without removing sub itself.
func (t *Texts) Clear(sub string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.subs[sub]; !ok {
		return false
	}
	t.subs[sub] = make(map[string]string)
	return true
}

// CloneSub returns a shallow copy of sub's key/value pairs.
func (t *Texts) CloneSub(sub string) (map[string]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.subs[sub]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, true
}

// ReplaceSub overwrites sub wholesale, creating it if absent.
func (t *Texts) ReplaceSub(sub string, data map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs[sub] = data
}

// Rename moves src's contents to dst, overwriting dst and removing src.
func (t *Texts) Rename(src, dst string) (map[string]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.subs[src]
	if !ok {
		return nil, false
	}
	delete(t.subs, src)
	t.subs[dst] = m
	return m, true
}
