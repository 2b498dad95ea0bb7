package core

import "sort"

// Aliases is the user-surface alias table: apart from "help", the only
// commands a caller may type are alias heads, each of which expands
// (token-0 only) to an internal sys.* primitive. The one direct sys.*
// call from outside this package is the LLM bridge reading a target
// through Engine.DispatchInternal's sys.cat.
type Aliases struct {
	table map[string]string
}

// defaultAliases mirrors the distilled source's ALIASES map, with the
// planner aliases enabled rather than commented out.
var defaultAliases = map[string]string{
	"mk":       "sys.mk",
	"rm":       "sys.rm",
	"ls":       "sys.ls",
	"add.item": "sys.add.item",
	"cat":      "sys.cat",
	"cp":       "sys.cp",
	"mv":       "sys.mv",

	"import.file": "sys.io.import.file",
	"import.many": "sys.io.import.many",
	"export.file": "sys.io.export.file",
	"export.many": "sys.io.export.many",

	"plan":      "sys.plan",
	"plan.show": "sys.plan.show",
	"plan.rm":   "sys.plan.rm",

	"run":    "sys.run",
	"status": "sys.status",
	"pause":  "sys.pause",
	"stop":   "sys.stop",

	"ON":       "sys.ev.on",
	"ON.show":  "sys.ev.show",
	"ON.reset": "sys.ev.reset",

	"Q": "sys.q.chat",
}

// NewAliases returns an alias table seeded with the default surface.
func NewAliases() *Aliases {
	table := make(map[string]string, len(defaultAliases))
	for k, v := range defaultAliases {
		table[k] = v
	}
	return &Aliases{table: table}
}

// Has reports whether name is a known alias head.
func (a *Aliases) Has(name string) bool {
	_, ok := a.table[name]
	return ok
}

// Get returns the sys.* expansion for name.
func (a *Aliases) Get(name string) (string, bool) {
	v, ok := a.table[name]
	return v, ok
}

// List returns every alias name, sorted.
func (a *Aliases) List() []string {
	out := make([]string, 0, len(a.table))
	for k := range a.table {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Expand replaces parts[0] with its sys.* expansion, splitting on
// whitespace, if parts[0] is a known alias. Returns parts unchanged
// otherwise (the expander-loop contract: no change means don't touch).
func (a *Aliases) Expand(parts []string) []string {
	if len(parts) == 0 {
		return parts
	}
	exp, ok := a.table[parts[0]]
	if !ok {
		return parts
	}
	head := splitFields(exp)
	out := make([]string, 0, len(head)+len(parts)-1)
	out = append(out, head...)
	out = append(out, parts[1:]...)
	return out
}
