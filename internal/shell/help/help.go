// Package help renders the command table/usage text the REPL shows for
// "help" and "help <alias>", grounded on original_source's help
// renderer and kept as a thin, out-of-core bridge.
package help

import (
	"fmt"
	"strings"

	"github.com/rakunlabs/symshell/internal/shell/core"
)

// Render returns the full alias table (no argument) or one alias's
// usage/help detail.
func Render(e *core.Engine, alias string) string {
	if alias == "" {
		return renderAll(e)
	}
	return renderOne(e, alias)
}

func renderAll(e *core.Engine) string {
	var b strings.Builder
	for _, a := range e.Aliases.List() {
		target, _ := e.Aliases.Get(a)
		helpText, usage, ok := e.Help(target)
		if !ok {
			fmt.Fprintf(&b, "%-12s -> %s\n", a, target)
			continue
		}
		fmt.Fprintf(&b, "%-12s %s\n             %s\n", a, helpText, usage)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOne(e *core.Engine, alias string) string {
	target, ok := e.Aliases.Get(alias)
	if !ok {
		return "Unknown command"
	}
	helpText, usage, ok := e.Help(target)
	if !ok {
		return fmt.Sprintf("%s -> %s (no help registered)", alias, target)
	}
	return fmt.Sprintf("%s\n  %s\n  usage: %s", alias, helpText, usage)
}
