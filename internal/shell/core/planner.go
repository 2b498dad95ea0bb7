package core

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rakunlabs/symshell/internal/shell/store"
)

// defaultMaxFiles mirrors original_source/system/topics/planner.py's
// shard size default.
const defaultMaxFiles = 25

// shardPlan is the JSON document plan writes to #root:plan.
type shardPlan struct {
	Root   string     `json:"root"`
	Intent string     `json:"intent"`
	Shards [][]string `json:"shards"`
}

// registerPlanner wires sys.plan/plan.show/plan.rm, a sharded file
// planner grounded on original_source's planner: pure bookkeeping over
// the table tree, no LLM or network call.
func registerPlanner(e *Engine) {
	e.RegisterPrimitive("sys.plan", e.plan,
		"Write a sharded file plan for the leaves under a table root",
		"sys.plan #<root> <intent...> [max_files=N]")
	e.RegisterPrimitive("sys.plan.show", e.planShow,
		"Show the stored shard plan JSON for a table root",
		"sys.plan.show #<root>")
	e.RegisterPrimitive("sys.plan.rm", e.planRm,
		"Delete the stored shard plan for a table root",
		"sys.plan.rm #<root>")
}

func (e *Engine) plan(args []string) (string, error) {
	if len(args) < 1 {
		return "", Shape("plan expects #<root> <intent...> [max_files=N]")
	}
	root, err := store.ParseHash(args[0])
	if err != nil {
		return "", Shape("%s", err)
	}

	rest := args[1:]
	maxFiles := defaultMaxFiles
	intentWords := make([]string, 0, len(rest))
	for _, w := range rest {
		if v, ok := strings.CutPrefix(w, "max_files="); ok {
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n <= 0 {
				return "", Shape("max_files must be a positive integer")
			}
			maxFiles = n
			continue
		}
		intentWords = append(intentWords, w)
	}

	node := e.Tables.NodeGet(root)
	children, _ := node.(map[string]any)

	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	sort.Strings(names)

	var shards [][]string
	for _, name := range names {
		childPath := append(append([]string{}, root...), name)
		if _, isLeaf := children[name].(string); isLeaf {
			shards = append(shards, []string{name})
			continue
		}
		leaves := e.Tables.WalkLeaves(childPath)
		rel := make([]string, 0, len(leaves))
		for _, lf := range leaves {
			rel = append(rel, strings.Join(lf.Path[len(root):], ":"))
		}
		for i := 0; i < len(rel); i += maxFiles {
			end := i + maxFiles
			if end > len(rel) {
				end = len(rel)
			}
			shards = append(shards, append([]string{}, rel[i:end]...))
		}
	}

	p := shardPlan{
		Root:   strings.Join(root, ":"),
		Intent: strings.Join(intentWords, " "),
		Shards: shards,
	}
	data, jsonErr := json.Marshal(p)
	if jsonErr != nil {
		return "", Shape("%s", jsonErr)
	}

	planPath := append(append([]string{}, root...), "plan")
	if err := e.Tables.LeafSet(planPath, string(data)); err != nil {
		return "", Shape("%s", err)
	}
	return "OK", nil
}

func (e *Engine) planShow(args []string) (string, error) {
	if len(args) != 1 {
		return "", Shape("plan.show expects #<root>")
	}
	root, err := store.ParseHash(args[0])
	if err != nil {
		return "", Shape("%s", err)
	}
	planPath := append(append([]string{}, root...), "plan")
	node := e.Tables.NodeGet(planPath)
	text, _ := node.(string)
	return text, nil
}

func (e *Engine) planRm(args []string) (string, error) {
	if len(args) != 1 {
		return "", Shape("plan.rm expects #<root>")
	}
	root, err := store.ParseHash(args[0])
	if err != nil {
		return "", Shape("%s", err)
	}
	planPath := append(append([]string{}, root...), "plan")
	if _, err := e.Tables.NodeRemove(planPath); err != nil {
		return "", Shape("%s", err)
	}
	return "OK", nil
}
