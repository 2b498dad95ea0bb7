// Package schema renders the persistence contract for the three symbol
// stores as parameterized SQL using github.com/doug-martin/goqu/v9. It
// performs no I/O and opens no database connection; runtime state is
// not persisted. The five tables exist here purely as the documented
// contract a future persistence layer would bind to.
package schema

import (
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

// Table names, one per store mapping.
const (
	TableKVSub     = "lf_kv_sub"
	TableKVItem    = "lf_kv_item"
	TableListSub   = "lf_list_sub"
	TableListItem  = "lf_list_item"
	TableTableNode = "lf_tbl_node"
)

var dialect = goqu.Dialect("sqlite3")

// InsertKVSub renders an insert for a texts-store sub under root.
func InsertKVSub(root, sub string) (string, []any, error) {
	return dialect.Insert(TableKVSub).
		Prepared(true).
		Rows(goqu.Record{"root": root, "sub": sub}).
		ToSQL()
}

// InsertKVItem renders an insert for one key/value pair of a texts sub.
func InsertKVItem(root, sub, key, value string) (string, []any, error) {
	return dialect.Insert(TableKVItem).
		Prepared(true).
		Rows(goqu.Record{"root": root, "sub": sub, "k": key, "v": value}).
		ToSQL()
}

// InsertListSub renders an insert for a routine's name record.
func InsertListSub(root, sub string) (string, []any, error) {
	return dialect.Insert(TableListSub).
		Prepared(true).
		Rows(goqu.Record{"root": root, "sub": sub}).
		ToSQL()
}

// InsertListItem renders an insert for one 0-indexed routine step.
func InsertListItem(root, sub string, idx int, value string) (string, []any, error) {
	return dialect.Insert(TableListItem).
		Prepared(true).
		Rows(goqu.Record{"root": root, "sub": sub, "idx": idx, "v": value}).
		ToSQL()
}

// NodeKind distinguishes an interior table node from a leaf in
// lf_tbl_node.Kind.
type NodeKind string

const (
	NodeKindInterior NodeKind = "interior"
	NodeKindLeaf     NodeKind = "leaf"
)

// InsertTableNode renders an insert for one node (interior or leaf) of
// the tables tree, addressed by its materialized path and parent path.
func InsertTableNode(root, nodePath, parentPath, nodeKey string, kind NodeKind, value string) (string, []any, error) {
	return dialect.Insert(TableTableNode).
		Prepared(true).
		Rows(goqu.Record{
			"root":        root,
			"node_path":   nodePath,
			"parent_path": parentPath,
			"node_key":    nodeKey,
			"kind":        string(kind),
			"v":           value,
		}).
		ToSQL()
}

// SelectTablesUnder renders the query a future persistence layer would
// issue to reload every node under a root's path prefix, ordered so
// interiors are materialized before their children.
func SelectTablesUnder(root, pathPrefix string) (string, []any, error) {
	return dialect.From(TableTableNode).
		Prepared(true).
		Select("node_path", "parent_path", "node_key", "kind", "v").
		Where(
			goqu.C("root").Eq(root),
			goqu.C("node_path").Like(pathPrefix+"%"),
		).
		Order(goqu.C("node_path").Asc()).
		ToSQL()
}
