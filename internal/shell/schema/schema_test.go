package schema

import (
	"reflect"
	"strings"
	"testing"
)

func TestInsertKVItemRendersParameterizedSQL(t *testing.T) {
	sql, args, err := InsertKVItem("root", "notes", "todo", "buy milk")
	if err != nil {
		t.Fatalf("InsertKVItem: %v", err)
	}
	if !strings.Contains(sql, TableKVItem) {
		t.Fatalf("sql = %q, want it to reference %q", sql, TableKVItem)
	}
	if len(args) == 0 {
		t.Fatal("expected parameterized args, got none")
	}
}

func TestInsertTableNodeDistinguishesLeafAndInterior(t *testing.T) {
	sql, leafArgs, err := InsertTableNode("root", "cfg.db", "cfg", "db", NodeKindLeaf, "v")
	if err != nil {
		t.Fatalf("InsertTableNode: %v", err)
	}
	if !strings.Contains(sql, TableTableNode) {
		t.Fatalf("sql = %q, want it to reference %q", sql, TableTableNode)
	}
	_, interiorArgs, err := InsertTableNode("root", "cfg.db", "cfg", "db", NodeKindInterior, "v")
	if err != nil {
		t.Fatalf("InsertTableNode(interior): %v", err)
	}
	if reflect.DeepEqual(leafArgs, interiorArgs) {
		t.Fatalf("leaf and interior rows rendered identical args %v", leafArgs)
	}
}

func TestSelectTablesUnderOrdersByPath(t *testing.T) {
	sql, args, err := SelectTablesUnder("root", "cfg")
	if err != nil {
		t.Fatalf("SelectTablesUnder: %v", err)
	}
	if !strings.Contains(strings.ToUpper(sql), "ORDER BY") {
		t.Fatalf("sql = %q, want an ORDER BY clause", sql)
	}
	if len(args) == 0 {
		t.Fatal("expected parameterized args for the root/prefix filters")
	}
}
