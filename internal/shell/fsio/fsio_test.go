package fsio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rakunlabs/symshell/internal/shell/core"
)

func TestImportFileRejectsBinary(t *testing.T) {
	e := core.NewEngine()
	b := New(e)

	dir := t.TempDir()
	path := filepath.Join(dir, "bin.dat")
	if err := os.WriteFile(path, []byte{0x00, 0xff, 0xfe, 0x00}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	e.Execute("mk #docs")
	if _, err := b.importFile([]string{path, "#docs:bin"}); err == nil {
		t.Fatal("importFile should reject non-UTF-8 content")
	}
}

func TestImportFileIntoTextKey(t *testing.T) {
	e := core.NewEngine()
	b := New(e)

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	os.WriteFile(path, []byte("hello"), 0o644)

	e.Execute("mk $notes")
	if _, err := b.importFile([]string{path, "$notes:a"}); err != nil {
		t.Fatalf("importFile: %v", err)
	}
	if out := e.Execute("cat $notes:a"); out != "hello" {
		t.Fatalf("cat $notes:a = %q, want hello", out)
	}
}

func TestImportManyHonorsIgnoreFile(t *testing.T) {
	e := core.NewEngine()
	b := New(e)

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, ".ignore"), []byte("skip.txt\n"), 0o644)
	os.WriteFile(filepath.Join(dir, "skip.txt"), []byte("nope"), 0o644)
	os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("yes"), 0o644)

	e.Execute("mk #tree")
	out, err := b.importMany([]string{dir, "#tree"})
	if err != nil {
		t.Fatalf("importMany: %v", err)
	}
	if out != "imported=1 skipped_binary=0" {
		t.Fatalf("importMany result = %q, want imported=1 skipped_binary=0", out)
	}
	if got := e.Execute("cat #tree:keep.txt"); got != "yes" {
		t.Fatalf("cat #tree:keep.txt = %q, want yes", got)
	}
	if got := e.Execute("cat #tree:skip.txt"); got != "" {
		t.Fatalf("cat #tree:skip.txt should be absent (empty), got %q", got)
	}
}

func TestExportFileWritesAtomically(t *testing.T) {
	e := core.NewEngine()
	b := New(e)

	e.Execute("mk $notes")
	e.Execute("add.item $notes:k hello")

	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.txt")
	if _, err := b.exportFile([]string{"$notes:k", outPath}); err != nil {
		t.Fatalf("exportFile: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("exported content = %q, want hello", data)
	}
}

func TestExportManyWritesEveryLeaf(t *testing.T) {
	e := core.NewEngine()
	b := New(e)

	e.Execute("mk #docs")
	e.Execute("add.item #docs:a 1")
	e.Execute("add.item #docs:b 2")

	dir := t.TempDir()
	out, err := b.exportMany([]string{"#docs", dir})
	if err != nil {
		t.Fatalf("exportMany: %v", err)
	}
	if out != "2 leaves written" {
		t.Fatalf("exportMany result = %q, want 2 leaves written", out)
	}
}

func TestExportManyPreservesNestedDirectories(t *testing.T) {
	e := core.NewEngine()
	b := New(e)

	e.Execute("mk #proj")
	e.Execute("add.item #proj:top root-file")
	e.Execute("add.item #proj:sub:file nested-file")

	dir := t.TempDir()
	out, err := b.exportMany([]string{"#proj", dir})
	if err != nil {
		t.Fatalf("exportMany: %v", err)
	}
	if out != "2 leaves written" {
		t.Fatalf("exportMany result = %q, want 2 leaves written", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "top"))
	if err != nil {
		t.Fatalf("top leaf should land directly under the output dir: %v", err)
	}
	if string(data) != "root-file" {
		t.Fatalf("top leaf content = %q, want root-file", data)
	}

	data, err = os.ReadFile(filepath.Join(dir, "sub", "file"))
	if err != nil {
		t.Fatalf("sub:file leaf should land in a nested sub/ directory, not be flattened: %v", err)
	}
	if string(data) != "nested-file" {
		t.Fatalf("sub/file content = %q, want nested-file", data)
	}

	if _, err := os.Stat(filepath.Join(dir, "sub__file")); err == nil {
		t.Fatal("exportMany must not also flatten nested leaves with __ into the output root")
	}
}

func TestExportManyDefaultOutputDirNestsUnderRootName(t *testing.T) {
	e := core.NewEngine()
	b := New(e)
	e.Execute("mk #proj")
	e.Execute("add.item #proj:sub:file nested-file")

	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(cwd)

	if _, err := b.exportMany([]string{"#proj"}); err != nil {
		t.Fatalf("exportMany: %v", err)
	}

	data, err := os.ReadFile(filepath.Join("output", "#proj", "sub", "file"))
	if err != nil {
		t.Fatalf("leaf should land under output/<root>/sub/file, got error: %v", err)
	}
	if string(data) != "nested-file" {
		t.Fatalf("content = %q, want nested-file", data)
	}
}

func TestDerivedFilenameSubstitutesColons(t *testing.T) {
	if got := derivedFilename("$sub:key"); got != "$sub__key" {
		t.Fatalf("derivedFilename = %q, want $sub__key", got)
	}
}
