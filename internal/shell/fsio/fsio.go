// Package fsio implements the file I/O collaborator:
// import.file/import.many/export.file/export.many. Cascading .ignore
// semantics reuse github.com/go-git/go-git/v5's own gitignore pattern
// matcher instead of a hand-rolled matcher, since it already implements
// !-negation, trailing-/ directory-only rules, leading-/ anchoring, and
// ** path matching.
package fsio

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/rakunlabs/symshell/internal/shell/core"
	"github.com/rakunlabs/symshell/internal/shell/store"
)

// defaultOutputDir and the ':' substitution are the filename derivation
// rules for export.file/export.many.
const (
	defaultOutputDir = "./output/"
	ignoreFileName   = ".ignore"
)

// Bridge registers the four import/export primitives on an engine.
type Bridge struct {
	engine *core.Engine
}

// New wires a Bridge onto engine.
func New(e *core.Engine) *Bridge {
	b := &Bridge{engine: e}
	e.RegisterPrimitive("sys.io.import.file", b.importFile,
		"Read one UTF-8 file into a $ key or # leaf",
		"sys.io.import.file <path> (<$sub:key>|<#path>)")
	e.RegisterPrimitive("sys.io.import.many", b.importMany,
		"Walk a directory (honoring cascading .ignore files) into a # subtree",
		"sys.io.import.many <dir> <#root>")
	e.RegisterPrimitive("sys.io.export.file", b.exportFile,
		"Write a $ key, & step, or # leaf to an atomically-renamed file",
		"sys.io.export.file (<$sub:key>|<&name[:idx]>|<#path>) [outpath]")
	e.RegisterPrimitive("sys.io.export.many", b.exportMany,
		"Write every leaf under a # subtree to a file under an output directory",
		"sys.io.export.many <#root> [outdir]")
	return b
}

func (b *Bridge) importFile(args []string) (string, error) {
	if len(args) != 2 {
		return "", core.Shape("import.file expects <path> (<$sub:key>|<#path>)")
	}
	path, target := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return "", core.Shape("import.file: %s", err)
	}
	if !utf8.Valid(data) {
		return "", core.Shape("import.file: %s is not valid UTF-8", path)
	}
	text := string(data)

	switch {
	case strings.HasPrefix(target, "$"):
		sub, key, hasKey, perr := store.SplitKV(target)
		if perr != nil || !hasKey {
			return "", core.Shape("import.file target must be $<sub>:<key> or #<path>")
		}
		b.engine.Texts.SubMake(sub)
		b.engine.Texts.EnsureKey(sub, key)
		b.engine.Texts.Set(sub, key, text)
		return "OK", nil

	case strings.HasPrefix(target, "#"):
		tpath, perr := store.ParseHash(target)
		if perr != nil {
			return "", core.Shape("%s", perr)
		}
		if err := b.engine.Tables.LeafSet(tpath, text); err != nil {
			return "", core.Shape("%s", err)
		}
		return "OK", nil
	}
	return "", core.Shape("import.file target must be $<sub>:<key> or #<path>")
}

func (b *Bridge) importMany(args []string) (string, error) {
	if len(args) != 2 {
		return "", core.Shape("import.many expects <dir> <#root>")
	}
	dir, target := args[0], args[1]
	if !strings.HasPrefix(target, "#") {
		return "", core.Shape("import.many target must be #<root>")
	}
	root, err := store.ParseHash(target)
	if err != nil {
		return "", core.Shape("%s", err)
	}
	if err := b.engine.Tables.NodeEnsureDict(root); err != nil {
		return "", core.Shape("%s", err)
	}

	imported, skipped, err := b.walkImport(dir, root, nil)
	if err != nil {
		return "", core.Shape("%s", err)
	}
	return fmt.Sprintf("imported=%d skipped_binary=%d", imported, skipped), nil
}

// walkImport descends dir, accumulating .ignore patterns from root to
// leaf (cascading: later/deeper patterns win, exactly the order
// gitignore.NewMatcher expects), and imports every non-ignored regular
// file as a table leaf under root+relPath.
func (b *Bridge) walkImport(dir string, root []string, patterns []gitignore.Pattern) (imported, skipped int, err error) {
	local, ierr := readIgnoreFile(filepath.Join(dir, ignoreFileName), patterns)
	if ierr != nil {
		return 0, 0, ierr
	}
	matcher := gitignore.NewMatcher(local)

	entries, rerr := os.ReadDir(dir)
	if rerr != nil {
		return 0, 0, rerr
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, ent := range entries {
		name := ent.Name()
		if name == ignoreFileName {
			continue
		}
		full := filepath.Join(dir, name)
		relParts := append(append([]string{}, pathParts(dir)...), name)

		if matcher.Match(relParts, ent.IsDir()) {
			continue
		}

		if ent.IsDir() {
			im, sk, werr := b.walkImport(full, append(append([]string{}, root...), name), local)
			if werr != nil {
				return imported, skipped, werr
			}
			imported += im
			skipped += sk
			continue
		}

		data, rerr := os.ReadFile(full)
		if rerr != nil {
			return imported, skipped, rerr
		}
		if !utf8.Valid(data) {
			skipped++
			continue
		}
		leafPath := append(append([]string{}, root...), name)
		if err := b.engine.Tables.LeafSet(leafPath, string(data)); err != nil {
			return imported, skipped, err
		}
		imported++
	}
	return imported, skipped, nil
}

func pathParts(dir string) []string {
	clean := filepath.ToSlash(filepath.Clean(dir))
	if clean == "." || clean == "" {
		return nil
	}
	return strings.Split(clean, "/")
}

func readIgnoreFile(path string, inherited []gitignore.Pattern) ([]gitignore.Pattern, error) {
	patterns := append([]gitignore.Pattern{}, inherited...)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return patterns, nil
		}
		return nil, err
	}
	defer f.Close()

	domain := pathParts(filepath.Dir(path))
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

func (b *Bridge) exportFile(args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", core.Shape("export.file expects <target> [outpath]")
	}
	target := args[0]

	text, err := b.readScalar(target)
	if err != nil {
		return "", err
	}

	outPath := defaultOutputDir + derivedFilename(target)
	if len(args) == 2 {
		outPath = args[1]
	}

	if err := atomicWrite(outPath, []byte(text)); err != nil {
		return "", core.Shape("export.file: %s", err)
	}
	return "OK", nil
}

func (b *Bridge) exportMany(args []string) (string, error) {
	if len(args) < 1 || len(args) > 2 {
		return "", core.Shape("export.many expects <#root> [outdir]")
	}
	target := args[0]
	if !strings.HasPrefix(target, "#") {
		return "", core.Shape("export.many target must be #<root>")
	}
	root, err := store.ParseHash(target)
	if err != nil {
		return "", core.Shape("%s", err)
	}
	var outDir string
	if len(args) == 2 {
		outDir = strings.TrimSuffix(args[1], "/")
	} else {
		outDir = filepath.Join(strings.TrimSuffix(defaultOutputDir, "/"), derivedFilename(target))
	}

	leaves := b.engine.Tables.WalkLeaves(root)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", core.Shape("export.many: %s", err)
	}
	written := 0
	for _, lf := range leaves {
		rel := lf.Path[len(root):]
		if len(rel) == 0 {
			continue
		}
		outPath := filepath.Join(append([]string{outDir}, rel...)...)
		if err := atomicWrite(outPath, []byte(lf.Text)); err != nil {
			return "", core.Shape("export.many: %s", err)
		}
		written++
	}
	slog.Info("export.many wrote leaves", "root", strings.Join(root, ":"), "count", written, "dir", outDir)
	return strconv.Itoa(written) + " leaves written", nil
}

// readScalar mirrors sys.cat's three target shapes without going
// through a second dispatch round trip.
func (b *Bridge) readScalar(target string) (string, error) {
	switch {
	case strings.HasPrefix(target, "$"):
		sub, key, hasKey, err := store.SplitKV(target)
		if err != nil || !hasKey {
			return "", core.Shape("export target must be $<sub>:<key>, &<name>[:idx], or #<path>")
		}
		v, ok := b.engine.Texts.Get(sub, key)
		if !ok {
			return "", core.Shape("key not found")
		}
		return v, nil

	case strings.HasPrefix(target, "&"):
		name, idx, hasIdx, err := store.ParseAmpIdx(target)
		if err != nil {
			return "", core.Shape("%s", err)
		}
		if hasIdx {
			return b.engine.Routines.Get(name, idx)
		}
		steps, ok := b.engine.Routines.Steps(name)
		if !ok {
			return "", core.Shape("sub not found: routines/%s", name)
		}
		return strings.Join(steps, "\n"), nil

	case strings.HasPrefix(target, "#"):
		path, err := store.ParseHash(target)
		if err != nil {
			return "", core.Shape("%s", err)
		}
		node := b.engine.Tables.NodeGet(path)
		text, isLeaf := node.(string)
		if !isLeaf {
			return "", core.Shape("export target # path is not a leaf")
		}
		return text, nil
	}
	return "", core.Shape("export target must be $<sub>:<key>, &<name>[:idx], or #<path>")
}

func derivedFilename(target string) string {
	return strings.ReplaceAll(target, ":", "__")
}

// atomicWrite writes data to a temp file in the destination directory
// then renames over the final path, so a reader never observes a
// partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp, err := os.CreateTemp(dir, ".symshell-export-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
