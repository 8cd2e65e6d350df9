package readiness

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/mod/modfile"
)

// pkgInfo is what a parse of one package directory yields.
type pkgInfo struct {
	decls   map[string]bool // top-level names, methods excluded
	imports []string        // sorted, deduplicated
}

// inspectPackage parses every non-test Go file in dir. Any syntax error
// fails the whole package.
func inspectPackage(dir string) (*pkgInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	info := &pkgInfo{decls: make(map[string]bool)}
	seen := make(map[string]bool)
	files := 0

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, err
		}
		files++
		for _, imp := range f.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			if err == nil && !seen[p] {
				seen[p] = true
				info.imports = append(info.imports, p)
			}
		}
		collectDecls(f, info.decls)
	}
	if files == 0 {
		return nil, errors.New("no Go source files")
	}
	sort.Strings(info.imports)
	return info, nil
}

func collectDecls(f *ast.File, into map[string]bool) {
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil {
				into[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					into[s.Name.Name] = true
				case *ast.ValueSpec:
					for _, n := range s.Names {
						into[n.Name] = true
					}
				}
			}
		}
	}
}

// modulePath reads the module path from root/go.mod. An absent go.mod
// yields "" and disables local import checks.
func modulePath(root string) (string, error) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod")) //nolint:gosec // G304: repository root from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	p := modfile.ModulePath(data)
	if p == "" {
		return "", fmt.Errorf("go.mod in %s declares no module", root)
	}
	return p, nil
}

// localDir maps an import path inside module onto its directory under root.
// ok is false for imports outside the module.
func localDir(root, module, importPath string) (string, bool) {
	if module == "" {
		return "", false
	}
	if importPath == module {
		return root, true
	}
	rest, found := strings.CutPrefix(importPath, module+"/")
	if !found {
		return "", false
	}
	return filepath.Join(root, filepath.FromSlash(rest)), true
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
