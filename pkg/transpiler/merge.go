package transpiler

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"sort"
	"strconv"

	"github.com/fortiblox/intcode/pkg/intcode"
)

// merge combines the driver with the runtime files into one main package.
// Imports are collected from every file and de-duplicated; all other
// declarations are printed in file order, driver last.
func merge(driver []byte, runtime []intcode.SourceFile) (string, error) {
	fset := token.NewFileSet()

	files := make([]*ast.File, 0, len(runtime)+1)
	for _, src := range runtime {
		f, err := parser.ParseFile(fset, src.Name, src.Data, parser.SkipObjectResolution)
		if err != nil {
			return "", fmt.Errorf("parse runtime %s: %w", src.Name, err)
		}
		files = append(files, f)
	}
	f, err := parser.ParseFile(fset, "main.go", driver, parser.SkipObjectResolution)
	if err != nil {
		return "", fmt.Errorf("parse driver: %w", err)
	}
	files = append(files, f)

	imports := make(map[string]string)
	var decls []ast.Decl
	for _, f := range files {
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				return "", fmt.Errorf("import path %s: %w", imp.Path.Value, err)
			}
			name := ""
			if imp.Name != nil {
				name = imp.Name.Name
			}
			if prev, ok := imports[path]; ok && prev != name {
				return "", fmt.Errorf("conflicting import names %q and %q for %s", prev, name, path)
			}
			imports[path] = name
		}
		for _, d := range f.Decls {
			if gen, ok := d.(*ast.GenDecl); ok && gen.Tok == token.IMPORT {
				continue
			}
			decls = append(decls, d)
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// %s\n\npackage main\n\n", Header)
	writeImports(&buf, imports)
	for _, d := range decls {
		buf.WriteString("\n")
		if err := format.Node(&buf, fset, d); err != nil {
			return "", fmt.Errorf("print declaration: %w", err)
		}
		buf.WriteString("\n")
	}

	out, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("format merged source: %w", err)
	}
	return string(out), nil
}

func writeImports(buf *bytes.Buffer, imports map[string]string) {
	if len(imports) == 0 {
		return
	}
	paths := make([]string, 0, len(imports))
	for p := range imports {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	buf.WriteString("import (\n")
	for _, p := range paths {
		if name := imports[p]; name != "" {
			fmt.Fprintf(buf, "\t%s %q\n", name, p)
		} else {
			fmt.Fprintf(buf, "\t%q\n", p)
		}
	}
	buf.WriteString(")\n")
}
