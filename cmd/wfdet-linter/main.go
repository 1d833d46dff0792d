// Package main provides a standalone checker that detects nondeterministic
// calls in Temporal workflow packages. It parses workflow source files and
// reports calls to time.Now, uuid.New, and math/rand helpers, which break
// workflow replay determinism.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

type issue struct {
	file    string
	line    int
	column  int
	message string
}

var forbidden = map[string]map[string]string{
	"time": {"Now": "use workflow.Now(ctx) instead"},
	"uuid": {
		"New":       "generate ids in activities or via workflow.SideEffect",
		"NewString": "generate ids in activities or via workflow.SideEffect",
	},
	"rand": {
		"Int":     "use workflow.SideEffect for randomness",
		"Intn":    "use workflow.SideEffect for randomness",
		"Float64": "use workflow.SideEffect for randomness",
	},
}

func main() {
	dir := flag.String("dir", "internal/workflow", "workflow package directory to check")
	verbose := flag.Bool("verbose", false, "print files that could not be parsed")
	flag.Parse()

	issues, err := checkDir(*dir, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wfdet-linter: %v\n", err)
		os.Exit(2)
	}

	for _, is := range issues {
		fmt.Printf("%s:%d:%d: %s\n", is.file, is.line, is.column, is.message)
	}
	if len(issues) > 0 {
		os.Exit(1)
	}
}

func checkDir(dir string, verbose bool) ([]issue, error) {
	var issues []issue

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == "vendor" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		// Test files replay nothing; only production workflow code is
		// held to the determinism rules.
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		fileIssues, err := checkFile(path)
		if err != nil {
			if verbose {
				fmt.Printf("Warning: skipping %s: %v\n", path, err)
			}
			return nil // Continue with other files
		}

		issues = append(issues, fileIssues...)
		return nil
	})

	return issues, err
}

func checkFile(filename string) ([]issue, error) {
	src, err := os.ReadFile(filename) //nolint:gosec // File path is controlled by linter, safe to read
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	var issues []issue
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok {
			return true
		}

		if hint, bad := forbidden[ident.Name][sel.Sel.Name]; bad {
			pos := fset.Position(call.Pos())
			issues = append(issues, issue{
				file:   filename,
				line:   pos.Line,
				column: pos.Column,
				message: "workflow code calls " + ident.Name + "." + sel.Sel.Name +
					", which is nondeterministic under replay; " + hint,
			})
		}
		return true
	})

	return issues, nil
}
