// Package main provides a custom linter for golangci-lint that detects
// nondeterministic calls (time.Now, uuid.New, math/rand) inside Temporal
// workflow packages. Workflow code must derive time, identifiers, and
// randomness from the workflow context so replays stay deterministic.
package main

import (
	"go/ast"
	"strings"

	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"
)

func init() {
	register.Plugin("wfdet", New)
}

// Settings defines the configuration for the wfdet linter.
type Settings struct {
	// WorkflowPackages lists package path fragments treated as workflow
	// code. Defaults to "internal/workflow".
	WorkflowPackages []string `json:"workflow-packages" mapstructure:"workflow-packages"`
}

// PluginWfdet is the workflow determinism linter plugin.
type PluginWfdet struct {
	settings Settings
}

// New creates a new instance of the wfdet linter.
func New(settings any) (register.LinterPlugin, error) {
	s, err := register.DecodeSettings[Settings](settings)
	if err != nil {
		return nil, err
	}

	if len(s.WorkflowPackages) == 0 {
		s.WorkflowPackages = []string{"internal/workflow"}
	}

	return &PluginWfdet{settings: s}, nil
}

// BuildAnalyzers returns the analyzers for this linter.
func (f *PluginWfdet) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	return []*analysis.Analyzer{
		{
			Name: "wfdet",
			Doc:  "Checks that workflow packages avoid nondeterministic calls",
			Run:  f.run,
		},
	}, nil
}

// GetLoadMode returns the load mode for this linter.
func (f *PluginWfdet) GetLoadMode() string {
	return register.LoadModeTypesInfo
}

// forbidden maps receiver identifiers to the calls that break workflow
// determinism. workflow.Now and side-effect wrappers are the sanctioned
// alternatives.
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

// run performs the actual analysis.
func (f *PluginWfdet) run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		filename := pass.Fset.Position(file.Pos()).Filename

		// Test files replay nothing; only production workflow code is held
		// to the determinism rules.
		if strings.HasSuffix(filename, "_test.go") {
			continue
		}
		if !f.isWorkflowFile(filename) {
			continue
		}

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
				pass.Report(analysis.Diagnostic{
					Pos: call.Pos(),
					Message: "workflow code calls " + ident.Name + "." + sel.Sel.Name +
						", which is nondeterministic under replay; " + hint,
					Category: "wfdet",
				})
			}
			return true
		})
	}

	return nil, nil
}

// isWorkflowFile reports whether the file belongs to a workflow package.
func (f *PluginWfdet) isWorkflowFile(filename string) bool {
	normalized := strings.ReplaceAll(filename, "\\", "/")
	for _, pkg := range f.settings.WorkflowPackages {
		if strings.Contains(normalized, pkg+"/") || strings.HasSuffix(normalized, pkg) {
			return true
		}
	}
	return false
}
