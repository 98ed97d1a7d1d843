// Package analyzer holds the static checks run by cmd/linter.
package analyzer

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzers returns every check in the suite.
func Analyzers() []*analysis.Analyzer {
	return []*analysis.Analyzer{ExitCalls, ErrCompare}
}

// ExitCalls reports process-terminating calls outside func main.
var ExitCalls = &analysis.Analyzer{
	Name:     "exitcalls",
	Doc:      "reports panic, log.Fatal, zerolog Fatal and os.Exit outside main function",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      runExitCalls,
}

const zerologLogPath = "github.com/rs/zerolog/log"

func runExitCalls(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.FuncDecl)(nil),
		(*ast.CallExpr)(nil),
	}

	insp.WithStack(nodeFilter, func(node ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		call, ok := node.(*ast.CallExpr)
		if !ok || insideMain(pass, stack) {
			return true
		}
		if msg := forbiddenCall(pass, call); msg != "" {
			pass.Reportf(call.Pos(), "%s", msg)
		}
		return true
	})

	return nil, nil
}

func forbiddenCall(pass *analysis.Pass, call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		if b, ok := pass.TypesInfo.Uses[fn].(*types.Builtin); ok && b.Name() == "panic" {
			return "panic is forbidden"
		}
	case *ast.SelectorExpr:
		ident, ok := fn.X.(*ast.Ident)
		if !ok {
			return ""
		}
		pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
		if !ok {
			return ""
		}

		name := fn.Sel.Name
		switch pkgName.Imported().Path() {
		case "log":
			if name == "Fatal" || name == "Fatalf" || name == "Fatalln" {
				return "log." + name + " is forbidden outside main function"
			}
		case zerologLogPath:
			if name == "Fatal" || name == "Panic" {
				return "zerolog log." + name + " is forbidden outside main function"
			}
		case "os":
			if name == "Exit" {
				return "os.Exit is forbidden outside main function"
			}
		}
	}
	return ""
}

// insideMain reports whether the innermost enclosing declaration is func
// main of package main.
func insideMain(pass *analysis.Pass, stack []ast.Node) bool {
	if pass.Pkg.Name() != "main" {
		return false
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if fd, ok := stack[i].(*ast.FuncDecl); ok {
			return fd.Recv == nil && fd.Name.Name == "main"
		}
	}
	return false
}

// ErrCompare reports == and != between two error values. nil comparisons
// are allowed.
var ErrCompare = &analysis.Analyzer{
	Name:     "errcompare",
	Doc:      "reports error values compared with == or != instead of errors.Is",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      runErrCompare,
}

var errorType = types.Universe.Lookup("error").Type().Underlying().(*types.Interface)

func runErrCompare(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.BinaryExpr)(nil)}, func(node ast.Node) {
		expr := node.(*ast.BinaryExpr)
		if expr.Op.String() != "==" && expr.Op.String() != "!=" {
			return
		}
		if isNil(pass, expr.X) || isNil(pass, expr.Y) {
			return
		}
		if isError(pass, expr.X) && isError(pass, expr.Y) {
			pass.Reportf(expr.OpPos, "errors must be compared with errors.Is, not %s", expr.Op)
		}
	})

	return nil, nil
}

func isNil(pass *analysis.Pass, e ast.Expr) bool {
	tv, ok := pass.TypesInfo.Types[e]
	return ok && tv.IsNil()
}

func isError(pass *analysis.Pass, e ast.Expr) bool {
	t := pass.TypesInfo.TypeOf(e)
	return t != nil && types.IsInterface(t) && types.Implements(t, errorType)
}
