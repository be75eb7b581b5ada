package wa

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Event handler registration must not call into whatsmeow while holding the
// client mutex: whatsmeow can dispatch events synchronously, and a handler
// that touches the client would deadlock. The expected shape is
// lock / copy pointer / unlock / call.
func TestEventHandlerRegistrationDoesNotCallUnderLock(t *testing.T) {
	targets := map[string]bool{
		"AddEventHandler":    true,
		"RemoveEventHandler": true,
	}

	entries, err := os.ReadDir(".")
	if err != nil {
		t.Fatalf("read package dir: %v", err)
	}

	fset := token.NewFileSet()
	checked := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(".", name), nil, 0)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil || fn.Body == nil || !targets[fn.Name.Name] {
				continue
			}
			checked++
			checkNoCallsUnderLock(t, fset, fn)
		}
	}
	if checked != len(targets) {
		t.Fatalf("expected to check %d handler methods, found %d", len(targets), checked)
	}
}

func checkNoCallsUnderLock(t *testing.T, fset *token.FileSet, fn *ast.FuncDecl) {
	t.Helper()

	locked := false
	for _, stmt := range fn.Body.List {
		switch s := stmt.(type) {
		case *ast.DeferStmt:
			if isMutexCall(s.Call, "Unlock") {
				t.Errorf("%s: %s uses defer mu.Unlock(), which holds the lock across library calls",
					fset.Position(s.Pos()), fn.Name.Name)
			}
		case *ast.ExprStmt:
			call, ok := s.X.(*ast.CallExpr)
			if !ok {
				continue
			}
			switch {
			case isMutexCall(call, "Lock"):
				locked = true
			case isMutexCall(call, "Unlock"):
				locked = false
			case locked && !isMutexCall(call, ""):
				t.Errorf("%s: %s calls %s while holding the mutex",
					fset.Position(call.Pos()), fn.Name.Name, callTarget(call))
			}
		default:
			if locked {
				ast.Inspect(stmt, func(n ast.Node) bool {
					if call, ok := n.(*ast.CallExpr); ok && !isMutexCall(call, "") {
						t.Errorf("%s: %s calls %s while holding the mutex",
							fset.Position(call.Pos()), fn.Name.Name, callTarget(call))
					}
					return true
				})
			}
		}
	}
}

// isMutexCall reports whether call is <recv>.mu.<method>(). An empty method
// matches any method on the mutex.
func isMutexCall(call *ast.CallExpr, method string) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	if method != "" && sel.Sel.Name != method {
		return false
	}
	inner, ok := sel.X.(*ast.SelectorExpr)
	if !ok {
		return false
	}
	return inner.Sel.Name == "mu"
}

func callTarget(call *ast.CallExpr) string {
	if sel, ok := call.Fun.(*ast.SelectorExpr); ok {
		if x, ok := sel.X.(*ast.Ident); ok {
			return x.Name + "." + sel.Sel.Name
		}
		return sel.Sel.Name
	}
	if ident, ok := call.Fun.(*ast.Ident); ok {
		return ident.Name
	}
	return "call"
}
