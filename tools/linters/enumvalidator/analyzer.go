// Package enumvalidator reports string literals assigned to fields whose type
// is an enum: a named string type with constants declared in its package.
package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "enumvalidator",
	Doc:      "reports string literals assigned to enum-typed fields; use the declared constants",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	filter := []ast.Node{
		(*ast.AssignStmt)(nil),
		(*ast.CompositeLit)(nil),
	}

	insp.Preorder(filter, func(n ast.Node) {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if len(n.Lhs) != len(n.Rhs) {
				return
			}
			for i, lhs := range n.Lhs {
				sel, ok := lhs.(*ast.SelectorExpr)
				if !ok {
					continue
				}
				check(pass, sel.Sel.Name, pass.TypesInfo.TypeOf(lhs), n.Rhs[i])
			}

		case *ast.CompositeLit:
			st, ok := underlyingStruct(pass.TypesInfo.TypeOf(n))
			if !ok {
				return
			}
			for _, elt := range n.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if !ok {
					continue
				}
				key, ok := kv.Key.(*ast.Ident)
				if !ok {
					continue
				}
				if field := fieldByName(st, key.Name); field != nil {
					check(pass, key.Name, field.Type(), kv.Value)
				}
			}
		}
	})

	return nil, nil
}

func check(pass *analysis.Pass, field string, t types.Type, value ast.Expr) {
	for {
		p, ok := value.(*ast.ParenExpr)
		if !ok {
			break
		}
		value = p.X
	}

	lit, ok := value.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return
	}
	if !isEnum(t) {
		return
	}

	pass.Reportf(lit.Pos(), "enum field %s assigned string literal %s", field, lit.Value)
}

// isEnum reports whether t is a named string type with at least one
// constant of that type declared in its package.
func isEnum(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	basic, ok := named.Underlying().(*types.Basic)
	if !ok || basic.Info()&types.IsString == 0 {
		return false
	}

	pkg := named.Obj().Pkg()
	if pkg == nil {
		return false
	}

	scope := pkg.Scope()
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*types.Const)
		if ok && types.Identical(c.Type(), named) {
			return true
		}
	}
	return false
}

func underlyingStruct(t types.Type) (*types.Struct, bool) {
	if t == nil {
		return nil, false
	}
	if p, ok := t.Underlying().(*types.Pointer); ok {
		t = p.Elem()
	}
	st, ok := t.Underlying().(*types.Struct)
	return st, ok
}

func fieldByName(st *types.Struct, name string) *types.Var {
	for i := 0; i < st.NumFields(); i++ {
		if f := st.Field(i); f.Name() == name {
			return f
		}
	}
	return nil
}
