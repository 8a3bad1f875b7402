package analysis

import (
	"errors"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

// BoundNames returns the identifiers a binding target declares, in source
// order.
func BoundNames(target ast.Expression) []*ast.Identifier {
	var out []*ast.Identifier
	var collect func(t ast.Expression)
	collect = func(t ast.Expression) {
		switch n := t.(type) {
		case *ast.Identifier:
			out = append(out, n)
		case *ast.ArrayPattern:
			for _, el := range n.Elements {
				if el != nil {
					collect(el)
				}
			}
			if n.Rest != nil {
				collect(n.Rest)
			}
		case *ast.ObjectPattern:
			for _, p := range n.Properties {
				switch p := p.(type) {
				case *ast.PropertyShort:
					out = append(out, &p.Name)
				case *ast.PropertyKeyed:
					collect(p.Value)
				}
			}
			if n.Rest != nil {
				collect(n.Rest)
			}
		case *ast.AssignExpression:
			collect(n.Left)
		}
	}
	collect(target)
	return out
}

func typeOf(init ast.Expression) Type {
	switch init.(type) {
	case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		return TypeFunction
	case *ast.ClassLiteral:
		return TypeClass
	case *ast.ArrayLiteral:
		return TypeArray
	case *ast.StringLiteral, *ast.TemplateLiteral:
		return TypeString
	case *ast.NumberLiteral:
		return TypeNumber
	case *ast.ObjectLiteral:
		return TypeObject
	}
	return TypeAuto
}

// define declares name in s, enforcing the reserved set and the
// redeclaration rule.
func (a *analyzer) define(s *Scope, id *ast.Identifier, kind symbols.Kind, node ast.Node) *Binding {
	name := id.Name.String()
	if Reserved[name] {
		a.fail(id, "Identifier '%s' is reserved and cannot be declared", name)
		return nil
	}
	if node == nil {
		node = id
	}
	b, err := s.Define(name, kind, node, id.Idx)
	if err != nil {
		var redeclared *symbols.RedeclaredError
		if errors.As(err, &redeclared) {
			a.fail(id, "%s", redeclared.Error())
			return nil
		}
	}
	return b
}

// declareTarget declares every name of a binding target. A lone identifier
// initialized with a function literal is function-valued and boxed.
func (a *analyzer) declareTarget(s *Scope, target ast.Expression, kind symbols.Kind, init ast.Expression) {
	ids := BoundNames(target)
	for _, id := range ids {
		b := a.define(s, id, kind, nil)
		if b == nil {
			return
		}
		if len(ids) == 1 {
			if _, single := target.(*ast.Identifier); single && init != nil {
				if t := typeOf(init); t != TypeAuto {
					b.Type = t
				}
				if b.Type == TypeFunction {
					b.Box()
					a.fnValues[b] = init
				}
			}
		}
	}
}

// hoistBody pre-declares a function or program body: var declarations from
// the whole body, then the lexical declarations of its top level.
func (a *analyzer) hoistBody(s *Scope, list []ast.Statement) {
	for _, st := range list {
		a.collectVars(s, st)
	}
	a.declareLexical(s, list)
}

// collectVars declares the var bindings found anywhere in st, without
// entering nested functions.
func (a *analyzer) collectVars(s *Scope, st ast.Statement) {
	if a.err != nil {
		return
	}
	switch n := st.(type) {
	case *ast.VariableStatement:
		for _, b := range n.List {
			a.declareTarget(s, b.Target, symbols.Var, b.Initializer)
		}
	case *ast.BlockStatement:
		for _, c := range n.List {
			a.collectVars(s, c)
		}
	case *ast.IfStatement:
		a.collectVars(s, n.Consequent)
		if n.Alternate != nil {
			a.collectVars(s, n.Alternate)
		}
	case *ast.ForStatement:
		if decl, ok := n.Initializer.(*ast.ForLoopInitializerVarDeclList); ok {
			for _, b := range decl.List {
				a.declareTarget(s, b.Target, symbols.Var, b.Initializer)
			}
		}
		a.collectVars(s, n.Body)
	case *ast.ForInStatement:
		if v, ok := n.Into.(*ast.ForIntoVar); ok {
			a.declareTarget(s, v.Binding.Target, symbols.Var, nil)
			for _, id := range BoundNames(v.Binding.Target) {
				if b := s.Bindings[id.Name.String()]; b != nil {
					b.Type = TypeString
				}
			}
		}
		a.collectVars(s, n.Body)
	case *ast.ForOfStatement:
		if v, ok := n.Into.(*ast.ForIntoVar); ok {
			a.declareTarget(s, v.Binding.Target, symbols.Var, nil)
		}
		a.collectVars(s, n.Body)
	case *ast.WhileStatement:
		a.collectVars(s, n.Body)
	case *ast.DoWhileStatement:
		a.collectVars(s, n.Body)
	case *ast.LabelledStatement:
		a.collectVars(s, n.Statement)
	case *ast.TryStatement:
		a.collectVars(s, n.Body)
		if n.Catch != nil {
			a.collectVars(s, n.Catch.Body)
		}
		if n.Finally != nil {
			a.collectVars(s, n.Finally)
		}
	case *ast.SwitchStatement:
		for _, c := range n.Body {
			for _, cs := range c.Consequent {
				a.collectVars(s, cs)
			}
		}
	case *ast.WithStatement:
		a.collectVars(s, n.Body)
	}
}

// declareLexical declares the block-scoped declarations that sit directly in
// list: let, const, class, function and enum.
func (a *analyzer) declareLexical(s *Scope, list []ast.Statement) {
	for _, st := range list {
		if a.err != nil {
			return
		}
		switch n := st.(type) {
		case *ast.LexicalDeclaration:
			a.declareLexicalDecl(s, n)
		case *ast.FunctionDeclaration:
			fn := n.Function
			if fn.Name == nil {
				continue
			}
			if b := a.define(s, fn.Name, symbols.Function, fn); b != nil {
				b.Type = TypeFunction
				b.Box()
				a.fnValues[b] = fn
			}
		case *ast.ClassDeclaration:
			if n.Class.Name == nil {
				continue
			}
			if b := a.define(s, n.Class.Name, symbols.Class, n.Class); b != nil {
				b.Type = TypeClass
			}
		case *ast.EmptyStatement:
			if e := a.unit.Enums[n.Semicolon]; e != nil {
				if b := a.define(s, e.Name, symbols.Enum, n); b != nil {
					b.Type = TypeObject
				}
			}
		}
	}
}

func (a *analyzer) declareLexicalDecl(s *Scope, n *ast.LexicalDeclaration) {
	kind := symbols.Let
	if n.Token == token.CONST {
		kind = symbols.Const
	}
	for _, b := range n.List {
		if kind == symbols.Const && b.Initializer == nil {
			a.fail(b.Target, "Missing initializer in const declaration")
			return
		}
		a.declareTarget(s, b.Target, kind, b.Initializer)
	}
}
