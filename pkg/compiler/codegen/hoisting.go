package codegen

import (
	"sort"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

// hoistRank orders the storage slots of pass 1. Kinds without a rank are
// declared elsewhere: parameters and catch bindings by their construct,
// implicit names by the function prologue.
var hoistRank = map[symbols.Kind]int{
	symbols.Function: 0,
	symbols.Class:    1,
	symbols.Enum:     2,
	symbols.Var:      3,
	symbols.Let:      4,
	symbols.Const:    4,
}

// hoistOrder returns the bindings of s that get a slot in pass 1.
func hoistOrder(s *analysis.Scope) []*analysis.Binding {
	var out []*analysis.Binding
	for _, b := range s.Order {
		if _, ok := hoistRank[b.Kind]; ok {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := hoistRank[out[i].Kind], hoistRank[out[j].Kind]
		if ri != rj {
			return ri < rj
		}
		return out[i].Decl < out[j].Decl
	})
	return out
}

func initialValue(b *analysis.Binding) string {
	if b.Kind.Lexical() {
		return "jspp::Constants::UNINITIALIZED"
	}
	return "jspp::Constants::UNDEFINED"
}

// hoist is pass 1 of a block: every storage slot, then the native callable
// of each function declaration, then the boxed wrappers. Slots come first so
// that the callables can capture them.
func (g *Generator) hoist(s *analysis.Scope, list []ast.Statement, ctx Context) {
	if s == nil {
		return
	}
	for _, b := range hoistOrder(s) {
		g.newSlot(g.declare(ctx, b), initialValue(b))
	}

	var fns []*ast.FunctionLiteral
	for _, st := range list {
		fd, ok := st.(*ast.FunctionDeclaration)
		if !ok || fd.Function.Name == nil {
			continue
		}
		b := s.Bindings[fd.Function.Name.Name.String()]
		// Only the last of several same-named declarations is bound.
		if b == nil || b.Node != ast.Node(fd.Function) {
			continue
		}
		fns = append(fns, fd.Function)
	}

	for _, fn := range fns {
		b := s.Bindings[fn.Name.Name.String()]
		sym := g.symbol(ctx, b)
		native := g.unique(mangle(b.Name) + "_native")
		sym.Features = &symbols.Features{
			Native:    native,
			Params:    paramNames(fn.ParameterList),
			Async:     fn.Async,
			Generator: fn.Generator,
		}
		g.natives[fn] = sym
		g.line("auto %s = %s;", native, g.lambda(fn, fn.ParameterList, fn.Body, lambdaOptions{
			async:     fn.Async,
			generator: fn.Generator,
			name:      b.Name,
		}, ctx))
	}

	for _, fn := range fns {
		b := s.Bindings[fn.Name.Name.String()]
		if !needsWrapper(b) {
			continue
		}
		sym := g.symbol(ctx, b)
		sym.Features.Wrapped = true
		g.line("%s = %s;", storage(sym), functionFactory(fn.Async, fn.Generator, sym.Features.Native, b.Name))
		g.initialized(ctx, b)
	}
}

// needsWrapper reports whether a function declaration is used as a value,
// reassigned, or referenced before its text, so that its box must hold a
// function object.
func needsWrapper(b *analysis.Binding) bool {
	return b.ValueUses > 0 || b.EarlyUse || b.Writes > 0
}

func paramNames(params *ast.ParameterList) []string {
	var out []string
	for _, p := range params.List {
		for _, id := range analysis.BoundNames(p.Target) {
			out = append(out, id.Name.String())
		}
	}
	if params.Rest != nil {
		for _, id := range analysis.BoundNames(params.Rest) {
			out = append(out, id.Name.String())
		}
	}
	return out
}

// switchDeclarations flattens the consequents of every case, which share
// the switch scope.
func switchDeclarations(n *ast.SwitchStatement) []ast.Statement {
	var all []ast.Statement
	for _, c := range n.Body {
		all = append(all, c.Consequent...)
	}
	return all
}
