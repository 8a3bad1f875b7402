package codegen

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

// program emits the runtime include, the container function holding every
// top-level statement and the entry point.
func (g *Generator) program() {
	prog := g.unit.Program
	g.globals = symbols.New(symbols.ScopeGlobal, nil)
	ctx := Context{
		Scope:    g.res.Root,
		Function: prog,
		Globals:  g.globals,
		Locals:   g.globals,
		Return:   &returnSlot{kind: returnPlain},
	}

	g.line("#include %s", quote(g.opts.Header))
	g.line("#include <functional>")
	g.line("#include <memory>")
	g.line("")
	g.open("jspp::AnyValue __jspp_program()")
	g.line("const jspp::AnyValue __this = jspp::Constants::UNDEFINED;")
	g.hoist(g.res.Scope(g.res.Root), prog.Body, ctx)
	for _, st := range prog.Body {
		if g.opts.LineDirectives {
			if pos := diag.Position(g.unit.File, st.Idx0()); pos.Line > 0 {
				g.line("#line %d %s", pos.Line, quote(g.unit.Name))
			}
		}
		g.statement(st, ctx)
	}
	g.line("return jspp::Constants::UNDEFINED;")
	g.close("")
	g.line("")

	g.open("int main(int argc, char** argv)")
	g.open("try")
	g.line("__jspp_program();")
	g.line("jspp::Scheduler::instance().run();")
	g.level--
	g.open("} catch (const std::exception& __ex)")
	g.line(`jspp::global::console.call_own_property("error", std::vector<jspp::AnyValue>{jspp::Exception::exception_to_any_value(__ex)});`)
	g.line("return 1;")
	g.close("")
	g.line("return 0;")
	g.close("")
}

func (g *Generator) statements(list []ast.Statement, ctx Context) {
	for _, st := range list {
		if g.err != nil {
			return
		}
		g.statement(st, ctx)
	}
}

// statement is the statement half of the visitor.
func (g *Generator) statement(st ast.Statement, ctx Context) {
	if g.err != nil || st == nil {
		return
	}

	switch n := st.(type) {
	case *ast.BlockStatement:
		g.block(n, ctx)
	case *ast.ExpressionStatement:
		g.expressionStatement(n.Expression, ctx)
	case *ast.VariableStatement:
		for _, b := range n.List {
			if b.Initializer != nil {
				g.initialize(b.Target, b.Initializer, ctx)
			}
		}
	case *ast.LexicalDeclaration:
		g.lexical(n, ctx)
	case *ast.FunctionDeclaration:
		// Bound in pass 1.
	case *ast.ClassDeclaration:
		g.classDeclaration(n.Class, ctx)
	case *ast.EmptyStatement:
		if e := g.unit.Enums[n.Semicolon]; e != nil {
			g.enumDeclaration(n, e, ctx)
		}
	case *ast.IfStatement:
		g.ifStatement(n, ctx)
	case *ast.ForStatement:
		g.forStatement(n, nil, ctx)
	case *ast.ForInStatement:
		g.forInOf(n, n.Into, n.Source, n.Body, true, nil, ctx)
	case *ast.ForOfStatement:
		g.forInOf(n, n.Into, n.Source, n.Body, false, nil, ctx)
	case *ast.WhileStatement:
		g.whileStatement(n, nil, ctx)
	case *ast.DoWhileStatement:
		g.doWhileStatement(n, nil, ctx)
	case *ast.LabelledStatement:
		g.labelled(n, nil, ctx)
	case *ast.BranchStatement:
		g.branch(n, ctx)
	case *ast.SwitchStatement:
		g.switchStatement(n, nil, ctx)
	case *ast.ReturnStatement:
		value := "jspp::Constants::UNDEFINED"
		if n.Argument != nil {
			value = g.eval(n.Argument, ctx)
		}
		g.emitReturn(value, ctx)
	case *ast.ThrowStatement:
		g.line("throw jspp::Exception(%s);", g.eval(n.Argument, ctx))
	case *ast.TryStatement:
		g.tryStatement(n, ctx)
	case *ast.DebuggerStatement:
	case *ast.WithStatement:
		g.unsupported(n, "The with statement is not supported")
	default:
		g.unsupported(st, "Unsupported statement")
	}
}

// block emits a braced block with its own scope.
func (g *Generator) block(n *ast.BlockStatement, ctx Context) {
	g.open("")
	g.blockBody(n, n.List, ctx)
	g.close("")
}

// blockBody runs both passes for list inside an already open C++ block.
func (g *Generator) blockBody(node ast.Node, list []ast.Statement, ctx Context) {
	inner, s, ok := g.enterScope(node, ctx)
	if ok {
		g.hoist(s, list, inner)
	}
	g.statements(list, inner)
}

func (g *Generator) expressionStatement(e ast.Expression, ctx Context) {
	if a, ok := e.(*ast.AssignExpression); ok && a.Operator == token.ASSIGN {
		switch a.Left.(type) {
		case *ast.ArrayPattern, *ast.ObjectPattern:
			g.begin()
			value := g.expr(a.Right, ctx)
			g.end()
			src := g.unique("d")
			g.open("")
			g.line("jspp::AnyValue %s = %s;", src, value)
			g.destructure(a.Left, src, bindAssign, ctx)
			g.close("")
			return
		}
	}
	text := g.eval(e, ctx)
	g.line("%s;", text)
}

func (g *Generator) lexical(n *ast.LexicalDeclaration, ctx Context) {
	for _, b := range n.List {
		if b.Initializer != nil {
			g.initialize(b.Target, b.Initializer, ctx)
			continue
		}
		if id, ok := b.Target.(*ast.Identifier); ok {
			if sym, bd := g.declared(id, ctx); sym != nil {
				g.line("%s = jspp::Constants::UNDEFINED;", storage(sym))
				g.initialized(ctx, bd)
			}
		}
	}
}

// declared returns the slot a declaring identifier names.
func (g *Generator) declared(id *ast.Identifier, ctx Context) (*symbols.Symbol, *analysis.Binding) {
	ref := g.res.References[id]
	if ref == nil || ref.Binding == nil {
		return nil, nil
	}
	return g.symbol(ctx, ref.Binding), ref.Binding
}

// initialize emits the initializing assignment of a declarator at its
// source position.
func (g *Generator) initialize(target ast.Expression, init ast.Expression, ctx Context) {
	if id, ok := target.(*ast.Identifier); ok {
		sym, b := g.declared(id, ctx)
		if sym == nil {
			g.fail(diag.ReferenceError, id, "%s is not defined", id.Name.String())
			return
		}
		g.begin()
		value := g.named(init, id.Name.String(), ctx)
		g.end()
		g.line("%s = %s;", storage(sym), value)
		g.initialized(ctx, b)
		return
	}
	g.begin()
	value := g.expr(init, ctx)
	g.end()
	src := g.unique("d")
	g.open("")
	g.line("jspp::AnyValue %s = %s;", src, value)
	g.destructure(target, src, bindDeclare, ctx)
	g.close("")
	for _, id := range analysis.BoundNames(target) {
		if _, b := g.declared(id, ctx); b != nil {
			g.initialized(ctx, b)
		}
	}
}

// emitReturn writes a return of value as the current function or try frame
// requires. Iterators of enclosing for-of loops in the same frame are closed
// after the value is computed.
func (g *Generator) emitReturn(value string, ctx Context) {
	var open []string
	for t := ctx.Targets; t != nil && t.try == ctx.Try; t = t.next {
		if t.iterator != "" {
			open = append(open, t.iterator)
		}
	}
	if len(open) > 0 {
		r := g.unique("r")
		g.open("")
		g.line("jspp::AnyValue %s = %s;", r, value)
		for _, it := range open {
			g.line("jspp::Access::close_iterator(%s);", it)
		}
		g.returnValue(r, ctx)
		g.close("")
		return
	}
	g.returnValue(value, ctx)
}

func (g *Generator) returnValue(value string, ctx Context) {
	r := ctx.Return
	if r == nil {
		g.line("return %s;", value)
		return
	}
	switch r.kind {
	case returnPlain:
		g.line("return %s;", value)
	case returnCoroutine:
		g.line("co_return %s;", value)
	case returnTry:
		g.line("%s = %s;", r.result, value)
		g.line("%s = true;", r.flag)
		g.leaveFrame(ctx.Try)
	}
}
