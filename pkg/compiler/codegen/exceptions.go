package codegen

import (
	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
)

func (g *Generator) tryStatement(n *ast.TryStatement, ctx Context) {
	if n.Finally == nil {
		g.tryCatch(n, ctx)
		return
	}
	g.tryFinally(n, ctx)
}

// tryCatch emits try/catch without finally. A catch body that suspends
// runs after the handler: C++ forbids co_await and co_yield inside one.
func (g *Generator) tryCatch(n *ast.TryStatement, ctx Context) {
	if n.Catch == nil {
		g.block(n.Body, ctx)
		return
	}
	ex := g.unique("ex")
	if ctx.suspendable() && g.unit.Suspends(n.Catch.Body) {
		g.open("")
		g.line("std::exception_ptr %s;", ex)
		g.open("try")
		g.blockBody(n.Body, n.Body.List, ctx)
		g.level--
		g.open("} catch (const std::exception&)")
		g.line("%s = std::current_exception();", ex)
		g.close("")
		g.open("if (%s)", ex)
		g.catchBody(n.Catch, "jspp::Exception::exception_ptr_to_any_value("+ex+")", ctx)
		g.close("")
		g.close("")
		return
	}

	g.open("try")
	g.blockBody(n.Body, n.Body.List, ctx)
	g.level--
	g.open("} catch (const std::exception& %s)", ex)
	g.catchBody(n.Catch, "jspp::Exception::exception_to_any_value("+ex+")", ctx)
	g.close("")
}

// catchBody binds the caught value and emits the handler. The catch
// clause, its parameter and the top level of its block share one scope.
func (g *Generator) catchBody(c *ast.CatchStatement, value string, ctx Context) {
	inner, s, ok := g.enterScope(c, ctx)
	if !ok {
		g.statements(c.Body.List, ctx)
		return
	}
	switch p := c.Parameter.(type) {
	case nil:
	case *ast.Identifier:
		if b := s.Bindings[p.Name.String()]; b != nil {
			g.newSlot(g.declare(inner, b), value)
		}
	default:
		for _, id := range analysis.BoundNames(p) {
			if b := s.Bindings[id.Name.String()]; b != nil {
				g.newSlot(g.declare(inner, b), "jspp::Constants::UNDEFINED")
			}
		}
		v := g.unique("caught")
		g.line("jspp::AnyValue %s = %s;", v, value)
		g.destructure(p, v, bindDeclare, inner)
	}
	g.hoist(s, c.Body.List, inner)
	g.statements(c.Body.List, inner)
}

// tryFinally runs the protected part in a frame whose exits are recorded
// instead of taken, runs the finally block, then rethrows, returns or jumps
// as the protected part asked:
//
//	int __completion_N = 0; bool __returned_N = false; ...
//	auto __try_N = [&]() -> void { try { ... } catch (...) { __error_N = ...; } };
//	__try_N();
//	{ finally }
//	if (__error_N) std::rethrow_exception(__error_N);
//	if (__returned_N) return __result_N;
//	if (__completion_N == 1) goto ...;
//
// Generators cannot yield from a nested callable, so their frames jump to
// a finally label instead. Async functions whose protected part suspends
// use a coroutine callable and co_await it.
func (g *Generator) tryFinally(n *ast.TryStatement, ctx Context) {
	suspends := g.unit.Suspends(n.Body) || (n.Catch != nil && g.unit.Suspends(n.Catch.Body))
	f := &tryFrame{
		completion: g.unique("completion"),
		outer:      ctx.Try,
	}
	switch {
	case ctx.InGenerator:
		f.finally = g.unique("finally")
	case ctx.InAsync && suspends:
		f.coroutine = true
	}
	flag, result, errp := g.unique("returned"), g.unique("result"), g.unique("error")

	inner := ctx
	inner.Try = f
	inner.Return = &returnSlot{kind: returnTry, flag: flag, result: result}
	if f.finally == "" && !f.coroutine {
		// The callable is an ordinary function even inside a coroutine.
		inner.InAsync = false
		inner.InGenerator = false
	}
	protected := &ast.TryStatement{Body: n.Body, Catch: n.Catch}

	g.open("")
	g.line("int %s = 0;", f.completion)
	g.line("bool %s = false;", flag)
	g.line("jspp::AnyValue %s;", result)
	g.line("std::exception_ptr %s;", errp)

	guarded := func() {
		g.open("try")
		g.tryCatch(protected, inner)
		g.level--
		g.open("} catch (...)")
		g.line("%s = std::current_exception();", errp)
		g.close("")
	}
	switch {
	case f.finally != "":
		guarded()
		g.line("%s: ;", f.finally)
	case f.coroutine:
		call := g.unique("try")
		g.open("auto %s = [&]() -> jspp::JsPromise", call)
		guarded()
		g.line("co_return jspp::Constants::UNDEFINED;")
		g.close(";")
		g.line("co_await %s();", call)
	default:
		call := g.unique("try")
		g.open("auto %s = [&]() -> void", call)
		guarded()
		g.close(";")
		g.line("%s();", call)
	}

	g.block(n.Finally, ctx)
	g.line("if (%s) std::rethrow_exception(%s);", errp, errp)
	g.open("if (%s)", flag)
	g.emitReturn(result, ctx)
	g.close("")
	for _, e := range f.exits {
		g.open("if (%s == %d)", f.completion, e.code)
		g.jump(e.target, e.label, e.leaving, ctx)
		g.close("")
	}
	g.close("")
}
