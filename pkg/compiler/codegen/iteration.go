package codegen

import (
	"fmt"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
)

// forInOf drives for-in, for-of and for-await-of loops through the
// iterator protocol:
//
//	jspp::AnyValue __it_N = jspp::Access::get_object_value_iterator(src, "src");
//	while (true) {
//	    jspp::AnyValue __step_N = __it_N.call_own_property("next", {});
//	    if (__step_N.get_own_property("done").is_truthy()) break;
//	    <bind value>
//	    { body }
//	    __continue_N: ;
//	}
//
// A break out of the loop closes the iterator before it jumps.
func (g *Generator) forInOf(node ast.Node, into ast.ForInto, source ast.Expression, body ast.Statement, keys bool, labels []string, ctx Context) {
	async := !keys && g.unit.AsyncLoops[node.Idx0()]
	if async && !ctx.InAsync {
		g.unsupported(node, "for await is only valid in async functions")
		return
	}

	t := g.loopTarget(labels)
	it := g.unique("it")
	if !keys {
		t.iterator = it
	}

	g.open("")
	inner, s, _ := g.enterScope(node, ctx)
	g.hoist(s, nil, inner)
	src := g.eval(source, inner)
	switch {
	case keys:
		g.line("jspp::AnyValue %s = jspp::Access::get_object_keys_iterator(%s);", it, src)
	case async:
		g.line("jspp::AnyValue %s = jspp::Access::get_async_iterator(%s, %s);", it, src, quote(calleeName(source)))
	default:
		g.line("jspp::AnyValue %s = jspp::Access::get_object_value_iterator(%s, %s);", it, src, quote(calleeName(source)))
	}

	loop := inner.pushTarget(t)
	step := g.unique("step")
	next := fmt.Sprintf("%s.call_own_property(\"next\", std::vector<jspp::AnyValue>{})", it)
	if async {
		next = "(co_await " + next + ")"
	}
	g.open("while (true)")
	g.line("jspp::AnyValue %s = %s;", step, next)
	g.line("if (%s.get_own_property(\"done\").is_truthy()) break;", step)
	g.bindIteration(into, step+`.get_own_property("value")`, loop)
	g.nested(body, loop)
	g.line("%s: ;", t.continueTo)
	g.close("")
	g.close("")
	g.line("%s: ;", t.breakTo)
}

// bindIteration stores the value of one iteration into the loop target.
// Boxed let and const bindings get a fresh box every iteration.
func (g *Generator) bindIteration(into ast.ForInto, value string, ctx Context) {
	switch n := into.(type) {
	case *ast.ForIntoVar:
		g.destructure(n.Binding.Target, value, bindDeclare, ctx)
	case *ast.ForDeclaration:
		if id, ok := n.Target.(*ast.Identifier); ok {
			sym, b := g.declared(id, ctx)
			if sym == nil {
				g.fail(diag.ReferenceError, id, "%s is not defined", id.Name.String())
				return
			}
			if sym.Boxed {
				g.line("%s = std::make_shared<jspp::AnyValue>(%s);", sym.Emitted, value)
			} else {
				g.line("%s = %s;", sym.Emitted, value)
			}
			g.initialized(ctx, b)
			return
		}
		ids := analysis.BoundNames(n.Target)
		for _, id := range ids {
			if sym, _ := g.declared(id, ctx); sym != nil && sym.Boxed {
				g.line("%s = std::make_shared<jspp::AnyValue>(jspp::Constants::UNINITIALIZED);", sym.Emitted)
			}
		}
		g.destructure(n.Target, value, bindDeclare, ctx)
		for _, id := range ids {
			if _, b := g.declared(id, ctx); b != nil {
				g.initialized(ctx, b)
			}
		}
	case *ast.ForIntoExpression:
		g.destructure(n.Expression, value, bindAssign, ctx)
	}
}
