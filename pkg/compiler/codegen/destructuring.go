package codegen

import (
	"fmt"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
)

type bindMode int

const (
	// bindDeclare initializes the slots of a declaration.
	bindDeclare bindMode = iota
	// bindAssign writes arbitrary assignment targets.
	bindAssign
)

// destructure binds the value named src to target, one statement per leaf.
// Array patterns walk the iterator protocol and close the iterator when
// they stop early; object patterns read properties by key and collect the
// keys they saw for a rest element.
func (g *Generator) destructure(target ast.Expression, src string, mode bindMode, ctx Context) {
	if g.err != nil {
		return
	}
	switch t := target.(type) {
	case *ast.Identifier:
		g.bindIdentifier(t, src, mode, ctx)
	case *ast.AssignExpression:
		v := g.unique("v")
		g.line("jspp::AnyValue %s = %s;", v, src)
		hint := ""
		if id, ok := t.Left.(*ast.Identifier); ok {
			hint = id.Name.String()
		}
		g.begin()
		d := g.named(t.Right, hint, ctx)
		g.end()
		g.line("if (%s.is_undefined()) %s = %s;", v, v, d)
		g.destructure(t.Left, v, mode, ctx)
	case *ast.ArrayPattern:
		g.arrayPattern(t, src, mode, ctx)
	case *ast.ObjectPattern:
		g.objectPattern(t, src, mode, ctx)
	case *ast.DotExpression, *ast.BracketExpression, *ast.PrivateDotExpression:
		if mode == bindDeclare {
			g.unsupported(t, "Invalid destructuring target")
			return
		}
		g.begin()
		text := g.store(t, src, ctx)
		g.end()
		g.line("%s;", text)
	default:
		g.unsupported(target, "Invalid destructuring assignment target")
	}
}

func (g *Generator) bindIdentifier(id *ast.Identifier, src string, mode bindMode, ctx Context) {
	if mode == bindAssign {
		g.line("%s;", g.assignIdentifier(id, src, ctx))
		return
	}
	sym, b := g.declared(id, ctx)
	if sym == nil {
		g.fail(diag.ReferenceError, id, "%s is not defined", id.Name.String())
		return
	}
	g.line("%s = %s;", storage(sym), src)
	g.initialized(ctx, b)
}

// store writes value, a plain name, to a member target.
func (g *Generator) store(target ast.Expression, value string, ctx Context) string {
	switch t := target.(type) {
	case *ast.DotExpression:
		obj := "__this"
		if _, super := t.Left.(*ast.SuperExpression); !super {
			obj = g.expr(t.Left, ctx)
		}
		return fmt.Sprintf("%s.set_own_property(%s, %s)", obj, quote(t.Identifier.Name.String()), value)
	case *ast.PrivateDotExpression:
		return fmt.Sprintf("%s.set_own_property(%s, %s)", g.expr(t.Left, ctx), quote("#"+t.Identifier.Name.String()), value)
	case *ast.BracketExpression:
		obj := "__this"
		if _, super := t.Left.(*ast.SuperExpression); !super {
			obj = g.expr(t.Left, ctx)
		}
		return fmt.Sprintf("%s.set_own_property(%s, %s)", obj, g.memberKey(t.Member, ctx), value)
	}
	g.unsupported(target, "Invalid assignment target")
	return undefined
}

func (g *Generator) arrayPattern(p *ast.ArrayPattern, src string, mode bindMode, ctx Context) {
	iter, done, next := g.unique("iter"), g.unique("done"), g.unique("next")
	g.open("")
	g.line("jspp::AnyValue %s = jspp::Access::get_object_value_iterator(%s, \"\");", iter, src)
	g.line("bool %s = false;", done)
	g.open("auto %s = [&]() -> jspp::AnyValue", next)
	g.line("if (%s) return jspp::Constants::UNDEFINED;", done)
	g.line(`jspp::AnyValue __step = %s.call_own_property("next", std::vector<jspp::AnyValue>{});`, iter)
	g.line(`if (__step.get_own_property("done").is_truthy()) { %s = true; return jspp::Constants::UNDEFINED; }`, done)
	g.line(`return __step.get_own_property("value");`)
	g.close(";")

	for _, el := range p.Elements {
		if el == nil {
			g.line("(void)%s();", next)
			continue
		}
		v := g.unique("e")
		g.line("jspp::AnyValue %s = %s();", v, next)
		g.destructure(el, v, mode, ctx)
	}
	if p.Rest != nil {
		rest, v := g.unique("rest"), g.unique("e")
		g.line("std::vector<jspp::AnyValue> %s;", rest)
		g.line("for (jspp::AnyValue __r = %s(); !%s; __r = %s()) %s.push_back(__r);", next, done, next, rest)
		g.line("jspp::AnyValue %s = jspp::AnyValue::make_array(std::move(%s));", v, rest)
		g.destructure(p.Rest, v, mode, ctx)
	}
	g.line("if (!%s) jspp::Access::close_iterator(%s);", done, iter)
	g.close("")
}

func (g *Generator) objectPattern(p *ast.ObjectPattern, src string, mode bindMode, ctx Context) {
	obj := g.unique("obj")
	g.open("")
	g.line("jspp::AnyValue %s = %s;", obj, src)
	seen := ""
	if p.Rest != nil {
		seen = g.unique("seen")
		g.line("std::vector<jspp::AnyValue> %s;", seen)
	}

	for _, prop := range p.Properties {
		switch prop := prop.(type) {
		case *ast.PropertyShort:
			name := prop.Name.Name.String()
			v := g.unique("v")
			g.line("jspp::AnyValue %s = %s.get_own_property(%s);", v, obj, quote(name))
			if seen != "" {
				g.line("%s.push_back(%s);", seen, stringValue(name))
			}
			if prop.Initializer != nil {
				g.begin()
				d := g.named(prop.Initializer, name, ctx)
				g.end()
				g.line("if (%s.is_undefined()) %s = %s;", v, v, d)
			}
			g.bindIdentifier(&prop.Name, v, mode, ctx)
		case *ast.PropertyKeyed:
			var key string
			if prop.Computed {
				key = g.unique("k")
				k := g.eval(prop.Key, ctx)
				g.line("jspp::AnyValue %s = %s;", key, k)
				if seen != "" {
					g.line("%s.push_back(%s);", seen, key)
				}
			} else {
				name := staticKeyName(prop.Key)
				key = quote(name)
				if seen != "" {
					g.line("%s.push_back(%s);", seen, stringValue(name))
				}
			}
			v := g.unique("v")
			g.line("jspp::AnyValue %s = %s.get_own_property(%s);", v, obj, key)
			g.destructure(prop.Value, v, mode, ctx)
		default:
			g.unsupported(prop, "Invalid destructuring assignment target")
		}
	}
	if p.Rest != nil {
		v := g.unique("v")
		g.line("jspp::AnyValue %s = jspp::Access::object_rest(%s, %s);", v, obj, seen)
		g.destructure(p.Rest, v, mode, ctx)
	}
	g.close("")
}

// destructureExpression is a pattern assignment used as a value. The
// statements run in an immediately invoked lambda and the expression yields
// the right-hand side.
func (g *Generator) destructureExpression(target ast.Expression, right ast.Expression, ctx Context) string {
	if !g.requireNoSuspension(target, ctx, "a destructuring assignment expression") {
		return undefined
	}
	t := g.temp()
	value := g.expr(right, ctx)
	inner := inline(ctx)
	saved := g.temps
	g.temps = nil
	body := g.braced("[&]() -> void", func() {
		g.destructure(target, t, bindAssign, inner)
	})
	g.temps = saved
	return fmt.Sprintf("(%s = %s, (%s)(), %s)", t, value, body, t)
}
