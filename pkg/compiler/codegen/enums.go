package codegen

import (
	"fmt"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/compiler/frontend"
)

// enumDeclaration builds the enum object. Members whose initializer folds
// to a constant get their forward and reverse entries at compile time; the
// others are computed when the declaration runs and only get a reverse
// entry when they turn out to be numbers.
func (g *Generator) enumDeclaration(stmt *ast.EmptyStatement, e *frontend.Enum, ctx Context) {
	sym, b := g.declared(e.Name, ctx)
	if sym == nil {
		g.fail(diag.ReferenceError, e.Name, "%s is not defined", e.Name.Name.String())
		return
	}
	obj := g.unique("enum")

	body := g.braced("([&]() -> jspp::AnyValue", func() {
		inner := inline(ctx)
		if s, ok := g.res.ScopeOf(stmt); ok {
			inner.Scope = s.ID
		}
		inner.Enum = map[string]string{e.Name.Name.String(): obj}
		g.line("jspp::AnyValue %s = jspp::AnyValue::make_object({});", obj)

		known := make(map[string]frontend.Constant)
		var prev *frontend.Constant
		prevRuntime := ""
		for _, m := range e.Members {
			var c frontend.Constant
			folded := false
			switch {
			case m.Init != nil:
				c, folded = g.folder.Fold(m.Init, m.Source, known)
			case prevRuntime == "" && prev == nil:
				c, folded = frontend.Constant{Number: 0}, true
			case prevRuntime == "" && !prev.IsString:
				c, folded = frontend.Constant{Number: prev.Number + 1}, true
			case prevRuntime == "":
				g.fail(diag.SyntaxError, e.Name, "Enum member '%s' must have an initializer", m.Name)
				return
			}

			if folded {
				value := constantValue(c)
				g.line("%s.set_own_property(%s, %s);", obj, quote(m.Name), value)
				if !c.IsString {
					g.line("%s.set_own_property(%s, %s);", obj, quote(c.Key()), stringValue(m.Name))
				}
				known[m.Name] = c
				inner.Enum[m.Name] = value
				cp := c
				prev, prevRuntime = &cp, ""
				continue
			}

			v := g.unique("member")
			var text string
			if m.Init != nil {
				text = g.eval(m.Init, inner)
			} else {
				text = fmt.Sprintf("jspp::Operators::add(%s, jspp::AnyValue::make_number(1.0))", prevRuntime)
			}
			g.line("jspp::AnyValue %s = %s;", v, text)
			g.line("%s.set_own_property(%s, %s);", obj, quote(m.Name), v)
			g.line("if (%s.is_number()) %s.set_own_property(%s, %s);", v, obj, v, stringValue(m.Name))
			inner.Enum[m.Name] = fmt.Sprintf("%s.get_own_property(%s)", obj, quote(m.Name))
			prev, prevRuntime = nil, v
		}
		g.line("return %s;", obj)
	}) + ")()"

	g.line("%s = %s;", storage(sym), body)
	g.initialized(ctx, b)
}

func constantValue(c frontend.Constant) string {
	if c.IsString {
		return stringValue(c.String)
	}
	return fmt.Sprintf("jspp::AnyValue::make_number(%s)", cppDouble(c.Number))
}
