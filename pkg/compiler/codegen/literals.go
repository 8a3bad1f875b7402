package codegen

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/frontend"
)

func numberValue(n *ast.NumberLiteral) (float64, bool) {
	switch v := n.Value.(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func numberKey(f float64) string {
	return frontend.NumberKey(f)
}

func numberLiteral(n *ast.NumberLiteral) string {
	if b, ok := n.Value.(*big.Int); ok {
		return fmt.Sprintf("jspp::AnyValue::make_bigint(%s)", quote(b.String()))
	}
	f, _ := numberValue(n)
	return fmt.Sprintf("jspp::AnyValue::make_number(%s)", cppDouble(f))
}

// cppDouble renders f as a C++ double literal that round-trips.
func cppDouble(f float64) string {
	switch {
	case math.IsNaN(f):
		return "std::numeric_limits<double>::quiet_NaN()"
	case math.IsInf(f, 1):
		return "std::numeric_limits<double>::infinity()"
	case math.IsInf(f, -1):
		return "-std::numeric_limits<double>::infinity()"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// template emits an untagged template as a concatenation, and a tagged one
// as a call receiving the strings array.
func (g *Generator) template(n *ast.TemplateLiteral, ctx Context) string {
	if n.Tag != nil {
		return g.taggedTemplate(n, ctx)
	}
	var parts []string
	for i, el := range n.Elements {
		if s := el.Parsed.String(); s != "" {
			parts = append(parts, stringValue(s))
		}
		if i < len(n.Expressions) {
			parts = append(parts, g.expr(n.Expressions[i], ctx))
		}
	}
	if len(parts) == 0 {
		return stringValue("")
	}
	return "jspp::Operators::template_concat(std::vector<jspp::AnyValue>{" + strings.Join(parts, ", ") + "})"
}

func (g *Generator) taggedTemplate(n *ast.TemplateLiteral, ctx Context) string {
	cooked := make([]string, len(n.Elements))
	raw := make([]string, len(n.Elements))
	for i, el := range n.Elements {
		if el.Valid {
			cooked[i] = stringValue(el.Parsed.String())
		} else {
			cooked[i] = undefined
		}
		raw[i] = stringValue(el.Literal)
	}
	strs := g.temp()
	first := fmt.Sprintf("(%s = jspp::AnyValue::make_array(std::vector<jspp::AnyValue>{%s}), %s.set_own_property(\"raw\", jspp::AnyValue::make_array(std::vector<jspp::AnyValue>{%s})), %s)",
		strs, strings.Join(cooked, ", "), strs, strings.Join(raw, ", "), strs)

	args := make([]string, 0, len(n.Expressions)+1)
	args = append(args, first)
	for _, e := range n.Expressions {
		args = append(args, g.expr(e, ctx))
	}
	list := "std::vector<jspp::AnyValue>{" + strings.Join(args, ", ") + "}"

	switch tag := n.Tag.(type) {
	case *ast.DotExpression:
		if _, super := tag.Left.(*ast.SuperExpression); !super {
			return fmt.Sprintf("%s.call_own_property(%s, %s)", g.expr(tag.Left, ctx), quote(tag.Identifier.Name.String()), list)
		}
	case *ast.BracketExpression:
		if _, super := tag.Left.(*ast.SuperExpression); !super {
			return fmt.Sprintf("%s.call_own_property(%s, %s)", g.expr(tag.Left, ctx), g.memberKey(tag.Member, ctx), list)
		}
	}
	return fmt.Sprintf("%s.call(%s, %s, %s)", g.expr(n.Tag, ctx), undefined, list, quote(calleeName(n.Tag)))
}

func (g *Generator) arrayLiteral(n *ast.ArrayLiteral, ctx Context) string {
	spread := false
	for _, v := range n.Value {
		if _, ok := v.(*ast.SpreadElement); ok {
			spread = true
		}
	}
	parts := make([]string, len(n.Value))
	for i, v := range n.Value {
		switch e := v.(type) {
		case nil:
			parts[i] = undefined
		case *ast.SpreadElement:
			parts[i] = fmt.Sprintf("jspp::Spread{%s, true}", g.expr(e.Expression, ctx))
			continue
		default:
			parts[i] = g.expr(e, ctx)
		}
		if spread {
			parts[i] = fmt.Sprintf("jspp::Spread{%s, false}", parts[i])
		}
	}
	if spread {
		return "jspp::AnyValue::make_array(jspp::Access::spread_array(std::vector<jspp::Spread>{" + strings.Join(parts, ", ") + "}))"
	}
	return "jspp::AnyValue::make_array(std::vector<jspp::AnyValue>{" + strings.Join(parts, ", ") + "})"
}

// objectLiteral emits plain data properties as one make_object call. Any
// accessor, computed key, spread or __proto__ switches to building the
// object step by step in a temporary.
func (g *Generator) objectLiteral(n *ast.ObjectLiteral, ctx Context) string {
	simple := true
	for _, p := range n.Value {
		switch p := p.(type) {
		case *ast.PropertyShort:
		case *ast.PropertyKeyed:
			if p.Computed || p.Kind != ast.PropertyKindValue || staticKeyName(p.Key) == "__proto__" {
				simple = false
			}
		default:
			simple = false
		}
	}

	if simple {
		parts := make([]string, 0, len(n.Value))
		for _, p := range n.Value {
			switch p := p.(type) {
			case *ast.PropertyShort:
				parts = append(parts, fmt.Sprintf("{%s, %s}", quote(p.Name.Name.String()), g.identifier(&p.Name, ctx)))
			case *ast.PropertyKeyed:
				name := staticKeyName(p.Key)
				parts = append(parts, fmt.Sprintf("{%s, %s}", quote(name), g.named(p.Value, name, ctx)))
			}
		}
		return "jspp::AnyValue::make_object({" + strings.Join(parts, ", ") + "})"
	}

	t := g.temp()
	steps := []string{fmt.Sprintf("%s = jspp::AnyValue::make_object({})", t)}
	for _, p := range n.Value {
		switch p := p.(type) {
		case *ast.PropertyShort:
			steps = append(steps, fmt.Sprintf("%s.set_own_property(%s, %s)", t, quote(p.Name.Name.String()), g.identifier(&p.Name, ctx)))
		case *ast.SpreadElement:
			steps = append(steps, fmt.Sprintf("jspp::Access::spread_object(%s, %s)", t, g.expr(p.Expression, ctx)))
		case *ast.PropertyKeyed:
			steps = append(steps, g.objectProperty(t, p, ctx))
		}
	}
	steps = append(steps, t)
	return "(" + strings.Join(steps, ", ") + ")"
}

func (g *Generator) objectProperty(obj string, p *ast.PropertyKeyed, ctx Context) string {
	name := staticKeyName(p.Key)
	key := g.propertyKey(p.Key, p.Computed, ctx)
	pre := ""
	if p.Computed && sideEffects(p.Value) {
		// The key is evaluated before the value.
		k := g.temp()
		pre = fmt.Sprintf("%s = %s, ", k, key)
		key = k
	}

	switch p.Kind {
	case ast.PropertyKindGet, ast.PropertyKindSet:
		fn, ok := p.Value.(*ast.FunctionLiteral)
		if !ok {
			g.unsupported(p.Value, "Unexpected accessor body")
			return undefined
		}
		define := "define_getter"
		prefix := "get "
		if p.Kind == ast.PropertyKindSet {
			define, prefix = "define_setter", "set "
		}
		return fmt.Sprintf("(%s%s.%s(%s, %s))", pre, obj, define, key, g.functionExpression(fn, prefix+name, ctx))
	}

	if !p.Computed && name == "__proto__" && p.Kind == ast.PropertyKindValue {
		return fmt.Sprintf("%s.set_prototype(%s)", obj, g.expr(p.Value, ctx))
	}
	return fmt.Sprintf("(%s%s.set_own_property(%s, %s))", pre, obj, key, g.named(p.Value, name, ctx))
}
