package codegen

import (
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
)

const undefined = "jspp::Constants::UNDEFINED"

// expr is the expression half of the visitor. The returned text is a C++
// expression of type jspp::AnyValue; compound results are parenthesized so
// that callers may append member calls.
func (g *Generator) expr(e ast.Expression, ctx Context) string {
	if g.err != nil || e == nil {
		return undefined
	}

	switch n := e.(type) {
	case *ast.Identifier:
		return g.identifier(n, ctx)
	case *ast.NumberLiteral:
		return numberLiteral(n)
	case *ast.StringLiteral:
		return stringValue(n.Value.String())
	case *ast.BooleanLiteral:
		if n.Value {
			return "jspp::Constants::TRUE"
		}
		return "jspp::Constants::FALSE"
	case *ast.NullLiteral:
		return "jspp::Constants::Null"
	case *ast.RegExpLiteral:
		return fmt.Sprintf("jspp::AnyValue::make_regexp(%s, %s)", quote(n.Pattern), quote(n.Flags))
	case *ast.TemplateLiteral:
		return g.template(n, ctx)
	case *ast.ArrayLiteral:
		return g.arrayLiteral(n, ctx)
	case *ast.ObjectLiteral:
		return g.objectLiteral(n, ctx)
	case *ast.ThisExpression:
		return "__this"
	case *ast.AssignExpression:
		return g.assign(n, ctx)
	case *ast.BinaryExpression:
		return g.binary(n, ctx)
	case *ast.UnaryExpression:
		return g.unary(n, ctx)
	case *ast.ConditionalExpression:
		return fmt.Sprintf("(%s ? %s : %s)", truthy(g.expr(n.Test, ctx)), g.expr(n.Consequent, ctx), g.expr(n.Alternate, ctx))
	case *ast.SequenceExpression:
		parts := make([]string, len(n.Sequence))
		for i, x := range n.Sequence {
			parts[i] = g.expr(x, ctx)
			if i < len(n.Sequence)-1 {
				parts[i] = discard(parts[i])
			}
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *ast.CallExpression:
		return g.call(n, ctx)
	case *ast.NewExpression:
		return fmt.Sprintf("%s.construct(%s, %s)", g.expr(n.Callee, ctx), g.arguments(n.ArgumentList, ctx), quote(calleeName(n.Callee)))
	case *ast.DotExpression:
		if _, ok := n.Left.(*ast.SuperExpression); ok {
			return g.superProperty(quote(n.Identifier.Name.String()), n, ctx)
		}
		return member(g.expr(n.Left, ctx), quote(n.Identifier.Name.String()))
	case *ast.PrivateDotExpression:
		return member(g.expr(n.Left, ctx), quote("#"+n.Identifier.Name.String()))
	case *ast.BracketExpression:
		if _, ok := n.Left.(*ast.SuperExpression); ok {
			return g.superProperty(g.expr(n.Member, ctx), n, ctx)
		}
		obj := g.expr(n.Left, ctx)
		return member(obj, g.memberKey(n.Member, ctx))
	case *ast.OptionalChain:
		return g.optionalChain(n, ctx)
	case *ast.Optional:
		return g.optional(n, ctx)
	case *ast.FunctionLiteral:
		return g.functionExpression(n, "", ctx)
	case *ast.ArrowFunctionLiteral:
		return g.arrowFunction(n, "", ctx)
	case *ast.ClassLiteral:
		return g.classExpression(n, "", ctx)
	case *ast.YieldExpression:
		return g.yield(n, ctx)
	case *ast.AwaitExpression:
		if !ctx.InAsync {
			g.unsupported(n, "await is not supported in this position")
			return undefined
		}
		return fmt.Sprintf("(co_await %s)", g.expr(n.Argument, ctx))
	case *ast.MetaProperty:
		if n.Meta.Name.String() == "new" {
			return "jspp::Access::new_target(__this)"
		}
		g.unsupported(n, "import.meta is not supported")
	case *ast.SuperExpression:
		g.unsupported(n, "'super' keyword unexpected here")
	case *ast.ArrayPattern, *ast.ObjectPattern:
		g.unsupported(n, "Invalid destructuring assignment target")
	case *ast.SpreadElement:
		g.unsupported(n, "Unexpected spread element")
	case *ast.BadExpression:
		g.unsupported(n, "Unexpected token")
	default:
		g.unsupported(e, "Unsupported expression")
	}
	return undefined
}

func member(obj, key string) string {
	return fmt.Sprintf("%s.get_own_property(%s)", obj, key)
}

// memberKey renders a bracket member. String and number literals become
// property-name literals.
func (g *Generator) memberKey(key ast.Expression, ctx Context) string {
	switch k := key.(type) {
	case *ast.StringLiteral:
		return quote(k.Value.String())
	case *ast.NumberLiteral:
		if f, ok := numberValue(k); ok {
			return quote(numberKey(f))
		}
	}
	return g.expr(key, ctx)
}

// propertyKey renders the key of an object literal or class member.
func (g *Generator) propertyKey(key ast.Expression, computed bool, ctx Context) string {
	if computed {
		return g.expr(key, ctx)
	}
	switch k := key.(type) {
	case *ast.StringLiteral:
		return quote(k.Value.String())
	case *ast.NumberLiteral:
		if f, ok := numberValue(k); ok {
			return quote(numberKey(f))
		}
		return quote(k.Literal)
	case *ast.PrivateIdentifier:
		return quote("#" + k.Name.String())
	case *ast.Identifier:
		return quote(k.Name.String())
	}
	return g.expr(key, ctx)
}

// staticKeyName returns the name of a non-computed key, for function names.
func staticKeyName(key ast.Expression) string {
	switch k := key.(type) {
	case *ast.StringLiteral:
		return k.Value.String()
	case *ast.NumberLiteral:
		if f, ok := numberValue(k); ok {
			return numberKey(f)
		}
	case *ast.PrivateIdentifier:
		return "#" + k.Name.String()
	case *ast.Identifier:
		return k.Name.String()
	}
	return ""
}

func calleeName(e ast.Expression) string {
	switch c := e.(type) {
	case *ast.Identifier:
		return c.Name.String()
	case *ast.DotExpression:
		return c.Identifier.Name.String()
	case *ast.PrivateDotExpression:
		return "#" + c.Identifier.Name.String()
	}
	return ""
}

// arguments renders an argument list. Spread arguments are flattened by the
// runtime.
func (g *Generator) arguments(list []ast.Expression, ctx Context) string {
	spread := false
	for _, a := range list {
		if _, ok := a.(*ast.SpreadElement); ok {
			spread = true
			break
		}
	}
	parts := make([]string, len(list))
	for i, a := range list {
		if s, ok := a.(*ast.SpreadElement); ok {
			parts[i] = fmt.Sprintf("jspp::Spread{%s, true}", g.expr(s.Expression, ctx))
			continue
		}
		v := g.expr(a, ctx)
		if spread {
			v = fmt.Sprintf("jspp::Spread{%s, false}", v)
		}
		parts[i] = v
	}
	if spread {
		return "jspp::Access::spread_array(std::vector<jspp::Spread>{" + strings.Join(parts, ", ") + "})"
	}
	return "std::vector<jspp::AnyValue>{" + strings.Join(parts, ", ") + "}"
}

func (g *Generator) call(n *ast.CallExpression, ctx Context) string {
	switch c := n.Callee.(type) {
	case *ast.SuperExpression:
		return g.superCall(n, ctx)
	case *ast.Identifier:
		args := g.arguments(n.ArgumentList, ctx)
		if text, ok := g.directCall(c, args, ctx); ok {
			return text
		}
		return fmt.Sprintf("%s.call(%s, %s, %s)", g.identifier(c, ctx), undefined, args, quote(c.Name.String()))
	case *ast.DotExpression:
		name := quote(c.Identifier.Name.String())
		if _, ok := c.Left.(*ast.SuperExpression); ok {
			return fmt.Sprintf("%s.call(__this, %s, %s)", g.superProperty(name, c, ctx), g.arguments(n.ArgumentList, ctx), name)
		}
		obj := g.expr(c.Left, ctx)
		return fmt.Sprintf("%s.call_own_property(%s, %s)", obj, name, g.arguments(n.ArgumentList, ctx))
	case *ast.PrivateDotExpression:
		obj := g.expr(c.Left, ctx)
		return fmt.Sprintf("%s.call_own_property(%s, %s)", obj, quote("#"+c.Identifier.Name.String()), g.arguments(n.ArgumentList, ctx))
	case *ast.BracketExpression:
		if _, ok := c.Left.(*ast.SuperExpression); ok {
			return fmt.Sprintf("%s.call(__this, %s, \"\")", g.superProperty(g.expr(c.Member, ctx), c, ctx), g.arguments(n.ArgumentList, ctx))
		}
		obj := g.expr(c.Left, ctx)
		key := g.memberKey(c.Member, ctx)
		if sideEffects(n.ArgumentList...) && !isLiteralKey(c.Member) {
			k := g.temp()
			return fmt.Sprintf("(%s = %s, %s.call_own_property(%s, %s))", k, key, obj, k, g.arguments(n.ArgumentList, ctx))
		}
		return fmt.Sprintf("%s.call_own_property(%s, %s)", obj, key, g.arguments(n.ArgumentList, ctx))
	case *ast.Optional:
		return g.optionalCall(n, c, ctx)
	}
	fn := g.expr(n.Callee, ctx)
	return fmt.Sprintf("%s.call(%s, %s, %s)", fn, undefined, g.arguments(n.ArgumentList, ctx), quote(calleeName(n.Callee)))
}

// optionalCall handles `f?.()` and `o.m?.()`. A member callee keeps its
// receiver as this.
func (g *Generator) optionalCall(n *ast.CallExpression, c *ast.Optional, ctx Context) string {
	var obj, key string
	switch m := c.Expression.(type) {
	case *ast.DotExpression:
		obj, key = g.expr(m.Left, ctx), quote(m.Identifier.Name.String())
	case *ast.PrivateDotExpression:
		obj, key = g.expr(m.Left, ctx), quote("#"+m.Identifier.Name.String())
	case *ast.BracketExpression:
		obj, key = g.expr(m.Left, ctx), g.memberKey(m.Member, ctx)
	default:
		fn := g.optional(c, ctx)
		return fmt.Sprintf("%s.call(%s, %s, %s)", fn, undefined, g.arguments(n.ArgumentList, ctx), quote(calleeName(c.Expression)))
	}
	recv, fn := g.temp(), g.temp()
	g.chainTest(ctx, fmt.Sprintf("(%s = (%s = %s).get_own_property(%s)).is_null_or_undefined()", fn, recv, obj, key))
	return fmt.Sprintf("%s.call(%s, %s, %s)", fn, recv, g.arguments(n.ArgumentList, ctx), quote(calleeName(c.Expression)))
}

// optional tests the value of its operand for null or undefined and
// short-circuits the enclosing chain.
func (g *Generator) optional(n *ast.Optional, ctx Context) string {
	t := g.temp()
	g.chainTest(ctx, fmt.Sprintf("(%s = %s).is_null_or_undefined()", t, g.expr(n.Expression, ctx)))
	return t
}

func (g *Generator) chainTest(ctx Context, test string) {
	if ctx.chain == nil {
		g.unsupported(nil, "Optional access outside an optional chain")
		return
	}
	ctx.chain.tests = append(ctx.chain.tests, test)
}

func (g *Generator) optionalChain(n *ast.OptionalChain, ctx Context) string {
	ctx.chain = &chainState{}
	body := g.expr(n.Expression, ctx)
	if len(ctx.chain.tests) == 0 {
		return body
	}
	return fmt.Sprintf("((%s) ? %s : %s)", strings.Join(ctx.chain.tests, " || "), undefined, body)
}

// superCall is `super(...)` inside a derived constructor. Instance fields
// are initialized as soon as the parent constructor returns.
func (g *Generator) superCall(n *ast.CallExpression, ctx Context) string {
	if ctx.SuperClass == "" {
		g.unsupported(n, "'super' keyword unexpected here")
		return undefined
	}
	call := fmt.Sprintf("%s.call(__this, %s, \"super\")", ctx.SuperClass, g.arguments(n.ArgumentList, ctx))
	if ctx.FieldInit != "" {
		return fmt.Sprintf("(%s, %s(__this), __this)", discard(call), ctx.FieldInit)
	}
	return fmt.Sprintf("(%s, __this)", discard(call))
}

// superProperty reads key through the parent's prototype, or through the
// parent class itself in static code.
func (g *Generator) superProperty(key string, node ast.Node, ctx Context) string {
	if ctx.SuperClass == "" {
		g.unsupported(node, "'super' keyword unexpected here")
		return undefined
	}
	if ctx.StaticSuper {
		return member(ctx.SuperClass, key)
	}
	return member(member(ctx.SuperClass, `"prototype"`), key)
}

func (g *Generator) yield(n *ast.YieldExpression, ctx Context) string {
	if !ctx.InGenerator {
		g.unsupported(n, "yield is not supported in this position")
		return undefined
	}
	arg := undefined
	if n.Argument != nil {
		arg = g.expr(n.Argument, ctx)
	}
	if n.Delegate {
		return fmt.Sprintf("(co_yield jspp::Delegate{%s})", arg)
	}
	return fmt.Sprintf("(co_yield %s)", arg)
}

// inline returns ctx for code emitted inside an immediately invoked lambda,
// where suspension is not available.
func inline(ctx Context) Context {
	ctx.InAsync = false
	ctx.InGenerator = false
	ctx.chain = nil
	return ctx
}

func (g *Generator) requireNoSuspension(node ast.Node, ctx Context, what string) bool {
	if ctx.suspendable() && node != nil && g.unit.Suspends(node) {
		g.fail(diag.SyntaxError, node, "await and yield are not supported inside %s", what)
		return false
	}
	return true
}
