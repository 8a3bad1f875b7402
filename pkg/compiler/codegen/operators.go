package codegen

import (
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/lcalzada-xor/jspp/pkg/compiler/frontend"
)

// binaryOps maps JS operators onto the jspp::Operators functions.
var binaryOps = map[token.Token]string{
	token.PLUS:                 "add",
	token.MINUS:                "sub",
	token.MULTIPLY:             "mul",
	token.SLASH:                "div",
	token.REMAINDER:            "mod",
	token.EXPONENT:             "pow",
	token.AND:                  "bit_and",
	token.OR:                   "bit_or",
	token.EXCLUSIVE_OR:         "bit_xor",
	token.SHIFT_LEFT:           "shl",
	token.SHIFT_RIGHT:          "shr",
	token.UNSIGNED_SHIFT_RIGHT: "ushr",
	token.EQUAL:                "loose_eq",
	token.NOT_EQUAL:            "loose_ne",
	token.STRICT_EQUAL:         "strict_eq",
	token.STRICT_NOT_EQUAL:     "strict_ne",
	token.LESS:                 "lt",
	token.LESS_OR_EQUAL:        "le",
	token.GREATER:              "gt",
	token.GREATER_OR_EQUAL:     "ge",
	token.IN:                   "in",
	token.INSTANCEOF:           "instance_of",
}

func operator(op token.Token, l, r string) string {
	return fmt.Sprintf("jspp::Operators::%s(%s, %s)", binaryOps[op], l, r)
}

func (g *Generator) binary(n *ast.BinaryExpression, ctx Context) string {
	if p, ok := n.Left.(*ast.PrivateIdentifier); ok {
		// `#x in obj`
		return fmt.Sprintf("jspp::Operators::in(%s, %s)", stringValue("#"+p.Name.String()), g.expr(n.Right, ctx))
	}

	switch n.Operator {
	case token.LOGICAL_AND:
		t := g.temp()
		return fmt.Sprintf("((%s = %s).is_truthy() ? %s : %s)", t, g.expr(n.Left, ctx), g.expr(n.Right, ctx), t)
	case token.LOGICAL_OR:
		t := g.temp()
		return fmt.Sprintf("((%s = %s).is_truthy() ? %s : %s)", t, g.expr(n.Left, ctx), t, g.expr(n.Right, ctx))
	case token.COALESCE:
		t := g.temp()
		return fmt.Sprintf("((%s = %s).is_null_or_undefined() ? %s : %s)", t, g.expr(n.Left, ctx), g.expr(n.Right, ctx), t)
	}

	if _, ok := binaryOps[n.Operator]; !ok {
		g.unsupported(n, "Unsupported operator %s", n.Operator)
		return undefined
	}
	l, r, pre := g.ordered(n.Left, n.Right, ctx)
	return pre(operator(n.Operator, l, r))
}

// ordered evaluates two operands whose C++ evaluation order would otherwise
// be unspecified. When the right operand has effects the left one is pinned
// in a temporary first; wrap applies the sequencing to the final text.
func (g *Generator) ordered(left, right ast.Expression, ctx Context) (string, string, func(string) string) {
	l := g.expr(left, ctx)
	if !sideEffects(right) || isConstant(left) {
		return l, g.expr(right, ctx), func(s string) string { return s }
	}
	t := g.temp()
	r := g.expr(right, ctx)
	return t, r, func(s string) string {
		return fmt.Sprintf("(%s = %s, %s)", t, l, s)
	}
}

func (g *Generator) unary(n *ast.UnaryExpression, ctx Context) string {
	switch n.Operator {
	case token.INCREMENT, token.DECREMENT:
		return g.update(n, ctx)
	case token.NOT:
		return fmt.Sprintf("jspp::Operators::logical_not(%s)", g.expr(n.Operand, ctx))
	case token.MINUS:
		return fmt.Sprintf("jspp::Operators::negate(%s)", g.expr(n.Operand, ctx))
	case token.PLUS:
		return fmt.Sprintf("jspp::Operators::to_numeric(%s)", g.expr(n.Operand, ctx))
	case token.BITWISE_NOT:
		return fmt.Sprintf("jspp::Operators::bit_not(%s)", g.expr(n.Operand, ctx))
	case token.VOID:
		return fmt.Sprintf("(%s, %s)", discard(g.expr(n.Operand, ctx)), undefined)
	case token.TYPEOF:
		if id, ok := n.Operand.(*ast.Identifier); ok {
			if ref := g.res.References[id]; ref == nil || ref.Binding == nil {
				if _, enum := ctx.Enum[id.Name.String()]; !enum {
					return stringValue("undefined")
				}
			}
		}
		return fmt.Sprintf("jspp::Operators::type_of(%s)", g.expr(n.Operand, ctx))
	case token.DELETE:
		return g.delete(n.Operand, ctx)
	}
	g.unsupported(n, "Unsupported operator %s", n.Operator)
	return undefined
}

func (g *Generator) delete(target ast.Expression, ctx Context) string {
	switch t := target.(type) {
	case *ast.DotExpression:
		return fmt.Sprintf("%s.delete_property(%s)", g.expr(t.Left, ctx), quote(t.Identifier.Name.String()))
	case *ast.BracketExpression:
		return fmt.Sprintf("%s.delete_property(%s)", g.expr(t.Left, ctx), g.memberKey(t.Member, ctx))
	case *ast.Identifier:
		// Declared bindings cannot be deleted.
		return "jspp::Constants::FALSE"
	case *ast.OptionalChain:
		g.unsupported(t, "delete of an optional chain is not supported")
		return undefined
	}
	return fmt.Sprintf("(%s, jspp::Constants::TRUE)", discard(g.expr(target, ctx)))
}

// update emits ++ and --. Members are read and written through temporaries
// so that the object and the key are evaluated once.
func (g *Generator) update(n *ast.UnaryExpression, ctx Context) string {
	fn := "increment"
	if n.Operator == token.DECREMENT {
		fn = "decrement"
	}
	if n.Postfix {
		fn = "post_" + fn
	} else {
		fn = "pre_" + fn
	}

	switch t := n.Operand.(type) {
	case *ast.Identifier:
		if m, ok := ctx.Enum[t.Name.String()]; ok {
			return fmt.Sprintf("jspp::Operators::%s(%s)", fn, m)
		}
		lv, ok := g.identifierLvalue(t, ctx)
		if !ok {
			return fmt.Sprintf("(%s, %s)", discard(g.identifier(t, ctx)), lv)
		}
		return fmt.Sprintf("jspp::Operators::%s(%s)", fn, lv)
	case *ast.DotExpression, *ast.BracketExpression, *ast.PrivateDotExpression:
		obj, key, pre := g.reference(t, ctx)
		old := g.temp()
		result := fmt.Sprintf("jspp::Operators::to_numeric(%s.get_own_property(%s))", obj, key)
		var next, value string
		delta := "jspp::AnyValue::make_number(1.0)"
		if n.Operator == token.INCREMENT {
			next = operator(token.PLUS, old, delta)
		} else {
			next = operator(token.MINUS, old, delta)
		}
		if n.Postfix {
			value = fmt.Sprintf("(%s.set_own_property(%s, %s), %s)", obj, key, next, old)
		} else {
			value = fmt.Sprintf("%s.set_own_property(%s, %s)", obj, key, next)
		}
		return fmt.Sprintf("(%s%s = %s, %s)", pre, old, result, value)
	}
	g.unsupported(n, "Invalid left-hand side expression in %s operation", map[bool]string{true: "postfix", false: "prefix"}[n.Postfix])
	return undefined
}

// reference evaluates the object and key of a member target into
// temporaries. pre holds the assignments and ends with a comma.
func (g *Generator) reference(target ast.Expression, ctx Context) (obj, key, pre string) {
	obj = g.temp()
	switch t := target.(type) {
	case *ast.DotExpression:
		if _, ok := t.Left.(*ast.SuperExpression); ok {
			return "__this", quote(t.Identifier.Name.String()), ""
		}
		return obj, quote(t.Identifier.Name.String()), fmt.Sprintf("%s = %s, ", obj, g.expr(t.Left, ctx))
	case *ast.PrivateDotExpression:
		return obj, quote("#" + t.Identifier.Name.String()), fmt.Sprintf("%s = %s, ", obj, g.expr(t.Left, ctx))
	case *ast.BracketExpression:
		var left string
		if _, ok := t.Left.(*ast.SuperExpression); ok {
			left = "__this"
		} else {
			left = g.expr(t.Left, ctx)
		}
		if isLiteralKey(t.Member) {
			return obj, g.memberKey(t.Member, ctx), fmt.Sprintf("%s = %s, ", obj, left)
		}
		k := g.temp()
		return obj, k, fmt.Sprintf("%s = %s, %s = %s, ", obj, left, k, g.expr(t.Member, ctx))
	}
	return obj, `""`, ""
}

func (g *Generator) assign(n *ast.AssignExpression, ctx Context) string {
	switch n.Operator {
	case token.ASSIGN:
		return g.simpleAssign(n, ctx)
	case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
		return g.logicalAssign(n, ctx)
	}
	// Compound assignments carry their binary operator.
	op := n.Operator
	if _, ok := binaryOps[op]; !ok {
		g.unsupported(n, "Unsupported operator %s", n.Operator)
		return undefined
	}

	switch t := n.Left.(type) {
	case *ast.Identifier:
		lv, writable := g.identifierLvalue(t, ctx)
		value := operator(op, g.identifier(t, ctx), g.expr(n.Right, ctx))
		if !writable {
			if isThrow(lv) {
				return fmt.Sprintf("(%s, %s)", discard(value), lv)
			}
			return value
		}
		return fmt.Sprintf("(%s = %s)", lv, value)
	case *ast.DotExpression, *ast.BracketExpression, *ast.PrivateDotExpression:
		obj, key, pre := g.reference(t, ctx)
		value := operator(op, fmt.Sprintf("%s.get_own_property(%s)", obj, key), g.expr(n.Right, ctx))
		return fmt.Sprintf("(%s%s.set_own_property(%s, %s))", pre, obj, key, value)
	}
	g.unsupported(n, "Invalid left-hand side in assignment")
	return undefined
}

func isThrow(text string) bool {
	return strings.HasPrefix(text, "jspp::throw")
}

func (g *Generator) simpleAssign(n *ast.AssignExpression, ctx Context) string {
	switch t := n.Left.(type) {
	case *ast.Identifier:
		if m, ok := ctx.Enum[t.Name.String()]; ok {
			return fmt.Sprintf("(%s = %s)", m, g.expr(n.Right, ctx))
		}
		return g.assignIdentifier(t, g.named(n.Right, t.Name.String(), ctx), ctx)
	case *ast.DotExpression:
		key := quote(t.Identifier.Name.String())
		if _, ok := t.Left.(*ast.SuperExpression); ok {
			return fmt.Sprintf("__this.set_own_property(%s, %s)", key, g.expr(n.Right, ctx))
		}
		return fmt.Sprintf("%s.set_own_property(%s, %s)", g.expr(t.Left, ctx), key, g.expr(n.Right, ctx))
	case *ast.PrivateDotExpression:
		return fmt.Sprintf("%s.set_own_property(%s, %s)", g.expr(t.Left, ctx), quote("#"+t.Identifier.Name.String()), g.expr(n.Right, ctx))
	case *ast.BracketExpression:
		if isLiteralKey(t.Member) || !sideEffects(n.Right) {
			if _, ok := t.Left.(*ast.SuperExpression); ok {
				return fmt.Sprintf("__this.set_own_property(%s, %s)", g.memberKey(t.Member, ctx), g.expr(n.Right, ctx))
			}
			return fmt.Sprintf("%s.set_own_property(%s, %s)", g.expr(t.Left, ctx), g.memberKey(t.Member, ctx), g.expr(n.Right, ctx))
		}
		obj, key, pre := g.reference(t, ctx)
		return fmt.Sprintf("(%s%s.set_own_property(%s, %s))", pre, obj, key, g.expr(n.Right, ctx))
	case *ast.ArrayPattern, *ast.ObjectPattern:
		return g.destructureExpression(t, n.Right, ctx)
	}
	g.unsupported(n, "Invalid left-hand side in assignment")
	return undefined
}

// logicalAssign emits &&=, ||= and ??=. The target is only written when
// the right operand is evaluated.
func (g *Generator) logicalAssign(n *ast.AssignExpression, ctx Context) string {
	test := func(v string) string {
		switch n.Operator {
		case token.LOGICAL_AND:
			return fmt.Sprintf("%s.is_truthy()", v)
		case token.LOGICAL_OR:
			return fmt.Sprintf("!%s.is_truthy()", v)
		}
		return fmt.Sprintf("%s.is_null_or_undefined()", v)
	}

	switch t := n.Left.(type) {
	case *ast.Identifier:
		cur := g.temp()
		name := t.Name.String()
		return fmt.Sprintf("(%s = %s, %s ? %s : %s)", cur, g.identifier(t, ctx), test(cur),
			g.assignIdentifier(t, g.named(n.Right, name, ctx), ctx), cur)
	case *ast.DotExpression, *ast.BracketExpression, *ast.PrivateDotExpression:
		obj, key, pre := g.reference(t, ctx)
		cur := g.temp()
		return fmt.Sprintf("(%s%s = %s.get_own_property(%s), %s ? %s.set_own_property(%s, %s) : %s)",
			pre, cur, obj, key, test(cur), obj, key, g.expr(n.Right, ctx), cur)
	}
	g.unsupported(n, "Invalid left-hand side in assignment")
	return undefined
}

func isLiteralKey(e ast.Expression) bool {
	switch e.(type) {
	case *ast.StringLiteral, *ast.NumberLiteral:
		return true
	}
	return false
}

func isConstant(e ast.Expression) bool {
	switch e.(type) {
	case *ast.StringLiteral, *ast.NumberLiteral, *ast.BooleanLiteral, *ast.NullLiteral,
		*ast.ThisExpression, *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
		return true
	}
	return false
}

// sideEffects reports whether evaluating any of list may run user code or
// write a binding. Nested functions are not entered.
func sideEffects(list ...ast.Expression) bool {
	found := false
	for _, e := range list {
		if e == nil {
			continue
		}
		frontend.Inspect(e, func(n ast.Node) bool {
			if found {
				return false
			}
			switch n := n.(type) {
			case *ast.CallExpression, *ast.NewExpression, *ast.AssignExpression,
				*ast.AwaitExpression, *ast.YieldExpression, *ast.ClassLiteral:
				found = true
			case *ast.TemplateLiteral:
				found = n.Tag != nil
			case *ast.UnaryExpression:
				switch n.Operator {
				case token.INCREMENT, token.DECREMENT, token.DELETE:
					found = true
				}
			case *ast.FunctionLiteral, *ast.ArrowFunctionLiteral:
				return false
			}
			return !found
		})
	}
	return found
}
