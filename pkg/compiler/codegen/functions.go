package codegen

import (
	"fmt"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

type lambdaOptions struct {
	async     bool
	generator bool
	arrow     bool
	name      string

	// Class members.
	ctor        bool
	derived     bool
	fieldInit   string
	superClass  string
	staticSuper bool
	inClass     bool
}

func returnType(async, generator bool) string {
	switch {
	case async && generator:
		return "jspp::JsAsyncIterator<jspp::AnyValue>"
	case generator:
		return "jspp::JsIterator<jspp::AnyValue>"
	case async:
		return "jspp::JsPromise"
	}
	return "jspp::AnyValue"
}

// functionFactory wraps a callable into the function value of its kind.
func functionFactory(async, generator bool, callable, name string) string {
	factory := "make_function"
	switch {
	case async && generator:
		factory = "make_async_generator"
	case generator:
		factory = "make_generator"
	case async:
		factory = "make_async_function"
	}
	return fmt.Sprintf("jspp::AnyValue::%s(%s, %s)", factory, callable, quote(name))
}

// wrapResult turns the result of a native coroutine call into a value.
func wrapResult(async, generator bool, call string) string {
	switch {
	case async && generator:
		return "jspp::AnyValue::from_async_iterator(" + call + ")"
	case generator:
		return "jspp::AnyValue::from_iterator(" + call + ")"
	case async:
		return "jspp::AnyValue::from_promise(" + call + ")"
	}
	return call
}

// lambda renders the callable of a function, arrow, method or constructor.
// Ordinary functions take this and the arguments by reference. Generators
// and async functions take both by value and keep their own callable alive.
func (g *Generator) lambda(node ast.Node, params *ast.ParameterList, body ast.Node, o lambdaOptions, outer Context) string {
	s, ok := g.res.ScopeOf(node)
	if !ok {
		g.unsupported(node, "Function has no scope")
		return "nullptr"
	}
	coroutine := o.async || o.generator
	ctx := Context{
		Scope:         s.ID,
		Function:      node,
		InGenerator:   o.generator,
		InAsync:       o.async,
		ReturnAllowed: true,
		Return:        &returnSlot{kind: returnPlain},
		SuperClass:    outer.SuperClass,
		StaticSuper:   outer.StaticSuper,
		Globals:       outer.Globals,
		Locals:        symbols.Merge(outer.Globals, outer.Locals, symbols.ScopeFunction).Enter(symbols.ScopeFunction),
	}
	if coroutine {
		ctx.Return = &returnSlot{kind: returnCoroutine}
	}
	if o.inClass {
		ctx.SuperClass = o.superClass
		ctx.StaticSuper = o.staticSuper
	}
	if o.ctor {
		ctx.FieldInit = o.fieldInit
	}

	this := "__this"
	if o.arrow {
		// Arrows see the this of their definition through the capture.
		this = "__arrow_this"
	}
	if coroutine {
		ret := returnType(o.async, o.generator)
		head := fmt.Sprintf("[=](std::shared_ptr<void> __keep, jspp::AnyValue %s, std::vector<jspp::AnyValue> __args) -> %s", this, ret)
		return ownedCoroutine(ret, g.braced(head, func() {
			g.functionBody(s, params, body, o, ctx)
		}))
	}
	head := fmt.Sprintf("[=](const jspp::AnyValue& %s, std::span<const jspp::AnyValue> __args) -> jspp::AnyValue", this)
	return g.braced(head, func() {
		g.functionBody(s, params, body, o, ctx)
	})
}

// ownedCoroutine wraps a coroutine lambda so that every frame it starts
// holds a reference to the lambda and its captures. A suspended body may
// resume after the scope that created the callable has returned.
func ownedCoroutine(ret, body string) string {
	return fmt.Sprintf("[__body = std::make_shared<std::function<%s(std::shared_ptr<void>, jspp::AnyValue, std::vector<jspp::AnyValue>)>>(%s)]"+
		"(jspp::AnyValue __this, std::vector<jspp::AnyValue> __args) -> %s { return (*__body)(__body, std::move(__this), std::move(__args)); }",
		ret, body, ret)
}

func (g *Generator) functionBody(s *analysis.Scope, params *ast.ParameterList, body ast.Node, o lambdaOptions, ctx Context) {
	g.parameters(params, s, ctx)
	if b := s.Bindings["arguments"]; b != nil && b.Kind == symbols.Implicit && b.Referenced && !o.arrow {
		g.newSlot(g.declare(ctx, b), "jspp::Access::arguments_object(__args)")
	}
	if o.ctor && !o.derived && o.fieldInit != "" {
		g.line("%s(__this);", o.fieldInit)
	}

	final := "return jspp::Constants::UNDEFINED;"
	if o.async || o.generator {
		final = "co_return jspp::Constants::UNDEFINED;"
	}
	switch b := body.(type) {
	case *ast.BlockStatement:
		g.hoist(s, b.List, ctx)
		g.statements(b.List, ctx)
		g.line("%s", final)
	case *ast.ExpressionBody:
		g.emitReturn(g.eval(b.Expression, ctx), ctx)
	default:
		g.line("%s", final)
	}
}

// parameters extracts the declared parameters from the argument list.
func (g *Generator) parameters(params *ast.ParameterList, s *analysis.Scope, ctx Context) {
	if params == nil {
		return
	}
	for i, p := range params.List {
		arg := fmt.Sprintf("(__args.size() > %d ? __args[%d] : jspp::Constants::UNDEFINED)", i, i)
		g.parameter(p.Target, p.Initializer, arg, s, ctx)
	}
	if params.Rest != nil {
		rest := g.unique("rest")
		g.line("std::vector<jspp::AnyValue> %s;", rest)
		g.line("for (std::size_t __i = %d; __i < __args.size(); ++__i) %s.push_back(__args[__i]);", len(params.List), rest)
		g.parameter(params.Rest, nil, fmt.Sprintf("jspp::AnyValue::make_array(std::move(%s))", rest), s, ctx)
	}
}

// paramSlot declares the slot of one parameter name, unless a function
// declaration of the same name took it over or an earlier duplicate
// parameter already declared it.
func (g *Generator) paramSlot(id *ast.Identifier, value string, s *analysis.Scope, ctx Context) *symbols.Symbol {
	name := id.Name.String()
	b := s.Bindings[name]
	if b == nil || b.Kind != symbols.Parameter {
		return nil
	}
	if sym := ctx.Locals.LookupLocal(name); sym != nil {
		g.line("%s = %s;", storage(sym), value)
		return sym
	}
	sym := g.declare(ctx, b)
	g.newSlot(sym, value)
	return sym
}

func (g *Generator) parameter(target ast.Expression, def ast.Expression, value string, s *analysis.Scope, ctx Context) {
	if id, ok := target.(*ast.Identifier); ok {
		sym := g.paramSlot(id, value, s, ctx)
		if sym == nil || def == nil {
			return
		}
		g.begin()
		d := g.named(def, id.Name.String(), ctx)
		g.end()
		g.line("if (%s.is_undefined()) %s = %s;", storage(sym), storage(sym), d)
		return
	}

	for _, id := range analysis.BoundNames(target) {
		g.paramSlot(id, "jspp::Constants::UNDEFINED", s, ctx)
	}
	tmp := g.unique("p")
	g.line("jspp::AnyValue %s = %s;", tmp, value)
	if def != nil {
		g.begin()
		d := g.expr(def, ctx)
		g.end()
		g.line("if (%s.is_undefined()) %s = %s;", tmp, tmp, d)
	}
	g.destructure(target, tmp, bindDeclare, ctx)
}

// functionExpression emits a function literal as a value. A named function
// expression that refers to itself gets a box of its own for the name.
func (g *Generator) functionExpression(fn *ast.FunctionLiteral, hint string, ctx Context) string {
	name := hint
	if fn.Name != nil {
		name = fn.Name.Name.String()
	}
	o := lambdaOptions{async: fn.Async, generator: fn.Generator, name: name}

	self, ok := g.res.ScopeOf(fn.Name)
	if fn.Name == nil || !ok || self.Bindings[name] == nil || !self.Bindings[name].Referenced {
		inner := ctx
		if ok {
			inner.Scope = self.ID
		}
		return functionFactory(fn.Async, fn.Generator, g.lambda(fn, fn.ParameterList, fn.Body, o, inner), name)
	}

	inner, _, _ := g.enterScope(fn.Name, ctx)
	b := self.Bindings[name]
	return g.braced("([=]() -> jspp::AnyValue", func() {
		sym := g.declare(inner, b)
		sym.Checked = true
		g.newSlot(sym, "jspp::Constants::UNDEFINED")
		g.line("%s = %s;", storage(sym), functionFactory(fn.Async, fn.Generator, g.lambda(fn, fn.ParameterList, fn.Body, o, inner), name))
		g.line("return %s;", storage(sym))
	}) + ")()"
}

func (g *Generator) arrowFunction(fn *ast.ArrowFunctionLiteral, hint string, ctx Context) string {
	o := lambdaOptions{async: fn.Async, arrow: true, name: hint}
	return functionFactory(fn.Async, false, g.lambda(fn, fn.ParameterList, fn.Body, o, ctx), hint)
}

// named evaluates an initializer, giving anonymous functions and classes
// the name of the binding they initialize.
func (g *Generator) named(e ast.Expression, name string, ctx Context) string {
	switch n := e.(type) {
	case *ast.FunctionLiteral:
		return g.functionExpression(n, name, ctx)
	case *ast.ArrowFunctionLiteral:
		return g.arrowFunction(n, name, ctx)
	case *ast.ClassLiteral:
		return g.classExpression(n, name, ctx)
	}
	return g.expr(e, ctx)
}

// directCall invokes the native callable of a function declaration when
// the callee is never reassigned and the call is made from the function
// that declares it.
func (g *Generator) directCall(id *ast.Identifier, args string, ctx Context) (string, bool) {
	ref := g.res.References[id]
	if ref == nil || ref.Binding == nil || ref.Crosses {
		return "", false
	}
	b := ref.Binding
	if b.Kind != symbols.Function || b.Writes > 0 {
		return "", false
	}
	sym := g.symbol(ctx, b)
	if sym == nil || sym.Features == nil || sym.Features.Native == "" {
		return "", false
	}
	call := fmt.Sprintf("%s(jspp::Constants::UNDEFINED, %s)", sym.Features.Native, args)
	return wrapResult(sym.Features.Async, sym.Features.Generator, call), true
}
