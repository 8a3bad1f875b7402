package codegen

import (
	"fmt"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

func (g *Generator) classDeclaration(c *ast.ClassLiteral, ctx Context) {
	if c.Name == nil {
		g.unsupported(c, "Class declaration requires a name")
		return
	}
	sym, b := g.declared(c.Name, ctx)
	if sym == nil {
		g.fail(diag.ReferenceError, c.Name, "%s is not defined", c.Name.Name.String())
		return
	}
	g.begin()
	text := g.class(c, c.Name.Name.String(), storage(sym), ctx)
	g.end()
	g.line("%s;", text)
	g.initialized(ctx, b)
}

// classExpression emits a class literal used as a value. A named class
// expression binds its own name inside the body.
func (g *Generator) classExpression(c *ast.ClassLiteral, hint string, ctx Context) string {
	name := hint
	if c.Name != nil {
		name = c.Name.Name.String()
	}
	return g.class(c, name, "", ctx)
}

// classElements splits a class body by where each element is installed.
type classElements struct {
	ctor    *ast.MethodDefinition
	methods []*ast.MethodDefinition
	fields  []*ast.FieldDefinition
	statics []ast.ClassElement // static fields and blocks, in source order
	keys    map[ast.Expression]string
}

func splitClass(c *ast.ClassLiteral) classElements {
	var e classElements
	for _, el := range c.Body {
		switch el := el.(type) {
		case *ast.MethodDefinition:
			if !el.Static && !el.Computed && el.Kind == ast.PropertyKindMethod && staticKeyName(el.Key) == "constructor" {
				e.ctor = el
				continue
			}
			e.methods = append(e.methods, el)
		case *ast.FieldDefinition:
			if el.Static {
				e.statics = append(e.statics, el)
			} else {
				e.fields = append(e.fields, el)
			}
		case *ast.ClassStaticBlock:
			e.statics = append(e.statics, el)
		}
	}
	return e
}

// class lowers a class literal to an immediately invoked lambda:
//
//	([&]() -> jspp::AnyValue {
//	    jspp::AnyValue __super_N = <extends>;
//	    auto __fields_N = [=](const jspp::AnyValue& __this) -> void { ... };
//	    jspp::AnyValue __class_N = jspp::AnyValue::make_class(<constructor>, "C");
//	    jspp::AnyValue __proto_N = __class_N.get_own_property("prototype");
//	    <methods, accessors, static fields and blocks>
//	    return __class_N;
//	})()
//
// The extends clause and computed keys are evaluated into temporaries
// before the lambda runs, in source order, so they may suspend.
func (g *Generator) class(c *ast.ClassLiteral, name, assign string, ctx Context) string {
	cs, ok := g.res.ScopeOf(c)
	if !ok {
		g.unsupported(c, "Class has no scope")
		return undefined
	}
	els := splitClass(c)

	var pre []string
	superTemp := ""
	if c.SuperClass != nil {
		superTemp = g.temp()
		pre = append(pre, fmt.Sprintf("%s = %s", superTemp, g.expr(c.SuperClass, ctx)))
	}
	els.keys = make(map[ast.Expression]string)
	for _, el := range c.Body {
		var key ast.Expression
		switch el := el.(type) {
		case *ast.MethodDefinition:
			if el.Computed {
				key = el.Key
			}
		case *ast.FieldDefinition:
			if el.Computed {
				key = el.Key
			}
		}
		if key != nil {
			t := g.temp()
			pre = append(pre, fmt.Sprintf("%s = %s", t, g.expr(key, ctx)))
			els.keys[key] = t
		}
	}

	saved := g.temps
	g.temps = nil
	body := g.braced("([&]() -> jspp::AnyValue", func() {
		g.classBody(c, cs, els, name, assign, superTemp, ctx)
	}) + ")()"
	g.temps = saved

	if len(pre) == 0 {
		return body
	}
	text := "("
	for _, p := range pre {
		text += p + ", "
	}
	return text + body + ")"
}

func (g *Generator) classBody(c *ast.ClassLiteral, cs *analysis.Scope, els classElements, name, assign, superTemp string, ctx Context) {
	inner := inline(ctx)
	var self *symbols.Symbol
	if c.Name != nil && assign == "" {
		if s, ok := g.res.ScopeOf(c.Name); ok {
			if b := s.Bindings[c.Name.Name.String()]; b != nil {
				inner, _, _ = g.enterScope(c.Name, inner)
				self = g.declare(inner, b)
				g.newSlot(self, "jspp::Constants::UNINITIALIZED")
			}
		}
	}

	super := ""
	if superTemp != "" {
		super = g.unique("super")
		g.line("jspp::AnyValue %s = %s;", super, superTemp)
	}
	cls, proto := g.unique("class"), g.unique("proto")

	fields := ""
	if len(els.fields) > 0 {
		fields = g.unique("fields")
		fctx := g.memberContext(cs.ID, c, ctx, inner, super, false)
		g.line("auto %s = %s;", fields, g.braced("[=](const jspp::AnyValue& __this) -> void", func() {
			for _, f := range els.fields {
				g.field("__this", f, els, fctx)
			}
		}))
	}

	ctor := g.constructor(c, els, name, super, fields, inner)
	g.line("jspp::AnyValue %s = jspp::AnyValue::make_class(%s, %s);", cls, ctor, quote(name))
	g.line("jspp::AnyValue %s = %s.get_own_property(\"prototype\");", proto, cls)
	if super != "" {
		g.line("%s.set_prototype(%s);", cls, super)
		g.line("%s.set_prototype(%s.get_own_property(\"prototype\"));", proto, super)
	}
	if self != nil {
		g.line("%s = %s;", storage(self), cls)
		self.Checked = true
	}
	if assign != "" {
		g.line("%s = %s;", assign, cls)
	}

	for _, m := range els.methods {
		target := proto
		if m.Static {
			target = cls
		}
		g.method(target, m, els, super, inner)
	}

	for _, el := range els.statics {
		sctx := g.memberContext(cs.ID, c, ctx, inner, super, true)
		switch el := el.(type) {
		case *ast.FieldDefinition:
			g.open("([&](const jspp::AnyValue& __this) -> void")
			g.field("__this", el, els, sctx)
			g.close(")(" + cls + ");")
		case *ast.ClassStaticBlock:
			s, ok := g.res.ScopeOf(el)
			if !ok {
				g.unsupported(el.Block, "Static block has no scope")
				return
			}
			sctx.Scope = s.ID
			sctx.Function = el
			g.open("([&](const jspp::AnyValue& __this) -> void")
			g.hoist(s, el.Block.List, sctx)
			g.statements(el.Block.List, sctx)
			g.close(")(" + cls + ");")
		}
	}
	g.line("return %s;", cls)
}

// memberContext is the context of code that runs with the class or an
// instance as this: field initializers and static blocks.
func (g *Generator) memberContext(scope analysis.ScopeID, node ast.Node, outer, inner Context, super string, static bool) Context {
	return Context{
		Scope:       scope,
		Function:    node,
		Return:      &returnSlot{kind: returnPlain},
		SuperClass:  super,
		StaticSuper: static,
		Globals:     outer.Globals,
		Locals:      symbols.Merge(outer.Globals, inner.Locals, symbols.ScopeFunction).Enter(symbols.ScopeFunction),
	}
}

func (g *Generator) classKey(key ast.Expression, computed bool, els classElements, ctx Context) string {
	if computed {
		if t, ok := els.keys[key]; ok {
			return t
		}
	}
	return g.propertyKey(key, false, ctx)
}

func (g *Generator) field(this string, f *ast.FieldDefinition, els classElements, ctx Context) {
	key := g.classKey(f.Key, f.Computed, els, ctx)
	value := undefined
	g.begin()
	if f.Initializer != nil {
		value = g.named(f.Initializer, staticKeyName(f.Key), ctx)
	}
	g.end()
	g.line("%s.set_own_property(%s, %s);", this, key, value)
}

func (g *Generator) method(target string, m *ast.MethodDefinition, els classElements, super string, ctx Context) {
	fn := m.Body
	key := g.classKey(m.Key, m.Computed, els, ctx)
	name := staticKeyName(m.Key)
	o := lambdaOptions{
		async:       fn.Async,
		generator:   fn.Generator,
		name:        name,
		inClass:     true,
		superClass:  super,
		staticSuper: m.Static,
	}
	switch m.Kind {
	case ast.PropertyKindGet:
		g.line("%s.define_getter(%s, %s);", target, key, functionFactory(false, false, g.lambda(fn, fn.ParameterList, fn.Body, o, ctx), "get "+name))
	case ast.PropertyKindSet:
		g.line("%s.define_setter(%s, %s);", target, key, functionFactory(false, false, g.lambda(fn, fn.ParameterList, fn.Body, o, ctx), "set "+name))
	default:
		g.line("%s.set_own_property(%s, %s);", target, key, functionFactory(fn.Async, fn.Generator, g.lambda(fn, fn.ParameterList, fn.Body, o, ctx), name))
	}
}

// constructor returns the callable passed to make_class. Without an
// explicit constructor a base class only runs its field initializer and a
// derived class forwards every argument to its parent.
func (g *Generator) constructor(c *ast.ClassLiteral, els classElements, name, super, fields string, ctx Context) string {
	if els.ctor != nil {
		fn := els.ctor.Body
		return g.lambda(fn, fn.ParameterList, fn.Body, lambdaOptions{
			name:       name,
			ctor:       true,
			derived:    super != "",
			fieldInit:  fields,
			superClass: super,
			inClass:    true,
		}, ctx)
	}
	return g.braced("[=](const jspp::AnyValue& __this, std::span<const jspp::AnyValue> __args) -> jspp::AnyValue", func() {
		if super != "" {
			g.line("%s.call(__this, __args, \"super\");", super)
		}
		if fields != "" {
			g.line("%s(__this);", fields)
		}
		g.line("return jspp::Constants::UNDEFINED;")
	})
}
