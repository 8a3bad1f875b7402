// Package analysis implements the scope and capture analyzer. A single walk
// over the goja AST builds the scope tree, resolves every identifier and
// decides which bindings must live in a shared heap box.
package analysis

import (
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/compiler/frontend"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

type useKind int

const (
	useRead useKind = iota
	useWrite
	useReadWrite
	useCall
)

type label struct {
	name string
	loop bool
}

// funcState tracks the jump targets legal inside one function body.
type funcState struct {
	node      ast.Node
	capture   *FunctionCapture
	arrow     bool
	labels    []label
	loops     int
	breakable int
	outer     *funcState
}

type analyzer struct {
	unit     *frontend.Unit
	res      *Result
	cur      ScopeID
	fn       *funcState
	fnValues map[*Binding]ast.Node
	err      error
}

// Analyze walks unit once and returns its scope tree and capture facts.
// It is not safe to share an analyzer between units; Analyze creates its own.
func Analyze(unit *frontend.Unit) (*Result, error) {
	a := &analyzer{
		unit: unit,
		res: &Result{
			NodeScopes: make(map[ast.Node]ScopeID),
			Captures:   make(map[ast.Node]*FunctionCapture),
			References: make(map[*ast.Identifier]*Reference),
		},
		fnValues: make(map[*Binding]ast.Node),
	}

	global := a.res.newScope(ScopeGlobal, NoScope, nil)
	for _, name := range Builtins {
		global.Define(name, symbols.Builtin, nil, 0)
	}
	prog := a.res.newScope(ScopeProgram, global.ID, unit.Program)
	a.res.Root = prog.ID
	a.cur = prog.ID
	a.fn = &funcState{node: unit.Program}

	a.hoistBody(prog, unit.Program.Body)
	a.statements(unit.Program.Body)
	if a.err != nil {
		return nil, a.err
	}

	for b, node := range a.fnValues {
		if c, ok := a.res.Captures[node]; ok {
			b.IsClosure = c.IsClosure
			b.Captured = c.Captured
		}
	}
	return a.res, nil
}

func (a *analyzer) fail(node ast.Node, format string, args ...interface{}) {
	if a.err == nil {
		a.err = diag.Syntax(a.unit.File, node, format, args...)
	}
}

func (a *analyzer) push(kind ScopeKind, node ast.Node) *Scope {
	s := a.res.newScope(kind, a.cur, node)
	a.cur = s.ID
	return s
}

func (a *analyzer) pop() {
	a.cur = a.res.Scopes[a.cur].Parent
}

// resolve finds name from the current scope and returns the function
// boundaries crossed on the way.
func (a *analyzer) resolve(name string) (*Binding, []*Scope) {
	var crossed []*Scope
	for id := a.cur; id != NoScope; {
		s := a.res.Scopes[id]
		if b, ok := s.Bindings[name]; ok {
			return b, crossed
		}
		if s.Kind.Boundary() {
			crossed = append(crossed, s)
		}
		id = s.Parent
	}
	return nil, nil
}

// ref records a use of id. This is where the box decision is made.
func (a *analyzer) ref(id *ast.Identifier, use useKind) {
	name := id.Name.String()
	b, crossed := a.resolve(name)
	r := &Reference{Binding: b, Write: use == useWrite || use == useReadWrite}
	a.res.References[id] = r
	if b == nil {
		return
	}
	b.Referenced = true
	r.Crosses = len(crossed) > 0

	if r.Crosses && !b.IsBuiltin {
		b.Box()
		for _, s := range crossed {
			if c := a.res.Captures[s.Node]; c != nil {
				c.IsClosure = true
				c.Captured[name] = b
			}
		}
	}
	// A mutation from another scope boxes even inside the same function.
	if r.Write && b.Scope != a.cur {
		b.Box()
	}
	if b.Kind == symbols.Implicit && name == "arguments" {
		if c := a.res.Captures[a.res.Scopes[b.Scope].Node]; c != nil {
			c.UsesArguments = true
		}
	}

	switch use {
	case useRead:
		b.Reads++
		b.ValueUses++
	case useCall:
		b.Reads++
		if r.Crosses {
			b.ValueUses++
		} else {
			b.CallUses++
		}
	case useWrite:
		b.Writes++
	case useReadWrite:
		b.Reads++
		b.Writes++
	}
	if b.Decl > 0 && id.Idx < b.Decl {
		b.EarlyUse = true
	}
}

// declRef records the declaring occurrence of a name.
func (a *analyzer) declRef(id *ast.Identifier) {
	b, crossed := a.resolve(id.Name.String())
	a.res.References[id] = &Reference{Binding: b, Decl: true, Crosses: len(crossed) > 0}
}

// assignedDecl marks the names of a declarator that stores a value. A var
// that redeclares a function declaration overwrites it, so the function
// binding counts a write.
func (a *analyzer) assignedDecl(target ast.Expression) {
	for _, id := range BoundNames(target) {
		r := a.res.References[id]
		if r == nil || r.Binding == nil || r.Binding.Kind != symbols.Function {
			continue
		}
		r.Write = true
		r.Binding.Writes++
	}
}

func (a *analyzer) statements(list []ast.Statement) {
	for _, st := range list {
		a.statement(st)
	}
}

func (a *analyzer) block(n *ast.BlockStatement) {
	s := a.push(ScopeBlock, n)
	a.declareLexical(s, n.List)
	a.statements(n.List)
	a.pop()
}

func (a *analyzer) statement(st ast.Statement) {
	if a.err != nil || st == nil {
		return
	}

	switch n := st.(type) {
	case *ast.BlockStatement:
		a.block(n)
	case *ast.ExpressionStatement:
		a.expr(n.Expression)
	case *ast.VariableStatement:
		for _, b := range n.List {
			a.binding(b)
		}
	case *ast.LexicalDeclaration:
		for _, b := range n.List {
			a.binding(b)
		}
	case *ast.FunctionDeclaration:
		if n.Function.Name != nil {
			a.declRef(n.Function.Name)
		}
		a.function(n.Function, n.Function.ParameterList, n.Function.Body, false)
	case *ast.ClassDeclaration:
		a.class(n.Class, true)
	case *ast.EmptyStatement:
		if e := a.unit.Enums[n.Semicolon]; e != nil {
			a.enum(n, e)
		}
	case *ast.IfStatement:
		a.expr(n.Test)
		a.statement(n.Consequent)
		a.statement(n.Alternate)
	case *ast.ForStatement:
		s := a.push(ScopeBlock, n)
		switch init := n.Initializer.(type) {
		case *ast.ForLoopInitializerVarDeclList:
			for _, b := range init.List {
				a.binding(b)
			}
		case *ast.ForLoopInitializerLexicalDecl:
			a.declareLexicalDecl(s, &init.LexicalDeclaration)
			for _, b := range init.LexicalDeclaration.List {
				a.binding(b)
			}
		case *ast.ForLoopInitializerExpression:
			a.expr(init.Expression)
		}
		a.expr(n.Test)
		a.expr(n.Update)
		a.loop(n.Body)
		a.pop()
	case *ast.ForInStatement:
		a.forInto(n, n.Into, n.Source, n.Body, true)
	case *ast.ForOfStatement:
		a.forInto(n, n.Into, n.Source, n.Body, false)
	case *ast.WhileStatement:
		a.expr(n.Test)
		a.loop(n.Body)
	case *ast.DoWhileStatement:
		a.loop(n.Body)
		a.expr(n.Test)
	case *ast.LabelledStatement:
		a.fn.labels = append(a.fn.labels, label{name: n.Label.Name.String(), loop: isLoop(n.Statement)})
		a.statement(n.Statement)
		a.fn.labels = a.fn.labels[:len(a.fn.labels)-1]
	case *ast.BranchStatement:
		a.branch(n)
	case *ast.ReturnStatement:
		if _, top := a.fn.node.(*ast.Program); top {
			a.fail(n, "Illegal return statement")
			return
		}
		a.expr(n.Argument)
	case *ast.ThrowStatement:
		a.expr(n.Argument)
	case *ast.SwitchStatement:
		a.expr(n.Discriminant)
		s := a.push(ScopeBlock, n)
		var all []ast.Statement
		for _, c := range n.Body {
			all = append(all, c.Consequent...)
		}
		a.declareLexical(s, all)
		a.fn.breakable++
		for _, c := range n.Body {
			a.expr(c.Test)
			a.statements(c.Consequent)
		}
		a.fn.breakable--
		a.pop()
	case *ast.TryStatement:
		a.block(n.Body)
		if n.Catch != nil {
			a.catch(n.Catch)
		}
		if n.Finally != nil {
			a.block(n.Finally)
		}
	case *ast.WithStatement:
		a.fail(n, "The with statement is not supported")
	case *ast.BadStatement:
		a.fail(n, "Unexpected token")
	case *ast.DebuggerStatement:
	}
}

func isLoop(st ast.Statement) bool {
	for {
		switch n := st.(type) {
		case *ast.LabelledStatement:
			st = n.Statement
		case *ast.ForStatement, *ast.ForInStatement, *ast.ForOfStatement, *ast.WhileStatement, *ast.DoWhileStatement:
			return true
		default:
			return false
		}
	}
}

func (a *analyzer) loop(body ast.Statement) {
	a.fn.loops++
	a.fn.breakable++
	a.statement(body)
	a.fn.breakable--
	a.fn.loops--
}

func (a *analyzer) branch(n *ast.BranchStatement) {
	if n.Label != nil {
		name := n.Label.Name.String()
		for i := len(a.fn.labels) - 1; i >= 0; i-- {
			l := a.fn.labels[i]
			if l.name != name {
				continue
			}
			if n.Token == token.CONTINUE && !l.loop {
				a.fail(n, "Illegal continue statement: '%s' does not denote an iteration statement", name)
			}
			return
		}
		a.fail(n, "Undefined label '%s'", name)
		return
	}
	if n.Token == token.CONTINUE {
		if a.fn.loops == 0 {
			a.fail(n, "Illegal continue statement: no surrounding iteration statement")
		}
		return
	}
	if a.fn.breakable == 0 {
		a.fail(n, "Illegal break statement")
	}
}

func (a *analyzer) forInto(n ast.Node, into ast.ForInto, source ast.Expression, body ast.Statement, keys bool) {
	s := a.push(ScopeBlock, n)
	switch t := into.(type) {
	case *ast.ForIntoVar:
		a.expr(t.Binding.Initializer)
		a.pattern(t.Binding.Target, true)
		a.assignedDecl(t.Binding.Target)
	case *ast.ForDeclaration:
		kind := symbols.Let
		if t.IsConst {
			kind = symbols.Const
		}
		a.declareTarget(s, t.Target, kind, nil)
		if keys {
			for _, id := range BoundNames(t.Target) {
				if b := s.Bindings[id.Name.String()]; b != nil {
					b.Type = TypeString
				}
			}
		}
		a.pattern(t.Target, true)
	case *ast.ForIntoExpression:
		a.pattern(t.Expression, false)
	}
	a.expr(source)
	a.loop(body)
	a.pop()
}

func (a *analyzer) catch(c *ast.CatchStatement) {
	s := a.push(ScopeCatch, c)
	a.res.NodeScopes[c.Body] = s.ID
	if c.Parameter != nil {
		a.declareTarget(s, c.Parameter, symbols.CatchParam, nil)
		if id, ok := c.Parameter.(*ast.Identifier); ok {
			if b := s.Bindings[id.Name.String()]; b != nil {
				b.Type = TypeString
			}
		}
		a.pattern(c.Parameter, true)
	}
	a.declareLexical(s, c.Body.List)
	a.statements(c.Body.List)
	a.pop()
}

// binding visits a declarator: the initializer first, then the target.
func (a *analyzer) binding(b *ast.Binding) {
	a.expr(b.Initializer)
	a.pattern(b.Target, true)
	if b.Initializer != nil {
		a.assignedDecl(b.Target)
	}
}

// pattern visits a binding or assignment target. In declaring mode bare
// identifiers are declaration sites; otherwise they are writes.
func (a *analyzer) pattern(t ast.Expression, declaring bool) {
	if a.err != nil || t == nil {
		return
	}
	switch n := t.(type) {
	case *ast.Identifier:
		if declaring {
			a.declRef(n)
		} else {
			a.ref(n, useWrite)
		}
	case *ast.ArrayPattern:
		for _, el := range n.Elements {
			if el == nil {
				continue
			}
			a.pattern(el, declaring)
		}
		a.pattern(n.Rest, declaring)
	case *ast.ObjectPattern:
		for _, p := range n.Properties {
			switch p := p.(type) {
			case *ast.PropertyShort:
				if declaring {
					a.declRef(&p.Name)
				} else {
					a.ref(&p.Name, useWrite)
				}
				a.expr(p.Initializer)
			case *ast.PropertyKeyed:
				if p.Computed {
					a.expr(p.Key)
				}
				a.pattern(p.Value, declaring)
			}
		}
		a.pattern(n.Rest, declaring)
	case *ast.AssignExpression:
		// Target with a default value.
		a.pattern(n.Left, declaring)
		a.expr(n.Right)
	default:
		a.expr(t)
	}
}

func (a *analyzer) expr(e ast.Expression) {
	if a.err != nil || e == nil {
		return
	}

	switch n := e.(type) {
	case *ast.Identifier:
		a.ref(n, useRead)
	case *ast.AssignExpression:
		if n.Operator == token.ASSIGN {
			a.pattern(n.Left, false)
		} else if id, ok := n.Left.(*ast.Identifier); ok {
			a.ref(id, useReadWrite)
		} else {
			a.expr(n.Left)
		}
		a.expr(n.Right)
	case *ast.UnaryExpression:
		if n.Operator == token.INCREMENT || n.Operator == token.DECREMENT {
			if id, ok := n.Operand.(*ast.Identifier); ok {
				a.ref(id, useReadWrite)
				return
			}
		}
		a.expr(n.Operand)
	case *ast.BinaryExpression:
		a.expr(n.Left)
		a.expr(n.Right)
	case *ast.ConditionalExpression:
		a.expr(n.Test)
		a.expr(n.Consequent)
		a.expr(n.Alternate)
	case *ast.SequenceExpression:
		for _, x := range n.Sequence {
			a.expr(x)
		}
	case *ast.CallExpression:
		if id, ok := n.Callee.(*ast.Identifier); ok {
			a.ref(id, useCall)
		} else {
			a.expr(n.Callee)
		}
		for _, arg := range n.ArgumentList {
			a.expr(arg)
		}
	case *ast.NewExpression:
		a.expr(n.Callee)
		for _, arg := range n.ArgumentList {
			a.expr(arg)
		}
	case *ast.DotExpression:
		a.expr(n.Left)
	case *ast.PrivateDotExpression:
		a.expr(n.Left)
	case *ast.BracketExpression:
		a.expr(n.Left)
		a.expr(n.Member)
	case *ast.OptionalChain:
		a.expr(n.Expression)
	case *ast.Optional:
		a.expr(n.Expression)
	case *ast.ArrayLiteral:
		for _, v := range n.Value {
			a.expr(v)
		}
	case *ast.ObjectLiteral:
		for _, p := range n.Value {
			switch p := p.(type) {
			case *ast.PropertyShort:
				a.ref(&p.Name, useRead)
			case *ast.PropertyKeyed:
				if p.Computed {
					a.expr(p.Key)
				}
				a.expr(p.Value)
			case *ast.SpreadElement:
				a.expr(p.Expression)
			}
		}
	case *ast.SpreadElement:
		a.expr(n.Expression)
	case *ast.TemplateLiteral:
		a.expr(n.Tag)
		for _, x := range n.Expressions {
			a.expr(x)
		}
	case *ast.FunctionLiteral:
		a.functionExpression(n)
	case *ast.ArrowFunctionLiteral:
		a.function(n, n.ParameterList, n.Body, true)
	case *ast.ClassLiteral:
		a.class(n, false)
	case *ast.YieldExpression:
		a.expr(n.Argument)
	case *ast.AwaitExpression:
		a.expr(n.Argument)
	case *ast.ThisExpression:
		for fs := a.fn; fs != nil; fs = fs.outer {
			if fs.capture != nil {
				fs.capture.UsesThis = true
			}
			if !fs.arrow {
				break
			}
		}
	case *ast.MetaProperty:
		a.meta(n)
	case *ast.ArrayPattern, *ast.ObjectPattern:
		a.pattern(n, false)
	case *ast.BadExpression:
		a.fail(n, "Unexpected token")
	}
}

func (a *analyzer) meta(n *ast.MetaProperty) {
	if n.Meta.Name.String() == "import" {
		a.fail(n, "import.meta is not supported: every unit is compiled on its own")
		return
	}
	for fs := a.fn; fs != nil; fs = fs.outer {
		if _, top := fs.node.(*ast.Program); top {
			break
		}
		if !fs.arrow {
			return
		}
	}
	a.fail(n, "new.target expression is not allowed here")
}

// functionExpression gives a named function expression a scope of its own
// holding the name, so that self references are captures.
func (a *analyzer) functionExpression(fn *ast.FunctionLiteral) {
	if fn.Name == nil {
		a.function(fn, fn.ParameterList, fn.Body, false)
		return
	}
	s := a.push(ScopeBlock, fn.Name)
	if b := a.define(s, fn.Name, symbols.Implicit, fn); b != nil {
		b.Type = TypeFunction
		b.Box()
		a.fnValues[b] = fn
	}
	a.declRef(fn.Name)
	a.function(fn, fn.ParameterList, fn.Body, false)
	a.pop()
}

// function analyzes a function, method or arrow. Parameters and body share
// one scope.
func (a *analyzer) function(node ast.Node, params *ast.ParameterList, body ast.Node, arrow bool) {
	if a.err != nil {
		return
	}
	s := a.push(ScopeFunction, node)
	c := &FunctionCapture{Node: node, Scope: s.ID, Captured: make(map[string]*Binding)}
	a.res.Captures[node] = c
	a.fn = &funcState{node: node, capture: c, arrow: arrow, outer: a.fn}

	for _, p := range params.List {
		a.declareTarget(s, p.Target, symbols.Parameter, nil)
	}
	if params.Rest != nil {
		a.declareTarget(s, params.Rest, symbols.Parameter, nil)
	}
	block, isBlock := body.(*ast.BlockStatement)
	if isBlock {
		a.res.NodeScopes[block] = s.ID
		a.hoistBody(s, block.List)
	}
	if !arrow && s.Bindings["arguments"] == nil {
		s.Define("arguments", symbols.Implicit, node, 0)
	}

	for _, p := range params.List {
		a.pattern(p.Target, true)
		a.expr(p.Initializer)
	}
	a.pattern(params.Rest, true)

	if isBlock {
		a.statements(block.List)
	} else if eb, ok := body.(*ast.ExpressionBody); ok {
		a.expr(eb.Expression)
	}

	a.fn = a.fn.outer
	a.pop()
}

func (a *analyzer) class(c *ast.ClassLiteral, declared bool) {
	if a.err != nil {
		return
	}
	a.expr(c.SuperClass)

	named := !declared && c.Name != nil
	if named {
		s := a.push(ScopeBlock, c.Name)
		if b := a.define(s, c.Name, symbols.Implicit, c); b != nil {
			b.Type = TypeClass
		}
	}
	if c.Name != nil {
		a.declRef(c.Name)
	}

	s := a.push(ScopeClass, c)
	cc := &FunctionCapture{Node: c, Scope: s.ID, Captured: make(map[string]*Binding)}
	a.res.Captures[c] = cc
	a.fn = &funcState{node: c, capture: cc, outer: a.fn}

	for _, el := range c.Body {
		switch el := el.(type) {
		case *ast.FieldDefinition:
			if el.Computed {
				a.expr(el.Key)
			}
			a.expr(el.Initializer)
		case *ast.MethodDefinition:
			if el.Computed {
				a.expr(el.Key)
			}
			a.function(el.Body, el.Body.ParameterList, el.Body.Body, false)
		case *ast.ClassStaticBlock:
			a.staticBlock(el)
		}
	}

	a.fn = a.fn.outer
	a.pop()
	if named {
		a.pop()
	}
}

func (a *analyzer) staticBlock(el *ast.ClassStaticBlock) {
	s := a.push(ScopeFunction, el)
	a.res.NodeScopes[el.Block] = s.ID
	c := &FunctionCapture{Node: el, Scope: s.ID, Captured: make(map[string]*Binding)}
	a.res.Captures[el] = c
	a.fn = &funcState{node: el, capture: c, outer: a.fn}
	a.hoistBody(s, el.Block.List)
	a.statements(el.Block.List)
	a.fn = a.fn.outer
	a.pop()
}

// enum declares the members one at a time, so an initializer sees the
// members before it.
func (a *analyzer) enum(stmt *ast.EmptyStatement, e *frontend.Enum) {
	a.declRef(e.Name)
	s := a.push(ScopeEnum, stmt)
	for _, m := range e.Members {
		a.expr(m.Init)
		if Reserved[m.Name] {
			continue
		}
		if _, err := s.Define(m.Name, symbols.EnumMember, stmt, m.Idx); err != nil {
			a.fail(stmt, "Duplicate identifier '%s'", m.Name)
			return
		}
		s.Bindings[m.Name].Type = TypeNumber
	}
	a.pop()
}

// String renders the scope tree, one scope per line, for -vv logging.
func (r *Result) String() string {
	var out string
	var dump func(id ScopeID, depth int)
	dump = func(id ScopeID, depth int) {
		s := r.Scopes[id]
		if s.Kind != ScopeGlobal {
			line := fmt.Sprintf("%*s%s#%d", depth*2, "", s.Kind, s.ID)
			for _, b := range s.Order {
				mark := ""
				if b.NeedsHeapAllocation {
					mark = "*"
				}
				line += fmt.Sprintf(" %s%s:%s", b.Name, mark, b.Kind)
			}
			out += line + "\n"
			depth++
		}
		for _, c := range s.Children {
			dump(c, depth)
		}
	}
	if len(r.Scopes) > 0 {
		dump(0, 0)
	}
	return out
}
