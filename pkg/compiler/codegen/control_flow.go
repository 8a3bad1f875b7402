package codegen

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

// Every loop, switch and labelled statement gets its own goto labels; break
// and continue never compile to their C++ keywords. A C++ break inside a
// generated callable or a nested switch would land somewhere else.

// body emits a statement inside an already open block.
func (g *Generator) body(st ast.Statement, ctx Context) {
	if b, ok := st.(*ast.BlockStatement); ok {
		g.blockBody(b, b.List, ctx)
		return
	}
	g.statement(st, ctx)
}

// nested emits a statement in a block of its own.
func (g *Generator) nested(st ast.Statement, ctx Context) {
	g.open("")
	g.body(st, ctx)
	g.close("")
}

func (g *Generator) ifStatement(n *ast.IfStatement, ctx Context) {
	g.open("if (%s)", g.test(n.Test, ctx))
	g.body(n.Consequent, ctx)
	if n.Alternate != nil {
		g.level--
		g.open("} else")
		g.body(n.Alternate, ctx)
	}
	g.close("")
}

func (g *Generator) loopTarget(labels []string) *jumpTarget {
	prefix := ""
	if len(labels) > 0 {
		prefix = mangle(labels[0]) + "_"
	}
	return &jumpTarget{
		labels:     labels,
		breakTo:    g.unique(prefix + "break"),
		continueTo: g.unique(prefix + "continue"),
		breakable:  true,
	}
}

func (g *Generator) whileStatement(n *ast.WhileStatement, labels []string, ctx Context) {
	t := g.loopTarget(labels)
	g.open("while (true)")
	g.line("if (!%s) break;", g.test(n.Test, ctx))
	g.nested(n.Body, ctx.pushTarget(t))
	g.line("%s: ;", t.continueTo)
	g.close("")
	g.line("%s: ;", t.breakTo)
}

func (g *Generator) doWhileStatement(n *ast.DoWhileStatement, labels []string, ctx Context) {
	t := g.loopTarget(labels)
	g.open("while (true)")
	g.nested(n.Body, ctx.pushTarget(t))
	g.line("%s: ;", t.continueTo)
	g.line("if (!%s) break;", g.test(n.Test, ctx))
	g.close("")
	g.line("%s: ;", t.breakTo)
}

// forStatement wraps the loop in a block holding the header bindings. Boxed
// let bindings get a fresh box, copied from the previous one, before the
// update runs, so closures of each iteration keep their own cell.
func (g *Generator) forStatement(n *ast.ForStatement, labels []string, ctx Context) {
	t := g.loopTarget(labels)
	g.open("")
	inner, s, _ := g.enterScope(n, ctx)
	g.hoist(s, nil, inner)

	var rebind []*symbols.Symbol
	switch init := n.Initializer.(type) {
	case *ast.ForLoopInitializerVarDeclList:
		for _, b := range init.List {
			if b.Initializer != nil {
				g.initialize(b.Target, b.Initializer, inner)
			}
		}
	case *ast.ForLoopInitializerLexicalDecl:
		decl := &init.LexicalDeclaration
		g.lexical(decl, inner)
		if decl.Token != token.CONST {
			for _, b := range decl.List {
				for _, id := range analysis.BoundNames(b.Target) {
					if sym, _ := g.declared(id, inner); sym != nil && sym.Boxed {
						rebind = append(rebind, sym)
					}
				}
			}
		}
	case *ast.ForLoopInitializerExpression:
		g.expressionStatement(init.Expression, inner)
	}

	g.open("while (true)")
	if n.Test != nil {
		g.line("if (!%s) break;", g.test(n.Test, inner))
	}
	g.nested(n.Body, inner.pushTarget(t))
	g.line("%s: ;", t.continueTo)
	for _, sym := range rebind {
		g.line("%s = std::make_shared<jspp::AnyValue>(*%s);", sym.Emitted, sym.Emitted)
	}
	if n.Update != nil {
		g.expressionStatement(n.Update, inner)
	}
	g.close("")
	g.close("")
	g.line("%s: ;", t.breakTo)
}

// labelled collects consecutive labels and hands them to the statement they
// name. A labelled non-loop statement only supports break.
func (g *Generator) labelled(n *ast.LabelledStatement, labels []string, ctx Context) {
	labels = append(labels[:len(labels):len(labels)], n.Label.Name.String())
	switch st := n.Statement.(type) {
	case *ast.LabelledStatement:
		g.labelled(st, labels, ctx)
	case *ast.ForStatement:
		g.forStatement(st, labels, ctx)
	case *ast.ForInStatement:
		g.forInOf(st, st.Into, st.Source, st.Body, true, labels, ctx)
	case *ast.ForOfStatement:
		g.forInOf(st, st.Into, st.Source, st.Body, false, labels, ctx)
	case *ast.WhileStatement:
		g.whileStatement(st, labels, ctx)
	case *ast.DoWhileStatement:
		g.doWhileStatement(st, labels, ctx)
	case *ast.SwitchStatement:
		g.switchStatement(st, labels, ctx)
	default:
		t := &jumpTarget{labels: labels, breakTo: g.unique(mangle(labels[0]) + "_break")}
		g.nested(st, ctx.pushTarget(t))
		g.line("%s: ;", t.breakTo)
	}
}

func (g *Generator) branch(n *ast.BranchStatement, ctx Context) {
	label := ""
	if n.Label != nil {
		label = n.Label.Name.String()
	}
	if n.Token == token.BREAK {
		t := ctx.findBreak(label)
		if t == nil {
			g.unsupported(n, "Illegal break statement")
			return
		}
		g.jump(t, t.breakTo, true, ctx)
		return
	}
	t := ctx.findContinue(label)
	if t == nil {
		g.unsupported(n, "Illegal continue statement: no surrounding iteration statement")
		return
	}
	g.jump(t, t.continueTo, false, ctx)
}

// jump transfers control to label of target t. Open for-of iterators
// between here and t are closed first. A jump that leaves the current try
// frame records a completion code and exits the frame instead; the frame
// re-issues the jump once its finally block has run.
func (g *Generator) jump(t *jumpTarget, label string, leaving bool, ctx Context) {
	for x := ctx.Targets; x != nil && x.try == ctx.Try; x = x.next {
		if x.iterator != "" && (x != t || leaving) {
			g.line("jspp::Access::close_iterator(%s);", x.iterator)
		}
		if x == t {
			break
		}
	}
	if t.try == ctx.Try {
		g.line("goto %s;", label)
		return
	}
	f := ctx.Try
	g.line("%s = %d;", f.completion, f.exit(t, label, leaving))
	g.leaveFrame(f)
}

// leaveFrame exits the body of a try frame towards its finally block.
func (g *Generator) leaveFrame(f *tryFrame) {
	switch {
	case f.finally != "":
		g.line("goto %s;", f.finally)
	case f.coroutine:
		g.line("co_return jspp::Constants::UNDEFINED;")
	default:
		g.line("return;")
	}
}

// switchStatement lowers to a chain of ifs keyed on a fall-through flag.
// Declarations in the cases share one scope whose initialization order
// cannot be tracked, so every read is checked.
func (g *Generator) switchStatement(n *ast.SwitchStatement, labels []string, ctx Context) {
	t := &jumpTarget{labels: labels, breakTo: g.unique("break"), breakable: true}
	disc := g.unique("disc")
	ft := g.unique("fallthrough")

	value := g.eval(n.Discriminant, ctx)
	g.open("")
	g.line("jspp::AnyValue %s = %s;", disc, value)
	inner, s, _ := g.enterScope(n, ctx)
	inner.NoCheck = true
	g.hoist(s, switchDeclarations(n), inner)
	inner = inner.pushTarget(t)
	g.line("bool %s = false;", ft)

	if n.Default < 0 || n.Default == len(n.Body)-1 {
		for _, c := range n.Body {
			if c.Test == nil {
				g.open("")
				g.line("%s = true;", ft)
				g.statements(c.Consequent, inner)
				g.close("")
				continue
			}
			test := g.eval(c.Test, inner)
			g.open("if (%s || jspp::Operators::strict_eq(%s, %s).is_truthy())", ft, disc, test)
			g.line("%s = true;", ft)
			g.statements(c.Consequent, inner)
			g.close("")
		}
	} else {
		// default comes before some case: pick the entry index first.
		sel := g.unique("selected")
		g.line("int %s = %d;", sel, n.Default)
		g.open("do")
		for i, c := range n.Body {
			if c.Test == nil {
				continue
			}
			test := g.eval(c.Test, inner)
			g.line("if (jspp::Operators::strict_eq(%s, %s).is_truthy()) { %s = %d; break; }", disc, test, sel, i)
		}
		g.close(" while (false);")
		for i, c := range n.Body {
			g.open("if (%s || %s == %d)", ft, sel, i)
			g.line("%s = true;", ft)
			g.statements(c.Consequent, inner)
			g.close("")
		}
	}
	g.close("")
	g.line("%s: ;", t.breakTo)
}
