// Package codegen lowers an analyzed goja AST to C++ source for the jspp
// runtime. A Generator is single-use: it owns the indentation level, the
// unique-name counter and the symbol tables of one unit.
package codegen

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/compiler/frontend"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
	"github.com/lcalzada-xor/jspp/pkg/config"
)

// Options tunes the emitted text.
type Options struct {
	// Header is the runtime header included first. Defaults to
	// config.RuntimeHeader.
	Header string
	// LineDirectives emits #line before every top-level statement.
	LineDirectives bool
	// FoldBudget bounds the evaluation of each enum initializer.
	FoldBudget time.Duration
}

// ErrUsed is returned when Generate is called twice on one Generator.
var ErrUsed = errors.New("codegen: generator already used")

// Generator emits C++ for one unit.
type Generator struct {
	unit   *frontend.Unit
	res    *analysis.Result
	opts   Options
	folder *frontend.Folder

	buf     *strings.Builder
	level   int
	counter int
	temps   [][]string

	globals *symbols.Table
	syms    map[*analysis.Binding]*symbols.Symbol
	natives map[*ast.FunctionLiteral]*symbols.Symbol

	err  error
	used bool
}

// New creates a generator for unit. res must come from analysis.Analyze on
// the same unit.
func New(unit *frontend.Unit, res *analysis.Result, opts Options) *Generator {
	if opts.Header == "" {
		opts.Header = config.RuntimeHeader
	}
	folder := frontend.NewFolder()
	if opts.FoldBudget > 0 {
		folder.Budget = opts.FoldBudget
	}
	return &Generator{
		unit:    unit,
		res:     res,
		opts:    opts,
		folder:  folder,
		buf:     &strings.Builder{},
		syms:    make(map[*analysis.Binding]*symbols.Symbol),
		natives: make(map[*ast.FunctionLiteral]*symbols.Symbol),
	}
}

// Generate returns the translated unit.
func (g *Generator) Generate() (string, error) {
	if g.used {
		return "", ErrUsed
	}
	g.used = true
	g.program()
	if g.err != nil {
		return "", g.err
	}
	return g.buf.String(), nil
}

// fail records the first error. Emission continues so that callers do not
// need to check after every step; the output is discarded.
func (g *Generator) fail(kind diag.Kind, node ast.Node, format string, args ...interface{}) {
	if g.err == nil {
		g.err = diag.New(kind, g.unit.File, node, format, args...)
	}
}

func (g *Generator) unsupported(node ast.Node, format string, args ...interface{}) {
	g.fail(diag.SyntaxError, node, format, args...)
}

// Emission

func (g *Generator) indent() string {
	return strings.Repeat("    ", g.level)
}

func (g *Generator) line(format string, args ...interface{}) {
	g.buf.WriteString(g.indent())
	if len(args) == 0 {
		g.buf.WriteString(format)
	} else {
		fmt.Fprintf(g.buf, format, args...)
	}
	g.buf.WriteByte('\n')
}

// open writes head followed by a brace and indents.
func (g *Generator) open(format string, args ...interface{}) {
	if format == "" {
		g.line("{")
	} else {
		g.line(format+" {", args...)
	}
	g.level++
}

func (g *Generator) close(suffix string) {
	g.level--
	g.line("}%s", suffix)
}

// capture runs fn one level deeper into a scratch buffer and returns what it
// wrote.
func (g *Generator) capture(fn func()) string {
	saved := g.buf
	g.buf = &strings.Builder{}
	g.level++
	fn()
	g.level--
	out := g.buf.String()
	g.buf = saved
	return out
}

// braced renders head { body } as an expression fragment whose closing brace
// lines up with the current statement.
func (g *Generator) braced(head string, body func()) string {
	return head + " {\n" + g.capture(body) + g.indent() + "}"
}

func (g *Generator) unique(prefix string) string {
	g.counter++
	return fmt.Sprintf("__%s_%d", prefix, g.counter)
}

// Statement temporaries. Expressions that need a scratch value ask for one;
// the declarations are written before the statement that uses them.

func (g *Generator) begin() {
	g.temps = append(g.temps, nil)
}

func (g *Generator) end() {
	n := len(g.temps) - 1
	frame := g.temps[n]
	g.temps = g.temps[:n]
	if len(frame) > 0 {
		g.line("jspp::AnyValue %s;", strings.Join(frame, ", "))
	}
}

func (g *Generator) temp() string {
	name := g.unique("t")
	if len(g.temps) == 0 {
		g.begin()
	}
	n := len(g.temps) - 1
	g.temps[n] = append(g.temps[n], name)
	return name
}

// eval emits the temporaries e needs and returns its text.
func (g *Generator) eval(e ast.Expression, ctx Context) string {
	g.begin()
	text := g.expr(e, ctx)
	g.end()
	return text
}

// test evaluates e as a C++ condition.
func (g *Generator) test(e ast.Expression, ctx Context) string {
	return truthy(g.eval(e, ctx))
}

func truthy(text string) string {
	return "(" + text + ").is_truthy()"
}

// Symbols

// declare enters b into the current local layer.
func (g *Generator) declare(ctx Context, b *analysis.Binding) *symbols.Symbol {
	sym, _ := ctx.Locals.Declare(b.Name, b.Kind, b.Node)
	sym.Node = b.Node
	sym.Boxed = b.NeedsHeapAllocation
	sym.Emitted = mangle(b.Name)
	if !b.Kind.Lexical() {
		sym.Checked = true
	}
	g.syms[b] = sym
	return sym
}

// symbol finds the generation-time record of b as seen from ctx.
func (g *Generator) symbol(ctx Context, b *analysis.Binding) *symbols.Symbol {
	if s := ctx.Locals.Lookup(b.Name); s != nil && s.Node == b.Node {
		return s
	}
	return g.syms[b]
}

// storage is the raw lvalue of a slot, without initialization checks.
func storage(sym *symbols.Symbol) string {
	if sym.Boxed {
		return "(*" + sym.Emitted + ")"
	}
	return sym.Emitted
}

// load reads a slot, raising the ReferenceError for an uninitialized
// lexical binding unless initialization is already proven.
func (g *Generator) load(sym *symbols.Symbol) string {
	if sym.Checked || !sym.Kind.Lexical() {
		return storage(sym)
	}
	if sym.Boxed {
		return fmt.Sprintf("jspp::Access::deref_ptr(%s, %s)", sym.Emitted, quote(sym.Name))
	}
	return fmt.Sprintf("jspp::Access::deref_stack(%s, %s)", sym.Emitted, quote(sym.Name))
}

// initialized records that the slot of b now holds its value.
func (g *Generator) initialized(ctx Context, b *analysis.Binding) {
	if ctx.NoCheck || b == nil {
		return
	}
	if sym := g.symbol(ctx, b); sym != nil {
		sym.Checked = true
	}
}

// newSlot declares the C++ storage of a binding.
func (g *Generator) newSlot(sym *symbols.Symbol, init string) {
	if sym.Boxed {
		g.line("auto %s = std::make_shared<jspp::AnyValue>(%s);", sym.Emitted, init)
	} else {
		g.line("jspp::AnyValue %s = %s;", sym.Emitted, init)
	}
}

// scopeOf returns the analysis scope opened by node, or the current one.
func (g *Generator) scopeOf(node ast.Node, ctx Context) *analysis.Scope {
	if s, ok := g.res.ScopeOf(node); ok {
		return s
	}
	return g.res.Scope(ctx.Scope)
}

// enterScope opens the symbol layer for node, if the analyzer gave it a
// scope, and declares its bindings.
func (g *Generator) enterScope(node ast.Node, ctx Context) (Context, *analysis.Scope, bool) {
	s, ok := g.res.ScopeOf(node)
	if !ok {
		return ctx, nil, false
	}
	ctx.Scope = s.ID
	ctx.Locals = ctx.Locals.Enter(symbols.ScopeBlock)
	return ctx, s, true
}
