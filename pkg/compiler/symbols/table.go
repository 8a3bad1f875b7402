// Package symbols holds the declared-symbol table the code generator threads
// through its emission contexts, and the declaration-kind vocabulary shared
// with the scope analyzer.
package symbols

import (
	"sort"

	"github.com/dop251/goja/ast"
)

// Kind is how a name was declared.
type Kind int

const (
	Var Kind = iota
	Let
	Const
	Function
	Class
	Enum
	Parameter
	CatchParam
	Builtin
	Implicit // arguments, class self names
	EnumMember
)

var kindNames = [...]string{
	Var:        "var",
	Let:        "let",
	Const:      "const",
	Function:   "function",
	Class:      "class",
	Enum:       "enum",
	Parameter:  "parameter",
	CatchParam: "catch",
	Builtin:    "builtin",
	Implicit:   "implicit",
	EnumMember: "enum member",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Lexical reports whether the kind has a temporal dead zone.
func (k Kind) Lexical() bool {
	return k == Let || k == Const || k == Class
}

// Conflicts reports whether declaring next in a scope that already holds
// existing is an early error. var and function may be repeated; anything
// lexical collides with everything.
func Conflicts(existing, next Kind) bool {
	if existing == Builtin || existing == Implicit {
		return false
	}
	if existing.Lexical() || next.Lexical() || existing == Enum || next == Enum {
		return true
	}
	if existing == CatchParam && next == Function {
		return true
	}
	return false
}

// ScopeType is the layer a table represents.
type ScopeType int

const (
	ScopeGlobal ScopeType = iota
	ScopeFunction
	ScopeBlock
)

// Features records generation-time facts about a function declaration.
type Features struct {
	Native    string   // name of the eagerly bound native callable
	Params    []string // declared parameter names, in order
	Async     bool
	Generator bool
	Wrapped   bool // a boxed dynamic wrapper exists
}

// Symbol is one declared name.
type Symbol struct {
	Name     string
	Kind     Kind
	Checked  bool // initialization already proven on this path
	Boxed    bool
	Node     ast.Node
	Emitted  string // C++ identifier holding the storage
	Features *Features
}

// Table is a single layer. Lookups fall through to Outer.
type Table struct {
	Scope   ScopeType
	Outer   *Table
	Symbols map[string]*Symbol
}

// New creates a layer on top of outer.
func New(scope ScopeType, outer *Table) *Table {
	return &Table{
		Scope:   scope,
		Outer:   outer,
		Symbols: make(map[string]*Symbol),
	}
}

// Declare adds name to this layer. Redeclaring a var or function returns
// the existing symbol; a lexical collision returns ErrRedeclared.
func (t *Table) Declare(name string, kind Kind, node ast.Node) (*Symbol, error) {
	if existing, ok := t.Symbols[name]; ok {
		if Conflicts(existing.Kind, kind) {
			return existing, &RedeclaredError{Name: name}
		}
		if kind == Function {
			existing.Kind = kind
			existing.Node = node
		}
		return existing, nil
	}
	s := &Symbol{Name: name, Kind: kind, Node: node, Emitted: name}
	t.Symbols[name] = s
	return s, nil
}

// Lookup walks the layers outward.
func (t *Table) Lookup(name string) *Symbol {
	for cur := t; cur != nil; cur = cur.Outer {
		if s, ok := cur.Symbols[name]; ok {
			return s
		}
	}
	return nil
}

// LookupLocal only checks this layer.
func (t *Table) LookupLocal(name string) *Symbol {
	return t.Symbols[name]
}

// MarkChecked records that name has been initialized. Only the nearest
// declaration is affected.
func (t *Table) MarkChecked(name string) {
	if s := t.Lookup(name); s != nil {
		s.Checked = true
	}
}

// Enter opens a child layer.
func (t *Table) Enter(scope ScopeType) *Table {
	return New(scope, t)
}

// Names returns the names declared in this layer, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.Symbols))
	for name := range t.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge flattens the visible chain of locals into a fresh function layer
// that sits directly on globals. Symbols are copied, so the nested context
// cannot disturb its parent. A nested function may run before its enclosing
// code finishes initializing, so initialization facts for lexical kinds are
// dropped.
func Merge(globals, locals *Table, scope ScopeType) *Table {
	merged := New(scope, globals)
	var chain []*Table
	for cur := locals; cur != nil && cur != globals; cur = cur.Outer {
		chain = append(chain, cur)
	}
	// Outermost first so inner declarations shadow outer ones.
	for i := len(chain) - 1; i >= 0; i-- {
		for name, s := range chain[i].Symbols {
			cp := *s
			if cp.Kind.Lexical() {
				cp.Checked = false
			}
			merged.Symbols[name] = &cp
		}
	}
	return merged
}

// RedeclaredError is returned by Declare on an illegal redeclaration.
type RedeclaredError struct {
	Name string
}

func (e *RedeclaredError) Error() string {
	return "Identifier '" + e.Name + "' has already been declared"
}
