package analysis

import (
	"sort"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"

	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

// ScopeID indexes Result.Scopes.
type ScopeID int

// NoScope is the parent of the root scope.
const NoScope ScopeID = -1

// ScopeKind defines the type of the scope
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeProgram
	ScopeFunction
	ScopeBlock
	ScopeCatch
	ScopeClass
	ScopeEnum
)

var scopeKindNames = [...]string{"global", "program", "function", "block", "catch", "class", "enum"}

func (k ScopeKind) String() string {
	if int(k) < len(scopeKindNames) {
		return scopeKindNames[k]
	}
	return "unknown"
}

// Boundary reports whether code in a scope of this kind runs in its own
// callable, so that reaching past it is a capture.
func (k ScopeKind) Boundary() bool {
	return k == ScopeFunction || k == ScopeClass
}

// Type is the coarse value type recorded for a binding.
type Type int

const (
	TypeAuto Type = iota
	TypeArray
	TypeFunction
	TypeString
	TypeNumber
	TypeObject
	TypeClass
)

var typeNames = [...]string{"auto", "array", "function", "string", "number", "object", "class"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "auto"
}

// Scope represents a lexical scope. Children own nothing: the arena in
// Result does.
type Scope struct {
	ID       ScopeID
	Parent   ScopeID
	Kind     ScopeKind
	Node     ast.Node
	Bindings map[string]*Binding
	Order    []*Binding
	Children []ScopeID
}

// Binding is everything the analyzer learned about one declared name.
type Binding struct {
	Name  string
	Kind  symbols.Kind
	Type  Type
	Node  ast.Node // declaring identifier, function or class literal
	Scope ScopeID
	Decl  file.Idx // position of the declaring identifier

	IsConst             bool
	IsBuiltin           bool
	IsParameter         bool
	NeedsHeapAllocation bool // monotonic
	IsClosure           bool

	// Captured is filled for function-valued bindings only.
	Captured map[string]*Binding

	Reads      int
	Writes     int
	ValueUses  int // references other than a same-function direct call
	CallUses   int // same-function callee references
	EarlyUse   bool
	Referenced bool
}

// Box marks the binding as heap allocated. Built-ins never move.
func (b *Binding) Box() {
	if !b.IsBuiltin {
		b.NeedsHeapAllocation = true
	}
}

// FunctionCapture describes what a function, arrow, class or static block
// reaches for outside its own scope.
type FunctionCapture struct {
	Node          ast.Node
	Scope         ScopeID
	IsClosure     bool
	Captured      map[string]*Binding
	UsesArguments bool
	UsesThis      bool
}

// Names returns the captured names, sorted.
func (c *FunctionCapture) Names() []string {
	names := make([]string, 0, len(c.Captured))
	for n := range c.Captured {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Reference is one resolved identifier occurrence. Binding is nil for names
// that resolve to nothing.
type Reference struct {
	Binding *Binding
	Crosses bool // the reference reaches past a function boundary
	Write   bool
	Decl    bool // the declaring occurrence itself
}

// Result is the output of Analyze.
type Result struct {
	Scopes     []*Scope
	Root       ScopeID
	NodeScopes map[ast.Node]ScopeID
	Captures   map[ast.Node]*FunctionCapture
	References map[*ast.Identifier]*Reference
}

// Scope returns the scope with the given id.
func (r *Result) Scope(id ScopeID) *Scope {
	if id < 0 || int(id) >= len(r.Scopes) {
		return nil
	}
	return r.Scopes[id]
}

// ScopeOf returns the scope opened by node.
func (r *Result) ScopeOf(node ast.Node) (*Scope, bool) {
	id, ok := r.NodeScopes[node]
	if !ok {
		return nil, false
	}
	return r.Scopes[id], true
}

// Lookup finds name starting at scope id, walking parents.
func (r *Result) Lookup(id ScopeID, name string) *Binding {
	for cur := id; cur != NoScope; cur = r.Scopes[cur].Parent {
		if b, ok := r.Scopes[cur].Bindings[name]; ok {
			return b
		}
	}
	return nil
}

// FunctionScope returns the nearest boundary or program scope at or above id.
func (r *Result) FunctionScope(id ScopeID) *Scope {
	for cur := id; cur != NoScope; cur = r.Scopes[cur].Parent {
		s := r.Scopes[cur]
		if s.Kind.Boundary() || s.Kind == ScopeProgram || s.Kind == ScopeGlobal {
			return s
		}
	}
	return nil
}

// Boxed returns every heap-allocated binding in scope order.
func (r *Result) Boxed() []*Binding {
	var out []*Binding
	for _, s := range r.Scopes {
		for _, b := range s.Order {
			if b.NeedsHeapAllocation {
				out = append(out, b)
			}
		}
	}
	return out
}

// Stats summarises the result for logging.
type Stats struct {
	Scopes   int
	Bindings int
	Boxed    int
	Closures int
}

func (r *Result) Stats() Stats {
	st := Stats{Scopes: len(r.Scopes)}
	for _, s := range r.Scopes {
		if s.Kind == ScopeGlobal {
			continue
		}
		st.Bindings += len(s.Order)
		for _, b := range s.Order {
			if b.NeedsHeapAllocation {
				st.Boxed++
			}
		}
	}
	for _, c := range r.Captures {
		if c.IsClosure {
			st.Closures++
		}
	}
	return st
}

func (r *Result) newScope(kind ScopeKind, parent ScopeID, node ast.Node) *Scope {
	s := &Scope{
		ID:       ScopeID(len(r.Scopes)),
		Parent:   parent,
		Kind:     kind,
		Node:     node,
		Bindings: make(map[string]*Binding),
	}
	r.Scopes = append(r.Scopes, s)
	if parent != NoScope {
		r.Scopes[parent].Children = append(r.Scopes[parent].Children, s.ID)
	}
	if node != nil {
		r.NodeScopes[node] = s.ID
	}
	return s
}

// Define creates a binding in s, or returns the existing one when the
// redeclaration is legal.
func (s *Scope) Define(name string, kind symbols.Kind, node ast.Node, decl file.Idx) (*Binding, error) {
	if b, ok := s.Bindings[name]; ok {
		if symbols.Conflicts(b.Kind, kind) {
			return b, &symbols.RedeclaredError{Name: name}
		}
		if kind == symbols.Function || b.Kind == symbols.Implicit || b.Kind == symbols.Builtin {
			b.Kind = kind
			b.Node = node
			b.Decl = decl
		}
		return b, nil
	}
	b := &Binding{
		Name:        name,
		Kind:        kind,
		Node:        node,
		Scope:       s.ID,
		Decl:        decl,
		IsConst:     kind == symbols.Const || kind == symbols.EnumMember,
		IsBuiltin:   kind == symbols.Builtin,
		IsParameter: kind == symbols.Parameter,
	}
	s.Bindings[name] = b
	s.Order = append(s.Order, b)
	return b, nil
}
