package codegen

import (
	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

// Context is copied on every recursive call. Children override fields on
// their copy and never write through to the parent.
type Context struct {
	Scope    analysis.ScopeID
	Function ast.Node

	Targets *jumpTarget

	InGenerator   bool
	InAsync       bool
	ReturnAllowed bool
	Return        *returnSlot

	// SuperClass is the C++ expression holding the parent class.
	SuperClass  string
	StaticSuper bool
	// FieldInit names the instance field initializer of the class whose
	// constructor is being emitted.
	FieldInit string

	Globals *symbols.Table
	Locals  *symbols.Table

	// Try is the innermost try/finally being emitted in this function.
	Try *tryFrame

	// Enum maps member names to their storage inside enum initializers.
	Enum map[string]string

	// NoCheck disables initialization tracking, for code whose textual
	// order does not match its execution order.
	NoCheck bool

	chain *chainState
}

// returnSlot describes how a return statement is emitted.
type returnSlot struct {
	kind   returnKind
	flag   string // has-returned flag of a try frame
	result string // result slot of a try frame
}

type returnKind int

const (
	returnPlain returnKind = iota
	returnCoroutine
	returnTry // inside a try frame: store, flag and leave the frame
)

// jumpTarget is one entry of the break/continue stack, an immutable list.
type jumpTarget struct {
	labels     []string
	breakTo    string
	continueTo string // empty unless the target is a loop
	breakable  bool   // an unlabelled break may stop here
	iterator   string // open iterator of a for-in/of loop
	try        *tryFrame
	next       *jumpTarget
}

// tryFrame is a try/finally being emitted. Jumps that leave it are recorded
// as completion codes and dispatched after the finally block.
type tryFrame struct {
	completion string
	finally    string // non-empty in goto mode
	coroutine  bool
	exits      []tryExit
	outer      *tryFrame
}

type tryExit struct {
	code    int
	target  *jumpTarget
	label   string
	leaving bool
}

// exit records a jump to label that leaves the frame and returns its code.
func (f *tryFrame) exit(t *jumpTarget, label string, leaving bool) int {
	for _, e := range f.exits {
		if e.label == label {
			return e.code
		}
	}
	code := len(f.exits) + 1
	f.exits = append(f.exits, tryExit{code: code, target: t, label: label, leaving: leaving})
	return code
}

// chainState collects the short-circuit tests of an optional chain.
type chainState struct {
	tests []string
}

func (c Context) pushTarget(t *jumpTarget) Context {
	t.try = c.Try
	t.next = c.Targets
	c.Targets = t
	return c
}

// findBreak returns the target of a break with the given label, or of an
// unlabelled break when label is empty.
func (c Context) findBreak(label string) *jumpTarget {
	for t := c.Targets; t != nil; t = t.next {
		if label == "" {
			if t.breakable {
				return t
			}
			continue
		}
		if t.hasLabel(label) {
			return t
		}
	}
	return nil
}

func (c Context) findContinue(label string) *jumpTarget {
	for t := c.Targets; t != nil; t = t.next {
		if t.continueTo == "" {
			continue
		}
		if label == "" || t.hasLabel(label) {
			return t
		}
	}
	return nil
}

func (t *jumpTarget) hasLabel(name string) bool {
	for _, l := range t.labels {
		if l == name {
			return true
		}
	}
	return false
}

// suspendable reports whether the code being emitted runs in a coroutine
// body, where co_await and co_yield are legal.
func (c Context) suspendable() bool {
	return c.InGenerator || c.InAsync
}
