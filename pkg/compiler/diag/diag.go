// Package diag defines the compile-time errors raised while translating a unit
// and renders them as source excerpts with a caret under the offending column.
package diag

import (
	"errors"
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
)

// Kind is the error taxonomy tag shown in front of every message.
type Kind string

const (
	SyntaxError    Kind = "SyntaxError"
	ReferenceError Kind = "ReferenceError"
	TypeError      Kind = "TypeError"
)

// Error is a compile-time failure tied to a node of the unit being compiled.
type Error struct {
	Kind    Kind
	Message string
	Node    ast.Node
	Pos     file.Position
}

func (e *Error) Error() string {
	if e.Pos.Line == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	name := e.Pos.Filename
	if name == "" {
		name = "(anonymous)"
	}
	return fmt.Sprintf("%s: %s (%s:%d:%d)", e.Kind, e.Message, name, e.Pos.Line, e.Pos.Column)
}

// New builds an error positioned at node. f may be nil when the position is unknown.
func New(kind Kind, f *file.File, node ast.Node, format string, args ...interface{}) *Error {
	e := &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Node:    node,
	}
	if node != nil {
		e.Pos = Position(f, node.Idx0())
	}
	return e
}

// At builds an error positioned at a raw index.
func At(kind Kind, f *file.File, idx file.Idx, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Pos:     Position(f, idx),
	}
}

// Syntax is shorthand for New(SyntaxError, ...).
func Syntax(f *file.File, node ast.Node, format string, args ...interface{}) *Error {
	return New(SyntaxError, f, node, format, args...)
}

// Position resolves idx against f. Indexes are 1-based offsets into the file.
func Position(f *file.File, idx file.Idx) file.Position {
	if f == nil || idx <= 0 {
		return file.Position{}
	}
	return f.Position(int(idx) - f.Base())
}

// FromParser converts goja parser failures. Only the first error of a list is
// kept: later ones are usually cascades of the first.
func FromParser(err error) error {
	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return &Error{Kind: SyntaxError, Message: list[0].Message, Pos: list[0].Position}
	}
	var single *parser.Error
	if errors.As(err, &single) {
		return &Error{Kind: SyntaxError, Message: single.Message, Pos: single.Position}
	}
	return err
}

// As reports whether err is, or wraps, a compile error.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
