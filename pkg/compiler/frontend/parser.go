// Package frontend turns source text into the goja AST the analyzer and the
// code generator walk. TypeScript syntax is erased in place first, so every
// position reported later still points into the original file.
package frontend

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
	"github.com/dop251/goja/unistring"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
)

// Options controls parsing.
type Options struct {
	// TypeScript forces type erasure regardless of the file extension.
	TypeScript bool
}

// Unit is one parsed compilation unit.
type Unit struct {
	Name       string
	Source     string
	Program    *ast.Program
	File       *file.File
	Enums      map[file.Idx]*Enum
	AsyncLoops map[file.Idx]bool
}

// Enum is an enum declaration. Idx is the Semicolon of the empty statement
// that stands in for it in Program.
type Enum struct {
	Name    *ast.Identifier
	Const   bool
	Idx     file.Idx
	Members []*EnumMember
}

// EnumMember is one member; Init is nil without an initializer.
type EnumMember struct {
	Name   string
	Idx    file.Idx
	Init   ast.Expression
	Source string
}

// IsTypeScript reports whether name has a TypeScript extension.
func IsTypeScript(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ts", ".mts", ".cts":
		return true
	}
	return false
}

// Parse erases src and parses the result with goja.
func Parse(ctx context.Context, name string, src []byte, opts Options) (*Unit, error) {
	erased, err := Erase(ctx, name, src, EraseOptions{TypeScript: opts.TypeScript || IsTypeScript(name)})
	if err != nil {
		return nil, err
	}

	program, err := parser.ParseFile(nil, name, string(erased.Source), 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, diag.FromParser(err)
	}

	u := &Unit{
		Name:       name,
		Source:     string(src),
		Program:    program,
		File:       program.File,
		Enums:      make(map[file.Idx]*Enum, len(erased.Enums)),
		AsyncLoops: make(map[file.Idx]bool, len(erased.AsyncLoops)),
	}
	base := u.File.Base()

	for _, off := range erased.AsyncLoops {
		u.AsyncLoops[file.Idx(off+base)] = true
	}
	for _, decl := range erased.Enums {
		e, err := parseEnum(name, erased.Source, base, decl)
		if err != nil {
			return nil, err
		}
		u.Enums[e.Idx] = e
	}

	if err := validateRegExps(u.File, program); err != nil {
		return nil, err
	}
	for _, e := range u.Enums {
		for _, m := range e.Members {
			if m.Init == nil {
				continue
			}
			if err := validateRegExps(u.File, m.Init); err != nil {
				return nil, err
			}
		}
	}
	return u, nil
}

// parseEnum parses every member initializer on its own, in a copy of the
// erased source where everything but the initializer is blank. The copy
// keeps the line structure, so positions match the original text.
func parseEnum(name string, erased []byte, base int, decl *EnumDecl) (*Enum, error) {
	e := &Enum{
		Name: &ast.Identifier{
			Name: unistring.NewFromString(decl.Name),
			Idx:  file.Idx(decl.NameOffset + base),
		},
		Const: decl.Const,
		Idx:   file.Idx(decl.Offset + base),
	}

	for _, m := range decl.Members {
		member := &EnumMember{
			Name:   m.Name,
			Idx:    file.Idx(m.Offset + base),
			Source: m.Init,
		}
		if m.Init != "" {
			buf := make([]byte, len(erased))
			for i, c := range erased {
				if c == '\n' || c == '\r' {
					buf[i] = c
				} else {
					buf[i] = ' '
				}
			}
			buf[m.EqOffset] = '('
			copy(buf[m.InitOffset:], m.Init)
			end := m.InitOffset + len(m.Init)
			if end < len(buf) {
				buf[end] = ')'
			} else {
				buf = append(buf, ')')
			}

			prog, err := parser.ParseFile(nil, name, string(buf), 0, parser.WithDisableSourceMaps)
			if err != nil {
				return nil, diag.FromParser(err)
			}
			if len(prog.Body) != 1 {
				return nil, diag.At(diag.SyntaxError, prog.File, member.Idx, "Invalid initializer for enum member '%s'", m.Name)
			}
			stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
			if !ok {
				return nil, diag.At(diag.SyntaxError, prog.File, member.Idx, "Invalid initializer for enum member '%s'", m.Name)
			}
			member.Init = stmt.Expression
		}
		e.Members = append(e.Members, member)
	}
	return e, nil
}
