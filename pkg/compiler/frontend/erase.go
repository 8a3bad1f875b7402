package frontend

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dop251/goja/file"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
)

// EraseOptions selects what Erase removes.
type EraseOptions struct {
	// TypeScript enables type erasure. Without it only `for await` is rewritten.
	TypeScript bool
}

// Erased is the goja-parseable copy of a unit. Source has the same length and
// the same newlines as the input, so every offset still points at the
// original text.
type Erased struct {
	Source     []byte
	Enums      []*EnumDecl
	AsyncLoops []int // offsets of the `for` keyword of every `for await`
}

// EnumDecl is an enum declaration lifted out of the source. Offset is where
// the placeholder `;` was written.
type EnumDecl struct {
	Offset     int
	Name       string
	NameOffset int
	Const      bool
	Members    []EnumMemberDecl
}

// EnumMemberDecl is one member. Init is empty when the member has no
// initializer; EqOffset is the offset of its `=` sign.
type EnumMemberDecl struct {
	Name       string
	Offset     int
	Init       string
	InitOffset int
	EqOffset   int
}

// Node types that are removed wholesale in TypeScript mode.
var typeOnlyNodes = map[string]bool{
	"type_annotation":           true,
	"type_predicate_annotation": true,
	"asserts_annotation":        true,
	"opting_type_annotation":    true,
	"omitting_type_annotation":  true,
	"adding_type_annotation":    true,
	"type_parameters":           true,
	"type_arguments":            true,
	"interface_declaration":     true,
	"type_alias_declaration":    true,
	"ambient_declaration":       true,
	"implements_clause":         true,
	"accessibility_modifier":    true,
	"override_modifier":         true,
	"abstract_method_signature": true,
	"function_signature":        true,
	"method_signature":          true,
	"index_signature":           true,
}

// Nodes whose anonymous `?` child is an optional marker.
var optionalMarkers = map[string]bool{
	"optional_parameter":      true,
	"public_field_definition": true,
	"method_definition":       true,
	"property_signature":      true,
}

type eraser struct {
	name string
	src  []byte
	out  []byte
	ts   bool
	res  *Erased
	err  error
}

// Erase parses src with the tree-sitter TypeScript grammar and blanks the
// syntax goja does not understand.
func Erase(ctx context.Context, name string, src []byte, opts EraseOptions) (*Erased, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(typescript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	e := &eraser{
		name: name,
		src:  src,
		out:  append([]byte(nil), src...),
		ts:   opts.TypeScript,
		res:  &Erased{},
	}
	e.visit(tree.RootNode())
	if e.err != nil {
		return nil, e.err
	}
	e.res.Source = e.out
	return e.res, nil
}

func (e *eraser) fail(n *sitter.Node, format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	p := n.StartPoint()
	e.err = &diag.Error{
		Kind:    diag.SyntaxError,
		Message: fmt.Sprintf(format, args...),
		Pos:     file.Position{Filename: e.name, Line: int(p.Row) + 1, Column: int(p.Column) + 1},
	}
}

// blank overwrites [start, end) with spaces, keeping line breaks.
func (e *eraser) blank(start, end uint32) {
	for i := start; i < end && int(i) < len(e.out); i++ {
		if c := e.out[i]; c != '\n' && c != '\r' {
			e.out[i] = ' '
		}
	}
}

func (e *eraser) blankNode(n *sitter.Node) {
	e.blank(n.StartByte(), n.EndByte())
}

// blankTokens blanks every anonymous child of n whose type is in types.
func (e *eraser) blankTokens(n *sitter.Node, types ...string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		for _, t := range types {
			if c.Type() == t {
				e.blankNode(c)
			}
		}
	}
}

func hasToken(n *sitter.Node, typ string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == typ {
			return true
		}
	}
	return false
}

func (e *eraser) visit(n *sitter.Node) {
	if e.err != nil || n == nil {
		return
	}

	switch n.Type() {
	case "import_statement":
		e.fail(n, "import declarations are not supported: every unit is compiled on its own")
		return
	case "decorator":
		e.fail(n, "decorators are not supported")
		return
	case "for_in_statement":
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c.Type() == "await" {
				e.blankNode(c)
				e.res.AsyncLoops = append(e.res.AsyncLoops, int(n.StartByte()))
				break
			}
		}
	}

	if e.ts && e.eraseTypes(n) {
		return
	}
	if !e.ts && n.Type() == "export_statement" {
		e.fail(n, "export declarations are not supported: every unit is compiled on its own")
		return
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		e.visit(n.Child(i))
	}
}

// eraseTypes handles TypeScript-only syntax on n. It reports whether n was
// consumed entirely.
func (e *eraser) eraseTypes(n *sitter.Node) bool {
	typ := n.Type()
	if typeOnlyNodes[typ] {
		e.blankNode(n)
		return true
	}
	if optionalMarkers[typ] {
		e.blankTokens(n, "?")
	}

	switch typ {
	case "internal_module", "module":
		e.fail(n, "namespaces are not supported")
		return true
	case "enum_declaration":
		e.liftEnum(n)
		return true
	case "export_statement":
		if n.ChildByFieldName("source") != nil || hasToken(n, "=") {
			e.fail(n, "re-exports and export assignments are not supported: every unit is compiled on its own")
			return true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if n.Child(i).Type() == "export_clause" {
				e.blankNode(n)
				return true
			}
		}
		e.blankTokens(n, "export", "default")
	case "as_expression", "satisfies_expression":
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c.Type() == "as" || c.Type() == "satisfies" {
				e.blank(c.StartByte(), n.EndByte())
				e.visit(n.Child(0))
				return true
			}
		}
	case "non_null_expression":
		e.blankTokens(n, "!")
	case "variable_declarator":
		e.blankTokens(n, "!")
	case "abstract_class_declaration":
		e.blankTokens(n, "abstract")
	case "public_field_definition":
		if hasToken(n, "declare") || hasToken(n, "abstract") {
			e.blankNode(n)
			return true
		}
		e.blankTokens(n, "!", "readonly")
	case "required_parameter", "optional_parameter":
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c.Type() == "accessibility_modifier" || c.Type() == "readonly" || c.Type() == "override_modifier" {
				e.fail(n, "parameter properties are not supported")
				return true
			}
		}
		if p := n.ChildByFieldName("pattern"); p != nil && p.Type() == "this" {
			end := n.EndByte()
			if next := n.NextSibling(); next != nil && next.Type() == "," {
				end = next.EndByte()
			}
			e.blank(n.StartByte(), end)
			return true
		}
	}
	return false
}

func (e *eraser) liftEnum(n *sitter.Node) {
	decl := &EnumDecl{
		Offset: int(n.StartByte()),
		Const:  hasToken(n, "const"),
	}
	if id := n.ChildByFieldName("name"); id != nil {
		decl.Name = id.Content(e.src)
		decl.NameOffset = int(id.StartByte())
	}
	if body := n.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			m := body.NamedChild(i)
			switch m.Type() {
			case "comment":
				continue
			case "enum_assignment":
				member := EnumMemberDecl{}
				if key := m.ChildByFieldName("name"); key != nil {
					member.Name = memberName(key.Content(e.src))
					member.Offset = int(key.StartByte())
				}
				if val := m.ChildByFieldName("value"); val != nil {
					member.Init = val.Content(e.src)
					member.InitOffset = int(val.StartByte())
				}
				for j := 0; j < int(m.ChildCount()); j++ {
					if c := m.Child(j); c.Type() == "=" {
						member.EqOffset = int(c.StartByte())
					}
				}
				decl.Members = append(decl.Members, member)
			default:
				decl.Members = append(decl.Members, EnumMemberDecl{
					Name:   memberName(m.Content(e.src)),
					Offset: int(m.StartByte()),
				})
			}
		}
	}
	e.blankNode(n)
	e.out[n.StartByte()] = ';'
	e.res.Enums = append(e.res.Enums, decl)
}

// memberName strips the quotes of a string-named member.
func memberName(raw string) string {
	if len(raw) >= 2 && (raw[0] == '"' || raw[0] == '\'') && raw[len(raw)-1] == raw[0] {
		if raw[0] == '"' {
			if s, err := strconv.Unquote(raw); err == nil {
				return s
			}
		}
		return raw[1 : len(raw)-1]
	}
	return raw
}
