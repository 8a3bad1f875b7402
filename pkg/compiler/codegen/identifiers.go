package codegen

import (
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/compiler/symbols"
)

// cppReserved holds C++ keywords and the macros a standard library header
// may define. A JS name in this set is emitted with a js_ prefix.
var cppReserved = map[string]bool{
	"alignas": true, "alignof": true, "and": true, "and_eq": true, "asm": true,
	"auto": true, "bitand": true, "bitor": true, "bool": true, "char": true,
	"char8_t": true, "char16_t": true, "char32_t": true, "compl": true,
	"concept": true, "consteval": true, "constexpr": true, "constinit": true,
	"const_cast": true, "decltype": true, "double": true, "dynamic_cast": true,
	"explicit": true, "extern": true, "float": true, "friend": true,
	"goto": true, "inline": true, "int": true, "long": true, "mutable": true,
	"namespace": true, "noexcept": true, "not": true, "not_eq": true,
	"nullptr": true, "operator": true, "or": true, "or_eq": true,
	"private": true, "protected": true, "public": true, "register": true,
	"reinterpret_cast": true, "requires": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "static_assert": true, "static_cast": true,
	"struct": true, "template": true, "thread_local": true, "typedef": true,
	"typeid": true, "typename": true, "union": true, "unsigned": true,
	"using": true, "virtual": true, "volatile": true, "wchar_t": true,
	"xor": true, "xor_eq": true,
	// Shared with JS but still reserved in C++ when used as a plain name.
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "default": true, "delete": true, "do": true, "else": true,
	"enum": true, "export": true, "false": true, "for": true, "if": true,
	"new": true, "return": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "void": true, "while": true,
	// The entry point.
	"main": true,
	// Macros.
	"NULL": true, "EOF": true, "errno": true, "assert": true, "stdin": true,
	"stdout": true, "stderr": true, "INFINITY": true, "NAN": true,
}

// mangle turns a JS identifier into a C++ identifier that cannot collide
// with generated names or the C++ language.
func mangle(name string) string {
	if cppReserved[name] {
		return "js_" + name
	}
	var b strings.Builder
	if strings.HasPrefix(name, "__") {
		b.WriteString("js")
	}
	for _, r := range name {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "_u%x_", r)
		}
	}
	return b.String()
}

// quote renders s as a C++ string literal. Bytes outside printable ASCII
// are written as three-digit octal escapes, which unlike \x cannot swallow
// the characters that follow.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '?':
			// Keeps "??" sequences away from older trigraph-aware compilers.
			b.WriteString(`\?`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// stringValue renders a JS string value.
func stringValue(s string) string {
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Sprintf("jspp::AnyValue::make_string(std::string(%s, %d))", quote(s), len(s))
	}
	return "jspp::AnyValue::make_string(" + quote(s) + ")"
}

// identifier emits a read of id.
func (g *Generator) identifier(id *ast.Identifier, ctx Context) string {
	name := id.Name.String()
	if m, ok := ctx.Enum[name]; ok {
		if r := g.res.References[id]; r == nil || r.Binding == nil || !r.Binding.IsBuiltin {
			return m
		}
	}
	ref := g.res.References[id]
	if ref == nil || ref.Binding == nil {
		return fmt.Sprintf("jspp::throw_unresolved_reference(%s)", quote(name))
	}
	b := ref.Binding
	if b.IsBuiltin {
		return builtin(name)
	}
	sym := g.symbol(ctx, b)
	if sym == nil {
		g.fail(diag.ReferenceError, id, "%s is not defined", name)
		return "jspp::Constants::UNDEFINED"
	}
	return g.load(sym)
}

func builtin(name string) string {
	switch name {
	case "undefined":
		return "jspp::Constants::UNDEFINED"
	case "NaN":
		return "jspp::Constants::NaN"
	case "Infinity":
		return "jspp::Constants::Infinity"
	}
	return "jspp::global::" + name
}

// assignIdentifier emits `id = value`. Writes to a const raise the
// immutable-assignment error after the value is computed.
func (g *Generator) assignIdentifier(id *ast.Identifier, value string, ctx Context) string {
	name := id.Name.String()
	ref := g.res.References[id]
	if ref == nil || ref.Binding == nil {
		return fmt.Sprintf("(%s, jspp::throw_unresolved_reference(%s))", discard(value), quote(name))
	}
	b := ref.Binding
	if b.IsBuiltin {
		if strings.HasPrefix(builtin(name), "jspp::Constants::") {
			// Non-writable globals ignore the write.
			return value
		}
		return fmt.Sprintf("(%s = %s)", builtin(name), value)
	}
	if b.IsConst {
		return fmt.Sprintf("(%s, jspp::throw_immutable_assignment(%s))", discard(value), quote(name))
	}
	sym := g.symbol(ctx, b)
	if sym == nil {
		g.fail(diag.ReferenceError, id, "%s is not defined", name)
		return value
	}
	return fmt.Sprintf("(%s = %s)", g.lvalue(sym), value)
}

// lvalue is the assignable form of a slot. Uninitialized lexical slots go
// through the checked accessors, which return a reference.
func (g *Generator) lvalue(sym *symbols.Symbol) string {
	if sym.Checked || !sym.Kind.Lexical() {
		return storage(sym)
	}
	return g.load(sym)
}

// identifierLvalue is the assignable form of id for update operators. It
// reports false when the target cannot be written.
func (g *Generator) identifierLvalue(id *ast.Identifier, ctx Context) (string, bool) {
	ref := g.res.References[id]
	if ref == nil || ref.Binding == nil {
		return fmt.Sprintf("jspp::throw_unresolved_reference(%s)", quote(id.Name.String())), false
	}
	b := ref.Binding
	if b.IsBuiltin {
		text := builtin(b.Name)
		return text, !strings.HasPrefix(text, "jspp::Constants::")
	}
	if b.IsConst {
		return fmt.Sprintf("jspp::throw_immutable_assignment(%s)", quote(b.Name)), false
	}
	sym := g.symbol(ctx, b)
	if sym == nil {
		return "jspp::Constants::UNDEFINED", false
	}
	return g.lvalue(sym), true
}

func discard(text string) string {
	return "(void)(" + text + ")"
}
