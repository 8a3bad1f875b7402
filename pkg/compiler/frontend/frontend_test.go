package frontend

import (
	"context"
	"strings"
	"testing"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
)

func sameShape(t *testing.T, in string, out []byte) {
	t.Helper()
	if len(out) != len(in) {
		t.Fatalf("length changed: %d -> %d", len(in), len(out))
	}
	for i := range in {
		if (in[i] == '\n') != (out[i] == '\n') {
			t.Fatalf("newline moved at offset %d", i)
		}
	}
}

func TestErase_TypeScript(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		absent []string
	}{
		{
			name:   "variable annotation",
			src:    "let x: number = 1;\n",
			absent: []string{"number", ":"},
		},
		{
			name:   "generic function",
			src:    "function id<T>(a: T, b?: string): T {\n  return a as T;\n}\n",
			absent: []string{"<T>", "string", " as ", "?"},
		},
		{
			name:   "interface and alias",
			src:    "interface P { x: number }\ntype Q = P | null;\nconst p = {x: 1};\n",
			absent: []string{"interface", "type Q"},
		},
		{
			name:   "class modifiers",
			src:    "abstract class A implements I {\n  private readonly x: number = 1;\n  abstract m(): void;\n  declare y: string;\n}\n",
			absent: []string{"abstract", "implements", "private", "readonly", "declare"},
		},
		{
			name:   "non-null and satisfies",
			src:    "let v = obj!.field satisfies Thing;\n",
			absent: []string{"!", "satisfies", "Thing"},
		},
		{
			name:   "export keyword",
			src:    "export function f() { return 1; }\n",
			absent: []string{"export"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Erase(context.Background(), "in.ts", []byte(tt.src), EraseOptions{TypeScript: true})
			if err != nil {
				t.Fatalf("Erase() error = %v", err)
			}
			sameShape(t, tt.src, res.Source)
			for _, a := range tt.absent {
				if strings.Contains(string(res.Source), a) {
					t.Errorf("erased source still contains %q:\n%s", a, res.Source)
				}
			}
			if _, err := parser.ParseFile(nil, "in.ts", string(res.Source), 0); err != nil {
				t.Errorf("erased source does not parse: %v\n%s", err, res.Source)
			}
		})
	}
}

func TestErase_ExactLayout(t *testing.T) {
	res, err := Erase(context.Background(), "in.ts", []byte("let x: number = 1;"), EraseOptions{TypeScript: true})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(res.Source), "let x         = 1;"; got != want {
		t.Errorf("Erase() = %q, want %q", got, want)
	}
}

func TestErase_JavaScriptUntouched(t *testing.T) {
	src := "const a = b < c;\nfunction f(x) { return x ? 1 : 2; }\nclass K { #p = 1; get p() { return this.#p; } }\n"
	res, err := Erase(context.Background(), "in.js", []byte(src), EraseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if string(res.Source) != src {
		t.Errorf("JavaScript input changed:\n%s", res.Source)
	}
}

func TestErase_ForAwait(t *testing.T) {
	src := "async function f(s) {\n  for await (const x of s) {}\n}\n"
	res, err := Erase(context.Background(), "in.js", []byte(src), EraseOptions{})
	if err != nil {
		t.Fatal(err)
	}
	sameShape(t, src, res.Source)
	if strings.Contains(string(res.Source), "await") {
		t.Errorf("await keyword survived: %s", res.Source)
	}
	want := strings.Index(src, "for")
	if len(res.AsyncLoops) != 1 || res.AsyncLoops[0] != want {
		t.Errorf("AsyncLoops = %v, want [%d]", res.AsyncLoops, want)
	}
}

func TestErase_Enum(t *testing.T) {
	src := "const enum Color { Red, Green = 4, 'Blue' }\n"
	res, err := Erase(context.Background(), "in.ts", []byte(src), EraseOptions{TypeScript: true})
	if err != nil {
		t.Fatal(err)
	}
	sameShape(t, src, res.Source)
	if res.Source[0] != ';' || strings.TrimSpace(string(res.Source)) != ";" {
		t.Errorf("enum placeholder = %q", res.Source)
	}
	if len(res.Enums) != 1 {
		t.Fatalf("Enums = %d, want 1", len(res.Enums))
	}
	e := res.Enums[0]
	if e.Name != "Color" || !e.Const {
		t.Errorf("enum = %+v", e)
	}
	if len(e.Members) != 3 {
		t.Fatalf("members = %+v", e.Members)
	}
	if e.Members[1].Name != "Green" || e.Members[1].Init != "4" {
		t.Errorf("member 1 = %+v", e.Members[1])
	}
	if e.Members[2].Name != "Blue" || e.Members[2].Init != "" {
		t.Errorf("member 2 = %+v", e.Members[2])
	}
}

func TestErase_Rejected(t *testing.T) {
	tests := []struct {
		name string
		src  string
		ts   bool
		msg  string
	}{
		{"import", "import x from 'y';\n", true, "import declarations"},
		{"import in js", "import 'y';\n", false, "import declarations"},
		{"namespace", "namespace N { export const a = 1; }\n", true, "namespaces"},
		{"parameter property", "class A { constructor(private x: number) {} }\n", true, "parameter properties"},
		{"re-export", "export { a } from './b';\n", true, "re-exports"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Erase(context.Background(), "in.ts", []byte(tt.src), EraseOptions{TypeScript: tt.ts})
			de, ok := diag.As(err)
			if !ok {
				t.Fatalf("Erase() error = %v, want a diagnostic", err)
			}
			if de.Kind != diag.SyntaxError || !strings.Contains(de.Message, tt.msg) {
				t.Errorf("diagnostic = %v", de)
			}
			if de.Pos.Line != 1 {
				t.Errorf("Line = %d, want 1", de.Pos.Line)
			}
		})
	}
}

func TestParse_EnumsAndLoops(t *testing.T) {
	src := "enum E { A, B = A << 2 }\nasync function f(s) { for await (const v of s) {} }\n"
	u, err := Parse(context.Background(), "main.ts", []byte(src), Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if u.Source != src {
		t.Errorf("Source must be the original text")
	}

	empty, ok := u.Program.Body[0].(*ast.EmptyStatement)
	if !ok {
		t.Fatalf("first statement = %T, want *ast.EmptyStatement", u.Program.Body[0])
	}
	e := u.Enums[empty.Semicolon]
	if e == nil {
		t.Fatalf("no enum keyed by the placeholder")
	}
	if e.Name.Name.String() != "E" {
		t.Errorf("enum name = %s", e.Name.Name)
	}
	bin, ok := e.Members[1].Init.(*ast.BinaryExpression)
	if !ok {
		t.Fatalf("B initializer = %T", e.Members[1].Init)
	}
	if pos := diag.Position(u.File, bin.Idx0()); pos.Line != 1 || pos.Column != strings.Index(src, "A <<")+1 {
		t.Errorf("initializer position = %v", pos)
	}

	fn := u.Program.Body[1].(*ast.FunctionDeclaration)
	loop := fn.Function.Body.List[0].(*ast.ForOfStatement)
	if !u.AsyncLoops[loop.For] {
		t.Errorf("for await loop not recorded")
	}
	if !u.Suspends(fn.Function.Body) {
		t.Errorf("Suspends() = false for a body with for await")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
		msg  string
	}{
		{"syntax", "let a = ;\n", 1, ""},
		{"bad regexp", "\nconst r = /(/;\n", 2, "Invalid regular expression"},
		{"bad flags", "const r = /a/gg;\n", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(context.Background(), "main.js", []byte(tt.src), Options{})
			de, ok := diag.As(err)
			if !ok {
				t.Fatalf("Parse() error = %v, want a diagnostic", err)
			}
			if de.Kind != diag.SyntaxError {
				t.Errorf("Kind = %s", de.Kind)
			}
			if de.Pos.Line != tt.line {
				t.Errorf("Line = %d, want %d", de.Pos.Line, tt.line)
			}
			if !strings.Contains(de.Message, tt.msg) {
				t.Errorf("Message = %q, want it to contain %q", de.Message, tt.msg)
			}
		})
	}
}

func TestValidateRegExp(t *testing.T) {
	tests := []struct {
		pattern string
		flags   string
		valid   bool
	}{
		{`^a+b*$`, "gi", true},
		{`(?<year>\d{4})-\d{2}`, "", true},
		{`(?<=\$)\d+`, "", true},
		{`[`, "", false},
		{`a`, "x", false},
		{`a`, "gg", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.flags, func(t *testing.T) {
			err := ValidateRegExp(tt.pattern, tt.flags)
			if (err == nil) != tt.valid {
				t.Errorf("ValidateRegExp() error = %v, valid = %v", err, tt.valid)
			}
		})
	}
}

func parseExpr(t *testing.T, src string) ast.Expression {
	t.Helper()
	prog, err := parser.ParseFile(nil, "", "("+src+")", 0)
	if err != nil {
		t.Fatal(err)
	}
	return prog.Body[0].(*ast.ExpressionStatement).Expression
}

func TestFolder_Fold(t *testing.T) {
	known := map[string]Constant{
		"A": {Number: 1},
		"S": {String: "s", IsString: true},
	}
	tests := []struct {
		src  string
		want Constant
		ok   bool
	}{
		{"A << 3", Constant{Number: 8}, true},
		{"-A + 0.5", Constant{Number: -0.5}, true},
		{"S + 'x'", Constant{String: "sx", IsString: true}, true},
		{"`t`", Constant{String: "t", IsString: true}, true},
		{"1 / 0", Constant{Number: posInf()}, true},
		{"Missing + 1", Constant{}, false},
		{"f()", Constant{}, false},
		{"A = 2", Constant{}, false},
	}

	f := NewFolder()
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, ok := f.Fold(parseExpr(t, tt.src), tt.src, known)
			if ok != tt.ok {
				t.Fatalf("Fold(%q) ok = %v, want %v", tt.src, ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("Fold(%q) = %+v, want %+v", tt.src, got, tt.want)
			}
		})
	}
}

func TestNumberKey(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{6, "6"},
		{-3, "-3"},
		{0.5, "0.5"},
		{1.25e-7, "1.25e-7"},
		{0.000001, "0.000001"},
		{1e21, "1e+21"},
		{123456789012, "123456789012"},
		{posInf(), "Infinity"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := NumberKey(tt.in); got != tt.want {
				t.Errorf("NumberKey(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func posInf() float64 {
	zero := 0.0
	return 1 / zero
}
