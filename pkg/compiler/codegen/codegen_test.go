package codegen

import (
	"context"
	"strings"
	"testing"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/compiler/frontend"
)

func generate(t *testing.T, name, src string) (string, error) {
	t.Helper()
	u, err := frontend.Parse(context.Background(), name, []byte(src), frontend.Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	res, err := analysis.Analyze(u)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	return New(u, res, Options{}).Generate()
}

func TestGenerate_Lowering(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		src     string
		want    []string
		notWant []string
	}{
		{
			name: "lexical slot and builtin call",
			src:  "let x = 1;\nconsole.log(x);\n",
			want: []string{
				`#include "index.hpp"`,
				"jspp::AnyValue x = jspp::Constants::UNINITIALIZED;",
				"x = jspp::AnyValue::make_number(1.0);",
				`jspp::global::console.call_own_property("log", std::vector<jspp::AnyValue>{x});`,
				"jspp::Scheduler::instance().run();",
			},
			notWant: []string{"deref_stack(x"},
		},
		{
			name: "captured let is boxed and checked across the boundary",
			src:  "function counter() { let c = 0; return () => ++c; }\ncounter();\n",
			want: []string{
				"auto c = std::make_shared<jspp::AnyValue>(jspp::Constants::UNINITIALIZED);",
				`jspp::Operators::pre_increment(jspp::Access::deref_ptr(c, "c"))`,
				"auto __counter_native_",
				"(jspp::Constants::UNDEFINED, std::vector<jspp::AnyValue>{});",
			},
			notWant: []string{"make_function(__counter_native_"},
		},
		{
			name: "function used as a value gets a wrapper",
			src:  "function f() {}\nconst g = f;\n",
			want: []string{`= jspp::AnyValue::make_function(__f_native_`},
		},
		{
			name: "const reassignment",
			src:  "const k = 1;\nk = 2;\n",
			want: []string{`jspp::throw_immutable_assignment("k")`},
		},
		{
			name: "unresolved names",
			src:  "typeof missing;\nmissing;\n",
			want: []string{
				`jspp::AnyValue::make_string("undefined")`,
				`jspp::throw_unresolved_reference("missing")`,
			},
		},
		{
			name: "identifier mangling",
			src:  "let __t = 1;\nlet int = 2;\n",
			want: []string{"jspp::AnyValue js__t = ", "jspp::AnyValue js_int = "},
		},
		{
			name: "numeric enum folds with reverse mapping",
			file: "enum.ts",
			src:  "enum E { A, B = 5, C }\n",
			want: []string{
				`.set_own_property("A", jspp::AnyValue::make_number(0.0));`,
				`.set_own_property("0", jspp::AnyValue::make_string("A"));`,
				`.set_own_property("B", jspp::AnyValue::make_number(5.0));`,
				`.set_own_property("C", jspp::AnyValue::make_number(6.0));`,
				`.set_own_property("6", jspp::AnyValue::make_string("C"));`,
			},
		},
		{
			name:    "string enum has no reverse mapping",
			file:    "enum.ts",
			src:     "enum S { X = \"x\" }\n",
			want:    []string{`.set_own_property("X", jspp::AnyValue::make_string("x"));`},
			notWant: []string{`jspp::AnyValue::make_string("X")`},
		},
		{
			name: "runtime enum member",
			file: "enum.ts",
			src:  "declare function f(): number;\nenum R { A = f(), B }\n",
			want: []string{
				"jspp::AnyValue __member_",
				".is_number()) __enum_",
				"jspp::Operators::add(__member_",
			},
		},
		{
			name: "class members",
			src:  "class A { #x = 1; get x() { return this.#x; } static s = 2; }\nnew A();\n",
			want: []string{
				"jspp::AnyValue::make_class(",
				`.define_getter("x", `,
				`__this.set_own_property("#x", jspp::AnyValue::make_number(1.0));`,
				`__this.set_own_property("s", jspp::AnyValue::make_number(2.0));`,
				`.construct(std::vector<jspp::AnyValue>{}, "A")`,
			},
		},
		{
			name: "derived class without constructor forwards arguments",
			src:  "class A {}\nclass B extends A {}\n",
			want: []string{`.call(__this, __args, "super");`, ".set_prototype("},
		},
		{
			name: "for-of closes its iterator on break",
			src:  "for (const v of [1, 2]) { if (v) break; }\n",
			want: []string{
				"jspp::Access::get_object_value_iterator(",
				"jspp::Access::close_iterator(__it_",
				`.get_own_property("done").is_truthy()) break;`,
			},
		},
		{
			name: "for-in walks keys",
			src:  "for (const k in {a: 1}) {}\n",
			want: []string{"jspp::Access::get_object_keys_iterator("},
		},
		{
			name: "try finally runs the protected part in a callable",
			src:  "function f() { try { return 1; } finally { console.log(2); } }\nf();\n",
			want: []string{
				"-> void {",
				"std::rethrow_exception(",
				"catch (...)",
				"= true;",
			},
		},
		{
			name: "async function awaits",
			src:  "async function f() { await g(); }\nfunction g() {}\nf();\n",
			want: []string{"-> jspp::JsPromise {", "(co_await ", "jspp::AnyValue::from_promise("},
		},
		{
			name: "generator yields",
			src:  "function* gen() { yield 1; yield* [2]; }\ngen();\n",
			want: []string{
				"-> jspp::JsIterator<jspp::AnyValue> {",
				"(co_yield jspp::AnyValue::make_number(1.0))",
				"(co_yield jspp::Delegate{",
			},
		},
		{
			name: "switch keys on strict equality",
			src:  "let x = 1;\nswitch (x) { case 1: console.log(1); break; default: console.log(0); }\n",
			want: []string{"jspp::Operators::strict_eq(", "__fallthrough_"},
		},
		{
			name: "object rest",
			src:  "const {a, ...rest} = {a: 1, b: 2};\n",
			want: []string{"jspp::Access::object_rest(", `std::vector<jspp::AnyValue> __seen_`},
		},
		{
			name: "array pattern uses the iterator protocol",
			src:  "let [p, , q = 3] = [1, 2];\n",
			want: []string{"jspp::Access::get_object_value_iterator(", "if (!__done_"},
		},
		{
			name: "optional chain",
			src:  "let o = null;\no?.p;\n",
			want: []string{".is_null_or_undefined()", `.get_own_property("p")`},
		},
		{
			name: "template literal",
			src:  "let n = 1;\n`a${n}b`;\n",
			want: []string{"jspp::Operators::template_concat(std::vector<jspp::AnyValue>{"},
		},
		{
			name: "logical operators keep the left value",
			src:  "let a = 0;\nlet b = a || 2;\nlet c = a ?? 3;\n",
			want: []string{".is_truthy() ? ", ".is_null_or_undefined() ? "},
		},
		{
			name: "spread arguments",
			src:  "let xs = [1];\nMath.max(...xs, 2);\n",
			want: []string{"jspp::Access::spread_array(std::vector<jspp::Spread>{jspp::Spread{"},
		},
		{
			name: "regexp literal",
			src:  "let r = /a+/g;\n",
			want: []string{`jspp::AnyValue::make_regexp("a+", "g")`},
		},
		{
			name: "labelled continue",
			src:  "outer: for (let i = 0; i < 2; i++) { for (;;) { continue outer; } }\n",
			want: []string{"goto __outer_continue_"},
		},
		{
			name:    "percent signs in strings are copied as is",
			src:     "let s = \"100%d\";\nconsole.log(`${s}%s`);\n",
			want:    []string{`jspp::AnyValue::make_string("100%d")`, `jspp::AnyValue::make_string("%s")`},
			notWant: []string{"%!"},
		},
		{
			name: "var over a function declaration calls through the value",
			src:  "function f() { return 1; }\nvar f = 2;\nf();\n",
			want: []string{
				"= jspp::AnyValue::make_function(__f_native_",
				"jspp::AnyValue::make_number(2.0)",
				`.call(jspp::Constants::UNDEFINED, std::vector<jspp::AnyValue>{}, "f")`,
			},
			notWant: []string{"(jspp::Constants::UNDEFINED, std::vector<jspp::AnyValue>{});"},
		},
		{
			name: "for-in var over a function declaration calls through the value",
			src:  "function g() {}\nfor (var g in {a: 1}) {}\ng();\n",
			want: []string{`.call(jspp::Constants::UNDEFINED, std::vector<jspp::AnyValue>{}, "g")`},
		},
		{
			name: "coroutine frames own their callable",
			src:  "let total = 0;\nasync function run() { await null; total = total + 1; }\nrun();\n",
			want: []string{
				"[__body = std::make_shared<std::function<jspp::JsPromise(std::shared_ptr<void>, jspp::AnyValue, std::vector<jspp::AnyValue>)>>(",
				"[=](std::shared_ptr<void> __keep, jspp::AnyValue __this, std::vector<jspp::AnyValue> __args) -> jspp::JsPromise {",
				"return (*__body)(__body, std::move(__this), std::move(__args));",
				"jspp::AnyValue::from_promise(__run_native_",
			},
		},
		{
			name: "generator expression takes this by value",
			src:  "const o = { m() { const g = function* () { yield this; }; return g; } };\n",
			want: []string{"[=](std::shared_ptr<void> __keep, jspp::AnyValue __this, std::vector<jspp::AnyValue> __args) -> jspp::JsIterator<jspp::AnyValue> {"},
		},
		{
			name:    "main is an ordinary name",
			src:     "async function main() { await null; }\nmain();\n",
			want:    []string{"auto js_main = ", "auto __js_main_native_", "jspp::AnyValue::from_promise(__js_main_native_", "int main(int argc, char** argv)"},
			notWant: []string{"auto main ", "__main_native_"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := tt.file
			if file == "" {
				file = "test.js"
			}
			out, err := generate(t, file, tt.src)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q\n%s", w, out)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(out, w) {
					t.Errorf("output unexpectedly contains %q\n%s", w, out)
				}
			}
		})
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind diag.Kind
		msg  string
	}{
		{
			name: "for await outside async",
			src:  "function f(s) { for await (const x of s) {} }\n",
			kind: diag.SyntaxError,
			msg:  "for await is only valid in async functions",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := generate(t, "test.js", tt.src)
			d, ok := diag.As(err)
			if !ok {
				t.Fatalf("Generate() error = %v, want *diag.Error", err)
			}
			if d.Kind != tt.kind || !strings.Contains(d.Message, tt.msg) {
				t.Errorf("got %s: %s, want %s containing %q", d.Kind, d.Message, tt.kind, tt.msg)
			}
			if d.Pos.Line != 1 {
				t.Errorf("line = %d, want 1", d.Pos.Line)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	src := `
class P { constructor(x) { this.x = x; } get v() { return this.x; } }
function* g() { for (const v of [1, 2]) yield v; }
async function a() { try { await 1; } finally { console.log("done"); } }
const {x, ...r} = new P(1);
for (let i = 0; i < 3; i++) setTimeout(() => console.log(i), 0);
`
	first, err := generate(t, "det.js", src)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := generate(t, "det.js", src)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("run %d differs from the first", i+2)
		}
	}
}

func TestGenerate_SingleUse(t *testing.T) {
	u, err := frontend.Parse(context.Background(), "a.js", []byte("1;"), frontend.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := analysis.Analyze(u)
	if err != nil {
		t.Fatal(err)
	}
	g := New(u, res, Options{LineDirectives: true})
	out, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `#line 1 "a.js"`) {
		t.Errorf("missing #line directive:\n%s", out)
	}
	if _, err := g.Generate(); err != ErrUsed {
		t.Errorf("second Generate() error = %v, want ErrUsed", err)
	}
}

func TestMangle(t *testing.T) {
	tests := map[string]string{
		"x":       "x",
		"int":     "js_int",
		"__proto": "js__proto",
		"café":    "caf_ue9_",
		"$el":     "_u24_el",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := mangle(in); got != want {
				t.Errorf("mangle(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`a"b`, `"a\"b"`},
		{"line\n", `"line\n"`},
		{"??", `"\?\?"`},
		{"é", `"\303\251"`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := quote(tt.in); got != tt.want {
				t.Errorf("quote(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestCppDouble(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0.5, "0.5"},
		{1e21, "1e+21"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := cppDouble(tt.in); got != tt.want {
				t.Errorf("cppDouble(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}
