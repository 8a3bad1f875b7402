package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lcalzada-xor/jspp/pkg/models"
)

func TestFormat(t *testing.T) {
	ok := models.CompileResult{
		RunID:    "run",
		Unit:     "app.ts",
		Language: models.LanguageTypeScript,
		Status:   models.StatusBuilt,
		Output:   "out/app.cpp",
		Binary:   "out/app",
		Boxed:    []string{"count"},
		Stats:    models.UnitStats{Scopes: 3, Bindings: 4, Boxed: 1},
	}
	failed := models.CompileResult{
		Unit:   "bad.js",
		Status: models.StatusFailed,
		Diagnostic: &models.Diagnostic{
			Kind:    "SyntaxError",
			Message: "The with statement is not supported",
			File:    "bad.js",
			Line:    2,
			Column:  1,
			Excerpt: "2 | with (o) {}\n    ^",
		},
	}

	tests := []struct {
		name   string
		res    models.CompileResult
		format string
		color  bool
		want   []string
	}{
		{"path prefers binary", ok, "path", false, []string{"out/app"}},
		{"human success", ok, "human", false, []string{"[+] app.ts built", "Boxed:      count", "3"}},
		{"human failure", failed, "human", false, []string{"[!] bad.js failed", "SyntaxError: The with statement", "bad.js:2:1", "with (o) {}"}},
		{"human colour", failed, "human", true, []string{"\x1b[38;5;196m"}},
		{"json", ok, "json", false, []string{`"unit":"app.ts"`, `"status":"built"`, `"boxed":["count"]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.res, tt.format, tt.color)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("Format() = %q, missing %q", got, w)
				}
			}
			if !tt.color && strings.Contains(got, "\x1b[") {
				t.Errorf("Format() has colour codes with colour off: %q", got)
			}
		})
	}
}

func TestFormat_PathSkipsFailures(t *testing.T) {
	if got := Format(models.CompileResult{Status: models.StatusFailed, Output: "x.cpp"}, "path", false); got != "" {
		t.Errorf("Format() = %q, want empty", got)
	}
}

func TestFormat_JSONRoundTrip(t *testing.T) {
	res := models.CompileResult{Unit: "a.js", Status: models.StatusFailed, Diagnostic: &models.Diagnostic{Kind: "ReferenceError", Message: "x is not defined"}}
	var back models.CompileResult
	if err := json.Unmarshal([]byte(Format(res, "json", false)), &back); err != nil {
		t.Fatal(err)
	}
	if back.Diagnostic == nil || back.Diagnostic.Kind != "ReferenceError" {
		t.Errorf("diagnostic lost: %+v", back)
	}
}

func TestValid(t *testing.T) {
	for _, f := range []string{"human", "json", "path"} {
		if !Valid(f) {
			t.Errorf("Valid(%q) = false", f)
		}
	}
	if Valid("url") {
		t.Error("Valid(url) = true")
	}
}
