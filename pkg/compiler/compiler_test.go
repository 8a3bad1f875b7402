package compiler

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/logger"
	"github.com/lcalzada-xor/jspp/pkg/models"
)

func quietLogger() *logger.Logger {
	l := logger.NewLogger(2)
	l.SetOutput(io.Discard)
	return l
}

// fixture is one archive of testdata/: an input and either the expected
// output fragments or the expected error.
type fixture struct {
	unit   models.SourceUnit
	expect []string
	kind   string
	errMsg string
}

func loadFixture(t *testing.T, path string) fixture {
	t.Helper()
	ar, err := txtar.ParseFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var fx fixture
	for _, f := range ar.Files {
		switch f.Name {
		case "input.js", "input.ts":
			fx.unit = models.SourceUnit{
				Name:     f.Name,
				Origin:   models.OriginFile,
				Language: models.LanguageOf(f.Name),
				Source:   f.Data,
			}
		case "expect.cpp":
			for _, line := range strings.Split(string(f.Data), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					fx.expect = append(fx.expect, line)
				}
			}
		case "error.txt":
			lines := strings.SplitN(strings.TrimSpace(string(f.Data)), "\n", 2)
			fx.kind = strings.TrimSpace(lines[0])
			if len(lines) > 1 {
				fx.errMsg = strings.TrimSpace(lines[1])
			}
		default:
			t.Fatalf("%s: unexpected file %s", path, f.Name)
		}
	}
	if fx.unit.Name == "" {
		t.Fatalf("%s: no input", path)
	}
	if fx.expect == nil && fx.kind == "" {
		t.Fatalf("%s: neither expect.cpp nor error.txt", path)
	}
	return fx
}

func TestCompile_Golden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.txtar"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no fixtures")
	}

	for _, path := range files {
		name := strings.TrimSuffix(filepath.Base(path), ".txtar")
		t.Run(name, func(t *testing.T) {
			fx := loadFixture(t, path)
			out, err := New(Options{}, quietLogger()).Compile(context.Background(), fx.unit)

			if fx.kind != "" {
				d, ok := diag.As(err)
				if !ok {
					t.Fatalf("Compile() error = %v, want %s", err, fx.kind)
				}
				if string(d.Kind) != fx.kind || !strings.Contains(d.Message, fx.errMsg) {
					t.Errorf("got %s: %s, want %s containing %q", d.Kind, d.Message, fx.kind, fx.errMsg)
				}
				if d.Pos.Line == 0 {
					t.Errorf("diagnostic has no position: %v", d)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}

			// Every fragment must appear, in order.
			rest := out.CPP
			for _, want := range fx.expect {
				i := strings.Index(rest, want)
				if i < 0 {
					t.Fatalf("missing %q after the previous fragment\n%s", want, out.CPP)
				}
				rest = rest[i+len(want):]
			}
		})
	}
}

func TestCompile_Output(t *testing.T) {
	src := models.SourceUnit{
		Name:     "app.js",
		Origin:   models.OriginFile,
		Language: models.LanguageJavaScript,
		Source:   []byte("let total = 0;\n[1, 2].forEach((n) => { total += n; });\nlet local = 1;\n"),
	}
	out, err := New(Options{LineDirectives: true, Header: "runtime/jspp.hpp"}, quietLogger()).Compile(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	if len(out.Boxed) != 1 || out.Boxed[0] != "total" {
		t.Errorf("Boxed = %v, want [total]", out.Boxed)
	}
	if out.Stats.Boxed != 1 || out.Stats.Bindings < 3 || out.Stats.Captures == 0 {
		t.Errorf("Stats = %+v", out.Stats)
	}
	for _, want := range []string{`#include "runtime/jspp.hpp"`, `#line 2 "app.js"`} {
		if !strings.Contains(out.CPP, want) {
			t.Errorf("output missing %q", want)
		}
	}

	var names []string
	for _, tm := range out.Timings {
		names = append(names, tm.Pass)
	}
	if strings.Join(names, ",") != "Parse,Analyze,Generate" {
		t.Errorf("Timings = %v", names)
	}
}

func TestCompile_Errors(t *testing.T) {
	c := New(Options{}, quietLogger())

	t.Run("invalid unit", func(t *testing.T) {
		_, err := c.Compile(context.Background(), models.SourceUnit{})
		if err == nil || !strings.Contains(err.Error(), "invalid unit") {
			t.Errorf("Compile() error = %v", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		unit := models.SourceUnit{Name: "a.js", Origin: models.OriginFile, Language: models.LanguageJavaScript, Source: []byte("1;")}
		if _, err := c.Compile(ctx, unit); err != context.Canceled {
			t.Errorf("Compile() error = %v, want context.Canceled", err)
		}
	})
}

func TestCompiler_Passes(t *testing.T) {
	got := New(Options{}, quietLogger()).Passes()
	if strings.Join(got, " ") != "Parse Analyze Generate" {
		t.Errorf("Passes() = %v", got)
	}
}
