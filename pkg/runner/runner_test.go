package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/lcalzada-xor/jspp/pkg/config"
	"github.com/lcalzada-xor/jspp/pkg/logger"
	"github.com/lcalzada-xor/jspp/pkg/models"
)

func quietLogger() *logger.Logger {
	l := logger.NewLogger(0)
	l.SetOutput(io.Discard)
	return l
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func decode(t *testing.T, out string) map[string]models.CompileResult {
	t.Helper()
	results := make(map[string]models.CompileResult)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var res models.CompileResult
		if err := json.Unmarshal([]byte(line), &res); err != nil {
			t.Fatalf("bad JSON line %q: %v", line, err)
		}
		results[filepath.Base(res.Unit)] = res
	}
	return results
}

func TestRunner_EmitOnly(t *testing.T) {
	src := t.TempDir()
	good := writeFile(t, src, "good.js", "let n = 0;\nconst inc = () => ++n;\ninc();\n")
	typed := writeFile(t, src, "typed.ts", "let x: number = 1;\nconsole.log(x);\n")
	bad := writeFile(t, src, "bad.js", "let ok = 1;\nlet std = 2;\n")

	var stdout bytes.Buffer
	opts := DefaultOptions()
	opts.EmitOnly = true
	opts.OutDir = t.TempDir()
	opts.OutputFormat = "json"
	opts.Stdout = &stdout

	stats, err := NewRunner(opts, quietLogger()).Run(context.Background(), []string{good, typed, bad})
	if err == nil || !strings.Contains(err.Error(), "1 of 3 unit(s) failed") {
		t.Fatalf("Run() error = %v", err)
	}
	if stats != (Stats{Units: 3, Compiled: 2, Failed: 1}) {
		t.Errorf("stats = %+v", stats)
	}

	results := decode(t, stdout.String())
	tests := []struct {
		name   string
		status models.Status
		boxed  []string
	}{
		{"good.js", models.StatusCompiled, []string{"n", "inc"}},
		{"typed.ts", models.StatusCompiled, nil},
		{"bad.js", models.StatusFailed, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := results[tt.name]
			if !ok {
				t.Fatalf("no result for %s in %s", tt.name, stdout.String())
			}
			if res.Status != tt.status {
				t.Errorf("status = %s, want %s", res.Status, tt.status)
			}
			for _, b := range tt.boxed {
				found := false
				for _, got := range res.Boxed {
					found = found || got == b
				}
				if !found {
					t.Errorf("boxed = %v, missing %s", res.Boxed, b)
				}
			}
			if res.RunID == "" {
				t.Error("missing run_id")
			}
			if tt.status == models.StatusCompiled {
				cpp, err := os.ReadFile(res.Output)
				if err != nil {
					t.Fatal(err)
				}
				if !strings.Contains(string(cpp), `#include "index.hpp"`) {
					t.Errorf("%s does not include the runtime header", res.Output)
				}
			}
		})
	}

	d := results["bad.js"].Diagnostic
	if d == nil {
		t.Fatal("bad.js has no diagnostic")
	}
	if d.Kind != "SyntaxError" || d.Line != 2 || !strings.Contains(d.Excerpt, "let std = 2;") {
		t.Errorf("diagnostic = %+v", d)
	}
}

func TestRunner_Build(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	tools := t.TempDir()
	cxx := filepath.Join(tools, "fake-cxx")
	script := "#!/bin/sh\nwhile [ $# -gt 0 ]; do if [ \"$1\" = \"-o\" ]; then shift; : > \"$1\"; fi; shift; done\n"
	if err := os.WriteFile(cxx, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	src := t.TempDir()
	a := writeFile(t, src, "main.js", "console.log(1);\n")
	sub := filepath.Join(src, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	b := writeFile(t, sub, "main.js", "console.log(2);\n")

	var stdout bytes.Buffer
	opts := DefaultOptions()
	opts.CXX = cxx
	opts.OutDir = t.TempDir()
	opts.OutputFormat = "path"
	opts.Concurrency = 1
	opts.Stdout = &stdout

	stats, err := NewRunner(opts, quietLogger()).Run(context.Background(), []string{a, b})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if stats.Built != 2 || stats.Compiled != 2 {
		t.Errorf("stats = %+v", stats)
	}
	got := strings.Fields(stdout.String())
	want := []string{filepath.Join(opts.OutDir, "main"), filepath.Join(opts.OutDir, "main_1")}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("paths = %v, want %v", got, want)
	}
}

func TestRunner_Errors(t *testing.T) {
	tests := []struct {
		name   string
		format string
		inputs []string
		want   string
	}{
		{"unknown format", "url", []string{"a.js"}, "unknown output format"},
		{"no inputs", "human", nil, "no inputs"},
		{"missing file", "human", []string{filepath.Join(t.TempDir(), "missing.js")}, "1 of 1 unit(s) failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.OutputFormat = tt.format
			opts.EmitOnly = true
			opts.OutDir = t.TempDir()
			opts.Stdout = io.Discard
			_, err := NewRunner(opts, quietLogger()).Run(context.Background(), tt.inputs)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestRunner_StatsCountEveryUnit(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		good        int
		missing     int
	}{
		{"single worker", 1, 3, 2},
		{"more workers than units", 8, 2, 1},
		{"only load failures", 4, 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := t.TempDir()
			var inputs []string
			for i := 0; i < tt.good; i++ {
				inputs = append(inputs, writeFile(t, src, fmt.Sprintf("u%d.js", i), "console.log(1);\n"))
			}
			for i := 0; i < tt.missing; i++ {
				inputs = append(inputs, filepath.Join(src, fmt.Sprintf("missing%d.js", i)))
			}

			opts := DefaultOptions()
			opts.EmitOnly = true
			opts.OutDir = t.TempDir()
			opts.Concurrency = tt.concurrency
			opts.Stdout = io.Discard
			stats, err := NewRunner(opts, quietLogger()).Run(context.Background(), inputs)

			want := Stats{Units: tt.good + tt.missing, Compiled: tt.good, Failed: tt.missing}
			if stats != want {
				t.Errorf("stats = %+v, want %+v", stats, want)
			}
			if tt.missing > 0 && (err == nil || !strings.Contains(err.Error(), fmt.Sprintf("%d of %d unit(s) failed", want.Failed, want.Units))) {
				t.Errorf("Run() error = %v", err)
			}
		})
	}
}

func TestRunner_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.EmitOnly = true
	opts.OutDir = t.TempDir()
	opts.Stdout = io.Discard
	in := writeFile(t, t.TempDir(), "a.js", "1;")
	_, err := NewRunner(opts, quietLogger()).Run(ctx, []string{in})
	if err == nil || !strings.Contains(err.Error(), "interrupted") {
		t.Errorf("Run() error = %v, want interruption", err)
	}
}

func TestOptions_ApplyProject(t *testing.T) {
	p := &config.Project{
		OutDir:      "/p/out",
		EmitOnly:    true,
		Concurrency: 8,
		Compiler: config.CompilerConfig{
			CXX:         "clang++",
			Std:         "c++20",
			Flags:       []string{"-O2"},
			IncludeDirs: []string{"/p/include"},
		},
		Fetch: config.FetchConfig{Timeout: 3 * time.Second, RateLimit: 2, Proxy: "http://proxy"},
	}

	tests := []struct {
		name  string
		set   map[string]bool
		check func(t *testing.T, o *Options)
	}{
		{
			name: "project overrides defaults",
			set:  map[string]bool{},
			check: func(t *testing.T, o *Options) {
				if o.CXX != "clang++" || o.Standard != "c++20" || o.Concurrency != 8 || !o.EmitOnly {
					t.Errorf("options = %+v", o)
				}
				if o.Timeout != 3*time.Second || o.RateLimit != 2 || o.Proxy != "http://proxy" {
					t.Errorf("fetch options = %+v", o)
				}
				if len(o.Flags) != 1 || len(o.IncludeDirs) != 1 || o.OutDir != "/p/out" {
					t.Errorf("build options = %+v", o)
				}
			},
		},
		{
			name: "explicit flags win",
			set:  map[string]bool{"compiler": true, "concurrency": true, "out": true},
			check: func(t *testing.T, o *Options) {
				if o.CXX != config.DefaultCompiler || o.Concurrency != config.DefaultConcurrency || o.OutDir != "" {
					t.Errorf("options = %+v", o)
				}
				if o.Standard != "c++20" {
					t.Errorf("Standard = %s, want the project value", o.Standard)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := DefaultOptions()
			o.ApplyProject(p, tt.set)
			tt.check(t, o)
		})
	}
}
