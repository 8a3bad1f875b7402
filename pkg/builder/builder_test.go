package builder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/lcalzada-xor/jspp/pkg/logger"
)

func quietLogger() *logger.Logger {
	l := logger.NewLogger(2)
	l.SetOutput(io.Discard)
	return l
}

// fakeCompiler writes a shell script that records its arguments next to
// itself and either creates the -o target or fails with a message.
func fakeCompiler(t *testing.T, fail bool) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake compiler is a shell script")
	}
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n"
	if fail {
		script += "echo 'main.cpp:1:1: error: expected expression' >&2\nexit 1\n"
	} else {
		script += "while [ $# -gt 0 ]; do if [ \"$1\" = \"-o\" ]; then shift; : > \"$1\"; fi; shift; done\n"
	}
	path := filepath.Join(dir, "fake-cxx")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path, argsFile
}

func TestBuilder_Build(t *testing.T) {
	cxx, argsFile := fakeCompiler(t, false)
	b := New(Options{CXX: cxx, Standard: "c++20", Flags: []string{"-O2"}, IncludeDirs: []string{"/opt/jspp/include"}}, quietLogger())

	dir := t.TempDir()
	src, err := b.WriteSource(context.Background(), dir, "app", "int main() {}\n")
	if err != nil {
		t.Fatalf("WriteSource() error = %v", err)
	}
	if src != filepath.Join(dir, "app.cpp") {
		t.Errorf("WriteSource() = %s", src)
	}
	bin := filepath.Join(dir, "app")
	if err := b.Build(context.Background(), src, bin); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, err := os.Stat(bin); err != nil {
		t.Errorf("binary not created: %v", err)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	want := "-std=c++20 -I/opt/jspp/include -O2 " + src + " -o " + bin
	if got := strings.TrimSpace(string(args)); got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestBuilder_BuildFailure(t *testing.T) {
	cxx, _ := fakeCompiler(t, true)
	b := New(Options{CXX: cxx}, quietLogger())

	dir := t.TempDir()
	src, err := b.WriteSource(context.Background(), dir, "bad", "nope")
	if err != nil {
		t.Fatal(err)
	}
	err = b.Build(context.Background(), src, filepath.Join(dir, "bad"))
	if !IsBuildError(err) {
		t.Fatalf("Build() error = %v, want *BuildError", err)
	}
	if !strings.Contains(err.Error(), "expected expression") {
		t.Errorf("error lacks compiler output: %v", err)
	}
}

func TestBuilder_MissingCompiler(t *testing.T) {
	b := New(Options{CXX: "jspp-no-such-compiler"}, quietLogger())
	err := b.Build(context.Background(), "a.cpp", "a")
	if err == nil || IsBuildError(err) {
		t.Fatalf("Build() error = %v, want lookup error", err)
	}
}

func TestBuilder_MissingFormatterIsIgnored(t *testing.T) {
	old := FormatterCommand
	FormatterCommand = "jspp-no-such-formatter"
	defer func() { FormatterCommand = old }()

	b := New(Options{Format: true}, quietLogger())
	path, err := b.WriteSource(context.Background(), t.TempDir(), "x", "int x;")
	if err != nil {
		t.Fatalf("WriteSource() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "int x;" {
		t.Errorf("content = %q, %v", data, err)
	}
}

func TestArgs_Defaults(t *testing.T) {
	b := New(Options{}, quietLogger())
	got := strings.Join(b.Args("a.cpp", "a"), " ")
	if got != "-std=c++23 a.cpp -o a" {
		t.Errorf("Args() = %q", got)
	}
}

func TestScratchDir(t *testing.T) {
	dir, err := ScratchDir()
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	if !strings.HasPrefix(filepath.Base(dir), "jspp-") {
		t.Errorf("ScratchDir() = %s", dir)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Errorf("not a directory: %v", err)
	}
}
