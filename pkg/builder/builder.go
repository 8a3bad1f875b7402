// Package builder writes translated units to disk and drives the native
// toolchain over them.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/jspp/pkg/config"
	"github.com/lcalzada-xor/jspp/pkg/logger"
)

// FormatterCommand is the external formatter run when Options.Format is set.
var FormatterCommand = "clang-format"

// Options configures the native build.
type Options struct {
	CXX         string
	Standard    string
	Flags       []string
	IncludeDirs []string
	// Format runs FormatterCommand over every written file.
	Format bool
}

// Builder runs the native compiler. It holds no per-unit state and may be
// shared by workers.
type Builder struct {
	opts Options
	log  *logger.Logger
}

// BuildError is a failed native compilation. Output is the compiler's
// combined stdout and stderr.
type BuildError struct {
	Source string
	Output string
	Err    error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("building %s: %v", e.Source, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *BuildError) Unwrap() error { return e.Err }

// New creates a builder, filling unset options with the defaults.
func New(opts Options, log *logger.Logger) *Builder {
	if opts.CXX == "" {
		opts.CXX = config.DefaultCompiler
	}
	if opts.Standard == "" {
		opts.Standard = config.DefaultStandard
	}
	return &Builder{opts: opts, log: log}
}

// ScratchDir creates a fresh jspp-<uuid> directory under the system temp dir.
func ScratchDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "jspp-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch directory: %w", err)
	}
	return dir, nil
}

// WriteSource writes cpp to dir/name.cpp and returns the path. When
// formatting is enabled the file is formatted in place.
func (b *Builder) WriteSource(ctx context.Context, dir, name, cpp string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".cpp")
	if err := os.WriteFile(path, []byte(cpp), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if b.opts.Format {
		b.FormatFile(ctx, path)
	}
	return path, nil
}

// FormatFile runs the formatter in place. A missing or failing formatter is
// reported and otherwise ignored: the unformatted file is still valid.
func (b *Builder) FormatFile(ctx context.Context, path string) {
	bin, err := exec.LookPath(FormatterCommand)
	if err != nil {
		b.log.V("Warning: %s not found, leaving %s unformatted", FormatterCommand, path)
		return
	}
	cmd := exec.CommandContext(ctx, bin, "-i", path)
	if out, err := cmd.CombinedOutput(); err != nil {
		b.log.Error("Warning: %s failed for %s: %v %s", FormatterCommand, path, err, strings.TrimSpace(string(out)))
		return
	}
	b.log.VV("Formatted %s", path)
}

// Args returns the compiler arguments for one translation.
func (b *Builder) Args(cppPath, binPath string) []string {
	args := []string{"-std=" + b.opts.Standard}
	for _, dir := range b.opts.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	args = append(args, b.opts.Flags...)
	return append(args, cppPath, "-o", binPath)
}

// Build compiles cppPath into binPath.
func (b *Builder) Build(ctx context.Context, cppPath, binPath string) error {
	bin, err := exec.LookPath(b.opts.CXX)
	if err != nil {
		return fmt.Errorf("native compiler %q: %w", b.opts.CXX, err)
	}
	args := b.Args(cppPath, binPath)
	b.log.VV("%s %s", b.opts.CXX, strings.Join(args, " "))

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &BuildError{Source: cppPath, Output: out.String(), Err: err}
	}
	return nil
}

// IsBuildError reports whether err is a failed native compilation.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
