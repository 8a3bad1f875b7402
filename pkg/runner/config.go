package runner

import (
	"io"
	"time"

	"github.com/lcalzada-xor/jspp/pkg/config"
)

// Options holds all configuration options for the runner
type Options struct {
	// Compilation
	Concurrency    int
	TypeScript     bool
	LineDirectives bool

	// Remote inputs
	Timeout   time.Duration
	Proxy     string
	RateLimit int

	// Native build
	OutDir      string
	EmitOnly    bool
	CXX         string
	Standard    string
	Flags       []string
	IncludeDirs []string
	ClangFormat bool

	// Output
	OutputFormat string
	Verbose      bool
	VeryVerbose  bool
	Silent       bool
	NoColor      bool

	// Streams; nil means the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions returns a new Options struct with default values
func DefaultOptions() *Options {
	return &Options{
		Concurrency:  config.DefaultConcurrency,
		Timeout:      config.DefaultTimeout,
		RateLimit:    config.DefaultRateLimit,
		CXX:          config.DefaultCompiler,
		Standard:     config.DefaultStandard,
		OutputFormat: config.DefaultFormat,
	}
}

// ApplyProject copies project values into o. set holds the long names of
// the flags given on the command line; those keep their value.
func (o *Options) ApplyProject(p *config.Project, set map[string]bool) {
	if p == nil {
		return
	}
	if !set["concurrency"] && p.Concurrency > 0 {
		o.Concurrency = p.Concurrency
	}
	if !set["out"] && p.OutDir != "" {
		o.OutDir = p.OutDir
	}
	if !set["emit-only"] && p.EmitOnly {
		o.EmitOnly = true
	}
	if !set["line-directives"] && p.LineDirectives {
		o.LineDirectives = true
	}
	if !set["compiler"] && p.Compiler.CXX != "" {
		o.CXX = p.Compiler.CXX
	}
	if !set["standard"] && p.Compiler.Std != "" {
		o.Standard = p.Compiler.Std
	}
	if !set["flag"] && len(p.Compiler.Flags) > 0 {
		o.Flags = append([]string(nil), p.Compiler.Flags...)
	}
	if !set["include"] && len(p.Compiler.IncludeDirs) > 0 {
		o.IncludeDirs = append([]string(nil), p.Compiler.IncludeDirs...)
	}
	if !set["clang-format"] && p.Compiler.Format {
		o.ClangFormat = true
	}
	if !set["timeout"] && p.Fetch.Timeout > 0 {
		o.Timeout = p.Fetch.Timeout
	}
	if !set["rate-limit"] && p.Fetch.RateLimit > 0 {
		o.RateLimit = p.Fetch.RateLimit
	}
	if !set["proxy"] && p.Fetch.Proxy != "" {
		o.Proxy = p.Fetch.Proxy
	}
}

// verboseLevel maps the verbosity flags to a logger level.
func (o *Options) verboseLevel() int {
	switch {
	case o.Silent:
		return 0
	case o.VeryVerbose:
		return 2
	case o.Verbose:
		return 1
	}
	return 0
}
