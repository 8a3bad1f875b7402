package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Project is the content of a jspp.yaml file.
type Project struct {
	// Inputs are compiled when no input is given on the command line.
	// Relative paths are resolved against the project file's directory.
	Inputs []string `yaml:"inputs"`

	OutDir   string `yaml:"out_dir,omitempty"`
	EmitOnly bool   `yaml:"emit_only,omitempty"`

	Compiler CompilerConfig `yaml:"compiler,omitempty"`
	Fetch    FetchConfig    `yaml:"fetch,omitempty"`

	Concurrency    int  `yaml:"concurrency,omitempty"`
	LineDirectives bool `yaml:"line_directives,omitempty"`
}

// CompilerConfig configures the native build step.
type CompilerConfig struct {
	CXX         string   `yaml:"cxx,omitempty"`
	Std         string   `yaml:"std,omitempty"`
	Flags       []string `yaml:"flags,omitempty"`
	IncludeDirs []string `yaml:"include_dirs,omitempty"`
	// Format runs clang-format on every emitted file.
	Format bool `yaml:"format,omitempty"`
}

// FetchConfig configures remote inputs.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout,omitempty"`
	RateLimit int           `yaml:"rate_limit,omitempty"`
	Proxy     string        `yaml:"proxy,omitempty"`
}

// LoadProject reads and parses a jspp.yaml file.
func LoadProject(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", path, err)
	}
	return ParseProject(data, path)
}

// ParseProject parses jspp.yaml content from bytes.
// The path argument is used for error messages and to resolve inputs.
func ParseProject(data []byte, path string) (*Project, error) {
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := p.validate(path); err != nil {
		return nil, err
	}
	p.setDefaults(filepath.Dir(path))
	return &p, nil
}

// validate checks the project for semantic errors.
func (p *Project) validate(path string) error {
	seen := make(map[string]bool)
	for i, in := range p.Inputs {
		if strings.TrimSpace(in) == "" {
			return fmt.Errorf("%s: inputs[%d]: empty input", path, i)
		}
		if seen[in] {
			return fmt.Errorf("%s: inputs[%d]: duplicate input %q", path, i, in)
		}
		seen[in] = true
	}
	if p.Concurrency < 0 {
		return fmt.Errorf("%s: concurrency must not be negative", path)
	}
	if p.Fetch.RateLimit < 0 {
		return fmt.Errorf("%s: fetch.rate_limit must not be negative", path)
	}
	if p.Fetch.Timeout < 0 {
		return fmt.Errorf("%s: fetch.timeout must not be negative", path)
	}
	if std := p.Compiler.Std; std != "" && !strings.HasPrefix(std, "c++") && !strings.HasPrefix(std, "gnu++") {
		return fmt.Errorf("%s: compiler.std: unknown standard %q", path, std)
	}
	return nil
}

// setDefaults fills in default values for optional fields.
func (p *Project) setDefaults(dir string) {
	for i, in := range p.Inputs {
		if in == "-" || strings.Contains(in, "://") || filepath.IsAbs(in) {
			continue
		}
		p.Inputs[i] = filepath.Join(dir, in)
	}
	for i, inc := range p.Compiler.IncludeDirs {
		if !filepath.IsAbs(inc) {
			p.Compiler.IncludeDirs[i] = filepath.Join(dir, inc)
		}
	}
	if p.OutDir != "" && !filepath.IsAbs(p.OutDir) {
		p.OutDir = filepath.Join(dir, p.OutDir)
	}
	if p.Compiler.CXX == "" {
		p.Compiler.CXX = DefaultCompiler
	}
	if p.Compiler.Std == "" {
		p.Compiler.Std = DefaultStandard
	}
	if p.Concurrency == 0 {
		p.Concurrency = DefaultConcurrency
	}
	if p.Fetch.Timeout == 0 {
		p.Fetch.Timeout = DefaultTimeout
	}
	if p.Fetch.RateLimit == 0 {
		p.Fetch.RateLimit = DefaultRateLimit
	}
}

// FindProject looks for jspp.yaml in dir and its parents. It returns an
// empty path and no error when there is none.
func FindProject(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
