// Package compiler runs one source unit through the translation pipeline:
// erase and parse, analyze, generate. Every stage is created fresh for each
// unit, so a Compiler may be shared by concurrent workers.
package compiler

import (
	"context"
	"fmt"
	"time"

	"github.com/lcalzada-xor/jspp/pkg/compiler/analysis"
	"github.com/lcalzada-xor/jspp/pkg/compiler/codegen"
	"github.com/lcalzada-xor/jspp/pkg/compiler/frontend"
	"github.com/lcalzada-xor/jspp/pkg/logger"
	"github.com/lcalzada-xor/jspp/pkg/models"
)

// Options configures translation.
type Options struct {
	// TypeScript forces type erasure for every unit.
	TypeScript bool
	// LineDirectives emits #line before every top-level statement.
	LineDirectives bool
	// Header overrides the runtime include.
	Header string
	// FoldBudget bounds the evaluation of each enum initializer.
	FoldBudget time.Duration
}

// Output is the translation of one unit.
type Output struct {
	CPP string
	// Boxed names the heap-allocated bindings, in scope order.
	Boxed   []string
	Stats   models.UnitStats
	Timings []Timing
}

// Timing is the wall time of one pass.
type Timing struct {
	Pass     string
	Duration time.Duration
}

// Pass is one pipeline stage.
type Pass struct {
	Name string
	Run  func(ctx context.Context, s *state) error
}

// state is what the passes hand to each other.
type state struct {
	src    models.SourceUnit
	unit   *frontend.Unit
	result *analysis.Result
	cpp    string
}

// Compiler translates units.
type Compiler struct {
	opts   Options
	log    *logger.Logger
	passes []Pass
}

// New creates a compiler.
func New(opts Options, log *logger.Logger) *Compiler {
	c := &Compiler{opts: opts, log: log}
	c.passes = []Pass{
		{Name: "Parse", Run: c.parse},
		{Name: "Analyze", Run: c.analyze},
		{Name: "Generate", Run: c.generate},
	}
	return c
}

// Passes returns the pass names in run order.
func (c *Compiler) Passes() []string {
	names := make([]string, len(c.passes))
	for i, p := range c.passes {
		names[i] = p.Name
	}
	return names
}

// Compile translates src. Compile errors are *diag.Error values.
func (c *Compiler) Compile(ctx context.Context, src models.SourceUnit) (*Output, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("invalid unit: %w", err)
	}

	s := &state{src: src}
	out := &Output{}
	for _, p := range c.passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		err := p.Run(ctx, s)
		elapsed := time.Since(start)
		out.Timings = append(out.Timings, Timing{Pass: p.Name, Duration: elapsed})
		c.log.VV("%s: %s pass took %s", src.Name, p.Name, elapsed)
		if err != nil {
			return nil, err
		}
	}

	out.CPP = s.cpp
	out.Boxed, out.Stats = summarize(s.result)
	c.log.VV("%s: %d scope(s), %d binding(s), %d capture record(s)", src.Name, out.Stats.Scopes, out.Stats.Bindings, out.Stats.Captures)
	if len(out.Boxed) > 0 {
		c.log.Detail("%s: boxed %v", src.Name, out.Boxed)
	}
	return out, nil
}

func (c *Compiler) parse(ctx context.Context, s *state) error {
	ts := c.opts.TypeScript || s.src.IsTypeScript()
	unit, err := frontend.Parse(ctx, s.src.Name, s.src.Source, frontend.Options{TypeScript: ts})
	if err != nil {
		return err
	}
	s.unit = unit
	return nil
}

func (c *Compiler) analyze(_ context.Context, s *state) error {
	res, err := analysis.Analyze(s.unit)
	if err != nil {
		return err
	}
	s.result = res
	return nil
}

func (c *Compiler) generate(_ context.Context, s *state) error {
	g := codegen.New(s.unit, s.result, codegen.Options{
		Header:         c.opts.Header,
		LineDirectives: c.opts.LineDirectives,
		FoldBudget:     c.opts.FoldBudget,
	})
	cpp, err := g.Generate()
	if err != nil {
		return err
	}
	s.cpp = cpp
	return nil
}

func summarize(res *analysis.Result) ([]string, models.UnitStats) {
	var boxed []string
	stats := models.UnitStats{Captures: len(res.Captures)}
	for _, sc := range res.Scopes {
		if sc.Kind == analysis.ScopeGlobal {
			continue
		}
		stats.Scopes++
		for _, b := range sc.Order {
			if b.IsBuiltin {
				continue
			}
			stats.Bindings++
			if b.NeedsHeapAllocation {
				boxed = append(boxed, b.Name)
			}
		}
	}
	stats.Boxed = len(boxed)
	return boxed, stats
}
