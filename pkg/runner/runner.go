package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/lcalzada-xor/jspp/pkg/builder"
	"github.com/lcalzada-xor/jspp/pkg/compiler"
	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
	"github.com/lcalzada-xor/jspp/pkg/config"
	"github.com/lcalzada-xor/jspp/pkg/loader"
	"github.com/lcalzada-xor/jspp/pkg/logger"
	"github.com/lcalzada-xor/jspp/pkg/models"
	"github.com/lcalzada-xor/jspp/pkg/network"
	"github.com/lcalzada-xor/jspp/pkg/output"
)

// Stats counts the units of one run.
type Stats struct {
	Units    int
	Compiled int
	Built    int
	Failed   int
}

// Runner handles the execution of the compilation process
type Runner struct {
	options *Options
	log     *logger.Logger
	runID   string

	outMu sync.Mutex
	names map[string]int
}

// NewRunner creates a new Runner instance. log may be nil, in which case
// one is created from the verbosity options.
func NewRunner(options *Options, log *logger.Logger) *Runner {
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if options.Concurrency <= 0 {
		options.Concurrency = config.DefaultConcurrency
	}
	if log == nil {
		log = logger.NewLogger(options.verboseLevel())
		log.SetOutput(options.Stderr)
		if options.NoColor {
			log.SetColor(false)
		}
	}
	if options.Silent {
		log.SetOutput(io.Discard)
	}
	return &Runner{
		options: options,
		log:     log,
		runID:   uuid.NewString(),
		names:   make(map[string]int),
	}
}

// Run compiles every unit of inputs. It returns an error when any unit
// failed or the run was interrupted.
func (r *Runner) Run(ctx context.Context, inputs []string) (Stats, error) {
	var stats Stats
	if !output.Valid(r.options.OutputFormat) {
		return stats, fmt.Errorf("unknown output format %q (want one of %s)", r.options.OutputFormat, strings.Join(output.Formats, ", "))
	}
	if len(inputs) == 0 {
		return stats, errors.New("no inputs")
	}

	// Create root context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			r.log.Error("Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	outDir := r.options.OutDir
	if outDir == "" {
		dir, err := builder.ScratchDir()
		if err != nil {
			return stats, err
		}
		outDir = dir
	}

	client := network.NewClient(r.options.Timeout, r.options.Proxy, r.options.Concurrency, float64(r.options.RateLimit))
	ld := loader.New(client, r.log, loader.Options{
		TypeScript:  r.options.TypeScript,
		Concurrency: r.options.Concurrency,
		Stdin:       r.options.Stdin,
	})
	b := builder.New(builder.Options{
		CXX:         r.options.CXX,
		Standard:    r.options.Standard,
		Flags:       r.options.Flags,
		IncludeDirs: r.options.IncludeDirs,
		Format:      r.options.ClangFormat,
	}, r.log)

	r.log.V("Run %s: %d input(s), %d worker(s), output in %s", r.runID, len(inputs), r.options.Concurrency, outDir)
	if r.options.EmitOnly {
		r.log.V("Emit only: the native compiler is not invoked")
	}

	jobs := make(chan models.SourceUnit)
	var wg sync.WaitGroup
	var statsMutex sync.Mutex

	record := func(res models.CompileResult) {
		statsMutex.Lock()
		switch res.Status {
		case models.StatusFailed:
			stats.Failed++
		case models.StatusBuilt:
			stats.Built++
			stats.Compiled++
		default:
			stats.Compiled++
		}
		statsMutex.Unlock()
		r.print(res)
	}

	// Worker pool
	for i := 0; i < r.options.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case unit, ok := <-jobs:
					if !ok {
						return
					}
					// Check context before starting work
					if ctx.Err() != nil {
						return
					}
					record(r.compile(ctx, b, outDir, unit))
				}
			}
		}()
	}

	// Feed the workers in input order
	fed := make(chan struct{})
	go func() {
		defer close(fed)
		defer close(jobs)
		for _, input := range inputs {
			if ctx.Err() != nil {
				return
			}
			units, err := ld.Load(ctx, input)
			if err != nil {
				statsMutex.Lock()
				stats.Units++
				statsMutex.Unlock()
				record(models.CompileResult{
					RunID:  r.runID,
					Unit:   input,
					Status: models.StatusFailed,
					Error:  err.Error(),
				})
				continue
			}
			for _, u := range units {
				statsMutex.Lock()
				stats.Units++
				current := stats.Units
				statsMutex.Unlock()
				r.log.V("[%d] Compiling: %s", current, u.Name)
				select {
				case jobs <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	wg.Wait()
	<-fed

	statsMutex.Lock()
	defer statsMutex.Unlock()
	r.log.V("Compilation complete: %d unit(s), %d compiled, %d built, %d failed", stats.Units, stats.Compiled, stats.Built, stats.Failed)

	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d unit(s) failed", stats.Failed, stats.Units)
	}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("interrupted after %d of %d unit(s): %w", stats.Compiled, stats.Units, err)
	}
	return stats, nil
}

// compile translates one unit and, unless emit-only, builds it.
func (r *Runner) compile(ctx context.Context, b *builder.Builder, outDir string, unit models.SourceUnit) (res models.CompileResult) {
	start := time.Now()
	res = models.CompileResult{
		RunID:    r.runID,
		Unit:     unit.Name,
		Language: unit.Language,
		Status:   models.StatusFailed,
	}
	defer func() { res.Duration = time.Since(start) }()

	// A fresh compiler per unit: no stage is shared between workers
	c := compiler.New(compiler.Options{
		TypeScript:     r.options.TypeScript,
		LineDirectives: r.options.LineDirectives,
	}, r.log)

	out, err := c.Compile(ctx, unit)
	if err != nil {
		if d, ok := diag.As(err); ok {
			res.Diagnostic = diagnostic(d, unit)
			if r.log.IsVerbose() {
				r.log.Error("%s", strings.TrimRight(diag.Render(d, string(unit.Source), r.log.Color()), "\n"))
			}
		} else {
			res.Error = err.Error()
		}
		return res
	}
	res.Boxed = out.Boxed
	res.Stats = out.Stats

	stem := r.stem(unit)
	path, err := b.WriteSource(ctx, outDir, stem, out.CPP)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Output = path
	res.Status = models.StatusCompiled

	if !r.options.EmitOnly {
		bin := filepath.Join(outDir, stem)
		if err := b.Build(ctx, path, bin); err != nil {
			res.Status = models.StatusFailed
			res.Error = err.Error()
			return res
		}
		res.Binary = bin
		res.Status = models.StatusBuilt
	}
	return res
}

// stem returns a file stem unique within the run.
func (r *Runner) stem(unit models.SourceUnit) string {
	base := unit.Stem()
	r.outMu.Lock()
	defer r.outMu.Unlock()
	n := r.names[base]
	r.names[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s_%d", base, n)
}

func (r *Runner) print(res models.CompileResult) {
	color := r.options.OutputFormat == "human" && !r.options.NoColor
	if color {
		if f, ok := r.options.Stdout.(*os.File); !ok || !logger.IsTerminal(f) {
			color = false
		}
	}
	out := output.Format(res, r.options.OutputFormat, color)
	if out == "" {
		return
	}
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintln(r.options.Stdout, out)
}

// diagnostic converts a compile error into its report form. The excerpt is
// the rendered report without its header line.
func diagnostic(d *diag.Error, unit models.SourceUnit) *models.Diagnostic {
	file := d.Pos.Filename
	if file == "" {
		file = unit.Name
	}
	report := &models.Diagnostic{
		Kind:    string(d.Kind),
		Message: d.Message,
		File:    file,
		Line:    d.Pos.Line,
		Column:  d.Pos.Column,
	}
	if d.Pos.Line > 0 {
		rendered := diag.Render(d, string(unit.Source), false)
		if i := strings.Index(rendered, "\n\n"); i >= 0 {
			report.Excerpt = rendered[i+2:]
		}
	}
	return report
}
