package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lcalzada-xor/jspp/pkg/config"
	"github.com/lcalzada-xor/jspp/pkg/runner"
)

// aliases maps short flag names to their long form.
var aliases = map[string]string{
	"c":   "concurrency",
	"t":   "timeout",
	"o":   "out",
	"f":   "format",
	"e":   "emit-only",
	"cxx": "compiler",
	"std": "standard",
	"I":   "include",
	"F":   "flag",
	"p":   "project",
	"ts":  "typescript",
	"x":   "proxy",
	"rl":  "rate-limit",
	"l":   "line-directives",
	"cf":  "clang-format",
	"v":   "verbose",
	"vv":  "very-verbose",
	"s":   "silent",
	"nc":  "no-color",
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := runner.DefaultOptions()
	var project string
	var includes, flags listFlags

	// Define flags with both short and long names
	flag.IntVar(&opts.Concurrency, "c", opts.Concurrency, "Number of concurrent workers")
	flag.IntVar(&opts.Concurrency, "concurrency", opts.Concurrency, "Number of concurrent workers")

	flag.DurationVar(&opts.Timeout, "t", opts.Timeout, "Fetch timeout for remote inputs")
	flag.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "Fetch timeout for remote inputs")

	flag.StringVar(&opts.OutDir, "o", "", "Output directory")
	flag.StringVar(&opts.OutDir, "out", "", "Output directory")

	flag.StringVar(&opts.OutputFormat, "f", opts.OutputFormat, "Output format: human, json, path")
	flag.StringVar(&opts.OutputFormat, "format", opts.OutputFormat, "Output format: human, json, path")

	flag.BoolVar(&opts.EmitOnly, "e", false, "Emit C++ only, do not invoke the native compiler")
	flag.BoolVar(&opts.EmitOnly, "emit-only", false, "Emit C++ only, do not invoke the native compiler")

	flag.StringVar(&opts.CXX, "cxx", opts.CXX, "Native compiler command")
	flag.StringVar(&opts.CXX, "compiler", opts.CXX, "Native compiler command")

	flag.StringVar(&opts.Standard, "std", opts.Standard, "C++ standard")
	flag.StringVar(&opts.Standard, "standard", opts.Standard, "C++ standard")

	flag.Var(&includes, "I", "Runtime include directory (repeatable)")
	flag.Var(&includes, "include", "Runtime include directory (repeatable)")

	flag.Var(&flags, "F", "Extra native compiler flag (repeatable)")
	flag.Var(&flags, "flag", "Extra native compiler flag (repeatable)")

	flag.StringVar(&project, "p", "", "Project file (default: "+config.ProjectFile+" in the working directory or a parent)")
	flag.StringVar(&project, "project", "", "Project file")

	flag.BoolVar(&opts.TypeScript, "ts", false, "Erase TypeScript syntax in every input")
	flag.BoolVar(&opts.TypeScript, "typescript", false, "Erase TypeScript syntax in every input")

	flag.StringVar(&opts.Proxy, "x", "", "Proxy URL for remote inputs (e.g. http://127.0.0.1:8080)")
	flag.StringVar(&opts.Proxy, "proxy", "", "Proxy URL for remote inputs")

	flag.IntVar(&opts.RateLimit, "rl", opts.RateLimit, "Max requests per second for remote inputs")
	flag.IntVar(&opts.RateLimit, "rate-limit", opts.RateLimit, "Max requests per second for remote inputs")

	flag.BoolVar(&opts.LineDirectives, "l", false, "Emit #line directives")
	flag.BoolVar(&opts.LineDirectives, "line-directives", false, "Emit #line directives")

	flag.BoolVar(&opts.ClangFormat, "cf", false, "Run clang-format on emitted files")
	flag.BoolVar(&opts.ClangFormat, "clang-format", false, "Run clang-format on emitted files")

	flag.BoolVar(&opts.Verbose, "v", false, "Verbose output")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Verbose output")

	flag.BoolVar(&opts.VeryVerbose, "vv", false, "Very verbose output (stage timings, boxed bindings)")
	flag.BoolVar(&opts.VeryVerbose, "very-verbose", false, "Very verbose output")

	flag.BoolVar(&opts.Silent, "s", false, "Silent mode (suppress banner and logs)")
	flag.BoolVar(&opts.Silent, "silent", false, "Silent mode (suppress banner and logs)")

	flag.BoolVar(&opts.NoColor, "nc", false, "Disable colour")
	flag.BoolVar(&opts.NoColor, "no-color", false, "Disable colour")

	// Custom Usage function
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, banner())
		h := `
USAGE:
  jspp [flags] <input>...

INPUTS:
  file.js, file.ts           Source files
  page.html                  Pages: every <script> is a unit
  https://host/app.js        Remote scripts and pages
  -                          Read one unit from stdin

COMPILATION:
  -c,   --concurrency int      Number of concurrent workers (default 4)
  -ts,  --typescript           Erase TypeScript syntax in every input
  -l,   --line-directives      Emit #line directives
  -p,   --project string       Project file (default: jspp.yaml)

NATIVE BUILD:
  -o,   --out string           Output directory (default: a fresh jspp-<uuid> temp dir)
  -e,   --emit-only            Emit C++ only, do not invoke the native compiler
  -cxx, --compiler string      Native compiler command (default "c++")
  -std, --standard string      C++ standard (default "c++23")
  -I,   --include string       Runtime include directory (repeatable)
  -F,   --flag string          Extra native compiler flag (repeatable)
  -cf,  --clang-format         Run clang-format on emitted files

REMOTE INPUTS:
  -t,   --timeout duration     Fetch timeout (default 10s)
  -x,   --proxy string         Proxy URL (e.g. http://127.0.0.1:8080)
  -rl,  --rate-limit int       Max requests per second (default 10)

OUTPUT:
  -f,   --format string        Output format: human, json, path (default "human")
  -v,   --verbose              Verbose output (show progress and details)
  -vv,  --very-verbose         Very verbose output (stage timings, boxed bindings)
  -s,   --silent               Silent mode (suppress banner and logs)
  -nc,  --no-color             Disable colour

EXAMPLES:
  jspp app.ts
  jspp -e -o out -f json src/*.js
  cat app.js | jspp -e -f path -
  jspp -I ./runtime/include -F -O2 https://example.com/index.html
`
		fmt.Fprint(os.Stderr, h)
	}

	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		set[name] = true
	})
	if len(includes) > 0 {
		opts.IncludeDirs = includes
	}
	if len(flags) > 0 {
		opts.Flags = flags
	}

	if project == "" {
		found, err := config.FindProject(".")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		project = found
	}
	var p *config.Project
	if project != "" {
		loaded, err := config.LoadProject(project)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		p = loaded
		opts.ApplyProject(p, set)
	}

	inputs := flag.Args()
	if len(inputs) == 0 && p != nil {
		inputs = p.Inputs
	}
	if len(inputs) == 0 {
		flag.Usage()
		return 1
	}

	// Print banner unless silent
	if !opts.Silent && opts.OutputFormat == "human" {
		fmt.Fprint(os.Stderr, banner())
		fmt.Fprintln(os.Stderr, "")
		if opts.Verbose || opts.VeryVerbose {
			fmt.Fprintf(os.Stderr, "[*] Concurrency: %d workers\n", opts.Concurrency)
			if project != "" {
				fmt.Fprintf(os.Stderr, "[*] Project: %s\n", project)
			}
			if !opts.EmitOnly {
				fmt.Fprintf(os.Stderr, "[*] Native compiler: %s -std=%s %s\n", opts.CXX, opts.Standard, strings.Join(opts.Flags, " "))
			}
			fmt.Fprintln(os.Stderr, "")
		}
	}

	start := time.Now()
	stats, err := runner.NewRunner(opts, nil).Run(context.Background(), inputs)
	if !opts.Silent {
		fmt.Fprintf(os.Stderr, "\n[*] Done: %d unit(s), %d compiled, %d built, %d failed in %s\n",
			stats.Units, stats.Compiled, stats.Built, stats.Failed, time.Since(start).Round(time.Millisecond))
	}
	if err != nil {
		if !opts.Silent {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func banner() string {
	return "\n" +
		"   \x1b[38;5;93m     ▀▀█  ▄▀▀▀▀▄  ▄▀▀▀▀▄  ▄▀▀▀▀▄ \x1b[0m\n" +
		"  \x1b[38;5;129m       █  ▀▄▄▄     █▄▄▄▀   █▄▄▄▀  \x1b[0m\n" +
		"  \x1b[38;5;141m   ▄   █      ▀▄   █       █      \x1b[0m\n" +
		"    \x1b[38;5;57m ▀▄▄▀   ▀▄▄▄▄▀   ▀       ▀      \x1b[0m\n" +
		"           \x1b[38;5;141m" + config.Version + "\x1b[0m | \x1b[38;5;141m" + config.Author + "\x1b[0m\n"
}

// listFlags collects a repeatable flag
type listFlags []string

func (l *listFlags) String() string {
	return fmt.Sprint(*l)
}

func (l *listFlags) Set(value string) error {
	*l = append(*l, value)
	return nil
}
