package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// VerboseLevel represents the verbosity level for logging
type VerboseLevel int

const (
	// VerboseSilent means no verbose output
	VerboseSilent VerboseLevel = 0
	// VerboseNormal means standard verbose output (-v)
	VerboseNormal VerboseLevel = 1
	// VerboseVery means detailed debugging output (-vv)
	VerboseVery VerboseLevel = 2
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorCyan   = "\033[36m"
	colorYellow = "\033[33m"
)

// Logger handles verbose output at different levels
type Logger struct {
	level VerboseLevel
	out   io.Writer
	color bool
	mu    sync.Mutex
}

// NewLogger creates a new logger with the specified verbosity level.
// It writes to stderr and colours its prefixes when stderr is a terminal.
func NewLogger(level int) *Logger {
	return &Logger{
		level: VerboseLevel(level),
		out:   os.Stderr,
		color: IsTerminal(os.Stderr),
	}
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SetOutput redirects the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
}

// SetColor forces colour on or off.
func (l *Logger) SetColor(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = on
}

// Color reports whether prefixes are coloured.
func (l *Logger) Color() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

// IsVerbose returns true if verbose mode is enabled (-v or -vv)
func (l *Logger) IsVerbose() bool {
	return l.level >= VerboseNormal
}

// IsVeryVerbose returns true if very verbose mode is enabled (-vv)
func (l *Logger) IsVeryVerbose() bool {
	return l.level >= VerboseVery
}

func (l *Logger) write(prefix, color, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		prefix = color + prefix + colorReset
	}
	fmt.Fprintf(l.out, prefix+" "+format+"\n", args...)
}

// V logs a message at verbose level (-v)
func (l *Logger) V(format string, args ...interface{}) {
	if l.IsVerbose() {
		l.write("[*]", colorCyan, format, args...)
	}
}

// VV logs a message at very verbose level (-vv)
func (l *Logger) VV(format string, args ...interface{}) {
	if l.IsVeryVerbose() {
		l.write("[VV]", colorYellow, format, args...)
	}
}

// Info logs an informational message (always shown unless silent)
func (l *Logger) Info(format string, args ...interface{}) {
	l.write("[+]", colorGreen, format, args...)
}

// Error logs an error message (always shown unless silent)
func (l *Logger) Error(format string, args ...interface{}) {
	l.write("[!]", colorRed, format, args...)
}

// Section logs a section header for very verbose mode
func (l *Logger) Section(title string) {
	if l.IsVeryVerbose() {
		l.mu.Lock()
		defer l.mu.Unlock()
		fmt.Fprintf(l.out, "\n[VV] === %s ===\n", title)
	}
}

// Detail logs a detail line for very verbose mode with indentation
func (l *Logger) Detail(format string, args ...interface{}) {
	if l.IsVeryVerbose() {
		l.write("[VV] →", colorYellow, format, args...)
	}
}
