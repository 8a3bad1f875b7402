package models

import "time"

type Status string

const (
	StatusCompiled Status = "compiled"
	StatusBuilt    Status = "built"
	StatusFailed   Status = "failed"
)

// Diagnostic is a compile error in report form.
type Diagnostic struct {
	Kind    string `json:"kind"` // SyntaxError, ReferenceError, TypeError
	Message string `json:"message"`
	File    string `json:"file"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	// Excerpt is the rendered source line with a caret, without colour.
	Excerpt string `json:"excerpt,omitempty"`
}

// UnitStats summarizes the analysis of one unit.
type UnitStats struct {
	Scopes   int `json:"scopes"`
	Bindings int `json:"bindings"`
	Boxed    int `json:"boxed"`
	Captures int `json:"captures"`
}

// CompileResult represents the outcome of compiling one unit.
type CompileResult struct {
	RunID      string        `json:"run_id"`
	Unit       string        `json:"unit"`
	Language   Language      `json:"language"`
	Status     Status        `json:"status"`
	Output     string        `json:"output,omitempty"` // emitted .cpp path
	Binary     string        `json:"binary,omitempty"`
	Boxed      []string      `json:"boxed,omitempty"`
	Stats      UnitStats     `json:"stats"`
	Diagnostic *Diagnostic   `json:"diagnostic,omitempty"`
	Error      string        `json:"error,omitempty"` // non-diagnostic failure
	Duration   time.Duration `json:"duration_ns"`
}

// Failed reports whether the unit did not compile or build.
func (r *CompileResult) Failed() bool {
	return r.Status == StatusFailed
}
