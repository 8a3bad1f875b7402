package diag

import (
	"fmt"
	"strings"
)

const (
	colorRed   = "\x1b[38;5;196m"
	colorDim   = "\x1b[38;5;93m"
	colorBold  = "\x1b[1m"
	colorReset = "\x1b[0m"
)

// Render formats err as a report:
//
//	SyntaxError in main.ts at 3:7: Identifier 'std' is reserved and cannot be declared
//
//	   2 | function f() {
//	   3 |   let std = 1;
//	     |       ^
//	   4 | }
//
// src is the original text of the unit. Errors without a position render as a
// single header line.
func Render(err *Error, src string, color bool) string {
	paint := func(c, s string) string {
		if !color {
			return s
		}
		return c + s + colorReset
	}

	var b strings.Builder
	name := err.Pos.Filename
	if name == "" {
		name = "(anonymous)"
	}
	if err.Pos.Line == 0 {
		fmt.Fprintf(&b, "%s: %s\n", paint(colorRed+colorBold, string(err.Kind)), err.Message)
		return b.String()
	}
	fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", paint(colorRed+colorBold, string(err.Kind)), name, err.Pos.Line, err.Pos.Column, err.Message)

	lines := strings.Split(src, "\n")
	line := err.Pos.Line
	if line > len(lines) {
		line = len(lines)
	}
	for n := line - 2; n < line; n++ {
		if n >= 1 {
			fmt.Fprintf(&b, "%s %s\n", paint(colorDim, fmt.Sprintf("%4d |", n)), lines[n-1])
		}
	}
	text := lines[line-1]
	fmt.Fprintf(&b, "%s %s\n", paint(colorDim, fmt.Sprintf("%4d |", line)), text)
	fmt.Fprintf(&b, "%s %s%s\n", paint(colorDim, "     |"), caretPad(text, err.Pos.Column), paint(colorRed, "^"))
	if line < len(lines) {
		fmt.Fprintf(&b, "%s %s\n", paint(colorDim, fmt.Sprintf("%4d |", line+1)), lines[line])
	}
	return b.String()
}

// caretPad mirrors the whitespace of text up to the 1-based byte column so the
// caret lines up when the line is indented with tabs.
func caretPad(text string, col int) string {
	if col < 1 {
		col = 1
	}
	if col-1 > len(text) {
		col = len(text) + 1
	}
	var pad strings.Builder
	for _, r := range text[:col-1] {
		if r == '\t' {
			pad.WriteByte('\t')
		} else {
			pad.WriteByte(' ')
		}
	}
	return pad.String()
}
