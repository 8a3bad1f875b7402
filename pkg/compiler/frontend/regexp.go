package frontend

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"

	"github.com/lcalzada-xor/jspp/pkg/compiler/diag"
)

const regexpFlags = "dgimsuvy"

// ValidateRegExp checks a literal's pattern and flags by compiling the
// pattern with regexp2 in ECMAScript mode.
func ValidateRegExp(pattern, flags string) error {
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	seen := make(map[rune]bool)
	for _, f := range flags {
		if !strings.ContainsRune(regexpFlags, f) || seen[f] {
			return fmt.Errorf("invalid flags supplied to RegExp constructor '%s'", flags)
		}
		seen[f] = true
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'u', 'v':
			opts |= regexp2.Unicode
		}
	}
	if _, err := regexp2.Compile(pattern, opts); err != nil {
		return fmt.Errorf("/%s/: %v", pattern, err)
	}
	return nil
}

// validateRegExps rejects the first invalid regular-expression literal in prog.
func validateRegExps(f *file.File, prog ast.Node) error {
	var err error
	Inspect(prog, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		if re, ok := n.(*ast.RegExpLiteral); ok {
			if verr := ValidateRegExp(re.Pattern, re.Flags); verr != nil {
				err = diag.Syntax(f, re, "Invalid regular expression: %v", verr)
			}
		}
		return true
	})
	return err
}
