package frontend

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

// DefaultFoldBudget bounds a single constant evaluation.
const DefaultFoldBudget = 50 * time.Millisecond

// Constant is a folded compile-time value.
type Constant struct {
	Number   float64
	String   string
	IsString bool
}

// Key is the property name the constant maps to in a reverse mapping.
func (c Constant) Key() string {
	if c.IsString {
		return c.String
	}
	return NumberKey(c.Number)
}

// NumberKey formats n the way JavaScript converts a number to a property key.
func NumberKey(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	case n < 0:
		return "-" + NumberKey(-n)
	}

	// Shortest round-trip digits, then the layout rules of Number::toString.
	sci := strconv.FormatFloat(n, 'e', -1, 64)
	mant, expPart, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)
	k, pos := len(digits), exp+1

	switch {
	case k <= pos && pos <= 21:
		return digits + strings.Repeat("0", pos-k)
	case 0 < pos && pos <= 21:
		return digits[:pos] + "." + digits[pos:]
	case -6 < pos && pos <= 0:
		return "0." + strings.Repeat("0", -pos) + digits
	}
	sign := "+"
	if pos-1 < 0 {
		sign = "-"
	}
	e := pos - 1
	if e < 0 {
		e = -e
	}
	if k == 1 {
		return digits + "e" + sign + strconv.Itoa(e)
	}
	return digits[:1] + "." + digits[1:] + "e" + sign + strconv.Itoa(e)
}

// Folder evaluates constant enum initializers in a sandboxed goja runtime.
// It is not safe for concurrent use.
type Folder struct {
	Runtime *goja.Runtime
	Budget  time.Duration
}

// NewFolder creates a Folder with its own runtime.
func NewFolder() *Folder {
	return &Folder{
		Runtime: goja.New(),
		Budget:  DefaultFoldBudget,
	}
}

// Foldable reports whether expr only combines literals and the names in
// known with arithmetic, bitwise and string operators.
func Foldable(expr ast.Expression, known map[string]Constant) bool {
	ok := true
	Inspect(expr, func(n ast.Node) bool {
		if !ok {
			return false
		}
		switch n := n.(type) {
		case *ast.NumberLiteral, *ast.StringLiteral:
		case *ast.Identifier:
			if _, found := known[n.Name.String()]; !found {
				ok = false
			}
		case *ast.TemplateLiteral:
			if n.Tag != nil {
				ok = false
			}
		case *ast.UnaryExpression:
			switch n.Operator {
			case token.PLUS, token.MINUS, token.BITWISE_NOT:
			default:
				ok = false
			}
		case *ast.BinaryExpression:
			switch n.Operator {
			case token.PLUS, token.MINUS, token.MULTIPLY, token.SLASH, token.REMAINDER, token.EXPONENT,
				token.AND, token.OR, token.EXCLUSIVE_OR,
				token.SHIFT_LEFT, token.SHIFT_RIGHT, token.UNSIGNED_SHIFT_RIGHT:
			default:
				ok = false
			}
		default:
			ok = false
		}
		return ok
	})
	return ok
}

// Fold evaluates the initializer source src with the previously folded
// members in known bound as parameters. The second result is false when the
// expression is not constant or does not produce a number or a string.
func (f *Folder) Fold(expr ast.Expression, src string, known map[string]Constant) (c Constant, ok bool) {
	if !Foldable(expr, known) {
		return Constant{}, false
	}

	names := make([]string, 0, len(known))
	for name := range known {
		if isIdentifierName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	vm := f.Runtime
	vm.ClearInterrupt()
	timer := time.AfterFunc(f.Budget, func() {
		vm.Interrupt("constant folding budget exceeded")
	})
	defer timer.Stop()

	defer func() {
		// goja panics on some host errors; treat them as not constant.
		if r := recover(); r != nil {
			c, ok = Constant{}, false
		}
	}()

	fnVal, err := vm.RunString("(function(" + strings.Join(names, ", ") + ") { return (" + src + "); })")
	if err != nil {
		return Constant{}, false
	}
	fn, isFn := goja.AssertFunction(fnVal)
	if !isFn {
		return Constant{}, false
	}
	args := make([]goja.Value, len(names))
	for i, name := range names {
		k := known[name]
		if k.IsString {
			args[i] = vm.ToValue(k.String)
		} else {
			args[i] = vm.ToValue(k.Number)
		}
	}
	res, err := fn(goja.Undefined(), args...)
	if err != nil {
		return Constant{}, false
	}

	switch v := res.Export().(type) {
	case string:
		return Constant{String: v, IsString: true}, true
	case int64:
		return Constant{Number: float64(v)}, true
	case float64:
		return Constant{Number: v}, true
	}
	return Constant{}, false
}

func isIdentifierName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		case r > 0x7f:
		default:
			return false
		}
	}
	return true
}
