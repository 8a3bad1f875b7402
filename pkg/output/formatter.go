package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lcalzada-xor/jspp/pkg/models"
)

// Formats accepted by Format.
var Formats = []string{"human", "json", "path"}

// Valid reports whether format is one of Formats.
func Valid(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

type palette struct {
	purple, lightPurple, darkPurple, red, orange, reset string
}

func colors(on bool) palette {
	if !on {
		return palette{}
	}
	return palette{
		purple:      "\x1b[38;5;129m",
		lightPurple: "\x1b[38;5;141m",
		darkPurple:  "\x1b[38;5;93m",
		red:         "\x1b[38;5;196m",
		orange:      "\x1b[38;5;214m",
		reset:       "\x1b[0m",
	}
}

// Format returns the formatted result string based on the selected format
func Format(res models.CompileResult, format string, color bool) string {
	switch format {
	case "path":
		// One path per line for shell pipelines; failures print nothing
		if res.Failed() {
			return ""
		}
		if res.Binary != "" {
			return res.Binary
		}
		return res.Output

	case "json":
		output, err := json.Marshal(res)
		if err != nil {
			// Return error as JSON instead of empty string
			return fmt.Sprintf("{\"error\":\"failed to marshal result: %v\"}", err)
		}
		return string(output)
	}

	return human(res, colors(color))
}

func human(res models.CompileResult, c palette) string {
	var sb strings.Builder

	if res.Failed() {
		sb.WriteString(fmt.Sprintf("\n%s[!] %s failed%s\n", c.red, res.Unit, c.reset))
		if d := res.Diagnostic; d != nil {
			sb.WriteString(fmt.Sprintf("    %s%s:%s %s\n", c.orange, d.Kind, c.reset, d.Message))
			if d.Line > 0 {
				sb.WriteString(fmt.Sprintf("    %sAt:%s         %s:%d:%d\n", c.darkPurple, c.reset, d.File, d.Line, d.Column))
			}
			if d.Excerpt != "" {
				for _, line := range strings.Split(strings.TrimRight(d.Excerpt, "\n"), "\n") {
					sb.WriteString("      " + line + "\n")
				}
			}
		}
		if res.Error != "" {
			sb.WriteString(fmt.Sprintf("    %sError:%s      %s\n", c.darkPurple, c.reset, res.Error))
		}
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("\n%s[+] %s %s%s\n", c.purple, res.Unit, res.Status, c.reset))
	sb.WriteString(fmt.Sprintf("    %sLanguage:%s   %s%s%s\n", c.darkPurple, c.reset, c.lightPurple, res.Language, c.reset))
	if res.Output != "" {
		sb.WriteString(fmt.Sprintf("    %sOutput:%s     %s%s%s\n", c.darkPurple, c.reset, c.lightPurple, res.Output, c.reset))
	}
	if res.Binary != "" {
		sb.WriteString(fmt.Sprintf("    %sBinary:%s     %s%s%s\n", c.darkPurple, c.reset, c.lightPurple, res.Binary, c.reset))
	}
	sb.WriteString(fmt.Sprintf("    %sScopes:%s     %s%d%s\n", c.darkPurple, c.reset, c.lightPurple, res.Stats.Scopes, c.reset))
	sb.WriteString(fmt.Sprintf("    %sBindings:%s   %s%d (%d boxed)%s\n", c.darkPurple, c.reset, c.lightPurple, res.Stats.Bindings, res.Stats.Boxed, c.reset))
	if len(res.Boxed) > 0 {
		sb.WriteString(fmt.Sprintf("    %sBoxed:%s      %s%s%s\n", c.darkPurple, c.reset, c.lightPurple, strings.Join(res.Boxed, ", "), c.reset))
	}
	sb.WriteString(fmt.Sprintf("    %sTime:%s       %s%s%s\n", c.darkPurple, c.reset, c.lightPurple, res.Duration, c.reset))
	return sb.String()
}
