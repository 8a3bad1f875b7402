package models

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

type Origin string

const (
	OriginFile   Origin = "file"
	OriginStdin  Origin = "stdin"
	OriginRemote Origin = "remote"
	OriginInline Origin = "inline" // <script> body inside an HTML page
)

type Language string

const (
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
)

// SourceUnit is one compilation unit: a script, a module file or one
// <script> block of an HTML page.
type SourceUnit struct {
	Name     string   `json:"name"`
	Origin   Origin   `json:"origin"`
	Language Language `json:"language"`
	Source   []byte   `json:"-"`
	// Page is the HTML input the unit was extracted from, if any.
	Page string `json:"page,omitempty"`
	// Index orders the units of one page.
	Index int `json:"index,omitempty"`
}

// Validate checks if the unit can be compiled.
func (s *SourceUnit) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("unit name is required")
	}
	switch s.Origin {
	case OriginFile, OriginStdin, OriginRemote, OriginInline:
		// Valid
	default:
		return fmt.Errorf("invalid origin: %s", s.Origin)
	}
	switch s.Language {
	case LanguageJavaScript, LanguageTypeScript:
		// Valid
	default:
		return fmt.Errorf("invalid language: %s", s.Language)
	}
	if s.Origin == OriginRemote {
		if _, err := url.Parse(s.Name); err != nil {
			return fmt.Errorf("invalid URL: %v", err)
		}
	}
	return nil
}

// IsTypeScript reports whether type erasure applies to the unit.
func (s *SourceUnit) IsTypeScript() bool {
	return s.Language == LanguageTypeScript
}

// Stem is the base name used for emitted files: "src/app.ts" becomes "app",
// the second script of "index.html" becomes "index_1".
func (s *SourceUnit) Stem() string {
	name := s.Name
	if s.Page != "" {
		name = s.Page
	}
	if u, err := url.Parse(name); err == nil && u.Scheme != "" && u.Path != "" {
		name = u.Path
	}
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" || base == "-" {
		base = "stdin"
	}
	if s.Page != "" {
		base = fmt.Sprintf("%s_%d", base, s.Index)
	}
	return sanitize(base)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// LanguageOf picks the language from a file name or URL path.
func LanguageOf(name string) Language {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		name = u.Path
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".ts", ".mts", ".cts":
		return LanguageTypeScript
	}
	return LanguageJavaScript
}

// InputKind classifies a command-line input.
type InputKind int

const (
	InputFile InputKind = iota
	InputStdin
	InputURL
	InputHTML
)

// ParseInput classifies one input argument:
// - "-" reads stdin
// - "http://..." / "https://..." is fetched
// - "*.html" / "*.htm" (local or remote) has its scripts extracted
// - anything else is a file path
func ParseInput(input string) (InputKind, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("empty input")
	}
	if input == "-" {
		return InputStdin, nil
	}

	path := input
	remote := false
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		u, err := url.Parse(input)
		if err != nil {
			return 0, fmt.Errorf("invalid URL: %v", err)
		}
		if u.Host == "" {
			return 0, fmt.Errorf("invalid URL: missing host")
		}
		path, remote = u.Path, true
	} else if strings.Contains(input, "://") {
		return 0, fmt.Errorf("unsupported scheme in %q", input)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return InputHTML, nil
	}
	if remote {
		return InputURL, nil
	}
	return InputFile, nil
}
