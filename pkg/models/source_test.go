package models

import (
	"testing"
)

func TestSourceUnit_Validate(t *testing.T) {
	tests := []struct {
		name    string
		unit    SourceUnit
		wantErr bool
	}{
		{
			name:    "Valid file",
			unit:    SourceUnit{Name: "a.js", Origin: OriginFile, Language: LanguageJavaScript},
			wantErr: false,
		},
		{
			name:    "Valid inline",
			unit:    SourceUnit{Name: "index.html#1", Origin: OriginInline, Language: LanguageTypeScript, Page: "index.html", Index: 1},
			wantErr: false,
		},
		{
			name:    "Empty name",
			unit:    SourceUnit{Origin: OriginFile, Language: LanguageJavaScript},
			wantErr: true,
		},
		{
			name:    "Invalid origin",
			unit:    SourceUnit{Name: "a.js", Origin: "ftp", Language: LanguageJavaScript},
			wantErr: true,
		},
		{
			name:    "Invalid language",
			unit:    SourceUnit{Name: "a.js", Origin: OriginFile, Language: "coffee"},
			wantErr: true,
		},
		{
			name:    "Invalid URL",
			unit:    SourceUnit{Name: "://invalid", Origin: OriginRemote, Language: LanguageJavaScript},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.unit.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSourceUnit_Stem(t *testing.T) {
	tests := []struct {
		unit SourceUnit
		want string
	}{
		{SourceUnit{Name: "src/app.ts"}, "app"},
		{SourceUnit{Name: "-"}, "stdin"},
		{SourceUnit{Name: "https://example.com/js/main.min.js"}, "main_min"},
		{SourceUnit{Name: "index.html#2", Page: "site/index.html", Index: 2}, "index_2"},
	}
	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.unit.Stem(); got != tc.want {
				t.Errorf("Stem() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		input   string
		want    InputKind
		wantErr bool
	}{
		{"-", InputStdin, false},
		{"main.ts", InputFile, false},
		{"page.HTML", InputHTML, false},
		{"https://example.com/app.js", InputURL, false},
		{"https://example.com/index.htm", InputHTML, false},
		{"ftp://example.com/a.js", 0, true},
		{"http:///nohost.js", 0, true},
		{"  ", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseInput(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseInput() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && got != tc.want {
				t.Errorf("ParseInput() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestLanguageOf(t *testing.T) {
	tests := map[string]Language{
		"a.ts":                     LanguageTypeScript,
		"a.MTS":                    LanguageTypeScript,
		"a.js":                     LanguageJavaScript,
		"https://x.io/lib.ts?v=1":  LanguageTypeScript,
		"https://x.io/lib.js#frag": LanguageJavaScript,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			if got := LanguageOf(name); got != want {
				t.Errorf("LanguageOf(%q) = %q, want %q", name, got, want)
			}
		})
	}
}
