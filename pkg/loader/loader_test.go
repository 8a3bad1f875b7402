package loader

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lcalzada-xor/jspp/pkg/logger"
	"github.com/lcalzada-xor/jspp/pkg/models"
	"github.com/lcalzada-xor/jspp/pkg/network"
)

func quietLogger() *logger.Logger {
	l := logger.NewLogger(2)
	l.SetOutput(io.Discard)
	return l
}

func TestExtractScripts(t *testing.T) {
	page := `<!doctype html>
<html><head>
<script>let a = 1;</script>
<script type="application/json">{"not": "code"}</script>
<script src="lib.ts"></script>
</head><body>
<script type="module">export {};</script>
<script lang="ts">let b: number = 2;</script>
<script type="text/template"><div></div></script>
<script>   </script>
</body></html>`

	scripts, err := ExtractScripts(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}

	want := []Script{
		{Body: "let a = 1;", Language: models.LanguageJavaScript},
		{Src: "lib.ts", Language: models.LanguageTypeScript},
		{Body: "export {};", Language: models.LanguageJavaScript},
		{Body: "let b: number = 2;", Language: models.LanguageTypeScript},
	}
	if len(scripts) != len(want) {
		t.Fatalf("got %d scripts, want %d: %+v", len(scripts), len(want), scripts)
	}
	for i := range want {
		if scripts[i] != want[i] {
			t.Errorf("script %d = %+v, want %+v", i, scripts[i], want[i])
		}
	}
}

func TestLoader_RemotePage(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/index.html":
			w.Write([]byte(`<script src="/shared.js"></script><script>inline();</script><script src="shared.js"></script>`))
		case "/shared.js":
			hits.Add(1)
			w.Write([]byte("shared();"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := network.NewClient(time.Second, "", 2, 0)
	l := New(client, quietLogger(), Options{})

	units, err := l.Load(context.Background(), server.URL+"/index.html")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name   string
		unit   models.SourceUnit
		source string
		origin models.Origin
	}{
		{"first src", units[0], "shared();", models.OriginRemote},
		{"inline", units[1], "inline();", models.OriginInline},
		{"second src", units[2], "shared();", models.OriginRemote},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.unit.Source) != tt.source {
				t.Errorf("source = %q, want %q", tt.unit.Source, tt.source)
			}
			if tt.unit.Origin != tt.origin {
				t.Errorf("origin = %q, want %q", tt.unit.Origin, tt.origin)
			}
			if tt.unit.Index != i {
				t.Errorf("index = %d, want %d", tt.unit.Index, i)
			}
		})
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("shared.js fetched %d times, want 1", got)
	}
}

func TestLoader_LocalInputs(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	ts := write("main.ts", "let x: number = 1;")
	write("js/app.js", "app();")
	page := write("index.html", `<script src="js/app.js"></script>`)

	tests := []struct {
		name   string
		input  string
		opts   Options
		source string
		lang   models.Language
	}{
		{"typescript file", ts, Options{}, "let x: number = 1;", models.LanguageTypeScript},
		{"page with relative src", page, Options{}, "app();", models.LanguageJavaScript},
		{"stdin", "-", Options{Stdin: strings.NewReader("stdin();")}, "stdin();", models.LanguageJavaScript},
		{"forced typescript", "-", Options{TypeScript: true, Stdin: strings.NewReader("s();")}, "s();", models.LanguageTypeScript},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units, err := New(nil, quietLogger(), tt.opts).Load(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if len(units) != 1 {
				t.Fatalf("got %d units", len(units))
			}
			if string(units[0].Source) != tt.source || units[0].Language != tt.lang {
				t.Errorf("unit = %q (%s), want %q (%s)", units[0].Source, units[0].Language, tt.source, tt.lang)
			}
			if err := units[0].Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestLoader_Errors(t *testing.T) {
	l := New(nil, quietLogger(), Options{})
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.js"), "reading"},
		{"remote without fetcher", "https://example.com/a.js", "remote inputs are disabled"},
		{"bad scheme", "ftp://example.com/a.js", "unsupported scheme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.input)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		page, src, want string
	}{
		{"https://x.io/a/index.html", "app.js", "https://x.io/a/app.js"},
		{"https://x.io/a/index.html", "/app.js", "https://x.io/app.js"},
		{"https://x.io/a/index.html", "//cdn.io/lib.js", "https://cdn.io/lib.js"},
		{filepath.Join("site", "index.html"), "js/app.js", filepath.Join("site", "js", "app.js")},
		{"index.html", "https://cdn.io/lib.js", "https://cdn.io/lib.js"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := resolve(tt.page, tt.src)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("resolve(%q, %q) = %q, want %q", tt.page, tt.src, got, tt.want)
			}
		})
	}
}
