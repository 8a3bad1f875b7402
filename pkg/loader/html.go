package loader

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/lcalzada-xor/jspp/pkg/models"
)

// Script is one <script> element of a page, in document order.
type Script struct {
	// Src is the raw src attribute; Body is empty when it is set.
	Src      string
	Body     string
	Language models.Language
}

// ExtractScripts collects the executable scripts of an HTML document.
// Scripts whose type is not JavaScript or TypeScript (templates, JSON data,
// import maps) are skipped.
func ExtractScripts(r io.Reader) ([]Script, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	var scripts []Script
	var traverse func(*html.Node)
	traverse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Script {
			if s, ok := script(n); ok {
				scripts = append(scripts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}
	traverse(doc)
	return scripts, nil
}

func script(n *html.Node) (Script, bool) {
	var s Script
	typ := ""
	for _, attr := range n.Attr {
		switch strings.ToLower(attr.Key) {
		case "src":
			s.Src = strings.TrimSpace(attr.Val)
		case "type":
			typ = strings.ToLower(strings.TrimSpace(attr.Val))
		case "lang":
			if strings.EqualFold(attr.Val, "ts") {
				typ = "text/typescript"
			}
		}
	}

	switch typ {
	case "", "text/javascript", "application/javascript", "module", "text/ecmascript", "application/ecmascript":
		s.Language = models.LanguageJavaScript
	case "text/typescript", "application/typescript", "ts":
		s.Language = models.LanguageTypeScript
	default:
		return Script{}, false
	}

	if s.Src != "" {
		if typ == "" {
			s.Language = models.LanguageOf(s.Src)
		}
		return s, true
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	s.Body = b.String()
	if strings.TrimSpace(s.Body) == "" {
		return Script{}, false
	}
	return s, true
}
