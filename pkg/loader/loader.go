// Package loader turns command-line inputs into compilation units: files,
// stdin, remote scripts and the scripts of HTML pages.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lcalzada-xor/jspp/pkg/logger"
	"github.com/lcalzada-xor/jspp/pkg/models"
)

// Fetcher downloads remote sources. *network.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options tunes how inputs are read.
type Options struct {
	// TypeScript forces type erasure for every unit.
	TypeScript bool
	// Concurrency bounds the parallel fetches of one page.
	Concurrency int
	// Stdin replaces os.Stdin for the "-" input.
	Stdin io.Reader
}

// Loader reads inputs. Remote sources are cached by URL so that a script
// shared by several pages is fetched once per run.
type Loader struct {
	fetcher Fetcher
	log     *logger.Logger
	opts    Options

	cache sync.Map // map[string]*entry (URL -> content)
}

type entry struct {
	once sync.Once
	data []byte
	err  error
}

// New creates a loader. fetcher may be nil when no remote input is expected.
func New(fetcher Fetcher, log *logger.Logger, opts Options) *Loader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	return &Loader{fetcher: fetcher, log: log, opts: opts}
}

// Load returns the units of one input in document order.
func (l *Loader) Load(ctx context.Context, input string) ([]models.SourceUnit, error) {
	kind, err := models.ParseInput(input)
	if err != nil {
		return nil, err
	}
	input = strings.TrimSpace(input)

	switch kind {
	case models.InputStdin:
		data, err := io.ReadAll(l.opts.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []models.SourceUnit{l.unit("-", models.OriginStdin, models.LanguageJavaScript, data)}, nil

	case models.InputURL:
		data, err := l.fetch(ctx, input)
		if err != nil {
			return nil, err
		}
		return []models.SourceUnit{l.unit(input, models.OriginRemote, models.LanguageOf(input), data)}, nil

	case models.InputHTML:
		return l.page(ctx, input)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", input, err)
	}
	return []models.SourceUnit{l.unit(input, models.OriginFile, models.LanguageOf(input), data)}, nil
}

func (l *Loader) unit(name string, origin models.Origin, lang models.Language, data []byte) models.SourceUnit {
	if l.opts.TypeScript {
		lang = models.LanguageTypeScript
	}
	return models.SourceUnit{Name: name, Origin: origin, Language: lang, Source: data}
}

// fetch returns the cached content of rawURL, fetching it on first use.
func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if l.fetcher == nil {
		return nil, fmt.Errorf("fetching %s: remote inputs are disabled", rawURL)
	}
	v, _ := l.cache.LoadOrStore(rawURL, &entry{})
	e := v.(*entry)
	e.once.Do(func() {
		l.log.V("Fetching %s", rawURL)
		e.data, e.err = l.fetcher.Fetch(ctx, rawURL)
	})
	return e.data, e.err
}

// page extracts the scripts of an HTML input. External scripts are read
// concurrently; the result keeps document order.
func (l *Loader) page(ctx context.Context, input string) ([]models.SourceUnit, error) {
	remote := strings.Contains(input, "://")
	var data []byte
	var err error
	if remote {
		data, err = l.fetch(ctx, input)
	} else {
		data, err = os.ReadFile(input)
		if err != nil {
			err = fmt.Errorf("reading %s: %w", input, err)
		}
	}
	if err != nil {
		return nil, err
	}

	scripts, err := ExtractScripts(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}
	l.log.VV("%s: %d script(s)", input, len(scripts))

	units := make([]models.SourceUnit, len(scripts))
	errs := make([]error, len(scripts))

	var wg sync.WaitGroup
	sem := make(chan struct{}, l.opts.Concurrency)
	for i, s := range scripts {
		if s.Src == "" {
			u := l.unit(fmt.Sprintf("%s#%d", input, i), models.OriginInline, s.Language, []byte(s.Body))
			u.Page, u.Index = input, i
			units[i] = u
			continue
		}

		wg.Add(1)
		go func(i int, s Script) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore

			ref, err := resolve(input, s.Src)
			if err != nil {
				errs[i] = err
				return
			}
			origin := models.OriginFile
			var body []byte
			if strings.Contains(ref, "://") {
				origin = models.OriginRemote
				body, err = l.fetch(ctx, ref)
			} else {
				body, err = os.ReadFile(ref)
			}
			if err != nil {
				errs[i] = fmt.Errorf("%s: script %d: %w", input, i, err)
				return
			}
			u := l.unit(ref, origin, s.Language, body)
			u.Page, u.Index = input, i
			units[i] = u
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return units, nil
}

// resolve makes src absolute against the page that references it.
func resolve(page, src string) (string, error) {
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	if strings.Contains(page, "://") || strings.Contains(src, "://") {
		base, err := url.Parse(page)
		if err != nil {
			return "", fmt.Errorf("invalid page URL %s: %w", page, err)
		}
		u, err := base.Parse(src)
		if err != nil {
			return "", fmt.Errorf("invalid script URL %s: %w", src, err)
		}
		return u.String(), nil
	}
	if filepath.IsAbs(src) {
		return src, nil
	}
	return filepath.Join(filepath.Dir(page), filepath.FromSlash(src)), nil
}
