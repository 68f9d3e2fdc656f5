package template

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/golang/groupcache/lru"

	"github.com/sophialabs/mockdeck/internal/domain/match"
	"github.com/sophialabs/mockdeck/internal/infrastructure/ports"
)

const (
	// DefaultCacheSize is the number of compiled templates kept.
	DefaultCacheSize = 512
	previewLength    = 120
)

// bannedTags would let a template reach outside its own source or recurse
// without bound.
var bannedTags = []string{"include", "extends", "import", "ssi", "macro"}

// empty backs the template set loader; templates are only built from strings.
var empty embed.FS

var _ ports.Renderer = (*Engine)(nil)

// Config tunes an Engine.
type Config struct {
	MaxLoopIterations int
	CacheSize         int
}

// Engine renders response bodies and header values with pongo2.
type Engine struct {
	set     *pongo2.TemplateSet
	mu      sync.Mutex
	cache   *lru.Cache
	logger  ports.Logger
	clock   ports.Clock
	maxLoop int
}

// NewEngine creates a sandboxed template engine.
func NewEngine(cfg Config, clock ports.Clock, logger ports.Logger) (*Engine, error) {
	set := pongo2.NewSet("mockdeck", pongo2.NewFSLoader(empty))
	for _, tag := range bannedTags {
		if err := set.BanTag(tag); err != nil {
			return nil, fmt.Errorf("ban template tag %q: %w", tag, err)
		}
	}

	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.MaxLoopIterations <= 0 {
		cfg.MaxLoopIterations = DefaultMaxLoopIterations
	}

	return &Engine{
		set:     set,
		cache:   lru.New(cfg.CacheSize),
		logger:  logger,
		clock:   clock,
		maxLoop: cfg.MaxLoopIterations,
	}, nil
}

// Render evaluates source against rc. Sources without template syntax are
// returned as is. Any compile or render failure is logged and the original
// source is returned.
func (e *Engine) Render(source string, rc match.RenderContext) string {
	return e.Bind(rc)(source)
}

// Bind returns a function rendering sources against rc. The request
// bindings are prepared once, on the first source that needs them, and
// shared by every later call.
func (e *Engine) Bind(rc match.RenderContext) func(source string) string {
	prepared := sync.OnceValue(func() *bindings { return prepare(rc) })
	return func(source string) string {
		if !hasTemplateSyntax(source) {
			return source
		}
		return e.render(source, prepared)
	}
}

func (e *Engine) render(source string, prepared func() *bindings) (out string) {
	defer func() {
		if p := recover(); p != nil {
			e.logFailure(source, fmt.Errorf("panic: %v", p))
			out = source
		}
	}()

	tpl, err := e.compile(foldHeaderLookups(RewriteLegacy(source)))
	if err != nil {
		e.logFailure(source, err)
		return source
	}

	result, err := tpl.Execute(e.buildContext(prepared()))
	if err != nil {
		e.logFailure(source, err)
		return source
	}
	return result
}

func (e *Engine) compile(source string) (*pongo2.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.cache.Get(source); ok {
		return cached.(*pongo2.Template), nil
	}

	tpl, err := e.set.FromString("{% autoescape off %}" + source + "{% endautoescape %}")
	if err != nil {
		return nil, fmt.Errorf("compile template: %w", err)
	}
	e.cache.Add(source, tpl)
	return tpl, nil
}

func (e *Engine) logFailure(source string, err error) {
	e.logger.Warn("template render failed",
		"error", err,
		"template", preview(source),
	)
}

func hasTemplateSyntax(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%") || strings.Contains(s, "{#")
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLength {
		return s
	}
	return string(r[:previewLength]) + "..."
}
