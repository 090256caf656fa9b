package prompt

import (
	"github.com/kode4food/lru"

	"github.com/Chab-algo/praxia/pkg/api"
)

// Renderer renders prompt templates, memoizing parsed templates
type Renderer struct {
	cache *lru.Cache[*Template]
}

// DefaultCacheSize is the number of parsed templates kept by default
const DefaultCacheSize = 1024

// NewRenderer creates a Renderer that keeps up to size parsed templates
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Renderer{
		cache: lru.NewCache[*Template](size),
	}
}

// RenderTemplate replaces every {{path}} in tmpl with its value in vars
func (r *Renderer) RenderTemplate(tmpl string, vars map[string]any) string {
	return r.parse(tmpl).Render(vars)
}

// RenderValue resolves a single-placeholder template to its typed value,
// falling back to RenderTemplate
func (r *Renderer) RenderValue(tmpl string, vars map[string]any) any {
	return r.parse(tmpl).RenderValue(vars)
}

// BuildMessages renders the system and user prompts into a chat exchange
func (r *Renderer) BuildMessages(
	system, user string, vars map[string]any,
) []api.Message {
	return []api.Message{
		{Role: api.RoleSystem, Content: r.RenderTemplate(system, vars)},
		{Role: api.RoleUser, Content: r.RenderTemplate(user, vars)},
	}
}

func (r *Renderer) parse(tmpl string) *Template {
	res, _ := r.cache.Get(tmpl, func() (*Template, error) {
		return Parse(tmpl), nil
	})
	return res
}

// RenderTemplate renders tmpl without memoization
func RenderTemplate(tmpl string, vars map[string]any) string {
	return Parse(tmpl).Render(vars)
}

// RenderValue resolves tmpl without memoization
func RenderValue(tmpl string, vars map[string]any) any {
	return Parse(tmpl).RenderValue(vars)
}
