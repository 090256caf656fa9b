package memo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Chab-algo/praxia/internal/provider"
	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
)

type (
	// Cache is a two-layer response cache. The exact layer is keyed by the
	// model and the rendered messages; the template layer by the recipe,
	// the step and the normalized user input
	Cache struct {
		store store.Store
	}

	// Key identifies a provider request for caching purposes
	Key struct {
		Model     string
		Messages  []api.Message
		RecipeID  api.RecipeID
		StepID    api.StepID
		InputText string
	}

	// Result is the outcome of a cache lookup
	Result struct {
		Data  any
		Layer Layer
		Hit   bool
	}

	// Layer names the cache layer that produced a hit
	Layer string
)

const (
	LayerExact    Layer = "exact"
	LayerTemplate Layer = "template"

	ExactTTL    = 24 * time.Hour
	TemplateTTL = 12 * time.Hour

	exactPrefix    = "llm:exact:"
	templatePrefix = "llm:tpl:"
)

// NewCache creates a Cache over the given store
func NewCache(st store.Store) *Cache {
	return &Cache{store: st}
}

// Get consults the exact layer, then the template layer. Store failures
// are logged and reported as a miss
func (c *Cache) Get(ctx context.Context, k *Key) *Result {
	if data, ok := c.lookup(ctx, k.ExactKey()); ok {
		slog.Debug("Cache hit", slog.String("layer", string(LayerExact)))
		return &Result{Hit: true, Layer: LayerExact, Data: data}
	}

	tpl, ok := k.TemplateKey()
	if !ok {
		return &Result{}
	}
	if data, ok := c.lookup(ctx, tpl); ok {
		slog.Debug("Cache hit", slog.String("layer", string(LayerTemplate)))
		return &Result{Hit: true, Layer: LayerTemplate, Data: data}
	}
	return &Result{}
}

// Set writes data to both layers independently. Failures are logged and
// otherwise ignored
func (c *Cache) Set(ctx context.Context, k *Key, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to encode cache entry", log.Error(err))
		return
	}

	c.write(ctx, k.ExactKey(), string(raw), ExactTTL)
	if tpl, ok := k.TemplateKey(); ok {
		c.write(ctx, tpl, string(raw), TemplateTTL)
	}
}

func (c *Cache) lookup(ctx context.Context, key string) (any, bool) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		slog.Warn("Cache read failed", log.Error(err))
		return nil, false
	}
	if !ok || !gjson.Valid(raw) {
		return nil, false
	}
	return gjson.Parse(raw).Value(), true
}

func (c *Cache) write(
	ctx context.Context, key, raw string, ttl time.Duration,
) {
	if err := c.store.SetWithTTL(ctx, key, raw, ttl); err != nil {
		slog.Warn("Cache write failed", log.Error(err))
	}
}

// ExactKey returns the exact-layer key
func (k *Key) ExactKey() string {
	return exactPrefix + provider.HashPrompt(k.Model, k.Messages)
}

// TemplateKey returns the template-layer key. The layer only applies when
// the recipe, the step and the input text are all known
func (k *Key) TemplateKey() (string, bool) {
	if k.RecipeID == "" || k.StepID == "" || k.InputText == "" {
		return "", false
	}
	norm := strings.ToLower(strings.TrimSpace(k.InputText))
	payload := string(k.RecipeID) + ":" + string(k.StepID) + ":" + norm
	sum := sha256.Sum256([]byte(payload))
	return templatePrefix + hex.EncodeToString(sum[:]), true
}
