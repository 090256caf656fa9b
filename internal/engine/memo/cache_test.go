package memo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/internal/engine/memo"
	"github.com/Chab-algo/praxia/internal/store"
	"github.com/Chab-algo/praxia/pkg/api"
)

func newTestCache(t *testing.T) (*memo.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	st := store.NewRedisStore(config.StoreConfig{Addr: mr.Addr()})
	t.Cleanup(func() { _ = st.Close() })
	return memo.NewCache(st), mr
}

func testKey() *memo.Key {
	return &memo.Key{
		Model: api.ModelNano,
		Messages: []api.Message{
			{Role: api.RoleSystem, Content: "Classify"},
			{Role: api.RoleUser, Content: "  Hello World "},
		},
		RecipeID:  "recipe",
		StepID:    "classify",
		InputText: "  Hello World ",
	}
}

func TestCacheGetSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	k := testKey()

	assert.False(t, c.Get(ctx, k).Hit)

	c.Set(ctx, k, map[string]any{"label": "greeting", "score": 3})
	res := c.Get(ctx, k)
	assert.True(t, res.Hit)
	assert.Equal(t, memo.LayerExact, res.Layer)
	assert.Equal(t,
		map[string]any{"label": "greeting", "score": float64(3)}, res.Data,
	)
}

func TestCacheStringData(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	k := testKey()

	c.Set(ctx, k, "plain text")
	assert.Equal(t, "plain text", c.Get(ctx, k).Data)
}

func TestCacheTemplateLayer(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, testKey(), "cached")

	other := testKey()
	other.Model = api.ModelMini
	other.InputText = "hello world"
	res := c.Get(ctx, other)
	assert.True(t, res.Hit)
	assert.Equal(t, memo.LayerTemplate, res.Layer)
	assert.Equal(t, "cached", res.Data)

	t.Run("requires_recipe", func(t *testing.T) {
		k := testKey()
		k.Model = api.ModelMini
		k.RecipeID = ""
		assert.False(t, c.Get(ctx, k).Hit)
	})

	t.Run("requires_step", func(t *testing.T) {
		k := testKey()
		k.Model = api.ModelMini
		k.StepID = ""
		assert.False(t, c.Get(ctx, k).Hit)
	})

	t.Run("requires_input", func(t *testing.T) {
		k := testKey()
		k.Model = api.ModelMini
		k.InputText = ""
		assert.False(t, c.Get(ctx, k).Hit)
	})
}

func TestCacheKeys(t *testing.T) {
	k := testKey()
	assert.Regexp(t, `^llm:exact:[0-9a-f]{64}$`, k.ExactKey())

	tpl, ok := k.TemplateKey()
	assert.True(t, ok)
	assert.Regexp(t, `^llm:tpl:[0-9a-f]{64}$`, tpl)

	norm := testKey()
	norm.InputText = "HELLO WORLD"
	normKey, _ := norm.TemplateKey()
	assert.Equal(t, tpl, normKey)
}

func TestCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	k := testKey()

	c.Set(ctx, k, "cached")
	tpl, _ := k.TemplateKey()
	assert.Equal(t, memo.ExactTTL, mr.TTL(k.ExactKey()))
	assert.Equal(t, memo.TemplateTTL, mr.TTL(tpl))

	mr.FastForward(memo.TemplateTTL + time.Second)
	assert.False(t, mr.Exists(tpl))
	res := c.Get(ctx, k)
	assert.True(t, res.Hit)
	assert.Equal(t, memo.LayerExact, res.Layer)

	mr.FastForward(memo.ExactTTL)
	assert.False(t, c.Get(ctx, k).Hit)
}

func TestCacheStoreFailure(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	k := testKey()

	mr.Close()
	assert.NotPanics(t, func() {
		c.Set(ctx, k, "cached")
	})
	assert.False(t, c.Get(ctx, k).Hit)
}
