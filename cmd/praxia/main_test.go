package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Chab-algo/praxia/pkg/api"
)

const reviewWorkflow = `
id: review
steps:
  - id: classify
    complexity: classify
    system_prompt: You are a precise assistant
    user_prompt: "Classify {{text}}"
`

func writeWorkflow(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func setupEnv(t *testing.T) (*miniredis.Miniredis, *atomic.Int32) {
	t.Helper()
	mr := miniredis.RunT(t)

	var calls atomic.Int32
	provider := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"model": "gpt-4.1-nano",
				"choices": [{"message": {"content": "positive"}}],
				"usage": {"prompt_tokens": 20, "completion_tokens": 3}
			}`))
		},
	))
	t.Cleanup(provider.Close)

	t.Setenv("REDIS_ADDR", mr.Addr())
	t.Setenv("REDIS_PREFIX", "cli")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", provider.URL)
	t.Setenv("MEDIA_BUCKET_URL", "mem://")
	t.Setenv("LOG_LEVEL", "error")
	return mr, &calls
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestParseInput(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		args, err := parseInput(`{"text":"hi","n":2,"tags":["a"]}`)
		require.NoError(t, err)
		assert.Equal(t, "hi", args["text"])
		assert.Equal(t, float64(2), args["n"])
		assert.Equal(t, []any{"a"}, args["tags"])
	})

	t.Run("empty_object", func(t *testing.T) {
		args, err := parseInput(`{}`)
		require.NoError(t, err)
		assert.Empty(t, args)
	})

	t.Run("not_an_object", func(t *testing.T) {
		_, err := parseInput(`[1, 2]`)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := parseInput(`{"text":`)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestLoadWorkflow(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		wf, err := loadWorkflow(writeWorkflow(t, reviewWorkflow))
		require.NoError(t, err)
		assert.Equal(t, api.RecipeID("review"), wf.ID)
		require.Len(t, wf.Steps, 1)
		assert.Equal(t, api.ComplexityClassify, wf.Steps[0].Complexity)
		assert.Equal(t, "Classify {{text}}", wf.Steps[0].UserPrompt)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := loadWorkflow(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrReadWorkflow)
	})

	t.Run("bad_yaml", func(t *testing.T) {
		_, err := loadWorkflow(writeWorkflow(t, "steps: [unclosed"))
		assert.ErrorIs(t, err, ErrParseWorkflow)
	})

	t.Run("invalid_workflow", func(t *testing.T) {
		_, err := loadWorkflow(writeWorkflow(t, "id: empty\nsteps: []\n"))
		assert.ErrorIs(t, err, api.ErrConfiguration)
		assert.ErrorIs(t, err, api.ErrNoSteps)
	})
}

func TestRunCommand(t *testing.T) {
	_, calls := setupEnv(t)
	path := writeWorkflow(t, reviewWorkflow)

	out, err := execute(t, "run", "-w", path,
		"-i", `{"text":"great product"}`, "--caller", "acme", "--tier", "pro",
	)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	res := gjson.Parse(out)
	assert.Equal(t, "positive", res.Get("output").String())
	assert.Equal(t, "gpt-4.1-nano", res.Get("models_used.0").String())
	assert.Equal(t, int64(20), res.Get("total_input_tokens").Int())
}

func TestRunCommandRequiresWorkflow(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "run", "-i", `{}`)
	assert.Error(t, err)
}

func TestBudgetCommand(t *testing.T) {
	mr, _ := setupEnv(t)
	t.Setenv("BUDGET_LIMIT_USD", "10")
	require.NoError(t, mr.Set("cli:budget:global:spent", "2.5"))

	out, err := execute(t, "budget")
	require.NoError(t, err)

	res := gjson.Parse(out)
	assert.Equal(t, 2.5, res.Get("spent_usd").Float())
	assert.Equal(t, 10.0, res.Get("limit_usd").Float())
	assert.Equal(t, 7.5, res.Get("remaining_usd").Float())
	assert.Equal(t, 25.0, res.Get("usage_percent").Float())
}

func TestBudgetCommandStoreDown(t *testing.T) {
	mr, _ := setupEnv(t)
	mr.Close()

	_, err := execute(t, "budget")
	assert.ErrorIs(t, err, ErrStoreConnect)
}

func TestRunCommandFlagDefaults(t *testing.T) {
	fl := newRunCmd().Flags()

	caller, err := fl.GetString("caller")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", caller)

	tier, err := fl.GetString("tier")
	require.NoError(t, err)
	assert.Equal(t, string(api.TierTrial), tier)

	input, err := fl.GetString("input")
	require.NoError(t, err)
	assert.Equal(t, "{}", input)
}
