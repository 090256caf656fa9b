package prompt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Chab-algo/praxia/internal/engine/prompt"
	"github.com/Chab-algo/praxia/pkg/api"
)

func testVars() map[string]any {
	return map[string]any{
		"name":  "Ada",
		"count": 3,
		"flags": []any{"a", "b"},
		"empty": nil,
		"steps": map[string]any{
			"classify": map[string]any{
				"output": map[string]any{
					"sentiment": "positive",
					"score":     0.9,
				},
			},
		},
		"args": api.Args{"lang": "fr"},
	}
}

func TestRenderTemplate(t *testing.T) {
	vars := testVars()

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{
			name:     "no_placeholders",
			template: "plain text",
			expected: "plain text",
		},
		{
			name:     "simple",
			template: "Hello {{name}}!",
			expected: "Hello Ada!",
		},
		{
			name:     "whitespace_inside_braces",
			template: "Hello {{ name }}",
			expected: "Hello Ada",
		},
		{
			name:     "nested_path",
			template: "Mood: {{steps.classify.output.sentiment}}",
			expected: "Mood: positive",
		},
		{
			name:     "number",
			template: "n={{count}} s={{steps.classify.output.score}}",
			expected: "n=3 s=0.9",
		},
		{
			name:     "list_as_json",
			template: "{{flags}} here",
			expected: `["a","b"] here`,
		},
		{
			name:     "map_as_json",
			template: "out: {{steps.classify.output}}",
			expected: `out: {"score":0.9,"sentiment":"positive"}`,
		},
		{
			name:     "nil_value",
			template: "v={{empty}}",
			expected: "v=null",
		},
		{
			name:     "args_map",
			template: "lang={{args.lang}}",
			expected: "lang=fr",
		},
		{
			name:     "missing_kept_verbatim",
			template: "Hello {{ missing.path }}!",
			expected: "Hello {{ missing.path }}!",
		},
		{
			name:     "path_through_scalar",
			template: "{{name.first}}",
			expected: "{{name.first}}",
		},
		{
			name:     "multiple",
			template: "{{name}} and {{name}}",
			expected: "Ada and Ada",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, prompt.RenderTemplate(tt.template, vars))
		})
	}
}

func TestRenderTemplateMissingWithEmptyVars(t *testing.T) {
	assert.Equal(t,
		"Hello {{missing}}",
		prompt.RenderTemplate("Hello {{missing}}", map[string]any{}),
	)
	assert.Equal(t,
		"Hello {{missing}}",
		prompt.RenderTemplate("Hello {{missing}}", nil),
	)
}

func TestRenderValue(t *testing.T) {
	vars := testVars()

	t.Run("preserves_number", func(t *testing.T) {
		assert.Equal(t, 3, prompt.RenderValue("{{count}}", vars))
	})

	t.Run("preserves_map_with_whitespace", func(t *testing.T) {
		res := prompt.RenderValue("  {{ steps.classify.output }} ", vars)
		assert.Equal(t, map[string]any{
			"sentiment": "positive",
			"score":     0.9,
		}, res)
	})

	t.Run("preserves_nil", func(t *testing.T) {
		assert.Nil(t, prompt.RenderValue("{{empty}}", vars))
	})

	t.Run("mixed_text_is_string", func(t *testing.T) {
		assert.Equal(t, "count: 3", prompt.RenderValue("count: {{count}}", vars))
	})

	t.Run("two_placeholders_is_string", func(t *testing.T) {
		assert.Equal(t, "Ada3", prompt.RenderValue("{{name}}{{count}}", vars))
	})

	t.Run("missing_single_placeholder", func(t *testing.T) {
		assert.Equal(t, "{{nope}}", prompt.RenderValue("{{nope}}", vars))
	})
}

func TestRendererMemoizes(t *testing.T) {
	r := prompt.NewRenderer(2)
	vars := testVars()

	for range 3 {
		assert.Equal(t, "Hi Ada", r.RenderTemplate("Hi {{name}}", vars))
		assert.Equal(t, 3, r.RenderValue("{{count}}", vars))
		assert.Equal(t, "x", r.RenderTemplate("x", vars))
	}
}

func TestBuildMessages(t *testing.T) {
	r := prompt.NewRenderer(0)
	msgs := r.BuildMessages(
		"You are {{role}}", "Classify: {{name}}",
		map[string]any{"name": "Ada"},
	)

	assert.Equal(t, []api.Message{
		{Role: api.RoleSystem, Content: "You are {{role}}"},
		{Role: api.RoleUser, Content: "Classify: Ada"},
	}, msgs)
}
