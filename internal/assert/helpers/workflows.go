package helpers

import "github.com/Chab-algo/praxia/pkg/api"

// NewLLMStep creates an llm_call step with the given user prompt
func NewLLMStep(id api.StepID, userPrompt string) *api.StepSpec {
	return &api.StepSpec{
		ID:           id,
		Type:         api.StepTypeLLM,
		SystemPrompt: "You are a precise assistant",
		UserPrompt:   userPrompt,
		Complexity:   api.ComplexityClassify,
	}
}

// NewJSONStep creates an llm_call step that expects a JSON object back
func NewJSONStep(id api.StepID, userPrompt string) *api.StepSpec {
	s := NewLLMStep(id, userPrompt)
	s.ResponseFormat = api.ResponseFormatJSON
	return s
}

// NewTransformStep creates a transform step with the given mapping
func NewTransformStep(
	id api.StepID, mapping map[api.Name]string,
) *api.StepSpec {
	return &api.StepSpec{
		ID:      id,
		Type:    api.StepTypeTransform,
		Mapping: mapping,
	}
}

// NewWorkflow creates a workflow from steps
func NewWorkflow(id api.RecipeID, steps ...*api.StepSpec) *api.WorkflowSpec {
	return &api.WorkflowSpec{
		ID:    id,
		Steps: steps,
	}
}

// NoCache marks a step as non-cacheable and returns it
func NoCache(s *api.StepSpec) *api.StepSpec {
	off := false
	s.Cacheable = &off
	return s
}
