package api

import (
	"errors"
	"fmt"

	"github.com/Chab-algo/praxia/pkg/util"
)

type (
	// StepType selects the handler that executes a step
	StepType string

	// Complexity is the qualitative task classification that drives model
	// tier selection
	Complexity string

	// ResponseFormat declares the shape a provider response is expected in
	ResponseFormat string

	// StepSpec defines a single step of a workflow
	StepSpec struct {
		Temperature    *float64        `json:"temperature,omitempty" yaml:"temperature,omitempty"`
		Cacheable      *bool           `json:"cacheable,omitempty" yaml:"cacheable,omitempty"`
		Mapping        map[Name]string `json:"mapping,omitempty" yaml:"mapping,omitempty"`
		ID             StepID          `json:"id" yaml:"id"`
		Name           string          `json:"name,omitempty" yaml:"name,omitempty"`
		Type           StepType        `json:"type,omitempty" yaml:"type,omitempty"`
		SystemPrompt   string          `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
		UserPrompt     string          `json:"user_prompt,omitempty" yaml:"user_prompt,omitempty"`
		Complexity     Complexity      `json:"complexity,omitempty" yaml:"complexity,omitempty"`
		ForceModel     string          `json:"force_model,omitempty" yaml:"force_model,omitempty"`
		ResponseFormat ResponseFormat  `json:"response_format,omitempty" yaml:"response_format,omitempty"`
		VisionModel    string          `json:"vision_model,omitempty" yaml:"vision_model,omitempty"`
		Language       string          `json:"language,omitempty" yaml:"language,omitempty"`
		MaxTokens      int             `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
		Vision         bool            `json:"vision,omitempty" yaml:"vision,omitempty"`
	}
)

const (
	StepTypeLLM       StepType = "llm_call"
	StepTypeVision    StepType = "vision"
	StepTypeAudio     StepType = "audio"
	StepTypeTransform StepType = "transform"

	ComplexityClassify      Complexity = "classify"
	ComplexityExtract       Complexity = "extract"
	ComplexityScore         Complexity = "score"
	ComplexityValidate      Complexity = "validate"
	ComplexityGenerateShort Complexity = "generate_short"
	ComplexityGenerateLong  Complexity = "generate_long"
	ComplexityAnalyze       Complexity = "analyze"
	ComplexitySummarize     Complexity = "summarize"
	ComplexityReason        Complexity = "reason"
	ComplexityDecideComplex Complexity = "decide_complex"

	ResponseFormatText ResponseFormat = ""
	ResponseFormatJSON ResponseFormat = "json_object"

	DefaultComplexity  = ComplexityGenerateShort
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.2
	DefaultVisionModel = "gpt-4o-mini"
)

var (
	ErrStepIDEmpty        = errors.New("step ID empty")
	ErrInvalidStepType    = errors.New("invalid step type")
	ErrPromptRequired     = errors.New("step requires a user prompt")
	ErrMappingRequired    = errors.New("transform step requires a mapping")
	ErrNegativeMaxTokens  = errors.New("max_tokens cannot be negative")
	ErrInvalidTemperature = errors.New("temperature must be within [0, 2]")
	ErrInvalidFormat      = errors.New("invalid response format")
)

var (
	validStepTypes = util.SetOf(
		StepTypeLLM,
		StepTypeVision,
		StepTypeAudio,
		StepTypeTransform,
	)

	validResponseFormats = util.SetOf(
		ResponseFormatText,
		ResponseFormatJSON,
	)
)

// Validate checks the step definition in isolation. Every returned error
// wraps ErrConfiguration
func (s *StepSpec) Validate() error {
	if err := s.validate(); err != nil {
		return fmt.Errorf("%w: step %q: %w", ErrConfiguration, s.ID, err)
	}
	return nil
}

func (s *StepSpec) validate() error {
	if s.ID == "" {
		return ErrStepIDEmpty
	}

	typ := s.StepType()
	if !validStepTypes.Contains(typ) {
		return fmt.Errorf("%w: %s", ErrInvalidStepType, typ)
	}

	switch typ {
	case StepTypeLLM, StepTypeVision:
		if s.UserPrompt == "" {
			return ErrPromptRequired
		}
	case StepTypeTransform:
		if len(s.Mapping) == 0 {
			return ErrMappingRequired
		}
	}

	if s.MaxTokens < 0 {
		return ErrNegativeMaxTokens
	}
	if t := s.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("%w: %v", ErrInvalidTemperature, *t)
	}
	if !validResponseFormats.Contains(s.ResponseFormat) {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, s.ResponseFormat)
	}
	return nil
}

// StepType returns the declared type, defaulting to an LLM call
func (s *StepSpec) StepType() StepType {
	if s.Type == "" {
		return StepTypeLLM
	}
	return s.Type
}

// DisplayName returns the step name, falling back to a positional name
func (s *StepSpec) DisplayName(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step_%d", index)
}

// IsCacheable reports whether the step may read and write the response
// cache. Steps are cacheable unless they opt out
func (s *StepSpec) IsCacheable() bool {
	return s.Cacheable == nil || *s.Cacheable
}

// GetComplexity returns the complexity tag or the default
func (s *StepSpec) GetComplexity() Complexity {
	if s.Complexity == "" {
		return DefaultComplexity
	}
	return s.Complexity
}

// GetMaxTokens returns the output token cap or the default
func (s *StepSpec) GetMaxTokens() int {
	if s.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return s.MaxTokens
}

// GetTemperature returns the sampling temperature or the default
func (s *StepSpec) GetTemperature() float64 {
	if s.Temperature == nil {
		return DefaultTemperature
	}
	return *s.Temperature
}

// GetVisionModel returns the vision model or the default
func (s *StepSpec) GetVisionModel() string {
	if s.VisionModel == "" {
		return DefaultVisionModel
	}
	return s.VisionModel
}

// WantsJSON reports whether the step declares a structured response
func (s *StepSpec) WantsJSON() bool {
	return s.ResponseFormat == ResponseFormatJSON
}
