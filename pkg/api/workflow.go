package api

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Chab-algo/praxia/pkg/util"
)

type (
	// WorkflowSpec is an ordered, declarative list of steps plus an optional
	// projection of the final variable context into the result output
	WorkflowSpec struct {
		Inputs        map[Name]InputKind `json:"inputs,omitempty" yaml:"inputs,omitempty"`
		OutputMapping map[Name]string    `json:"output_mapping,omitempty" yaml:"output_mapping,omitempty"`
		ID            RecipeID           `json:"id,omitempty" yaml:"id,omitempty"`
		Name          string             `json:"name,omitempty" yaml:"name,omitempty"`
		Steps         []*StepSpec        `json:"steps" yaml:"steps"`
	}

	// InputKind declares what an input field carries
	InputKind string
)

const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
	InputAudio InputKind = "audio"
)

var (
	ErrNoSteps          = errors.New("workflow has no steps")
	ErrNilStep          = errors.New("workflow contains a nil step")
	ErrDuplicateStepID  = errors.New("duplicate step ID")
	ErrInvalidInputKind = errors.New("invalid input kind")
)

var validInputKinds = util.SetOf(InputText, InputImage, InputAudio)

// Validate checks the whole workflow before any step runs. Every returned
// error wraps ErrConfiguration
func (w *WorkflowSpec) Validate() error {
	if len(w.Steps) == 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, ErrNoSteps)
	}

	seen := util.Set[StepID]{}
	for i, s := range w.Steps {
		if s == nil {
			return fmt.Errorf("%w: %w at index %d",
				ErrConfiguration, ErrNilStep, i,
			)
		}
		if err := s.Validate(); err != nil {
			return err
		}
		if seen.Contains(s.ID) {
			return fmt.Errorf("%w: %w: %s",
				ErrConfiguration, ErrDuplicateStepID, s.ID,
			)
		}
		seen.Add(s.ID)
	}

	for name, kind := range w.Inputs {
		if !validInputKinds.Contains(kind) {
			return fmt.Errorf("%w: %w: %s=%s",
				ErrConfiguration, ErrInvalidInputKind, name, kind,
			)
		}
	}
	return nil
}

// DeclaredInputs returns the names of the inputs declared with the given
// kind, sorted by name
func (w *WorkflowSpec) DeclaredInputs(kind InputKind) []Name {
	var res []Name
	for name, k := range w.Inputs {
		if k == kind {
			res = append(res, name)
		}
	}
	slices.Sort(res)
	return res
}
