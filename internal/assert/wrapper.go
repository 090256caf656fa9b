package assert

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/pkg/api"
)

// Wrapper wraps testify assertions with praxia-specific helpers
type Wrapper struct {
	*testing.T
	*assert.Assertions
	Require *assert.Assertions
}

// DefaultRetryInterval is the default polling interval for Eventually checks
const DefaultRetryInterval = 100 * time.Millisecond

// New creates a new test assertion wrapper with both assert and require from
// testify plus praxia-specific helpers
func New(t *testing.T) *Wrapper {
	return &Wrapper{
		T:          t,
		Assertions: assert.New(t),
		Require:    assert.New(t),
	}
}

// StepValid asserts that a step definition is valid
func (w *Wrapper) StepValid(s *api.StepSpec) {
	w.Helper()
	w.NoError(s.Validate())
	w.NotEmpty(s.ID)

	switch s.StepType() {
	case api.StepTypeLLM, api.StepTypeVision:
		w.NotEmpty(s.UserPrompt, "prompt steps should have a user prompt")
	case api.StepTypeTransform:
		w.NotEmpty(s.Mapping, "transform steps should have a mapping")
	}
}

// StepInvalid asserts that a step is invalid and returns the validation error
func (w *Wrapper) StepInvalid(
	s *api.StepSpec, expectedErrorContains string,
) error {
	w.Helper()
	err := s.Validate()
	w.Error(err)
	w.ErrorIs(err, api.ErrConfiguration)
	if err != nil && expectedErrorContains != "" {
		w.Contains(err.Error(), expectedErrorContains)
	}
	return err
}

// WorkflowValid asserts that a workflow is valid
func (w *Wrapper) WorkflowValid(wf *api.WorkflowSpec) {
	w.Helper()
	w.NoError(wf.Validate())
	for _, s := range wf.Steps {
		w.StepValid(s)
	}
}

// WorkflowInvalid asserts that a workflow is rejected with a configuration
// error
func (w *Wrapper) WorkflowInvalid(wf *api.WorkflowSpec, target error) {
	w.Helper()
	err := wf.Validate()
	w.ErrorIs(err, api.ErrConfiguration)
	if target != nil {
		w.ErrorIs(err, target)
	}
}

// StepStatus asserts the status of a step outcome
func (w *Wrapper) StepStatus(o *api.StepOutcome, expected api.StepStatus) {
	w.Helper()
	if w.NotNil(o) {
		w.Equal(expected, o.Status)
	}
}

// ExecutionFailed asserts that err is an *api.ExecutionError of the given
// type at the given step, and returns its partial result
func (w *Wrapper) ExecutionFailed(
	err error, typ api.ErrorType, stepID api.StepID,
) *api.ExecutionResult {
	w.Helper()
	var ee *api.ExecutionError
	if !w.True(errors.As(err, &ee), "expected ExecutionError, got %v", err) {
		return nil
	}
	w.Equal(typ, api.ClassifyError(err))
	w.Equal(stepID, ee.StepID)
	return ee.Result
}

// ConfigValid asserts that a configuration is valid
func (w *Wrapper) ConfigValid(cfg *config.Config) {
	w.Helper()
	w.NoError(cfg.Validate())
	w.True(cfg.APIPort > 0 && cfg.APIPort <= 65535)
	w.True(cfg.BudgetLimit > 0)
}

// ConfigInvalid asserts that a configuration is invalid
func (w *Wrapper) ConfigInvalid(cfg *config.Config, contains string) {
	w.Helper()
	err := cfg.Validate()
	w.Error(err)
	if err != nil && contains != "" {
		w.Contains(err.Error(), contains)
	}
}

// Eventually runs a condition repeatedly until it passes or times out
func (w *Wrapper) Eventually(
	condition func() bool, timeout time.Duration, msg string, args ...any,
) {
	w.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(DefaultRetryInterval)
	}
	w.Fail(msg, args...)
}
