package assert

import (
	"fmt"
	"testing"
	"time"

	"github.com/Chab-algo/praxia/internal/config"
	"github.com/Chab-algo/praxia/pkg/api"
)

func TestNew(t *testing.T) {
	wrapper := New(t)

	if wrapper.T != t {
		t.Error("Wrapper.T should be set to the testing.T instance")
	}
	if wrapper.Assertions == nil {
		t.Error("Wrapper.Assertions should be initialized")
	}
	if wrapper.Require == nil {
		t.Error("Wrapper.Require should be initialized")
	}
}

func TestStepValid(t *testing.T) {
	tests := []struct {
		name string
		step *api.StepSpec
	}{
		{
			name: "llm_call",
			step: &api.StepSpec{ID: "classify", UserPrompt: "{{text}}"},
		},
		{
			name: "vision",
			step: &api.StepSpec{
				ID:         "look",
				Type:       api.StepTypeVision,
				UserPrompt: "Describe",
			},
		},
		{
			name: "audio",
			step: &api.StepSpec{ID: "listen", Type: api.StepTypeAudio},
		},
		{
			name: "transform",
			step: &api.StepSpec{
				ID:      "shape",
				Type:    api.StepTypeTransform,
				Mapping: map[api.Name]string{"x": "{{text}}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			New(t).StepValid(tt.step)
		})
	}
}

func TestStepInvalid(t *testing.T) {
	w := New(t)
	err := w.StepInvalid(&api.StepSpec{ID: "x"}, "user prompt")
	w.ErrorIs(err, api.ErrPromptRequired)
}

func TestWorkflowValidity(t *testing.T) {
	w := New(t)
	w.WorkflowValid(&api.WorkflowSpec{
		Steps: []*api.StepSpec{{ID: "a", UserPrompt: "hi"}},
	})
	w.WorkflowInvalid(&api.WorkflowSpec{}, api.ErrNoSteps)
}

func TestStepStatus(t *testing.T) {
	o := api.NewStepOutcome(0, &api.StepSpec{ID: "a"})
	New(t).StepStatus(o, api.StepPending)
}

func TestExecutionFailed(t *testing.T) {
	res := &api.ExecutionResult{ExecutionID: "exec"}
	err := fmt.Errorf("outer: %w", &api.ExecutionError{
		Err:    fmt.Errorf("%w: boom", api.ErrStepExecution),
		Result: res,
		StepID: "b",
		Index:  1,
	})

	got := New(t).ExecutionFailed(err, api.ErrorTypeStepExecution, "b")
	if got != res {
		t.Error("ExecutionFailed should return the partial result")
	}
}

func TestConfigValid(t *testing.T) {
	New(t).ConfigValid(config.NewDefaultConfig())
}

func TestConfigInvalid(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.APIPort = 0
	New(t).ConfigInvalid(cfg, "port")
}

func TestEventually(t *testing.T) {
	calls := 0
	New(t).Eventually(func() bool {
		calls++
		return calls >= 2
	}, time.Second, "condition should pass")

	if calls < 2 {
		t.Error("Eventually should retry until the condition passes")
	}
}
