package api

import (
	"errors"
	"fmt"
	"time"
)

type (
	// StepOutcome records what happened when a single step ran
	StepOutcome struct {
		StartedAt    time.Time  `json:"started_at"`
		Output       any        `json:"output,omitempty"`
		Error        *StepError `json:"error,omitempty"`
		StepID       StepID     `json:"step_id"`
		Name         string     `json:"name"`
		Type         StepType   `json:"type"`
		Status       StepStatus `json:"status"`
		Model        string     `json:"model,omitempty"`
		CacheLayer   string     `json:"cache_layer,omitempty"`
		PromptHash   string     `json:"prompt_hash,omitempty"`
		Index        int        `json:"index"`
		InputTokens  int        `json:"input_tokens"`
		OutputTokens int        `json:"output_tokens"`
		CostUSD      float64    `json:"cost_usd"`
		DurationMS   int64      `json:"duration_ms"`
		CacheHit     bool       `json:"cache_hit"`
		Vision       bool       `json:"vision,omitempty"`
		Audio        bool       `json:"audio,omitempty"`
	}

	// StepError is the error payload carried by a failed step outcome
	StepError struct {
		Error string    `json:"error"`
		Type  ErrorType `json:"type"`
	}

	// ExecutionResult aggregates the outcomes of one workflow execution
	ExecutionResult struct {
		StartedAt         time.Time      `json:"started_at"`
		CompletedAt       time.Time      `json:"completed_at"`
		Output            any            `json:"output"`
		ExecutionID       ExecutionID    `json:"execution_id"`
		Steps             []*StepOutcome `json:"steps"`
		ModelsUsed        []string       `json:"models_used"`
		TotalCostUSD      float64        `json:"total_cost_usd"`
		TotalInputTokens  int            `json:"total_input_tokens"`
		TotalOutputTokens int            `json:"total_output_tokens"`
		CacheHits         int            `json:"cache_hits"`
		DurationMS        int64          `json:"duration_ms"`
	}
)

var ErrInvalidTransition = errors.New("invalid step status transition")

// NewStepOutcome returns a pending outcome for the step at index
func NewStepOutcome(index int, s *StepSpec) *StepOutcome {
	return &StepOutcome{
		Index:  index,
		StepID: s.ID,
		Name:   s.DisplayName(index),
		Type:   s.StepType(),
		Status: StepPending,
	}
}

// SetStatus moves the outcome to a new status if the transition is allowed
func (o *StepOutcome) SetStatus(to StepStatus) error {
	if !StepTransitions.CanTransition(o.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	return nil
}

// Complete marks the outcome completed with the given output
func (o *StepOutcome) Complete(output any) error {
	if err := o.SetStatus(StepCompleted); err != nil {
		return err
	}
	o.Output = output
	return nil
}

// Fail marks the outcome failed and records the classified error
func (o *StepOutcome) Fail(err error) error {
	if e := o.SetStatus(StepFailed); e != nil {
		return e
	}
	o.Error = &StepError{
		Error: err.Error(),
		Type:  ClassifyError(err),
	}
	return nil
}

// Add folds a finished step outcome into the result totals
func (r *ExecutionResult) Add(o *StepOutcome) {
	r.Steps = append(r.Steps, o)
	r.TotalCostUSD += o.CostUSD
	r.TotalInputTokens += o.InputTokens
	r.TotalOutputTokens += o.OutputTokens
	if o.CacheHit {
		r.CacheHits++
	}
}
