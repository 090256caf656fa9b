package api

import (
	"errors"
	"fmt"
)

// ExecutionError reports the step that aborted an execution. Result holds
// the partial result, including the failed step's outcome
type ExecutionError struct {
	Err    error
	Result *ExecutionResult
	StepID StepID
	Index  int
}

// ErrorType names the error category reported in step outcomes
type ErrorType string

const (
	ErrorTypeConfiguration ErrorType = "ConfigurationError"
	ErrorTypeBudget        ErrorType = "BudgetExceeded"
	ErrorTypeGlobalBudget  ErrorType = "GlobalBudgetExceeded"
	ErrorTypeRateLimit     ErrorType = "RateLimitExceeded"
	ErrorTypeStepExecution ErrorType = "StepExecutionError"
)

var (
	ErrConfiguration     = errors.New("configuration error")
	ErrBudgetExceeded    = errors.New("budget exceeded")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrStepExecution     = errors.New("step execution failed")

	ErrGlobalBudgetExceeded = fmt.Errorf(
		"%w: global budget", ErrBudgetExceeded,
	)
)

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %v", e.Index, e.StepID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ClassifyError maps an error onto the category reported to callers
func ClassifyError(err error) ErrorType {
	switch {
	case errors.Is(err, ErrConfiguration):
		return ErrorTypeConfiguration
	case errors.Is(err, ErrGlobalBudgetExceeded):
		return ErrorTypeGlobalBudget
	case errors.Is(err, ErrBudgetExceeded):
		return ErrorTypeBudget
	case errors.Is(err, ErrRateLimitExceeded):
		return ErrorTypeRateLimit
	default:
		return ErrorTypeStepExecution
	}
}
