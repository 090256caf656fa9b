package api

import "fmt"

type (
	// ExecuteRequest asks the engine to run a workflow
	ExecuteRequest struct {
		Workflow *WorkflowSpec `json:"workflow"`
		Input    Args          `json:"input"`
		CallerID CallerID      `json:"caller_id"`
		Tier     Tier          `json:"tier"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Version string `json:"version"`
		Status  string `json:"status"`
		Error   string `json:"error,omitempty"`
	}

	// ErrorResponse contains error details for failed requests. Result
	// carries the partial execution result when a step failed
	ErrorResponse struct {
		Result *ExecutionResult `json:"result,omitempty"`
		Error  string           `json:"error"`
		Type   ErrorType        `json:"type,omitempty"`
		Status int              `json:"status,omitempty"`
	}
)

var ErrWorkflowRequired = fmt.Errorf("%w: workflow required", ErrConfiguration)

const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
)

// Validate checks the request envelope and the workflow it carries
func (r *ExecuteRequest) Validate() error {
	if r.Workflow == nil {
		return ErrWorkflowRequired
	}
	return r.Workflow.Validate()
}
