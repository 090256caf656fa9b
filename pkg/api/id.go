package api

type (
	// RecipeID identifies a workflow definition (recipe)
	RecipeID string

	// StepID is a unique identifier for a step within a workflow
	StepID string

	// ExecutionID is a unique identifier for a single workflow execution
	ExecutionID string

	// CallerID identifies the caller that rate limits are applied to
	CallerID string
)
