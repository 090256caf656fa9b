package api

import "github.com/Chab-algo/praxia/pkg/util"

// StepStatus represents the current state of a step execution
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// StepTransitions guards step status changes. Completed and failed are
// terminal
var StepTransitions = util.Transitions[StepStatus]{
	StepPending: util.SetOf(
		StepRunning,
		StepFailed,
	),
	StepRunning: util.SetOf(
		StepCompleted,
		StepFailed,
	),
	StepCompleted: {},
	StepFailed:    {},
}
