// Package engine implements the workflow executor
//
// An execution runs the steps of a workflow strictly in order, threading a
// private variable context through them. Provider-bound steps are routed to
// a model, rate limited per caller, served from the response cache when
// possible, and charged against the global budget before the call is made
package engine
