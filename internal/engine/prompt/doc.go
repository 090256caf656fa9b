// Package prompt renders {{path}} templates against an execution's
// variable context
package prompt
