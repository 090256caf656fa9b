// Package event provides the in-process publish/subscribe hub used to
// broadcast budget alerts to interested listeners
package event
