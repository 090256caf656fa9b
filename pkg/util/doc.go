// Package util holds the generic Set used for model and step bookkeeping
// and the transition tables that guard step status changes
package util
