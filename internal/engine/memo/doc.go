// Package memo caches provider responses in the shared store so repeated
// requests skip the provider call entirely
package memo
