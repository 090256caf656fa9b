// Package store provides the shared atomic key-value store used for the
// global budget ledger, per-caller rate windows and the response cache.
// The Redis implementation performs its compound operations as Lua scripts
package store
