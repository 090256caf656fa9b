// Package ratelimit applies per-caller request limits scaled by tier
package ratelimit
