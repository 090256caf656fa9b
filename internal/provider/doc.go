// Package provider is the boundary to the generative model provider. It
// counts tokens, prices calls and speaks the OpenAI-compatible HTTP API
package provider
