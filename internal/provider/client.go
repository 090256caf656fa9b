package provider

import (
	"context"
	"errors"

	"github.com/Chab-algo/praxia/pkg/api"
)

type (
	// Client is the boundary to the model provider
	Client interface {
		CountTokens(text string) int
		CountMessageTokens(messages []api.Message) int
		Complete(context.Context, *CompletionRequest) (*Completion, error)
		Vision(context.Context, *VisionRequest) (*Completion, error)
		Transcribe(
			context.Context, *TranscriptionRequest,
		) (*Transcription, error)
	}

	// CompletionRequest is a chat completion call
	CompletionRequest struct {
		Model       string
		Messages    []api.Message
		MaxTokens   int
		Temperature float64
		JSON        bool
	}

	// VisionRequest asks a vision model about one image. ImageURL is either
	// an https URL or a data URL
	VisionRequest struct {
		Model     string
		Prompt    string
		ImageURL  string
		MaxTokens int
	}

	// TranscriptionRequest carries raw audio bytes to transcribe
	TranscriptionRequest struct {
		Audio       []byte
		Filename    string
		ContentType string
		Language    string
	}

	// Completion is the priced result of a completion or vision call
	Completion struct {
		Content      string
		Model        string
		PromptHash   string
		InputTokens  int
		OutputTokens int
		CostUSD      float64
	}

	// Transcription is the priced result of a transcription call
	Transcription struct {
		Text        string
		Language    string
		DurationSec float64
		CostUSD     float64
	}
)

var (
	ErrProviderHTTP   = errors.New("provider returned HTTP error")
	ErrNoChoices      = errors.New("provider returned no choices")
	ErrCostMismatch   = errors.New("provider usage does not match cost model")
	ErrEmptyAudio     = errors.New("audio payload empty")
	ErrMissingAPIKey  = errors.New("provider API key missing")
	ErrInvalidBaseURL = errors.New("provider base URL invalid")
)
