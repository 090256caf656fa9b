package helpers

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Chab-algo/praxia/internal/provider"
	"github.com/Chab-algo/praxia/pkg/api"
)

type (
	// MockProvider is a scripted provider.Client. Queued results are
	// returned in order; when the queue is empty a default completion is
	// returned. Token counts are whitespace word counts
	MockProvider struct {
		queue       []mockResult
		completions []*provider.CompletionRequest
		visions     []*provider.VisionRequest
		transcribes []*provider.TranscriptionRequest
		mu          sync.Mutex
	}

	mockResult struct {
		completion    *provider.Completion
		transcription *provider.Transcription
		err           error
	}
)

// DefaultContent is the content of the default completion
const DefaultContent = "ok"

var ErrMockProvider = errors.New("mock provider failure")

var _ provider.Client = (*MockProvider)(nil)

// NewMockProvider creates an empty MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// QueueCompletion scripts the next completion or vision result
func (m *MockProvider) QueueCompletion(c *provider.Completion) {
	m.push(mockResult{completion: c})
}

// QueueContent scripts a completion with the given content and usage,
// priced from the model's text rates
func (m *MockProvider) QueueContent(
	model, content string, inputTokens, outputTokens int,
) {
	m.QueueCompletion(&provider.Completion{
		Content:      content,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD: provider.CalculateCost(
			model, inputTokens, outputTokens,
		),
	})
}

// QueueTranscription scripts the next transcription result
func (m *MockProvider) QueueTranscription(t *provider.Transcription) {
	m.push(mockResult{transcription: t})
}

// QueueError scripts the next call to fail
func (m *MockProvider) QueueError(err error) {
	m.push(mockResult{err: err})
}

func (m *MockProvider) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func (m *MockProvider) CountMessageTokens(messages []api.Message) int {
	total := 2
	for _, msg := range messages {
		total += 4 + m.CountTokens(msg.Content)
	}
	return total
}

func (m *MockProvider) Complete(
	_ context.Context, req *provider.CompletionRequest,
) (*provider.Completion, error) {
	m.mu.Lock()
	m.completions = append(m.completions, req)
	m.mu.Unlock()

	res, err := m.nextCompletion(req.Model)
	if err != nil {
		return nil, err
	}
	if res.PromptHash == "" {
		res.PromptHash = provider.HashPrompt(req.Model, req.Messages)
	}
	return res, nil
}

func (m *MockProvider) Vision(
	_ context.Context, req *provider.VisionRequest,
) (*provider.Completion, error) {
	m.mu.Lock()
	m.visions = append(m.visions, req)
	m.mu.Unlock()
	return m.nextCompletion(req.Model)
}

func (m *MockProvider) Transcribe(
	_ context.Context, req *provider.TranscriptionRequest,
) (*provider.Transcription, error) {
	m.mu.Lock()
	m.transcribes = append(m.transcribes, req)
	m.mu.Unlock()

	r, ok := m.pop()
	switch {
	case ok && r.err != nil:
		return nil, r.err
	case ok && r.transcription != nil:
		return r.transcription, nil
	default:
		return &provider.Transcription{
			Text:        DefaultContent,
			DurationSec: 60,
			CostUSD:     provider.CalculateAudioCost(60),
		}, nil
	}
}

// Completions returns the completion requests received so far
func (m *MockProvider) Completions() []*provider.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*provider.CompletionRequest(nil), m.completions...)
}

// Visions returns the vision requests received so far
func (m *MockProvider) Visions() []*provider.VisionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*provider.VisionRequest(nil), m.visions...)
}

// Transcriptions returns the transcription requests received so far
func (m *MockProvider) Transcriptions() []*provider.TranscriptionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*provider.TranscriptionRequest(nil), m.transcribes...)
}

// Calls returns the total number of provider calls made
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completions) + len(m.visions) + len(m.transcribes)
}

func (m *MockProvider) nextCompletion(
	model string,
) (*provider.Completion, error) {
	r, ok := m.pop()
	switch {
	case ok && r.err != nil:
		return nil, r.err
	case ok && r.completion != nil:
		res := *r.completion
		return &res, nil
	default:
		return &provider.Completion{
			Content:      DefaultContent,
			Model:        model,
			InputTokens:  10,
			OutputTokens: 1,
			CostUSD:      provider.CalculateCost(model, 10, 1),
		}, nil
	}
}

func (m *MockProvider) push(r mockResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, r)
}

func (m *MockProvider) pop() (mockResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return mockResult{}, false
	}
	r := m.queue[0]
	m.queue = m.queue[1:]
	return r, true
}
