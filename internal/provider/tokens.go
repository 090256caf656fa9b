package provider

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/Chab-algo/praxia/pkg/api"
)

// Tokenizer counts tokens with the cl100k_base encoding
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

const (
	// Encoding is the BPE encoding used for every supported model
	Encoding = "cl100k_base"

	messageOverhead = 4
	replyPriming    = 2
)

var loaderOnce sync.Once

// NewTokenizer loads the encoding from the embedded BPE ranks, without
// touching the network
func NewTokenizer() (*Tokenizer, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(Encoding)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{enc: enc}, nil
}

// CountTokens returns the number of tokens in text
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessageTokens returns the prompt size of a chat exchange, including
// the per-message and reply-priming overhead
func (t *Tokenizer) CountMessageTokens(messages []api.Message) int {
	total := replyPriming
	for _, m := range messages {
		total += messageOverhead + t.CountTokens(m.Content)
	}
	return total
}
