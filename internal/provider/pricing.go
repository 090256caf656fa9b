package provider

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Chab-algo/praxia/pkg/api"
)

// Price is a per-model rate in USD per million tokens
type Price struct {
	Input  float64
	Output float64
}

const (
	// WhisperPerMinute is the transcription rate in USD per audio minute
	WhisperPerMinute = 0.006

	// AudioEstimate is the reservation made before a transcription, when
	// the audio duration is not yet known
	AudioEstimate = 0.01

	// ImageTokenAllowance is the input token allowance added for one image
	// when estimating a vision call
	ImageTokenAllowance = 765

	perMillion = 1_000_000
)

var (
	// TextPricing holds the chat-completion rates
	TextPricing = map[string]Price{
		api.ModelNano: {Input: 0.10, Output: 0.40},
		api.ModelMini: {Input: 0.40, Output: 1.60},
		api.ModelTop:  {Input: 2.00, Output: 8.00},
	}

	// VisionPricing holds the rates for image-capable models
	VisionPricing = map[string]Price{
		api.ModelVision:     {Input: 2.50, Output: 10.00},
		api.ModelVisionMini: {Input: 0.15, Output: 0.60},
	}
)

// Cost computes the USD cost of a token exchange at this price
func (p Price) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*p.Input +
		float64(outputTokens)*p.Output) / perMillion
}

// TextPrice returns the rate for a text model; unknown models are priced
// as the mid tier
func TextPrice(model string) Price {
	if p, ok := TextPricing[model]; ok {
		return p
	}
	return TextPricing[api.ModelMini]
}

// VisionPrice returns the rate for a vision model; unknown models are
// priced as the small vision model
func VisionPrice(model string) Price {
	if p, ok := VisionPricing[model]; ok {
		return p
	}
	return VisionPricing[api.ModelVisionMini]
}

// CalculateCost prices a text completion
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	return TextPrice(model).Cost(inputTokens, outputTokens)
}

// CalculateVisionCost prices a vision completion
func CalculateVisionCost(model string, inputTokens, outputTokens int) float64 {
	return VisionPrice(model).Cost(inputTokens, outputTokens)
}

// CalculateAudioCost prices a transcription of the given length
func CalculateAudioCost(seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return seconds / 60 * WhisperPerMinute
}

// HashPrompt fingerprints a model and its messages
func HashPrompt(model string, messages []api.Message) string {
	payload, _ := json.Marshal(struct {
		Messages []api.Message `json:"messages"`
		Model    string        `json:"model"`
	}{
		Messages: messages,
		Model:    model,
	})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
