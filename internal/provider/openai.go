package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	app "github.com/Chab-algo/praxia"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
)

type (
	// OpenAIClient speaks the OpenAI-compatible chat completions and audio
	// transcriptions HTTP API
	OpenAIClient struct {
		*Tokenizer
		httpClient *http.Client
		apiKey     string
		baseURL    string
	}

	chatRequest struct {
		ResponseFormat *responseFormat `json:"response_format,omitempty"`
		Temperature    *float64        `json:"temperature,omitempty"`
		Model          string          `json:"model"`
		Messages       []chatMessage   `json:"messages"`
		MaxTokens      int             `json:"max_tokens,omitempty"`
	}

	chatMessage struct {
		Content any    `json:"content"`
		Role    string `json:"role"`
	}

	contentPart struct {
		ImageURL *imageURL `json:"image_url,omitempty"`
		Type     string    `json:"type"`
		Text     string    `json:"text,omitempty"`
	}

	imageURL struct {
		URL string `json:"url"`
	}

	responseFormat struct {
		Type string `json:"type"`
	}

	chatResponse struct {
		Error   *apiError    `json:"error,omitempty"`
		Model   string       `json:"model"`
		Choices []chatChoice `json:"choices"`
		Usage   chatUsage    `json:"usage"`
	}

	chatChoice struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}

	chatUsage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	}

	transcriptionResponse struct {
		Error    *apiError `json:"error,omitempty"`
		Text     string    `json:"text"`
		Language string    `json:"language"`
		Duration float64   `json:"duration"`
	}

	apiError struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
)

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for the API rooted at baseURL
func NewOpenAIClient(
	apiKey, baseURL string, timeout time.Duration,
) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	tok, err := NewTokenizer()
	if err != nil {
		return nil, err
	}
	return &OpenAIClient{
		Tokenizer:  tok,
		httpClient: &http.Client{Timeout: timeout},
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}, nil
}

// Complete runs a chat completion and prices it from the reported usage
func (c *OpenAIClient) Complete(
	ctx context.Context, req *CompletionRequest,
) (*Completion, error) {
	body := &chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: &req.Temperature,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	slog.Debug("Completion starting",
		log.Model(req.Model),
		slog.Int("estimated_input_tokens",
			c.CountMessageTokens(req.Messages)),
		slog.Int("max_tokens", req.MaxTokens))

	resp, err := c.chat(ctx, body)
	if err != nil {
		return nil, err
	}

	in, out := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if in < 0 || out < 0 {
		return nil, fmt.Errorf("%w: %d in, %d out", ErrCostMismatch, in, out)
	}
	cost := CalculateCost(req.Model, in, out)

	slog.Info("Completion finished",
		log.Model(req.Model),
		slog.Int("input_tokens", in),
		slog.Int("output_tokens", out),
		log.Cost(cost))

	return &Completion{
		Content:      resp.Choices[0].Message.Content,
		Model:        req.Model,
		PromptHash:   HashPrompt(req.Model, req.Messages),
		InputTokens:  in,
		OutputTokens: out,
		CostUSD:      cost,
	}, nil
}

// Vision asks a vision model about one image
func (c *OpenAIClient) Vision(
	ctx context.Context, req *VisionRequest,
) (*Completion, error) {
	body := &chatRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages: []chatMessage{{
			Role: string(api.RoleUser),
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: req.ImageURL}},
			},
		}},
	}

	resp, err := c.chat(ctx, body)
	if err != nil {
		return nil, err
	}

	in, out := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if in < 0 || out < 0 {
		return nil, fmt.Errorf("%w: %d in, %d out", ErrCostMismatch, in, out)
	}
	cost := CalculateVisionCost(req.Model, in, out)

	slog.Info("Vision call finished",
		log.Model(req.Model),
		slog.Int("input_tokens", in),
		slog.Int("output_tokens", out),
		log.Cost(cost))

	return &Completion{
		Content:      resp.Choices[0].Message.Content,
		Model:        req.Model,
		PromptHash:   HashPrompt(req.Model, visionMessages(req)),
		InputTokens:  in,
		OutputTokens: out,
		CostUSD:      cost,
	}, nil
}

// Transcribe sends audio to the transcription endpoint and prices it from
// the reported duration
func (c *OpenAIClient) Transcribe(
	ctx context.Context, req *TranscriptionRequest,
) (*Transcription, error) {
	if len(req.Audio) == 0 {
		return nil, ErrEmptyAudio
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("model", api.ModelWhisper)
	_ = mw.WriteField("response_format", "verbose_json")
	if req.Language != "" {
		_ = mw.WriteField("language", req.Language)
	}
	filename := req.Filename
	if filename == "" {
		filename = "audio.mp3"
	}
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var resp transcriptionResponse
	if err := c.post(
		ctx, "/audio/transcriptions", mw.FormDataContentType(), &buf, &resp,
	); err != nil {
		return nil, err
	}

	lang := req.Language
	if lang == "" {
		lang = resp.Language
	}
	if lang == "" {
		lang = "auto"
	}
	cost := CalculateAudioCost(resp.Duration)

	slog.Info("Transcription finished",
		slog.String("language", lang),
		slog.Float64("duration_sec", resp.Duration),
		slog.Int("text_length", len(resp.Text)),
		log.Cost(cost))

	return &Transcription{
		Text:        resp.Text,
		Language:    lang,
		DurationSec: resp.Duration,
		CostUSD:     cost,
	}, nil
}

func (c *OpenAIClient) chat(
	ctx context.Context, body *chatRequest,
) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := c.post(
		ctx, "/chat/completions", "application/json",
		bytes.NewReader(payload), &resp,
	); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	return &resp, nil
}

func (c *OpenAIClient) post(
	ctx context.Context, path, contentType string, body io.Reader, out any,
) error {
	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, body,
	)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("User-Agent", app.Name+"/"+app.Version)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	dur := time.Since(start)
	if err != nil {
		slog.Error("Provider request failed",
			slog.String("path", path),
			slog.Duration("duration", dur),
			log.Error(err))
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("Failed to read provider response",
			slog.String("path", path),
			log.Error(err))
		return err
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		var e struct {
			Error *apiError `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil && e.Error != nil {
			msg = e.Error.Message
		}
		slog.Error("Provider HTTP error",
			slog.String("path", path),
			slog.Int("status_code", resp.StatusCode),
			log.ErrorString(msg))
		return fmt.Errorf("%w: HTTP %d: %s",
			ErrProviderHTTP, resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		slog.Error("Failed to unmarshal provider response",
			slog.String("path", path),
			log.Error(err))
		return err
	}
	return nil
}

func visionMessages(req *VisionRequest) []api.Message {
	return []api.Message{
		{Role: api.RoleUser, Content: req.Prompt},
		{Role: api.RoleUser, Content: req.ImageURL},
	}
}
