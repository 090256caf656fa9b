package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/Chab-algo/praxia/internal/engine/memo"
	"github.com/Chab-algo/praxia/internal/media"
	"github.com/Chab-algo/praxia/internal/provider"
	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
)

const (
	audioFileBase    = "audio"
	audioFallbackExt = ".mp3"
)

func (ex *execution) runLLM(
	ctx context.Context, step *api.StepSpec, o *api.StepOutcome,
) (any, error) {
	if _, ok := ex.findMedia(media.KindImage, false); ok || step.Vision {
		return ex.runVision(ctx, step, o)
	}

	msgs := ex.renderer.BuildMessages(
		step.SystemPrompt, step.UserPrompt, ex.vars,
	)
	tokens := ex.provider.CountMessageTokens(msgs)
	route, err := ex.router.Decide(
		step.GetComplexity(), ex.tier, tokens, step.ForceModel,
	)
	if err != nil {
		return nil, err
	}
	if route.Reason != "" {
		slog.Info("Model downgraded",
			log.StepID(step.ID),
			slog.String("original", route.Wanted),
			log.Model(route.Model),
			log.Tier(ex.tier),
			slog.String("reason", route.Reason))
	}
	model := route.Model

	if err := ex.limiter.Check(ctx, ex.caller, ex.tier); err != nil {
		return nil, err
	}

	key := &memo.Key{
		Model:     model,
		Messages:  msgs,
		RecipeID:  ex.workflow.ID,
		StepID:    step.ID,
		InputText: msgs[len(msgs)-1].Content,
	}
	if out, ok := ex.cached(ctx, step, key, o); ok {
		return out, nil
	}

	est := ex.budget.EstimateCost(model, tokens, step.GetMaxTokens())
	if err := ex.budget.CheckAndReserve(ctx, est); err != nil {
		return nil, err
	}

	comp, err := ex.provider.Complete(ctx, &provider.CompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   step.GetMaxTokens(),
		Temperature: step.GetTemperature(),
		JSON:        step.WantsJSON(),
	})
	if err != nil {
		ex.budget.RecordActual(ctx, est, 0)
		return nil, stepError(err)
	}
	ex.budget.RecordActual(ctx, est, comp.CostUSD)
	ex.charge(o, model, comp)

	out := parseOutput(step, comp.Content)
	ex.remember(ctx, step, key, out)
	return out, nil
}

func (ex *execution) runVision(
	ctx context.Context, step *api.StepSpec, o *api.StepOutcome,
) (any, error) {
	value, ok := ex.findMedia(media.KindImage, true)
	if !ok {
		return nil, fmt.Errorf("%w: image", ErrMissingMedia)
	}
	payload, err := ex.media.Resolve(ctx, value)
	if err != nil {
		return nil, mediaError(err)
	}

	text := joinPrompts(
		ex.renderer.RenderTemplate(step.SystemPrompt, ex.vars),
		ex.renderer.RenderTemplate(step.UserPrompt, ex.vars),
	)
	model := step.GetVisionModel()
	o.Vision = true

	if err := ex.limiter.Check(ctx, ex.caller, ex.tier); err != nil {
		return nil, err
	}

	key := &memo.Key{
		Model: model,
		Messages: []api.Message{
			{Role: api.RoleUser, Content: text},
			{Role: api.RoleUser, Content: fingerprint(media.KindImage, payload)},
		},
	}
	if out, ok := ex.cached(ctx, step, key, o); ok {
		return out, nil
	}

	tokens := ex.provider.CountTokens(text) + provider.ImageTokenAllowance
	est := provider.CalculateVisionCost(model, tokens, step.GetMaxTokens())
	if err := ex.budget.CheckAndReserve(ctx, est); err != nil {
		return nil, err
	}

	comp, err := ex.provider.Vision(ctx, &provider.VisionRequest{
		Model:     model,
		Prompt:    text,
		ImageURL:  payload.DataURL(),
		MaxTokens: step.GetMaxTokens(),
	})
	if err != nil {
		ex.budget.RecordActual(ctx, est, 0)
		return nil, stepError(err)
	}
	ex.budget.RecordActual(ctx, est, comp.CostUSD)
	ex.charge(o, model, comp)

	out := parseOutput(step, comp.Content)
	ex.remember(ctx, step, key, out)
	return out, nil
}

func (ex *execution) runAudio(
	ctx context.Context, step *api.StepSpec, o *api.StepOutcome,
) (any, error) {
	value, ok := ex.findMedia(media.KindAudio, true)
	if !ok {
		return nil, fmt.Errorf("%w: audio", ErrMissingMedia)
	}
	payload, err := ex.media.Resolve(ctx, value)
	if err != nil {
		return nil, mediaError(err)
	}
	if payload.URL != "" {
		return nil, mediaError(media.ErrRemoteUnsupported)
	}

	lang := step.Language
	if lang == "" {
		lang, _ = ex.stringVar(varLanguage)
	}
	o.Audio = true

	if err := ex.limiter.Check(ctx, ex.caller, ex.tier); err != nil {
		return nil, err
	}

	key := &memo.Key{
		Model: api.ModelWhisper,
		Messages: []api.Message{
			{Role: api.RoleUser, Content: fingerprint(media.KindAudio, payload)},
			{Role: api.RoleSystem, Content: lang},
		},
	}
	if out, ok := ex.cached(ctx, step, key, o); ok {
		text := fmt.Sprint(out)
		ex.vars[varTranscript] = text
		return text, nil
	}

	est := provider.AudioEstimate
	if err := ex.budget.CheckAndReserve(ctx, est); err != nil {
		return nil, err
	}

	tr, err := ex.provider.Transcribe(ctx, &provider.TranscriptionRequest{
		Audio:       payload.Data,
		Filename:    payload.Filename(audioFileBase, audioFallbackExt),
		ContentType: payload.MIME,
		Language:    lang,
	})
	if err != nil {
		ex.budget.RecordActual(ctx, est, 0)
		return nil, stepError(err)
	}
	ex.budget.RecordActual(ctx, est, tr.CostUSD)
	ex.useModel(o, api.ModelWhisper)
	o.CostUSD = tr.CostUSD

	ex.vars[varTranscript] = tr.Text
	ex.remember(ctx, step, key, tr.Text)
	return tr.Text, nil
}

func (ex *execution) runTransform(step *api.StepSpec) any {
	res := make(map[string]any, len(step.Mapping))
	for name, tmpl := range step.Mapping {
		res[string(name)] = ex.renderer.RenderValue(tmpl, ex.vars)
	}
	return res
}

func (ex *execution) cached(
	ctx context.Context, step *api.StepSpec, key *memo.Key, o *api.StepOutcome,
) (any, bool) {
	if !step.IsCacheable() {
		return nil, false
	}
	res := ex.cache.Get(ctx, key)
	if !res.Hit {
		return nil, false
	}
	o.CacheHit = true
	o.CacheLayer = string(res.Layer)
	o.Model = key.Model
	return res.Data, true
}

func (ex *execution) remember(
	ctx context.Context, step *api.StepSpec, key *memo.Key, out any,
) {
	if step.IsCacheable() {
		ex.cache.Set(ctx, key, out)
	}
}

func (ex *execution) charge(
	o *api.StepOutcome, model string, comp *provider.Completion,
) {
	if comp.Model != "" {
		model = comp.Model
	}
	ex.useModel(o, model)
	o.InputTokens = comp.InputTokens
	o.OutputTokens = comp.OutputTokens
	o.CostUSD = comp.CostUSD
	o.PromptHash = comp.PromptHash
}

// parseOutput decodes a structured response. Content that fails to parse
// is passed through as raw text
func parseOutput(step *api.StepSpec, content string) any {
	if !step.WantsJSON() {
		return content
	}
	if !gjson.Valid(content) {
		slog.Warn("Structured response parse failed",
			log.StepID(step.ID),
			slog.String("content", truncate(content, 200)))
		return content
	}
	return gjson.Parse(content).Value()
}

func stepError(err error) error {
	if errors.Is(err, api.ErrStepExecution) {
		return err
	}
	return fmt.Errorf("%w: %w", api.ErrStepExecution, err)
}

func joinPrompts(system, user string) string {
	if system == "" {
		return user
	}
	return system + "\n\n" + user
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
