package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/log"
	"github.com/Chab-algo/praxia/pkg/util"
)

// execution is the state of one run. It is owned by a single goroutine
// and discarded when the run ends
type execution struct {
	*Engine
	workflow *api.WorkflowSpec
	result   *api.ExecutionResult
	vars     map[string]any
	outputs  map[string]any
	models   util.Set[string]
	caller   api.CallerID
	tier     api.Tier
}

const (
	varSteps      = "steps"
	varOutput     = "output"
	varTranscript = "transcript"
	varLanguage   = "language"
)

// Execute runs every step of the workflow in order and builds the result.
// When a step fails the run stops and the returned *api.ExecutionError
// carries the partial result
func (e *Engine) Execute(
	ctx context.Context, wf *api.WorkflowSpec, input api.Args,
	caller api.CallerID, tier api.Tier,
) (*api.ExecutionResult, error) {
	if wf == nil {
		return nil, api.ErrWorkflowRequired
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}

	ex := e.newExecution(wf, input, caller, tier)
	for i, step := range wf.Steps {
		if err := ex.runStep(ctx, i, step); err != nil {
			ex.finish()
			return nil, &api.ExecutionError{
				Err:    err,
				Result: ex.result,
				StepID: step.ID,
				Index:  i,
			}
		}
	}

	ex.result.Output = ex.finalOutput()
	ex.finish()

	slog.Info("Execution completed",
		log.ExecutionID(ex.result.ExecutionID),
		log.CallerID(caller),
		log.Cost(ex.result.TotalCostUSD),
		slog.Int("cache_hits", ex.result.CacheHits),
		slog.Int("steps", len(ex.result.Steps)),
		slog.Int64("duration_ms", ex.result.DurationMS))
	return ex.result, nil
}

func (e *Engine) newExecution(
	wf *api.WorkflowSpec, input api.Args, caller api.CallerID, tier api.Tier,
) *execution {
	vars := input.Variables()
	outputs := map[string]any{}
	vars[varSteps] = outputs

	return &execution{
		Engine:   e,
		workflow: wf,
		vars:     vars,
		outputs:  outputs,
		models:   util.Set[string]{},
		caller:   caller,
		tier:     tier,
		result: &api.ExecutionResult{
			ExecutionID: api.ExecutionID(uuid.NewString()),
			StartedAt:   e.clock(),
			Steps:       []*api.StepOutcome{},
			ModelsUsed:  []string{},
		},
	}
}

func (ex *execution) runStep(
	ctx context.Context, index int, step *api.StepSpec,
) error {
	o := api.NewStepOutcome(index, step)
	o.StartedAt = ex.clock()
	if err := o.SetStatus(api.StepRunning); err != nil {
		return err
	}

	slog.Info("Step started",
		log.ExecutionID(ex.result.ExecutionID),
		log.StepID(step.ID),
		slog.String("type", string(o.Type)),
		slog.Int("index", index))

	output, err := ex.dispatch(ctx, step, o)
	o.DurationMS = ex.clock().Sub(o.StartedAt).Milliseconds()
	if err != nil {
		_ = o.Fail(err)
		ex.result.Add(o)
		slog.Error("Step failed",
			log.ExecutionID(ex.result.ExecutionID),
			log.StepID(step.ID),
			slog.String("type", string(o.Type)),
			log.Error(err))
		return err
	}

	if err := o.Complete(output); err != nil {
		return err
	}
	ex.outputs[string(step.ID)] = map[string]any{varOutput: output}
	ex.result.Add(o)

	slog.Info("Step completed",
		log.ExecutionID(ex.result.ExecutionID),
		log.StepID(step.ID),
		log.Model(o.Model),
		log.Cost(o.CostUSD),
		slog.Bool("cache_hit", o.CacheHit),
		slog.Int64("duration_ms", o.DurationMS))
	return nil
}

func (ex *execution) dispatch(
	ctx context.Context, step *api.StepSpec, o *api.StepOutcome,
) (any, error) {
	switch typ := step.StepType(); typ {
	case api.StepTypeLLM:
		return ex.runLLM(ctx, step, o)
	case api.StepTypeVision:
		return ex.runVision(ctx, step, o)
	case api.StepTypeAudio:
		return ex.runAudio(ctx, step, o)
	case api.StepTypeTransform:
		return ex.runTransform(step), nil
	default:
		return nil, fmt.Errorf("%w: %w: %s",
			api.ErrConfiguration, api.ErrInvalidStepType, typ,
		)
	}
}

// finalOutput projects the output mapping over the complete context, or
// returns the last step's raw output when there is no mapping
func (ex *execution) finalOutput() any {
	if len(ex.workflow.OutputMapping) > 0 {
		res := make(map[string]any, len(ex.workflow.OutputMapping))
		for name, tmpl := range ex.workflow.OutputMapping {
			res[string(name)] = ex.renderer.RenderValue(tmpl, ex.vars)
		}
		return res
	}
	steps := ex.result.Steps
	if len(steps) == 0 {
		return nil
	}
	return steps[len(steps)-1].Output
}

func (ex *execution) finish() {
	ex.result.CompletedAt = ex.clock()
	ex.result.DurationMS = ex.result.CompletedAt.
		Sub(ex.result.StartedAt).Milliseconds()
	ex.result.ModelsUsed = util.Sorted(ex.models)
}

func (ex *execution) useModel(o *api.StepOutcome, model string) {
	o.Model = model
	ex.models.Add(model)
}
