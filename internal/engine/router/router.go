package router

import (
	"fmt"

	"github.com/Chab-algo/praxia/pkg/api"
	"github.com/Chab-algo/praxia/pkg/util"
)

type (
	// Router selects a concrete model for a step. It performs no I/O
	Router struct {
		tables Tables
	}

	// Tables holds the data that drives model selection
	Tables struct {
		Complexity    map[api.Complexity]string
		Authorized    map[api.Tier]util.Set[string]
		Downgrades    []string
		DefaultModel  string
		DefaultTier   api.Tier
		TopModel      string
		GuardModel    string
		GuardMaxInput int
	}

	// Decision is the outcome of routing one step. Wanted is the model the
	// complexity and input size called for; Reason is set when the tier
	// forced a different Model
	Decision struct {
		Model  string
		Wanted string
		Reason string
	}
)

// ReasonPlanLimit marks a model downgraded because the tier does not
// authorize the wanted one
const ReasonPlanLimit = "plan_limit"

// LongInputThreshold is the input size above which the top model is
// replaced by the guard model
const LongInputThreshold = 4000

// DefaultTables returns the production routing tables
func DefaultTables() Tables {
	return Tables{
		Complexity: map[api.Complexity]string{
			api.ComplexityClassify:      api.ModelNano,
			api.ComplexityExtract:       api.ModelNano,
			api.ComplexityScore:         api.ModelNano,
			api.ComplexityValidate:      api.ModelNano,
			api.ComplexityGenerateShort: api.ModelMini,
			api.ComplexityGenerateLong:  api.ModelMini,
			api.ComplexityAnalyze:       api.ModelMini,
			api.ComplexitySummarize:     api.ModelMini,
			api.ComplexityReason:        api.ModelTop,
			api.ComplexityDecideComplex: api.ModelTop,
		},
		Authorized: map[api.Tier]util.Set[string]{
			api.TierTrial: util.SetOf(api.ModelNano),
			api.TierStarter: util.SetOf(
				api.ModelNano, api.ModelMini,
			),
			api.TierPro: util.SetOf(
				api.ModelNano, api.ModelMini, api.ModelTop,
			),
			api.TierEnterprise: util.SetOf(
				api.ModelNano, api.ModelMini, api.ModelTop,
			),
		},
		Downgrades:    []string{api.ModelMini, api.ModelNano},
		DefaultModel:  api.ModelMini,
		DefaultTier:   api.TierTrial,
		TopModel:      api.ModelTop,
		GuardModel:    api.ModelMini,
		GuardMaxInput: LongInputThreshold,
	}
}

// New creates a Router over the given tables
func New(tables Tables) *Router {
	return &Router{tables: tables}
}

// NewDefault creates a Router over DefaultTables
func NewDefault() *Router {
	return New(DefaultTables())
}

// Select returns the model for a step
func (r *Router) Select(
	complexity api.Complexity, tier api.Tier, inputTokens int,
	forcedModel string,
) (string, error) {
	d, err := r.Decide(complexity, tier, inputTokens, forcedModel)
	if err != nil {
		return "", err
	}
	return d.Model, nil
}

// Decide routes a step and reports any downgrade. A forced model bypasses
// every rule. Otherwise the complexity picks a base model, long inputs are
// moved off the top model, and the caller's tier must authorize the result,
// walking the downgrade order if it does not
func (r *Router) Decide(
	complexity api.Complexity, tier api.Tier, inputTokens int,
	forcedModel string,
) (Decision, error) {
	if forcedModel != "" {
		return Decision{Model: forcedModel, Wanted: forcedModel}, nil
	}

	t := &r.tables
	model, ok := t.Complexity[complexity]
	if !ok {
		model = t.DefaultModel
	}

	if model == t.TopModel && inputTokens > t.GuardMaxInput {
		model = t.GuardModel
	}

	allowed := r.authorized(tier)
	if allowed.Contains(model) {
		return Decision{Model: model, Wanted: model}, nil
	}

	for _, fallback := range t.Downgrades {
		if allowed.Contains(fallback) {
			return Decision{
				Model:  fallback,
				Wanted: model,
				Reason: ReasonPlanLimit,
			}, nil
		}
	}

	return Decision{}, fmt.Errorf(
		"%w: no model authorized for tier %s (wanted %s)",
		api.ErrConfiguration, tier, model,
	)
}

func (r *Router) authorized(tier api.Tier) util.Set[string] {
	if allowed, ok := r.tables.Authorized[tier]; ok {
		return allowed
	}
	return r.tables.Authorized[r.tables.DefaultTier]
}
