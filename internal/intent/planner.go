package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// IntentType is the top-level classification of a Plan.
type IntentType string

const (
	TypeAction    IntentType = "action"
	TypeQuery     IntentType = "query"
	TypeAmbiguous IntentType = "ambiguous"
)

// TargetSystem names the capability an Action executes against.
type TargetSystem string

const (
	TargetBoard      TargetSystem = "board"
	TargetRepository TargetSystem = "repository"
	TargetQuery      TargetSystem = "query"
)

// Action is one executable step of a Plan.
type Action struct {
	Target     TargetSystem           `json:"target_system"`
	Operation  string                 `json:"operation"`
	Parameters map[string]interface{} `json:"parameters"`
	Priority   int                    `json:"priority"`
	Reasoning  string                 `json:"reasoning,omitempty"`
}

// Plan is the model-produced action envelope. Confidence is 0..1; Actions
// execute in ascending Priority order.
type Plan struct {
	IntentType           IntentType `json:"intent_type"`
	Confidence           float64    `json:"confidence"`
	Actions              []Action   `json:"actions"`
	Reasoning            string     `json:"reasoning"`
	RequiresConfirmation bool       `json:"requires_confirmation"`
	SuggestedResponse    string     `json:"suggested_response"`
}

const plannerMaxTokens = 800

// Planner asks a completion endpoint for an executable Plan. Transport-level
// failures surface as errors so the caller can fall back to the rule-based
// path; a response that arrives but fails validation is absorbed into a
// canonical ambiguous Plan instead.
type Planner struct {
	completer Completer
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewPlanner(completer Completer, timeout time.Duration, logger zerolog.Logger) *Planner {
	return &Planner{
		completer: completer,
		timeout:   timeout,
		logger:    logger.With().Str("component", "intent.planner").Logger(),
	}
}

// Plan builds an action plan for the utterance.
func (p *Planner) Plan(ctx context.Context, text string) (Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.completer.Complete(ctx, plannerSystemPrompt, StripMention(text), plannerMaxTokens, classifyTemperature)
	if err != nil {
		return Plan{}, fmt.Errorf("completion call: %w", err)
	}

	plan, err := parsePlan(out)
	if err != nil {
		p.logger.Warn().Err(err).Msg("invalid plan from model")
		return AmbiguousPlan(), nil
	}
	return plan, nil
}

// AmbiguousPlan is the canonical envelope returned whenever a model response
// cannot be validated.
func AmbiguousPlan() Plan {
	return Plan{
		IntentType:           TypeAmbiguous,
		Confidence:           0,
		Actions:              nil,
		Reasoning:            "resposta do modelo inválida",
		RequiresConfirmation: true,
		SuggestedResponse:    "Desculpe, não consegui entender o pedido. Pode reformular?",
	}
}

func parsePlan(out string) (Plan, error) {
	raw := []byte(extractJSON(out))

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return Plan{}, fmt.Errorf("decoding plan: %w", err)
	}
	for _, key := range []string{"intent_type", "confidence", "actions", "reasoning", "requires_confirmation"} {
		if _, ok := top[key]; !ok {
			return Plan{}, fmt.Errorf("plan missing field %q", key)
		}
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return Plan{}, fmt.Errorf("decoding plan: %w", err)
	}

	switch plan.IntentType {
	case TypeAction, TypeQuery, TypeAmbiguous:
	default:
		return Plan{}, fmt.Errorf("unknown intent_type %q", plan.IntentType)
	}
	if plan.Confidence < 0 || plan.Confidence > 1 {
		return Plan{}, fmt.Errorf("confidence %v out of range", plan.Confidence)
	}

	var acts []json.RawMessage
	if err := json.Unmarshal(top["actions"], &acts); err != nil {
		return Plan{}, fmt.Errorf("decoding actions: %w", err)
	}
	for i, a := range acts {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(a, &fields); err != nil {
			return Plan{}, fmt.Errorf("decoding action %d: %w", i, err)
		}
		for _, key := range []string{"target_system", "operation", "parameters"} {
			if _, ok := fields[key]; !ok {
				return Plan{}, fmt.Errorf("action %d missing field %q", i, key)
			}
		}
		switch plan.Actions[i].Target {
		case TargetBoard, TargetRepository, TargetQuery:
		default:
			return Plan{}, fmt.Errorf("action %d: unknown target_system %q", i, plan.Actions[i].Target)
		}
		if plan.Actions[i].Operation == "" {
			return Plan{}, fmt.Errorf("action %d: empty operation", i)
		}
	}
	return plan, nil
}
