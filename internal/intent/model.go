package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/p-blackswan/pmo-agent/internal/errors"
)

// Completer sends one completion request to a language-model endpoint.
// Implementations must honor context cancellation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userText string, maxTokens int, temperature float64) (string, error)
}

const (
	classifyMaxTokens   = 200
	classifyTemperature = 0.3
)

// ModelClassifier delegates classification to a completion endpoint and
// falls back to the rule-based classifier on any failure: missing
// credential, transport error, timeout, or a malformed response. The caller
// never observes the failure; it only ever sees a Classification.
type ModelClassifier struct {
	rules      *RuleClassifier
	completer  Completer
	timeout    time.Duration
	logger     zerolog.Logger
	onFallback func(reason string)
}

// NewModelClassifier wraps rules with a model-assisted path. A nil completer
// makes Classify exactly the rule-based classifier.
func NewModelClassifier(rules *RuleClassifier, completer Completer, timeout time.Duration, logger zerolog.Logger) *ModelClassifier {
	return &ModelClassifier{
		rules:     rules,
		completer: completer,
		timeout:   timeout,
		logger:    logger.With().Str("component", "intent.model").Logger(),
	}
}

// OnFallback registers a hook invoked whenever the model path fails and the
// rule-based result is used instead.
func (c *ModelClassifier) OnFallback(fn func(reason string)) {
	c.onFallback = fn
}

// Classify resolves the utterance's intent. Total; never fails.
func (c *ModelClassifier) Classify(ctx context.Context, text string) Classification {
	if c.completer == nil {
		return c.rules.Classify(text)
	}

	cls, err := c.classifyModel(ctx, text)
	if err != nil {
		c.logger.Warn().Err(err).Msg("model classification failed, using rules")
		if c.onFallback != nil {
			c.onFallback(fallbackReason(err))
		}
		return c.rules.Classify(text)
	}
	return cls
}

func fallbackReason(err error) string {
	switch {
	case errs.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errs.Is(err, errs.ErrInvalidInput):
		return "malformed_response"
	default:
		return "transport"
	}
}

// classifyWire is the JSON shape the model is instructed to return.
type classifyWire struct {
	Intent     string          `json:"intent"`
	Params     json.RawMessage `json:"params"`
	Confidence float64         `json:"confidence"`
}

type classifyWireParams struct {
	Limit      *int   `json:"limit"`
	CardName   string `json:"card_name"`
	TargetList string `json:"target_list"`
	Status     string `json:"status"`
}

func (c *ModelClassifier) classifyModel(ctx context.Context, text string) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.completer.Complete(ctx, classifierSystemPrompt, StripMention(text), classifyMaxTokens, classifyTemperature)
	if err != nil {
		return Classification{}, fmt.Errorf("completion call: %w", err)
	}

	var wire classifyWire
	if err := json.Unmarshal([]byte(extractJSON(out)), &wire); err != nil {
		return Classification{}, fmt.Errorf("%w: decoding model response: %v", errs.ErrInvalidInput, err)
	}

	in, err := Parse(wire.Intent)
	if err != nil {
		return Classification{}, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	var wp classifyWireParams
	if len(wire.Params) > 0 {
		if err := json.Unmarshal(wire.Params, &wp); err != nil {
			return Classification{}, fmt.Errorf("%w: decoding model params: %v", errs.ErrInvalidInput, err)
		}
	}

	conf := wire.Confidence
	if conf < 0 || conf > 1 {
		return Classification{}, fmt.Errorf("%w: confidence %v out of range", errs.ErrInvalidInput, conf)
	}

	cls := Classification{Intent: in, Confidence: conf}
	switch in {
	case CommitQuery:
		limit := 5
		if wp.Limit != nil && *wp.Limit > 0 {
			limit = *wp.Limit
		}
		cls.Params = CommitQueryParams{Limit: limit}
	case CardCreate:
		cls.Params = CardCreateParams{CardName: wp.CardName, TargetList: wp.TargetList}
	case CardMove:
		cls.Params = CardMoveParams{CardName: wp.CardName, TargetList: wp.TargetList}
	case CardDelete:
		cls.Params = CardDeleteParams{CardName: wp.CardName}
	case CardUpdate:
		cls.Params = CardUpdateParams{CardName: wp.CardName}
	case CardStatus:
		cls.Params = CardStatusParams{CardName: wp.CardName, Status: wp.Status}
	}
	return cls, nil
}

// extractJSON trims markdown code fences and any prose around the first
// top-level JSON object. Models wrap JSON in ``` blocks often enough that
// rejecting those outright would defeat the point of the model path.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
