package intent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlanner(completer Completer) *Planner {
	return NewPlanner(completer, time.Second, zerolog.Nop())
}

func TestPlanner_ParsesPlan(t *testing.T) {
	stub := &stubCompleter{out: `{
		"intent_type": "action",
		"confidence": 0.9,
		"actions": [
			{"target_system": "board", "operation": "create_card", "parameters": {"name": "Revisar API", "list": "Doing"}, "priority": 1, "reasoning": "pedido de criação"},
			{"target_system": "repository", "operation": "list_commits", "parameters": {"limit": 5}, "priority": 2}
		],
		"reasoning": "duas ações independentes",
		"requires_confirmation": false,
		"suggested_response": "Criando o card e buscando os commits."
	}`}

	plan, err := newPlanner(stub).Plan(context.Background(), "criar card Revisar API em Doing e mostrar commits")
	require.NoError(t, err)

	assert.Equal(t, TypeAction, plan.IntentType)
	assert.Equal(t, 0.9, plan.Confidence)
	assert.False(t, plan.RequiresConfirmation)
	require.Len(t, plan.Actions, 2)
	assert.Equal(t, TargetBoard, plan.Actions[0].Target)
	assert.Equal(t, "create_card", plan.Actions[0].Operation)
	assert.Equal(t, "Revisar API", plan.Actions[0].Parameters["name"])
	assert.Equal(t, TargetRepository, plan.Actions[1].Target)
	assert.Equal(t, 2, plan.Actions[1].Priority)
}

func TestPlanner_TransportErrorSurfaces(t *testing.T) {
	stub := &stubCompleter{err: errors.New("connection refused")}

	_, err := newPlanner(stub).Plan(context.Background(), "listar cards")
	require.Error(t, err)
}

// A response that arrives but cannot be validated becomes the canonical
// ambiguous plan rather than an error, so the caller always has something
// answerable to the user.
func TestPlanner_InvalidResponseBecomesAmbiguous(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{"not json", "vou criar o card agora mesmo!"},
		{"missing intent_type", `{"confidence": 0.9, "actions": [], "reasoning": "r", "requires_confirmation": false}`},
		{"missing actions", `{"intent_type": "action", "confidence": 0.9, "reasoning": "r", "requires_confirmation": false}`},
		{"unknown intent_type", `{"intent_type": "guess", "confidence": 0.9, "actions": [], "reasoning": "r", "requires_confirmation": false}`},
		{"confidence out of range", `{"intent_type": "action", "confidence": 1.5, "actions": [], "reasoning": "r", "requires_confirmation": false}`},
		{"action missing operation", `{"intent_type": "action", "confidence": 0.9, "actions": [{"target_system": "board", "parameters": {}}], "reasoning": "r", "requires_confirmation": false}`},
		{"action unknown target", `{"intent_type": "action", "confidence": 0.9, "actions": [{"target_system": "mainframe", "operation": "x", "parameters": {}}], "reasoning": "r", "requires_confirmation": false}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := newPlanner(&stubCompleter{out: tt.out}).Plan(context.Background(), "faz aí")
			require.NoError(t, err)
			assert.Equal(t, AmbiguousPlan(), plan)
		})
	}
}

func TestAmbiguousPlan(t *testing.T) {
	plan := AmbiguousPlan()
	assert.Equal(t, TypeAmbiguous, plan.IntentType)
	assert.Zero(t, plan.Confidence)
	assert.Empty(t, plan.Actions)
	assert.True(t, plan.RequiresConfirmation)
	assert.NotEmpty(t, plan.SuggestedResponse)
}
