package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/pmo-agent/internal/github"
	"github.com/p-blackswan/pmo-agent/internal/intent"
)

func boardAction(op string, priority int, params map[string]interface{}) intent.Action {
	return intent.Action{Target: intent.TargetBoard, Operation: op, Parameters: params, Priority: priority}
}

func repoAction(op string, priority int, params map[string]interface{}) intent.Action {
	return intent.Action{Target: intent.TargetRepository, Operation: op, Parameters: params, Priority: priority}
}

func actionPlan(actions ...intent.Action) intent.Plan {
	return intent.Plan{IntentType: intent.TypeAction, Confidence: 0.9, Actions: actions}
}

// Actions run in ascending priority order regardless of their order in the
// plan, and the results are joined in execution order.
func TestExecutePlan_PriorityOrdering(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	plan := actionPlan(
		boardAction("move_card", 2, map[string]interface{}{"card_name": "Deploy", "target_list": "Concluído"}),
		boardAction("create_card", 1, map[string]interface{}{"name": "Nova tarefa"}),
	)

	out := d.ExecutePlan(context.Background(), plan, "U1", "")

	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "criado na lista")
	assert.Contains(t, parts[1], "movido para *Concluído*")

	// The create executed before the move.
	require.Len(t, b.created, 1)
	require.Len(t, b.moved, 1)
}

func TestExecutePlan_EqualPriorityIsStable(t *testing.T) {
	d := newDispatcher(sampleBoard(), nil, nil)

	plan := actionPlan(
		boardAction("list_lists", 1, nil),
		boardAction("list_cards", 1, nil),
	)

	out := d.ExecutePlan(context.Background(), plan, "U1", "")

	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "listas no quadro")
	assert.Contains(t, parts[1], "cards encontrados")
}

// One failing action never suppresses the actions after it.
func TestExecutePlan_ActionFailureIsolated(t *testing.T) {
	b := sampleBoard()
	b.err = errors.New("quadro fora do ar")
	repo := &fakeRepo{commits: []github.Commit{{SHA: "abc1234", Message: "m", Author: "a"}}}
	d := newDispatcher(b, repo, nil)

	plan := actionPlan(
		boardAction("list_cards", 1, nil),
		repoAction("list_commits", 2, map[string]interface{}{"limit": float64(1)}),
	)

	out := d.ExecutePlan(context.Background(), plan, "U1", "")

	parts := strings.Split(out, "\n\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "❌ Erro ao listar cards:")
	assert.Contains(t, parts[1], "commits de `acme/widgets`")
	assert.Equal(t, []int{1}, repo.commitCalls)
}

func TestExecutePlan_ConfirmationShortCircuits(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	plan := actionPlan(boardAction("delete_card", 1, map[string]interface{}{"card_name": "Deploy"}))
	plan.RequiresConfirmation = true
	plan.SuggestedResponse = "Quer mesmo deletar o card Deploy?"

	out := d.ExecutePlan(context.Background(), plan, "U1", "")

	assert.Equal(t, "<@U1> Quer mesmo deletar o card Deploy?", out)
	assert.Empty(t, b.deleted)
}

func TestExecutePlan_ConfirmationDefaultText(t *testing.T) {
	d := newDispatcher(nil, nil, nil)

	plan := intent.Plan{IntentType: intent.TypeAmbiguous, RequiresConfirmation: true}

	assert.Equal(t, "<@U1> Pode confirmar o que você quer fazer?",
		d.ExecutePlan(context.Background(), plan, "U1", ""))
}

func TestExecutePlan_NoActionsFallsToDirect(t *testing.T) {
	d := newDispatcher(nil, nil, nil)

	out := d.ExecutePlan(context.Background(), intent.Plan{IntentType: intent.TypeQuery}, "U1", "oi agente")

	assert.Contains(t, out, `Digite "ajuda"`)
}

func TestExecutePlan_UnknownOperation(t *testing.T) {
	d := newDispatcher(sampleBoard(), nil, nil)

	out := d.ExecutePlan(context.Background(),
		actionPlan(boardAction("archive_board", 1, nil)), "U1", "")

	assert.Contains(t, out, "⚠️ Operação não implementada: board/archive_board")
}

func TestExecutePlan_UnknownTarget(t *testing.T) {
	d := newDispatcher(nil, nil, nil)

	plan := actionPlan(intent.Action{Target: "calendar", Operation: "book", Priority: 1})

	assert.Contains(t, d.ExecutePlan(context.Background(), plan, "U1", ""),
		"⚠️ Operação não implementada: calendar/book")
}

func TestExecutePlan_UpdateCardRename(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	plan := actionPlan(boardAction("update_card", 1, map[string]interface{}{
		"card_name": "Deploy",
		"new_name":  "Deploy produção",
	}))

	out := d.ExecutePlan(context.Background(), plan, "U1", "")

	assert.Contains(t, out, `✅ Card *"Deploy"* renomeado para *"Deploy produção"*!`)
	require.Len(t, b.updated, 1)
	assert.Equal(t, [3]string{"c3", "Deploy produção", ""}, b.updated[0])
}

func TestExecutePlan_ListIssues(t *testing.T) {
	repo := &fakeRepo{issues: []github.Issue{
		{Number: 12, Title: "Login quebrado", State: "open", Author: "ana"},
		{Number: 15, Title: "Timeout no deploy", State: "open", Author: "bruno"},
	}}
	d := newDispatcher(nil, repo, nil)

	out := d.ExecutePlan(context.Background(),
		actionPlan(repoAction("list_issues", 1, nil)), "U1", "")

	assert.Contains(t, out, "🐛 *2 issues (open) em `acme/widgets`:*")
	assert.Contains(t, out, "1. #12 Login quebrado - _ana_")
}

func TestExecutePlan_RepoInfo(t *testing.T) {
	repo := &fakeRepo{info: github.RepoInfo{
		FullName:    "acme/widgets",
		Description: "Widget factory",
		Stars:       42,
		Forks:       7,
		OpenIssues:  3,
		URL:         "https://github.com/acme/widgets",
	}}
	d := newDispatcher(nil, repo, nil)

	out := d.ExecutePlan(context.Background(),
		actionPlan(repoAction("get_repo_info", 1, nil)), "U1", "")

	assert.Contains(t, out, "ℹ️ *acme/widgets*")
	assert.Contains(t, out, "Widget factory")
	assert.Contains(t, out, "⭐ 42 estrelas | 🍴 7 forks | 🐛 3 issues abertas")
	assert.Contains(t, out, "https://github.com/acme/widgets")
}

func TestExecutePlan_CommitLimitFromParams(t *testing.T) {
	repo := &fakeRepo{commits: []github.Commit{{SHA: "abc", Message: "m", Author: "a"}}}
	d := newDispatcher(nil, repo, nil)

	d.ExecutePlan(context.Background(),
		actionPlan(repoAction("list_commits", 1, map[string]interface{}{"limit": float64(7)})), "U1", "")
	d.ExecutePlan(context.Background(),
		actionPlan(repoAction("list_commits", 1, nil)), "U1", "")

	assert.Equal(t, []int{7, 5}, repo.commitCalls)
}
