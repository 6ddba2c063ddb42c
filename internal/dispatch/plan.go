package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/p-blackswan/pmo-agent/internal/intent"
)

// ExecutePlan runs every action of a model-produced plan in ascending
// priority order (stable for equal priorities) and joins the per-action
// results with blank lines. A failed action contributes an error string but
// never stops the actions after it. Plans that require confirmation return
// the model's suggested response; plans with no actions fall back to the
// keyword resolver over the raw utterance.
func (d *Dispatcher) ExecutePlan(ctx context.Context, plan intent.Plan, userID, rawText string) string {
	if plan.RequiresConfirmation {
		text := plan.SuggestedResponse
		if text == "" {
			text = "Pode confirmar o que você quer fazer?"
		}
		return mention(userID, text)
	}
	if len(plan.Actions) == 0 {
		return d.DirectResolve(ctx, userID, rawText)
	}

	actions := make([]intent.Action, len(plan.Actions))
	copy(actions, plan.Actions)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Priority < actions[j].Priority })

	results := make([]string, 0, len(actions))
	for _, a := range actions {
		results = append(results, d.executeAction(ctx, a, userID))
	}
	return strings.Join(results, "\n\n")
}

// executeAction maps one (target_system, operation) pair to a capability
// call. Unknown pairs report "not implemented" instead of failing the plan.
func (d *Dispatcher) executeAction(ctx context.Context, a intent.Action, userID string) string {
	d.logger.Info().
		Str("target", string(a.Target)).
		Str("operation", a.Operation).
		Int("priority", a.Priority).
		Msg("executing action")

	switch a.Target {
	case intent.TargetBoard:
		return d.executeBoardAction(ctx, a, userID)
	case intent.TargetRepository:
		return d.executeRepoAction(ctx, a, userID)
	case intent.TargetQuery:
		if a.Operation == "get_status" {
			if d.stats == nil || d.repo == nil || d.board == nil {
				return mention(userID, "❌ Status indisponível: backends não configurados.")
			}
			return d.report(userID, func() (string, error) { return d.stats.ActivityReport(ctx) })
		}
	}
	return mention(userID, fmt.Sprintf("⚠️ Operação não implementada: %s/%s", a.Target, a.Operation))
}

func (d *Dispatcher) executeBoardAction(ctx context.Context, a intent.Action, userID string) string {
	switch a.Operation {
	case "create_card":
		name := paramString(a.Parameters, "name", "card_name")
		if name == "" {
			return mention(userID, "Qual é o nome do card que você quer criar?")
		}
		return d.createCard(ctx, userID, name, paramString(a.Parameters, "list", "target_list"))

	case "move_card":
		name := paramString(a.Parameters, "card_name", "name")
		list := paramString(a.Parameters, "target_list", "list")
		if name == "" || list == "" {
			return mention(userID, "❌ Formato: `mover card Nome do Card para Nome da Lista`")
		}
		return d.moveCard(ctx, userID, name, list)

	case "update_card":
		name := paramString(a.Parameters, "card_name", "name")
		if name == "" {
			return mention(userID, "Qual card você quer atualizar?")
		}
		return d.updateCard(ctx, userID, name,
			paramString(a.Parameters, "new_name"),
			paramString(a.Parameters, "description", "desc"))

	case "delete_card":
		name := paramString(a.Parameters, "card_name", "name")
		if name == "" {
			return mention(userID, "Qual card você quer deletar?")
		}
		return d.deleteCard(ctx, userID, name)

	case "list_cards":
		return d.listCards(ctx, userID)

	case "list_lists":
		return d.listLists(ctx, userID)
	}
	return mention(userID, fmt.Sprintf("⚠️ Operação não implementada: board/%s", a.Operation))
}

func (d *Dispatcher) executeRepoAction(ctx context.Context, a intent.Action, userID string) string {
	switch a.Operation {
	case "list_commits":
		limit := paramInt(a.Parameters, "limit", 5)
		return d.commitsText(ctx, userID, limit)

	case "list_issues":
		return d.issuesText(ctx, userID, paramString(a.Parameters, "state"))

	case "get_repo_info":
		return d.repoInfoText(ctx, userID)
	}
	return mention(userID, fmt.Sprintf("⚠️ Operação não implementada: repository/%s", a.Operation))
}

func (d *Dispatcher) issuesText(ctx context.Context, userID, state string) string {
	if d.repo == nil {
		return mention(userID, repoNotConfigured)
	}
	if state == "" {
		state = "open"
	}
	issues, err := d.repo.Issues(ctx, state)
	if err != nil {
		d.logger.Error().Err(err).Msg("listing issues failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao buscar issues: %v", err))
	}
	if len(issues) == 0 {
		return mention(userID, fmt.Sprintf("Nenhuma issue %s encontrada em `%s`.", state, d.repo.Repo()))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🐛 *%d issues (%s) em `%s`:*\n", len(issues), state, d.repo.Repo())
	for i, is := range issues {
		fmt.Fprintf(&b, "%d. #%d %s - _%s_\n", i+1, is.Number, is.Title, is.Author)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) repoInfoText(ctx context.Context, userID string) string {
	if d.repo == nil {
		return mention(userID, repoNotConfigured)
	}
	info, err := d.repo.Info(ctx)
	if err != nil {
		d.logger.Error().Err(err).Msg("fetching repo info failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao buscar repositório: %v", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ℹ️ *%s*\n", info.FullName)
	if info.Description != "" {
		b.WriteString(info.Description + "\n")
	}
	fmt.Fprintf(&b, "⭐ %d estrelas | 🍴 %d forks | 🐛 %d issues abertas\n", info.Stars, info.Forks, info.OpenIssues)
	if info.URL != "" {
		b.WriteString(info.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func paramString(params map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func paramInt(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return def
}
