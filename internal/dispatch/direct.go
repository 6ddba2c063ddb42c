package dispatch

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	directCreateRe = regexp.MustCompile(`(?i)criar (?:card |um card )?(.+)`)
	directLimitRe  = regexp.MustCompile(`\d+`)
	directMoveRe   = regexp.MustCompile(`(?i)(?:mover|mudar|transferir)\s+(?:o\s+|a\s+)?(?:card\s+|tarefa\s+)?`)
	directSplitRe  = regexp.MustCompile(`(?i)\s+p(?:a)?ra\s+`)
	directListRe   = regexp.MustCompile(`(?i)^(?:a\s+)?(?:lista\s+|coluna\s+)`)
)

// DirectResolve is the second-chance keyword resolver used when
// classification yields nothing actionable: it re-scans the raw utterance
// for a small set of direct commands and falls back to a greeting.
func (d *Dispatcher) DirectResolve(ctx context.Context, userID, text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "commit"):
		limit := 5
		if m := directLimitRe.FindString(lower); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n > 0 {
				limit = n
			}
		}
		return d.commitsText(ctx, userID, limit)

	case strings.Contains(lower, "criar card") || strings.Contains(lower, "criar um card"):
		m := directCreateRe.FindStringSubmatch(text)
		if m == nil {
			return mention(userID, "❌ Formato: `criar card Nome do Card`")
		}
		return d.createCard(ctx, userID, strings.TrimSpace(m[1]), "")

	case strings.Contains(lower, "listar") || strings.Contains(lower, "mostrar") || strings.Contains(lower, "ver cards"):
		return d.listCards(ctx, userID)

	case strings.Contains(lower, "mover"):
		rest := directMoveRe.ReplaceAllString(text, "")
		if loc := directSplitRe.FindStringIndex(rest); loc != nil {
			card := strings.TrimSpace(rest[:loc[0]])
			list := directListRe.ReplaceAllString(strings.TrimSpace(rest[loc[1]:]), "")
			if card != "" && list != "" {
				return d.moveCard(ctx, userID, card, list)
			}
		}
		return mention(userID, "❌ Formato: `mover card Nome do Card para Nome da Lista`")

	case strings.Contains(lower, "ajuda") || strings.Contains(lower, "help") || strings.Contains(lower, "comandos"):
		return mention(userID, helpText())

	default:
		return mention(userID, `Olá! Digite "ajuda" para ver os comandos disponíveis.`)
	}
}
