// Package dispatch maps classified intents and model-produced plans to
// operations against the board and repository capabilities, and renders the
// user-facing result text.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/pmo-agent/internal/board"
	"github.com/p-blackswan/pmo-agent/internal/github"
	"github.com/p-blackswan/pmo-agent/internal/intent"
	"github.com/p-blackswan/pmo-agent/internal/stats"
)

// Board is the board capability the dispatcher executes against.
type Board interface {
	Lists(ctx context.Context) ([]board.List, error)
	Cards(ctx context.Context) ([]board.Card, error)
	CreateCard(ctx context.Context, listID, name, desc string) (board.Card, error)
	MoveCard(ctx context.Context, cardID, listID string) error
	UpdateCard(ctx context.Context, cardID, name, desc string) error
	DeleteCard(ctx context.Context, cardID string) error
}

// Repository is the repository capability the dispatcher executes against.
type Repository interface {
	RecentCommits(ctx context.Context, limit int) ([]github.Commit, error)
	Issues(ctx context.Context, state string) ([]github.Issue, error)
	Info(ctx context.Context) (github.RepoInfo, error)
	Repo() string
}

// Stats renders the statistics reports.
type Stats interface {
	CommitsReport(ctx context.Context) (string, error)
	BoardReport(ctx context.Context) (string, error)
	ActivityReport(ctx context.Context) (string, error)
}

const (
	boardNotConfigured = "❌ Credenciais do quadro não configuradas."
	repoNotConfigured  = "❌ Repositório GitHub não configurado."
	maxListedCards     = 10
	maxDeleteCandidates = 5
)

// Dispatcher executes intents. Nil capabilities degrade to configuration
// guidance instead of backend calls.
type Dispatcher struct {
	board  Board
	repo   Repository
	stats  Stats
	logger zerolog.Logger
}

// New creates a Dispatcher. board, repo and stats may each be nil when the
// corresponding credentials are absent.
func New(b Board, r Repository, s Stats, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		board:  b,
		repo:   r,
		stats:  s,
		logger: logger.With().Str("component", "dispatch").Logger(),
	}
}

// HandleClassification executes one classified intent and returns the reply
// text. rawText is the original utterance, used by the keyword fallback when
// the intent is unknown. Total; backend failures become error strings.
func (d *Dispatcher) HandleClassification(ctx context.Context, cls intent.Classification, userID, rawText string) string {
	d.logger.Info().
		Str("intent", string(cls.Intent)).
		Float64("confidence", cls.Confidence).
		Msg("dispatching intent")

	switch cls.Intent {
	case intent.CommitQuery:
		limit := 5
		if p, ok := cls.Params.(intent.CommitQueryParams); ok {
			limit = p.Limit
		}
		return d.commitsText(ctx, userID, limit)

	case intent.CardCreate:
		p, _ := cls.Params.(intent.CardCreateParams)
		if p.CardName == "" {
			return mention(userID, "Qual é o nome do card que você quer criar?")
		}
		return d.createCard(ctx, userID, p.CardName, p.TargetList)

	case intent.CardList:
		return d.listCards(ctx, userID)

	case intent.CardMove:
		p, _ := cls.Params.(intent.CardMoveParams)
		if p.CardName == "" || p.TargetList == "" {
			return mention(userID, "❌ Formato: `mover card Nome do Card para Nome da Lista`")
		}
		return d.moveCard(ctx, userID, p.CardName, p.TargetList)

	case intent.CardDelete:
		p, _ := cls.Params.(intent.CardDeleteParams)
		if p.CardName == "" {
			return mention(userID, "Qual card você quer deletar?")
		}
		return d.deleteCard(ctx, userID, p.CardName)

	case intent.ListLists:
		return d.listLists(ctx, userID)

	case intent.CardUpdate:
		return mention(userID, "❌ Formato: `atualizar card Nome Atual para Novo Nome`")

	case intent.CardStatus:
		p, _ := cls.Params.(intent.CardStatusParams)
		if p.CardName == "" {
			return mention(userID, "Qual card você quer atualizar? Ex: `o card Login está pronto`")
		}
		return d.updateStatus(ctx, userID, p.CardName, p.Status)

	case intent.StatsCommits:
		if d.stats == nil || d.repo == nil {
			return mention(userID, repoNotConfigured)
		}
		return d.report(userID, func() (string, error) { return d.stats.CommitsReport(ctx) })

	case intent.StatsBoard:
		if d.stats == nil || d.board == nil {
			return mention(userID, boardNotConfigured)
		}
		return d.report(userID, func() (string, error) { return d.stats.BoardReport(ctx) })

	case intent.StatsActivity:
		if d.stats == nil || d.repo == nil || d.board == nil {
			return mention(userID, "❌ Estatísticas indisponíveis: backends não configurados.")
		}
		return d.report(userID, func() (string, error) { return d.stats.ActivityReport(ctx) })

	case intent.StatsGeneral:
		return mention(userID, stats.GeneralMenu())

	case intent.Help:
		return mention(userID, helpText())

	case intent.Greeting:
		return mention(userID, `Olá! 👋 Como posso ajudar? Digite "ajuda" para ver os comandos.`)

	default:
		return d.DirectResolve(ctx, userID, rawText)
	}
}

func (d *Dispatcher) report(userID string, fn func() (string, error)) string {
	out, err := fn()
	if err != nil {
		d.logger.Error().Err(err).Msg("report failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao gerar estatísticas: %v", err))
	}
	return out
}

func (d *Dispatcher) commitsText(ctx context.Context, userID string, limit int) string {
	if d.repo == nil {
		return mention(userID, repoNotConfigured)
	}
	commits, err := d.repo.RecentCommits(ctx, limit)
	if err != nil {
		d.logger.Error().Err(err).Msg("listing commits failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao buscar commits: %v", err))
	}
	if len(commits) == 0 {
		return mention(userID, fmt.Sprintf("Nenhum commit encontrado no repositório `%s`.", d.repo.Repo()))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Últimos %d commits de `%s`:*\n", len(commits), d.repo.Repo())
	for i, c := range commits {
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		fmt.Fprintf(&b, "%d. `%s` - %s\n   _%s em %s_\n", i+1, sha, c.Message, c.Author, c.Date.Format("2006-01-02"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) createCard(ctx context.Context, userID, name, targetList string) string {
	if d.board == nil {
		return mention(userID, boardNotConfigured)
	}
	lists, err := d.board.Lists(ctx)
	if err != nil {
		return mention(userID, fmt.Sprintf("❌ Erro ao criar card: %v", err))
	}
	if len(lists) == 0 {
		return mention(userID, "❌ Nenhuma lista encontrada no quadro.")
	}

	dest := lists[0]
	if targetList != "" {
		match, errText := pickList(lists, targetList)
		if errText != "" {
			return mention(userID, errText)
		}
		dest = match
	}

	card, err := d.board.CreateCard(ctx, dest.ID, name, "")
	if err != nil {
		d.logger.Error().Err(err).Msg("creating card failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao criar card: %v", err))
	}

	text := fmt.Sprintf("✅ Card *\"%s\"* criado na lista *%s*!", name, dest.Name)
	if card.URL != "" {
		text += "\n🔗 " + card.URL
	}
	return mention(userID, text)
}

func (d *Dispatcher) listCards(ctx context.Context, userID string) string {
	if d.board == nil {
		return mention(userID, boardNotConfigured)
	}
	cards, err := d.board.Cards(ctx)
	if err != nil {
		return mention(userID, fmt.Sprintf("❌ Erro ao listar cards: %v", err))
	}
	if len(cards) == 0 {
		return mention(userID, "Nenhum card encontrado.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 *%d cards encontrados:*\n", len(cards))
	for i, c := range cards {
		if i == maxListedCards {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Name)
	}
	if len(cards) > maxListedCards {
		fmt.Fprintf(&b, "\n_... e mais %d cards_", len(cards)-maxListedCards)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) moveCard(ctx context.Context, userID, cardName, targetList string) string {
	if d.board == nil {
		return mention(userID, boardNotConfigured)
	}
	card, errText := d.findCard(ctx, cardName)
	if errText != "" {
		return mention(userID, errText)
	}

	lists, err := d.board.Lists(ctx)
	if err != nil {
		return mention(userID, fmt.Sprintf("❌ Erro ao mover card: %v", err))
	}
	dest, errText := pickList(lists, targetList)
	if errText != "" {
		return mention(userID, errText)
	}

	if err := d.board.MoveCard(ctx, card.ID, dest.ID); err != nil {
		d.logger.Error().Err(err).Msg("moving card failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao mover card: %v", err))
	}
	return mention(userID, fmt.Sprintf("✅ Card *\"%s\"* movido para *%s*!", card.Name, dest.Name))
}

func (d *Dispatcher) updateCard(ctx context.Context, userID, cardName, newName, desc string) string {
	if d.board == nil {
		return mention(userID, boardNotConfigured)
	}
	if newName == "" && desc == "" {
		return mention(userID, "❌ Formato: `atualizar card Nome Atual para Novo Nome`")
	}
	card, errText := d.findCard(ctx, cardName)
	if errText != "" {
		return mention(userID, errText)
	}

	if err := d.board.UpdateCard(ctx, card.ID, newName, desc); err != nil {
		d.logger.Error().Err(err).Msg("updating card failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao atualizar card: %v", err))
	}
	if newName != "" {
		return mention(userID, fmt.Sprintf("✅ Card *\"%s\"* renomeado para *\"%s\"*!", card.Name, newName))
	}
	return mention(userID, fmt.Sprintf("✅ Card *\"%s\"* atualizado!", card.Name))
}

// deleteCard refuses ambiguous matches: deletion never acts when more than
// one card matches the given name.
func (d *Dispatcher) deleteCard(ctx context.Context, userID, cardName string) string {
	if d.board == nil {
		return mention(userID, boardNotConfigured)
	}
	cards, err := d.board.Cards(ctx)
	if err != nil {
		return mention(userID, fmt.Sprintf("❌ Erro ao deletar card: %v", err))
	}

	matches := matchCards(cards, cardName)
	if len(matches) == 0 {
		return mention(userID, fmt.Sprintf("❌ Card \"%s\" não encontrado.", cardName))
	}
	if len(matches) > 1 {
		var b strings.Builder
		fmt.Fprintf(&b, "⚠️ Encontrei %d cards com esse nome:\n\n", len(matches))
		for i, c := range matches {
			if i == maxDeleteCandidates {
				break
			}
			fmt.Fprintf(&b, "• %s\n", c.Name)
		}
		b.WriteString("\nSeja mais específico!")
		return mention(userID, b.String())
	}

	card := matches[0]
	if err := d.board.DeleteCard(ctx, card.ID); err != nil {
		d.logger.Error().Err(err).Msg("deleting card failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao deletar card: %v", err))
	}
	return mention(userID, fmt.Sprintf("✅ Card *\"%s\"* deletado com sucesso!", card.Name))
}

func (d *Dispatcher) listLists(ctx context.Context, userID string) string {
	if d.board == nil {
		return mention(userID, boardNotConfigured)
	}
	lists, err := d.board.Lists(ctx)
	if err != nil {
		return mention(userID, fmt.Sprintf("❌ Erro ao listar listas: %v", err))
	}
	if len(lists) == 0 {
		return mention(userID, "Nenhuma lista encontrada no quadro.")
	}
	cards, err := d.board.Cards(ctx)
	if err != nil {
		return mention(userID, fmt.Sprintf("❌ Erro ao listar listas: %v", err))
	}

	counts := map[string]int{}
	for _, c := range cards {
		counts[c.ListID]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%d listas no quadro:*\n", len(lists))
	for i, l := range lists {
		fmt.Fprintf(&b, "%d. *%s* (%d cards)\n", i+1, l.Name, counts[l.ID])
	}
	return strings.TrimRight(b.String(), "\n")
}

// updateStatus resolves a status label to a board list and moves the card
// there.
func (d *Dispatcher) updateStatus(ctx context.Context, userID, cardName, status string) string {
	if d.board == nil {
		return mention(userID, boardNotConfigured)
	}
	if status == "" {
		return mention(userID, "❌ Não entendi o novo status. Ex: `o card Login está pronto`")
	}
	card, errText := d.findCard(ctx, cardName)
	if errText != "" {
		return mention(userID, errText)
	}

	lists, err := d.board.Lists(ctx)
	if err != nil {
		return mention(userID, fmt.Sprintf("❌ Erro ao atualizar status: %v", err))
	}
	dest, errText := pickList(lists, status)
	if errText != "" {
		return mention(userID, errText)
	}

	if err := d.board.MoveCard(ctx, card.ID, dest.ID); err != nil {
		d.logger.Error().Err(err).Msg("status move failed")
		return mention(userID, fmt.Sprintf("❌ Erro ao atualizar status: %v", err))
	}
	return mention(userID, fmt.Sprintf("✅ Card *\"%s\"* está agora em *%s*!", card.Name, dest.Name))
}

// findCard resolves a name to a single card by case-insensitive substring
// match, silently picking the first match in listing order when several
// cards qualify. Returns an error text when nothing matches.
func (d *Dispatcher) findCard(ctx context.Context, name string) (board.Card, string) {
	cards, err := d.board.Cards(ctx)
	if err != nil {
		return board.Card{}, fmt.Sprintf("❌ Erro ao buscar cards: %v", err)
	}
	matches := matchCards(cards, name)
	if len(matches) == 0 {
		return board.Card{}, fmt.Sprintf("❌ Card \"%s\" não encontrado.", name)
	}
	return matches[0], ""
}

func matchCards(cards []board.Card, name string) []board.Card {
	lower := strings.ToLower(name)
	var out []board.Card
	for _, c := range cards {
		if strings.Contains(strings.ToLower(c.Name), lower) {
			out = append(out, c)
		}
	}
	return out
}

// pickList resolves a list name by case-insensitive substring match. On no
// match it returns an error text enumerating the available lists.
func pickList(lists []board.List, name string) (board.List, string) {
	lower := strings.ToLower(name)
	for _, l := range lists {
		if strings.Contains(strings.ToLower(l.Name), lower) {
			return l, ""
		}
	}
	names := make([]string, len(lists))
	for i, l := range lists {
		names[i] = fmt.Sprintf("%q", l.Name)
	}
	return board.List{}, fmt.Sprintf("❌ Lista \"%s\" não encontrada.\n\n*Listas disponíveis:* %s",
		name, strings.Join(names, ", "))
}

func mention(userID, text string) string {
	if userID == "" {
		return text
	}
	return fmt.Sprintf("<@%s> %s", userID, text)
}

func helpText() string {
	return strings.Join([]string{
		"🤖 *Comandos Disponíveis:*",
		"",
		"*GitHub:*",
		"• `me diga os últimos 5 commits` - Lista commits",
		"• `mostrar últimos 10 commits` - Lista commits",
		"",
		"*Quadro:*",
		"• `criar card Nome do Card` - Cria um card",
		"• `listar cards` - Lista todos os cards",
		"• `listar listas` - Lista todas as listas/colunas",
		"• `mover card X para Lista Y` - Move card entre listas",
		"• `deletar card Nome do Card` - Deleta um card",
		"",
		"*Estatísticas:*",
		"• `estatística de commits` - Análise de commits por pessoa",
		"• `estatística do quadro` - Distribuição de cards",
		"• `resumo de atividades` - Resumo dos últimos 7 dias",
		"",
		"*Ajuda:*",
		"• `ajuda` ou `help` - Mostra esta mensagem",
		"",
		"_Digite qualquer comando acima para começar!_",
	}, "\n")
}
