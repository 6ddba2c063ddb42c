// Package stats builds textual activity reports from the board and the
// repository.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/pmo-agent/internal/board"
	"github.com/p-blackswan/pmo-agent/internal/github"
)

const commitSampleSize = 100

// CommitSource supplies repository data for reports.
type CommitSource interface {
	RecentCommits(ctx context.Context, limit int) ([]github.Commit, error)
	Repo() string
}

// BoardSource supplies board data for reports.
type BoardSource interface {
	Lists(ctx context.Context) ([]board.List, error)
	Cards(ctx context.Context) ([]board.Card, error)
}

// Reporter renders the three statistics reports. Either source may be nil;
// the corresponding report then returns ErrNotConfigured via its caller's
// capability check, so Reporter assumes non-nil sources.
type Reporter struct {
	repo   CommitSource
	board  BoardSource
	logger zerolog.Logger
	now    func() time.Time
}

// NewReporter creates a Reporter over the given sources.
func NewReporter(repo CommitSource, boardSrc BoardSource, logger zerolog.Logger) *Reporter {
	return &Reporter{
		repo:   repo,
		board:  boardSrc,
		logger: logger.With().Str("component", "stats").Logger(),
		now:    time.Now,
	}
}

type authorCount struct {
	author string
	count  int
}

// CommitsReport ranks contributors by commit count over the most recent
// commits.
func (r *Reporter) CommitsReport(ctx context.Context) (string, error) {
	commits, err := r.repo.RecentCommits(ctx, commitSampleSize)
	if err != nil {
		return "", fmt.Errorf("fetching commits: %w", err)
	}
	if len(commits) == 0 {
		return "Nenhum commit encontrado para análise.", nil
	}

	counts := map[string]int{}
	for _, c := range commits {
		counts[c.Author]++
	}

	ranked := make([]authorCount, 0, len(counts))
	for author, n := range counts {
		ranked = append(ranked, authorCount{author, n})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].author < ranked[j].author
	})

	total := len(commits)
	avg := float64(total) / float64(len(ranked))

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Estatísticas de Commits - %s*\n\n", r.repo.Repo())
	b.WriteString("📈 *Resumo Geral:*\n")
	fmt.Fprintf(&b, "• Total de commits analisados: *%d*\n", total)
	fmt.Fprintf(&b, "• Total de contribuidores: *%d*\n", len(ranked))
	fmt.Fprintf(&b, "• Média de commits por pessoa: *%.2f*\n\n", avg)
	b.WriteString("👥 *Ranking de Contribuidores:*\n")

	shown := ranked
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for i, ac := range shown {
		pct := float64(ac.count) / float64(total) * 100
		status := "📉 Abaixo da média"
		switch {
		case float64(ac.count) > avg:
			status = "🔥 Acima da média"
		case float64(ac.count) == avg:
			status = "📊 Na média"
		}
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, ac.author)
		fmt.Fprintf(&b, "   • Commits: %d (%.1f%%)\n", ac.count, pct)
		fmt.Fprintf(&b, "   • Status: %s\n", status)
	}
	if len(ranked) > 10 {
		fmt.Fprintf(&b, "\n_... e mais %d contribuidores_\n", len(ranked)-10)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// BoardReport shows how cards are distributed across the board's lists.
func (r *Reporter) BoardReport(ctx context.Context) (string, error) {
	lists, err := r.board.Lists(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching lists: %w", err)
	}
	cards, err := r.board.Cards(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching cards: %w", err)
	}

	listNames := make(map[string]string, len(lists))
	for _, l := range lists {
		listNames[l.ID] = l.Name
	}

	counts := map[string]int{}
	for _, c := range cards {
		name, ok := listNames[c.ListID]
		if !ok {
			name = "Desconhecida"
		}
		counts[name]++
	}

	type listCount struct {
		name  string
		count int
	}
	ranked := make([]listCount, 0, len(counts))
	for name, n := range counts {
		ranked = append(ranked, listCount{name, n})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})

	avg := 0.0
	if len(lists) > 0 {
		avg = float64(len(cards)) / float64(len(lists))
	}

	var b strings.Builder
	b.WriteString("📊 *Estatísticas do Quadro*\n\n")
	b.WriteString("📈 *Resumo Geral:*\n")
	fmt.Fprintf(&b, "• Total de cards: *%d*\n", len(cards))
	fmt.Fprintf(&b, "• Total de listas: *%d*\n", len(lists))
	fmt.Fprintf(&b, "• Média de cards por lista: *%.2f*\n\n", avg)
	b.WriteString("📋 *Distribuição por Lista:*\n")

	for i, lc := range ranked {
		pct := 0.0
		if len(cards) > 0 {
			pct = float64(lc.count) / float64(len(cards)) * 100
		}
		fmt.Fprintf(&b, "%d. *%s*\n", i+1, lc.name)
		fmt.Fprintf(&b, "   • Cards: %d (%.1f%%)\n", lc.count, pct)
		fmt.Fprintf(&b, "   • %s\n", progressBar(pct))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// ActivityReport combines commit activity over the last week with the
// current card load.
func (r *Reporter) ActivityReport(ctx context.Context) (string, error) {
	commits, err := r.repo.RecentCommits(ctx, commitSampleSize)
	if err != nil {
		return "", fmt.Errorf("fetching commits: %w", err)
	}
	cards, err := r.board.Cards(ctx)
	if err != nil {
		return "", fmt.Errorf("fetching cards: %w", err)
	}

	weekAgo := r.now().AddDate(0, 0, -7)
	recent := 0
	for _, c := range commits {
		if c.Date.After(weekAgo) {
			recent++
		}
	}

	var b strings.Builder
	b.WriteString("📊 *Resumo de Atividades (últimos 7 dias)*\n\n")
	b.WriteString("🐙 *GitHub:*\n")
	fmt.Fprintf(&b, "• Commits nos últimos 7 dias: *%d*\n\n", recent)
	b.WriteString("📋 *Quadro:*\n")
	fmt.Fprintf(&b, "• Cards ativos no quadro: *%d*\n\n", len(cards))

	switch {
	case recent > 20:
		b.WriteString("💪 *Análise:* Equipe muito ativa no desenvolvimento!")
	case recent > 10:
		b.WriteString("👍 *Análise:* Boa frequência de commits.")
	case recent > 0:
		b.WriteString("⚠️ *Análise:* Poucos commits recentes.")
	default:
		b.WriteString("❌ *Análise:* Nenhum commit nos últimos 7 dias.")
	}
	return b.String(), nil
}

// GeneralMenu lists the available statistics commands.
func GeneralMenu() string {
	return strings.Join([]string{
		"📊 *Estatísticas Disponíveis:*",
		"",
		"Digite um dos comandos abaixo:",
		"",
		"• `estatística de commits` - Análise de commits por pessoa",
		"• `estatística do quadro` - Distribuição de cards por lista",
		"• `resumo de atividades` - Atividades dos últimos 7 dias",
		"",
		"_Escolha uma opção acima!_",
	}, "\n")
}

func progressBar(pct float64) string {
	filled := int(pct / 10)
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
