package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/pmo-agent/internal/board"
	"github.com/p-blackswan/pmo-agent/internal/github"
	"github.com/p-blackswan/pmo-agent/internal/intent"
)

type fakeBoard struct {
	lists []board.List
	cards []board.Card

	created []board.Card
	moved   [][2]string // card ID, list ID
	updated [][3]string // card ID, name, desc
	deleted []string

	err error
}

func (f *fakeBoard) Lists(context.Context) ([]board.List, error) { return f.lists, f.err }
func (f *fakeBoard) Cards(context.Context) ([]board.Card, error) { return f.cards, f.err }

func (f *fakeBoard) CreateCard(_ context.Context, listID, name, desc string) (board.Card, error) {
	if f.err != nil {
		return board.Card{}, f.err
	}
	card := board.Card{ID: "new1", Name: name, ListID: listID, URL: "https://boards.example/c/new1"}
	f.created = append(f.created, card)
	return card, nil
}

func (f *fakeBoard) MoveCard(_ context.Context, cardID, listID string) error {
	if f.err != nil {
		return f.err
	}
	f.moved = append(f.moved, [2]string{cardID, listID})
	return nil
}

func (f *fakeBoard) UpdateCard(_ context.Context, cardID, name, desc string) error {
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, [3]string{cardID, name, desc})
	return nil
}

func (f *fakeBoard) DeleteCard(_ context.Context, cardID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, cardID)
	return nil
}

type fakeRepo struct {
	commits []github.Commit
	issues  []github.Issue
	info    github.RepoInfo
	err     error

	commitCalls []int
}

func (f *fakeRepo) RecentCommits(_ context.Context, limit int) ([]github.Commit, error) {
	f.commitCalls = append(f.commitCalls, limit)
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.commits) {
		return f.commits[:limit], nil
	}
	return f.commits, nil
}

func (f *fakeRepo) Issues(context.Context, string) ([]github.Issue, error) { return f.issues, f.err }
func (f *fakeRepo) Info(context.Context) (github.RepoInfo, error)          { return f.info, f.err }
func (f *fakeRepo) Repo() string                                           { return "acme/widgets" }

type fakeStats struct{ commits, board, activity string }

func (f *fakeStats) CommitsReport(context.Context) (string, error)  { return f.commits, nil }
func (f *fakeStats) BoardReport(context.Context) (string, error)    { return f.board, nil }
func (f *fakeStats) ActivityReport(context.Context) (string, error) { return f.activity, nil }

func sampleBoard() *fakeBoard {
	return &fakeBoard{
		lists: []board.List{
			{ID: "l1", Name: "A Fazer"},
			{ID: "l2", Name: "Em Desenvolvimento"},
			{ID: "l3", Name: "Concluído"},
		},
		cards: []board.Card{
			{ID: "c1", Name: "Login", ListID: "l1"},
			{ID: "c2", Name: "Login social", ListID: "l2"},
			{ID: "c3", Name: "Deploy", ListID: "l1"},
		},
	}
}

func newDispatcher(b Board, r Repository, s Stats) *Dispatcher {
	return New(b, r, s, zerolog.Nop())
}

func classify(in intent.Intent, p intent.Params) intent.Classification {
	return intent.Classification{Intent: in, Params: p, Confidence: 0.9}
}

func TestHandleClassification_CommitQuery(t *testing.T) {
	repo := &fakeRepo{commits: []github.Commit{
		{SHA: "abc1234deadbeef", Message: "Fix login", Author: "Ana", Date: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{SHA: "def5678deadbeef", Message: "Add stats", Author: "Bruno", Date: time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)},
	}}
	d := newDispatcher(sampleBoard(), repo, nil)

	out := d.HandleClassification(context.Background(), classify(intent.CommitQuery, intent.CommitQueryParams{Limit: 2}), "U1", "")

	assert.Contains(t, out, "Últimos 2 commits de `acme/widgets`")
	assert.Contains(t, out, "`abc1234` - Fix login")
	assert.Contains(t, out, "_Ana em 2026-08-20_")
	assert.Equal(t, []int{2}, repo.commitCalls)
}

func TestHandleClassification_CardCreate(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardCreate, intent.CardCreateParams{CardName: "Revisar API"}), "U1", "")

	assert.Contains(t, out, `✅ Card *"Revisar API"* criado na lista *A Fazer*!`)
	require.Len(t, b.created, 1)
	assert.Equal(t, "l1", b.created[0].ListID)
}

func TestHandleClassification_CardCreateTargetList(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardCreate, intent.CardCreateParams{CardName: "Revisar API", TargetList: "desenvolvimento"}), "U1", "")

	assert.Contains(t, out, "criado na lista *Em Desenvolvimento*")
	require.Len(t, b.created, 1)
	assert.Equal(t, "l2", b.created[0].ListID)
}

func TestHandleClassification_CardCreateMissingName(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardCreate, intent.CardCreateParams{}), "U1", "")

	assert.Equal(t, "<@U1> Qual é o nome do card que você quer criar?", out)
	assert.Empty(t, b.created)
}

// With no board configured, a create request yields configuration guidance
// and no backend call of any kind.
func TestHandleClassification_NoBoardConfigured(t *testing.T) {
	d := newDispatcher(nil, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardCreate, intent.CardCreateParams{CardName: "Fix login bug"}), "U1", "")

	assert.Contains(t, out, "não configuradas")
}

func TestHandleClassification_CardListTruncation(t *testing.T) {
	b := sampleBoard()
	for i := 0; i < 12; i++ {
		b.cards = append(b.cards, board.Card{ID: "x", Name: "Card extra", ListID: "l1"})
	}
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(), classify(intent.CardList, nil), "U1", "")

	assert.Contains(t, out, "📋 *15 cards encontrados:*")
	assert.Contains(t, out, "10. ")
	assert.NotContains(t, out, "11. ")
	assert.Contains(t, out, "_... e mais 5 cards_")
}

func TestHandleClassification_CardMoveFirstMatch(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardMove, intent.CardMoveParams{CardName: "login", TargetList: "Concluído"}), "U1", "")

	// Two cards contain "login"; the first in listing order wins.
	assert.Contains(t, out, `✅ Card *"Login"* movido para *Concluído*!`)
	require.Len(t, b.moved, 1)
	assert.Equal(t, [2]string{"c1", "l3"}, b.moved[0])
}

func TestHandleClassification_CardMoveUnknownListEnumerates(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardMove, intent.CardMoveParams{CardName: "Deploy", TargetList: "Arquivado"}), "U1", "")

	assert.Contains(t, out, `❌ Lista "Arquivado" não encontrada.`)
	assert.Contains(t, out, `"A Fazer"`)
	assert.Contains(t, out, `"Concluído"`)
	assert.Empty(t, b.moved)
}

func TestHandleClassification_CardMoveMissingParams(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardMove, intent.CardMoveParams{}), "U1", "")

	assert.Contains(t, out, "❌ Formato: `mover card Nome do Card para Nome da Lista`")
	assert.Empty(t, b.moved)
}

// Deletion must refuse to act on an ambiguous name and list the candidates.
func TestHandleClassification_CardDeleteAmbiguous(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardDelete, intent.CardDeleteParams{CardName: "login"}), "U1", "")

	assert.Contains(t, out, "⚠️ Encontrei 2 cards com esse nome:")
	assert.Contains(t, out, "• Login")
	assert.Contains(t, out, "• Login social")
	assert.Contains(t, out, "Seja mais específico!")
	assert.Empty(t, b.deleted)
}

func TestHandleClassification_CardDeleteSingleMatch(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardDelete, intent.CardDeleteParams{CardName: "Deploy"}), "U1", "")

	assert.Contains(t, out, `✅ Card *"Deploy"* deletado com sucesso!`)
	assert.Equal(t, []string{"c3"}, b.deleted)
}

func TestHandleClassification_CardDeleteNotFound(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardDelete, intent.CardDeleteParams{CardName: "Inexistente"}), "U1", "")

	assert.Contains(t, out, `❌ Card "Inexistente" não encontrado.`)
	assert.Empty(t, b.deleted)
}

func TestHandleClassification_ListLists(t *testing.T) {
	d := newDispatcher(sampleBoard(), nil, nil)

	out := d.HandleClassification(context.Background(), classify(intent.ListLists, nil), "U1", "")

	assert.Contains(t, out, "📊 *3 listas no quadro:*")
	assert.Contains(t, out, "1. *A Fazer* (2 cards)")
	assert.Contains(t, out, "3. *Concluído* (0 cards)")
}

func TestHandleClassification_CardStatusMovesCard(t *testing.T) {
	b := sampleBoard()
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(),
		classify(intent.CardStatus, intent.CardStatusParams{CardName: "Deploy", Status: "concluído"}), "U1", "")

	assert.Contains(t, out, `✅ Card *"Deploy"* está agora em *Concluído*!`)
	require.Len(t, b.moved, 1)
	assert.Equal(t, [2]string{"c3", "l3"}, b.moved[0])
}

func TestHandleClassification_StatsRouting(t *testing.T) {
	s := &fakeStats{commits: "relatório commits", board: "relatório quadro", activity: "relatório atividade"}
	d := newDispatcher(sampleBoard(), &fakeRepo{}, s)

	assert.Equal(t, "relatório commits",
		d.HandleClassification(context.Background(), classify(intent.StatsCommits, nil), "U1", ""))
	assert.Equal(t, "relatório quadro",
		d.HandleClassification(context.Background(), classify(intent.StatsBoard, nil), "U1", ""))
	assert.Equal(t, "relatório atividade",
		d.HandleClassification(context.Background(), classify(intent.StatsActivity, nil), "U1", ""))
	assert.Contains(t,
		d.HandleClassification(context.Background(), classify(intent.StatsGeneral, nil), "U1", ""),
		"Estatísticas Disponíveis")
}

func TestHandleClassification_HelpAndGreeting(t *testing.T) {
	d := newDispatcher(nil, nil, nil)

	help := d.HandleClassification(context.Background(), classify(intent.Help, nil), "U1", "")
	assert.Contains(t, help, "Comandos Disponíveis")
	assert.Contains(t, help, "mover card X para Lista Y")

	hi := d.HandleClassification(context.Background(), classify(intent.Greeting, nil), "U1", "")
	assert.Contains(t, hi, "Olá! 👋")
}

func TestHandleClassification_UnknownFallsToDirect(t *testing.T) {
	d := newDispatcher(nil, nil, nil)

	out := d.HandleClassification(context.Background(),
		intent.Classification{Intent: intent.Unknown}, "U1", "xyzzy")

	assert.Equal(t, `<@U1> Olá! Digite "ajuda" para ver os comandos disponíveis.`, out)
}

func TestHandleClassification_BackendErrorBecomesText(t *testing.T) {
	b := sampleBoard()
	b.err = errors.New("trello indisponível")
	d := newDispatcher(b, nil, nil)

	out := d.HandleClassification(context.Background(), classify(intent.CardList, nil), "U1", "")

	assert.Contains(t, out, "❌ Erro ao listar cards:")
	assert.Contains(t, out, "trello indisponível")
}

func TestDirectResolve(t *testing.T) {
	repo := &fakeRepo{commits: []github.Commit{{SHA: "abc1234", Message: "m", Author: "a"}}}
	b := sampleBoard()
	d := newDispatcher(b, repo, nil)

	t.Run("commits with limit", func(t *testing.T) {
		out := d.DirectResolve(context.Background(), "U1", "me mostra 3 commits aí")
		assert.Contains(t, out, "commits de `acme/widgets`")
		assert.Equal(t, 3, repo.commitCalls[len(repo.commitCalls)-1])
	})

	t.Run("create card", func(t *testing.T) {
		out := d.DirectResolve(context.Background(), "U1", "criar card Revisão final")
		assert.Contains(t, out, `criado na lista`)
		assert.Equal(t, "Revisão final", b.created[len(b.created)-1].Name)
	})

	t.Run("move card", func(t *testing.T) {
		out := d.DirectResolve(context.Background(), "U1", "mover card Deploy para Concluído")
		assert.Contains(t, out, `movido para *Concluído*`)
	})

	t.Run("help", func(t *testing.T) {
		assert.Contains(t, d.DirectResolve(context.Background(), "U1", "ajuda"), "Comandos Disponíveis")
	})

	t.Run("default greeting", func(t *testing.T) {
		assert.Contains(t, d.DirectResolve(context.Background(), "U1", "bla bla"), `Digite "ajuda"`)
	})
}
