package intent

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// RuleClassifier classifies utterances with an ordered list of keyword
// predicates. The category order is fixed and behaviorally load-bearing:
// keyword sets overlap ("mostrar" appears in both the card listing and the
// generic checks), so reordering changes results. First match wins.
type RuleClassifier struct {
	rules   []rule
	phrases []PhraseRule
}

type rule struct {
	match   func(lower string) bool
	extract func(raw, lower string) Classification
}

// NewRuleClassifier builds a classifier with the given status-phrase table
// (nil means the default table).
func NewRuleClassifier(phrases []PhraseRule) *RuleClassifier {
	c := &RuleClassifier{phrases: phrases}
	if c.phrases == nil {
		c.phrases = DefaultPhrases()
	}
	c.rules = []rule{
		{matchAny("commit", "histórico", "historico"), c.extractCommitQuery},
		{matchAny("criar", "adicionar", "novo card", "nova tarefa"), c.extractCardCreate},
		{matchBoth(
			[]string{"listar", "mostrar", "ver", "quais", "cards", "tarefas"},
			[]string{"card", "tarefa", "trello", "quadro"},
		), constant(CardList, nil, 0.9)},
		{matchBoth(
			[]string{"deletar", "excluir", "remover", "apagar"},
			[]string{"card", "tarefa"},
		), c.extractCardDelete},
		{matchAny("mover", "mudar", "transferir"), c.extractCardMove},
		{matchBoth(
			[]string{"listas", "colunas"},
			[]string{"listar", "mostrar", "ver", "quais"},
		), constant(ListLists, nil, 0.9)},
		{matchBoth(
			[]string{"atualizar", "editar", "modificar", "alterar"},
			[]string{"card", "tarefa", "descrição", "descricao"},
		), c.extractCardUpdate},
		{c.matchStatusPhrase, c.extractCardStatus},
		{matchAny(
			"estatística", "estatistica", "estatísticas", "estatisticas",
			"análise", "analise", "métricas", "metricas",
		), c.extractStats},
		{matchAny("ajuda", "help", "ajudar", "comandos", "o que você faz"), constant(Help, nil, 1.0)},
		{matchAny("oi", "olá", "ola", "bom dia", "boa tarde", "boa noite", "hey", "e ai", "e aí"), constant(Greeting, nil, 0.95)},
	}
	return c
}

// Classify is total: on no match it returns Unknown with confidence 0.
func (c *RuleClassifier) Classify(text string) Classification {
	raw := StripMention(text)
	lower := strings.ToLower(raw)

	for _, r := range c.rules {
		if r.match(lower) {
			return r.extract(raw, lower)
		}
	}
	return Classification{Intent: Unknown, Confidence: 0}
}

var mentionRe = regexp.MustCompile(`<@[A-Za-z0-9]+>`)

// StripMention removes bot mention tokens and surrounding whitespace,
// preserving the rest of the text verbatim.
func StripMention(text string) string {
	return strings.TrimSpace(mentionRe.ReplaceAllString(text, ""))
}

// matchAny matches single-word keywords as word prefixes ("commit" matches
// "commits", but "ver" no longer fires inside "mover") and multi-word
// phrases as plain substrings.
func matchAny(keywords ...string) func(string) bool {
	return func(lower string) bool {
		var words []string
		for _, kw := range keywords {
			if strings.ContainsRune(kw, ' ') {
				if strings.Contains(lower, kw) {
					return true
				}
				continue
			}
			if words == nil {
				words = splitWords(lower)
			}
			for _, w := range words {
				if strings.HasPrefix(w, kw) {
					return true
				}
			}
		}
		return false
	}
}

func splitWords(lower string) []string {
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func matchBoth(first, second []string) func(string) bool {
	a, b := matchAny(first...), matchAny(second...)
	return func(lower string) bool { return a(lower) && b(lower) }
}

func constant(in Intent, p Params, conf float64) func(string, string) Classification {
	return func(_, _ string) Classification {
		return Classification{Intent: in, Params: p, Confidence: conf}
	}
}

var firstIntRe = regexp.MustCompile(`\d+`)

func (c *RuleClassifier) extractCommitQuery(_, lower string) Classification {
	limit := 5
	if m := firstIntRe.FindString(lower); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n > 0 {
			limit = n
		}
	}
	return Classification{
		Intent:     CommitQuery,
		Params:     CommitQueryParams{Limit: limit},
		Confidence: 0.95,
	}
}

// Extraction regexps run against the original-cased text so card and list
// names keep the user's capitalization; only matching is case-insensitive.
var createPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)criar (?:um |uma )?(?:card|tarefa) (?:chamad[oa] )?["']?(.+?)["']?$`),
	regexp.MustCompile(`(?i)adicionar (?:um |uma )?(?:card|tarefa) ["']?(.+?)["']?$`),
	regexp.MustCompile(`(?i)nov[oa] (?:card|tarefa) ["']?(.+?)["']?$`),
	regexp.MustCompile(`(?i)criar ["']?(.+?)["']? no (?:trello|quadro)`),
}

var createFallbackRe = regexp.MustCompile(`(?i)criar (.+)`)

var createListSuffixRe = regexp.MustCompile(`(?i)^(.+?)\s+(?:na lista|em)\s+(.+)$`)

func (c *RuleClassifier) extractCardCreate(raw, _ string) Classification {
	var name string
	for _, p := range createPatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			name = strings.TrimSpace(m[1])
			break
		}
	}
	if name == "" {
		if m := createFallbackRe.FindStringSubmatch(raw); m != nil {
			name = strings.TrimSpace(m[1])
		}
	}

	params := CardCreateParams{CardName: name}
	if m := createListSuffixRe.FindStringSubmatch(name); m != nil {
		params.CardName = trimQuotes(m[1])
		params.TargetList = trimQuotes(m[2])
	}

	conf := 0.6
	if params.CardName != "" {
		conf = 0.9
	}
	return Classification{Intent: CardCreate, Params: params, Confidence: conf}
}

var deletePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:deletar|excluir|remover|apagar) (?:o |a )?(?:card |tarefa )?["']?(.+?)["']?$`),
}

func (c *RuleClassifier) extractCardDelete(raw, _ string) Classification {
	var name string
	for _, p := range deletePatterns {
		if m := p.FindStringSubmatch(raw); m != nil {
			name = strings.TrimSpace(m[1])
			break
		}
	}
	conf := 0.6
	if name != "" {
		conf = 0.9
	}
	return Classification{
		Intent:     CardDelete,
		Params:     CardDeleteParams{CardName: name},
		Confidence: conf,
	}
}

var (
	moveVerbRe   = regexp.MustCompile(`(?i)(?:mover|mudar|transferir)\s+`)
	moveNounRe   = regexp.MustCompile(`(?i)^(?:o\s+|a\s+)?(?:card\s+|tarefa\s+)`)
	moveListRe   = regexp.MustCompile(`(?i)^(?:a\s+)?(?:lista\s+|coluna\s+)`)
	moveSplitRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s+para\s+`),
		regexp.MustCompile(`(?i)\s+pra\s+`),
	}
)

func (c *RuleClassifier) extractCardMove(raw, _ string) Classification {
	rest := moveVerbRe.ReplaceAllString(raw, "")
	rest = moveNounRe.ReplaceAllString(rest, "")

	var card, list string
	for _, splitRe := range moveSplitRes {
		if loc := splitRe.FindStringIndex(rest); loc != nil {
			card = trimQuotes(rest[:loc[0]])
			list = trimQuotes(moveListRe.ReplaceAllString(strings.TrimSpace(rest[loc[1]:]), ""))
			break
		}
	}

	conf := 0.5
	if card != "" && list != "" {
		conf = 0.85
	}
	return Classification{
		Intent:     CardMove,
		Params:     CardMoveParams{CardName: card, TargetList: list},
		Confidence: conf,
	}
}

var updateNameRe = regexp.MustCompile(`(?i)(?:card |tarefa )["']?(.+?)["']?\s*(?:com|para)`)

func (c *RuleClassifier) extractCardUpdate(raw, _ string) Classification {
	var name string
	if m := updateNameRe.FindStringSubmatch(raw); m != nil {
		name = trimQuotes(m[1])
	}
	return Classification{
		Intent:     CardUpdate,
		Params:     CardUpdateParams{CardName: name},
		Confidence: 0.8,
	}
}

func (c *RuleClassifier) matchStatusPhrase(lower string) bool {
	for _, r := range c.phrases {
		if strings.Contains(lower, r.Phrase) {
			return true
		}
	}
	return false
}

var statusNameRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:card|tarefa)\s+["']?(.+?)["']?\s+(?:está|esta|ta|ficou)`),
	regexp.MustCompile(`(?i)(?:meu|minha|o|a)\s+(?:card|tarefa)\s+["']?(.+?)["']?$`),
}

func (c *RuleClassifier) extractCardStatus(raw, lower string) Classification {
	status := ""
	for _, r := range c.phrases {
		if strings.Contains(lower, r.Phrase) {
			status = r.Status
			break
		}
	}

	var name string
	for _, re := range statusNameRes {
		if m := re.FindStringSubmatch(raw); m != nil {
			name = trimQuotes(m[1])
			break
		}
	}

	return Classification{
		Intent:     CardStatus,
		Params:     CardStatusParams{CardName: name, Status: status},
		Confidence: 0.8,
	}
}

func (c *RuleClassifier) extractStats(_, lower string) Classification {
	switch {
	case matchAny("commit", "github")(lower):
		return Classification{Intent: StatsCommits, Confidence: 0.95}
	case matchAny("card", "trello", "quadro")(lower):
		return Classification{Intent: StatsBoard, Confidence: 0.95}
	case matchAny("atividade", "resumo", "geral")(lower):
		return Classification{Intent: StatsActivity, Confidence: 0.9}
	default:
		return Classification{Intent: StatsGeneral, Confidence: 0.8}
	}
}

func trimQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
