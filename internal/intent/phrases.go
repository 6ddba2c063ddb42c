package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PhraseRule maps a status phrase to the board status it implies. Rules are
// scanned in slice order and the first containment match wins, so specific
// phrases must precede the generic ones they contain ("está pronto" before
// "pronto", which alone means done rather than ready-for-review).
type PhraseRule struct {
	Phrase string `yaml:"phrase"`
	Status string `yaml:"status"`
}

// Board status labels. The dispatcher resolves them to list names by
// substring match, so they double as list-name hints.
const (
	StatusTodo       = "a fazer"
	StatusInProgress = "em desenvolvimento"
	StatusReview     = "revisão"
	StatusDone       = "concluído"
)

// DefaultPhrases returns the built-in phrase table. Order is load-bearing.
func DefaultPhrases() []PhraseRule {
	return []PhraseRule{
		{"finalizado completamente", StatusDone},
		{"está sendo feito", StatusInProgress},
		{"estou fazendo", StatusInProgress},
		{"precisa revisar", StatusReview},
		{"para revisar", StatusReview},
		{"pronto para revisão", StatusReview},
		{"está pronto", StatusReview},
		{"em andamento", StatusInProgress},
		{"precisa fazer", StatusTodo},
		{"para fazer", StatusTodo},
		{"vou fazer", StatusTodo},
		{"fazer depois", StatusTodo},
		{"concluído", StatusDone},
		{"concluido", StatusDone},
		{"terminei", StatusReview},
		{"finalizado", StatusReview},
		{"completo", StatusReview},
		{"revisão", StatusReview},
		{"revisar", StatusReview},
		{"comecei", StatusInProgress},
		{"iniciado", StatusInProgress},
		{"trabalhando", StatusInProgress},
		{"desenvolvendo", StatusInProgress},
		{"fazendo", StatusInProgress},
		{"pronto", StatusDone},
		{"feito", StatusDone},
	}
}

type phrasesFile struct {
	Phrases []PhraseRule `yaml:"phrases"`
}

// LoadPhrases reads a phrase table from a YAML file, preserving file order.
// An empty path returns the default table.
func LoadPhrases(path string) ([]PhraseRule, error) {
	if path == "" {
		return DefaultPhrases(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading phrases file: %w", err)
	}

	var f phrasesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing phrases file: %w", err)
	}
	if len(f.Phrases) == 0 {
		return nil, fmt.Errorf("phrases file %s contains no rules", path)
	}
	for i, r := range f.Phrases {
		if r.Phrase == "" || r.Status == "" {
			return nil, fmt.Errorf("phrases file %s: rule %d is missing phrase or status", path, i)
		}
	}
	return f.Phrases, nil
}
