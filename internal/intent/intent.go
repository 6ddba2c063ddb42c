// Package intent turns free-text chat utterances into structured intents.
//
// Two classifiers share one result type: the rule-based classifier matches
// an ordered list of keyword predicates, and the model-assisted classifier
// delegates to a completion endpoint and falls back to the rules when the
// call fails. Each intent carries its own typed parameter record so a
// missing parameter is visible in the type, not a nil lookup at dispatch
// time.
package intent

import "fmt"

// Intent identifies the classified purpose of an utterance.
type Intent string

const (
	CommitQuery   Intent = "commit_query"
	CardCreate    Intent = "card_create"
	CardList      Intent = "card_list"
	CardMove      Intent = "card_move"
	CardDelete    Intent = "card_delete"
	ListLists     Intent = "list_lists"
	CardUpdate    Intent = "card_update"
	CardStatus    Intent = "card_status"
	StatsCommits  Intent = "stats_commits"
	StatsBoard    Intent = "stats_board"
	StatsActivity Intent = "stats_activity"
	StatsGeneral  Intent = "stats_general"
	Help          Intent = "help"
	Greeting      Intent = "greeting"
	Unknown       Intent = "unknown"
)

// All lists every valid intent, in classifier precedence order.
var All = []Intent{
	CommitQuery, CardCreate, CardList, CardDelete, CardMove, ListLists,
	CardUpdate, CardStatus, StatsCommits, StatsBoard, StatsActivity,
	StatsGeneral, Help, Greeting, Unknown,
}

// Parse maps a wire-format intent name to an Intent.
func Parse(s string) (Intent, error) {
	for _, in := range All {
		if string(in) == s {
			return in, nil
		}
	}
	return Unknown, fmt.Errorf("unknown intent %q", s)
}

// Params is the per-intent parameter record. Intents without parameters
// carry a nil Params.
type Params interface {
	isParams()
}

// CommitQueryParams parameterizes a commit listing request.
type CommitQueryParams struct {
	Limit int
}

// CardCreateParams parameterizes card creation. TargetList is empty when the
// utterance named no list; the first board list is used then.
type CardCreateParams struct {
	CardName   string
	TargetList string
}

// CardMoveParams parameterizes moving a card. Both fields empty means
// extraction failed and the dispatcher must ask for the full form.
type CardMoveParams struct {
	CardName   string
	TargetList string
}

// CardDeleteParams parameterizes card deletion.
type CardDeleteParams struct {
	CardName string
}

// CardUpdateParams parameterizes a card edit.
type CardUpdateParams struct {
	CardName string
}

// CardStatusParams parameterizes a natural-language status change
// ("the login card is ready for review").
type CardStatusParams struct {
	CardName string
	Status   string
}

func (CommitQueryParams) isParams() {}
func (CardCreateParams) isParams()  {}
func (CardMoveParams) isParams()    {}
func (CardDeleteParams) isParams()  {}
func (CardUpdateParams) isParams()  {}
func (CardStatusParams) isParams()  {}

// Classification is the immutable result of classifying one utterance.
// Confidence is a heuristic ranking signal in [0,1], not a probability.
type Classification struct {
	Intent     Intent
	Params     Params
	Confidence float64
}
