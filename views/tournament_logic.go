package views

import (
	"sort"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
)

type Round struct {
	Round   int             `json:"round"`
	Matches []bracket.Match `json:"matches"`
}

type TeamLabel struct {
	TeamNumber int      `json:"team_number"`
	Members    []string `json:"members"`
}

// BracketData is the match list laid out the way a bracket is drawn.
type BracketData struct {
	Winners    []Round           `json:"winners"`
	Losers     []Round           `json:"losers"`
	GrandFinal []Round           `json:"grand_final"`
	Teams      map[int]TeamLabel `json:"teams"`
}

func PrepareBracketData(participants []bracket.Participant, matches []bracket.Match) BracketData {
	teams := make(map[int]TeamLabel)
	for _, p := range participants {
		if p.TeamNumber == nil {
			continue
		}
		label := teams[*p.TeamNumber]
		label.TeamNumber = *p.TeamNumber
		label.Members = append(label.Members, p.DisplayName)
		teams[*p.TeamNumber] = label
	}

	wbRounds := make(map[int][]bracket.Match)
	lbRounds := make(map[int][]bracket.Match)
	finalRounds := make(map[int][]bracket.Match)

	for _, m := range matches {
		switch m.Bracket {
		case bracket.WinnersSide:
			wbRounds[m.Round] = append(wbRounds[m.Round], m)
		case bracket.LosersSide:
			lbRounds[m.Round] = append(lbRounds[m.Round], m)
		case bracket.FinalsSide:
			finalRounds[m.Round] = append(finalRounds[m.Round], m)
		}
	}

	return BracketData{
		Winners:    sortRounds(wbRounds),
		Losers:     sortRounds(lbRounds),
		GrandFinal: sortRounds(finalRounds),
		Teams:      teams,
	}
}

func sortRounds(rounds map[int][]bracket.Match) []Round {
	roundNums := make([]int, 0, len(rounds))
	for r := range rounds {
		roundNums = append(roundNums, r)
	}
	sort.Ints(roundNums)

	sorted := make([]Round, 0, len(roundNums))
	for _, r := range roundNums {
		matches := rounds[r]
		sort.Slice(matches, func(i, j int) bool {
			return matches[i].MatchNumber < matches[j].MatchNumber
		})
		sorted = append(sorted, Round{Round: r, Matches: matches})
	}
	return sorted
}
