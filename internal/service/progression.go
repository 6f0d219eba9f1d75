package service

import (
	"sort"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/AdamBeresnev/shuttle-bracket/internal/utils"
)

// bracketState is the persisted match list grouped by bracket and round.
// Rounds are indexed from 0 and each round is sorted by match number.
type bracketState struct {
	winners    [][]bracket.Match
	losers     [][]bracket.Match
	grandFinal []bracket.Match
}

func newBracketState(matches []bracket.Match) bracketState {
	var st bracketState
	for _, m := range matches {
		switch m.Bracket {
		case bracket.WinnersSide:
			st.winners = appendToRound(st.winners, m)
		case bracket.LosersSide:
			st.losers = appendToRound(st.losers, m)
		case bracket.FinalsSide:
			st.grandFinal = append(st.grandFinal, m)
		}
	}

	sortRounds(st.winners)
	sortRounds(st.losers)
	sort.Slice(st.grandFinal, func(i, j int) bool {
		return st.grandFinal[i].Round < st.grandFinal[j].Round
	})
	return st
}

func appendToRound(rounds [][]bracket.Match, m bracket.Match) [][]bracket.Match {
	for len(rounds) < m.Round {
		rounds = append(rounds, nil)
	}
	rounds[m.Round-1] = append(rounds[m.Round-1], m)
	return rounds
}

func sortRounds(rounds [][]bracket.Match) {
	for _, r := range rounds {
		sort.Slice(r, func(i, j int) bool {
			return r[i].MatchNumber < r[j].MatchNumber
		})
	}
}

// latestRound returns the last non-empty round and its 1-based number, or 0 when there is none.
func latestRound(rounds [][]bracket.Match) ([]bracket.Match, int) {
	for i := len(rounds) - 1; i >= 0; i-- {
		if len(rounds[i]) > 0 {
			return rounds[i], i + 1
		}
	}
	return nil, 0
}

func winnersOf(round []bracket.Match) []int {
	teams := make([]int, 0, len(round))
	for _, m := range round {
		if w, ok := m.Winner(); ok {
			teams = append(teams, w)
		}
	}
	return teams
}

func byeHistory(rounds [][]bracket.Match) map[int]bool {
	had := make(map[int]bool)
	for _, r := range rounds {
		for _, m := range r {
			if m.IsBye() && m.Team1Number != nil {
				had[*m.Team1Number] = true
			}
		}
	}
	return had
}

// pendingDropIns lists winners bracket losers that have not played in the losers bracket yet,
// ordered by the round they lost in and then by match number.
func (st bracketState) pendingDropIns() []int {
	entered := make(map[int]bool)
	for _, r := range st.losers {
		for _, m := range r {
			if m.Team1Number != nil {
				entered[*m.Team1Number] = true
			}
			if m.Team2Number != nil {
				entered[*m.Team2Number] = true
			}
		}
	}

	var pending []int
	for _, r := range st.winners {
		for _, m := range r {
			if loser, ok := m.Loser(); ok && !entered[loser] {
				pending = append(pending, loser)
			}
		}
	}
	return pending
}

// planNextRound decides which matches follow a fully completed set of rounds.
//
// Winners bracket: the winners of the latest round pair up in match-number order.
// Losers bracket, with S the winners of the latest losers round and D the pending drop-ins:
//   - S empty: drop-ins play each other.
//   - |S| > |D|: survivors play each other, drop-ins wait a round.
//   - otherwise: S[i] plays D[i] in bracket order and surplus drop-ins play each other.
//
// The grand final is created once the winners bracket has one team left and the losers
// bracket is down to one survivor with nobody waiting to drop in.
func planNextRound(matches []bracket.Match) ([]bracket.Match, error) {
	if len(matches) == 0 {
		return nil, ErrBracketNotGenerated
	}
	for _, m := range matches {
		if !m.IsCompleted() {
			return nil, ErrRoundNotClosed
		}
	}

	st := newBracketState(matches)
	if len(st.grandFinal) > 0 {
		return st.planReset()
	}

	latestWinners, wbRound := latestRound(st.winners)
	if wbRound == 0 {
		return nil, ErrBracketNotGenerated
	}
	wbAlive := winnersOf(latestWinners)

	var next []bracket.Match
	if len(wbAlive) >= 2 {
		next = append(next, pairRound(bracket.WinnersSide, wbRound+1, wbAlive, byeHistory(st.winners))...)
	}

	latestLosers, lbRound := latestRound(st.losers)
	survivors := winnersOf(latestLosers)
	dropIns := st.pendingDropIns()

	if len(wbAlive) == 1 && len(survivors)+len(dropIns) == 1 {
		lbRepresentative := append(survivors, dropIns...)[0]
		next = append(next, newPairing(bracket.FinalsSide, 1, 1, wbAlive[0], utils.Ptr(lbRepresentative)))
		return next, nil
	}

	next = append(next, planLosersRound(lbRound+1, survivors, dropIns, byeHistory(st.losers))...)
	if len(next) == 0 {
		return nil, ErrNothingToGenerate
	}
	return next, nil
}

func planLosersRound(round int, survivors, dropIns []int, hadBye map[int]bool) []bracket.Match {
	switch {
	case len(survivors)+len(dropIns) <= 1:
		return nil
	case len(survivors) == 0:
		return pairRound(bracket.LosersSide, round, dropIns, hadBye)
	case len(survivors) > len(dropIns):
		return pairRound(bracket.LosersSide, round, survivors, hadBye)
	}

	matches := make([]bracket.Match, 0, len(dropIns))
	for i, s := range survivors {
		matches = append(matches, newPairing(bracket.LosersSide, round, i+1, s, utils.Ptr(dropIns[i])))
	}
	for _, m := range pairRound(bracket.LosersSide, round, dropIns[len(survivors):], hadBye) {
		m.MatchNumber += len(survivors)
		matches = append(matches, m)
	}
	return matches
}

// planReset creates the second grand final when the losers bracket representative won the first.
func (st bracketState) planReset() ([]bracket.Match, error) {
	first := st.grandFinal[0]
	if len(st.grandFinal) > 1 || !utils.Equal(first.WinnerTeamNumber, first.Team2Number) {
		return nil, ErrGrandFinalDecided
	}

	reset := newPairing(bracket.FinalsSide, 2, 1, *first.Team1Number, utils.Clone(first.Team2Number))
	reset.IsResetMatch = true
	return []bracket.Match{reset}, nil
}

// decidingMatch returns the grand final match that settles first and second place.
func (st bracketState) decidingMatch() (*bracket.Match, error) {
	if len(st.grandFinal) == 0 || !st.grandFinal[0].IsCompleted() {
		return nil, ErrGrandFinalNotCompleted
	}
	first := st.grandFinal[0]
	if utils.Equal(first.WinnerTeamNumber, first.Team1Number) {
		return &first, nil
	}
	if len(st.grandFinal) < 2 || !st.grandFinal[1].IsCompleted() {
		return nil, ErrGrandFinalNotCompleted
	}
	return &st.grandFinal[1], nil
}

// pairRound pairs adjacent entrants. With an odd count, the last entrant that has not had a
// bye in this bracket yet sits out and gets a completed bye match numbered after the pairs.
func pairRound(side bracket.BracketSide, round int, entrants []int, hadBye map[int]bool) []bracket.Match {
	if len(entrants) == 0 {
		return nil
	}

	playing := entrants
	bye := -1
	if len(entrants)%2 == 1 {
		byeIdx := len(entrants) - 1
		for i := len(entrants) - 1; i >= 0; i-- {
			if !hadBye[entrants[i]] {
				byeIdx = i
				break
			}
		}
		bye = entrants[byeIdx]
		playing = make([]int, 0, len(entrants)-1)
		playing = append(playing, entrants[:byeIdx]...)
		playing = append(playing, entrants[byeIdx+1:]...)
	}

	matches := make([]bracket.Match, 0, (len(entrants)+1)/2)
	for i := 0; i+1 < len(playing); i += 2 {
		matches = append(matches, newPairing(side, round, len(matches)+1, playing[i], utils.Ptr(playing[i+1])))
	}
	if bye >= 0 {
		matches = append(matches, newPairing(side, round, len(matches)+1, bye, nil))
	}
	return matches
}

// newPairing builds an unsaved match; a nil team2 makes it a bye that is already completed.
func newPairing(side bracket.BracketSide, round, number, team1 int, team2 *int) bracket.Match {
	m := bracket.Match{
		Bracket:     side,
		Round:       round,
		MatchNumber: number,
		Team1Number: utils.Ptr(team1),
		Team2Number: team2,
		Status:      bracket.MatchUpcoming,
	}
	if team2 == nil {
		m.Status = bracket.MatchCompleted
		m.WinnerTeamNumber = utils.Ptr(team1)
	}
	return m
}
