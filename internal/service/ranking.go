package service

import (
	"sort"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
)

// computeRankings orders every team that appeared in the bracket. The deciding grand final
// gives first and second place; everyone else is ordered by the losers round they were
// knocked out in, latest first, with ties going to the lower team number.
//
// Points are the team's own scores summed over played matches. Byes count for nothing.
func computeRankings(matches []bracket.Match) ([]bracket.Ranking, error) {
	final, err := newBracketState(matches).decidingMatch()
	if err != nil {
		return nil, err
	}
	champion, _ := final.Winner()
	runnerUp, _ := final.Loser()

	stats := make(map[int]*bracket.Ranking)
	entry := func(team int) *bracket.Ranking {
		r, ok := stats[team]
		if !ok {
			r = &bracket.Ranking{TeamNumber: team}
			stats[team] = r
		}
		return r
	}

	for i := range matches {
		m := &matches[i]
		if m.Team1Number != nil {
			entry(*m.Team1Number)
		}
		if m.Team2Number != nil {
			entry(*m.Team2Number)
		}

		loser, played := m.Loser()
		if !played {
			continue
		}
		winner, _ := m.Winner()
		entry(winner).Wins++
		entry(loser).Losses++
		entry(*m.Team1Number).Points += m.ScoreOf(*m.Team1Number)
		entry(*m.Team2Number).Points += m.ScoreOf(*m.Team2Number)
		if m.Bracket == bracket.LosersSide {
			entry(loser).EliminatedRound = m.Round
		}
	}

	rest := make([]*bracket.Ranking, 0, len(stats))
	for team, r := range stats {
		if team != champion && team != runnerUp {
			rest = append(rest, r)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].EliminatedRound != rest[j].EliminatedRound {
			return rest[i].EliminatedRound > rest[j].EliminatedRound
		}
		return rest[i].TeamNumber < rest[j].TeamNumber
	})

	ordered := append([]*bracket.Ranking{stats[champion], stats[runnerUp]}, rest...)
	rankings := make([]bracket.Ranking, 0, len(ordered))
	for i, r := range ordered {
		r.Position = i + 1
		rankings = append(rankings, *r)
	}
	return rankings, nil
}

// tierFor returns the tier covering position, if any.
func tierFor(tiers []bracket.AchievementTier, position int) *bracket.AchievementTier {
	for i := range tiers {
		if tiers[i].Covers(position) {
			return &tiers[i]
		}
	}
	return nil
}
