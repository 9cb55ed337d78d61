package app

import (
	"sort"

	"live-trivia-service/internal/domain"
)

// totalLeaderboard ranks all players by cumulative score, ties broken by
// ascending name so snapshots are deterministic.
func totalLeaderboard(players map[string]*playerState) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(players))
	for id, p := range players {
		entries = append(entries, domain.LeaderboardEntry{
			PlayerID: id,
			Name:     p.name,
			Score:    p.score,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// fastestCorrectTop5 ranks players who answered the given position correctly
// by ascending elapsed time, ties broken by descending points then name.
// Returns an empty slice when nobody was correct.
func fastestCorrectTop5(players map[string]*playerState, position int) []domain.FastAnswer {
	fast := make([]domain.FastAnswer, 0, len(players))
	for _, p := range players {
		a := p.last
		if a == nil || a.Position != position || !a.Correct {
			continue
		}
		fast = append(fast, domain.FastAnswer{
			Name:      p.name,
			ElapsedMs: a.ElapsedMs,
			Points:    a.Points,
		})
	}
	sort.Slice(fast, func(i, j int) bool {
		if fast[i].ElapsedMs != fast[j].ElapsedMs {
			return fast[i].ElapsedMs < fast[j].ElapsedMs
		}
		if fast[i].Points != fast[j].Points {
			return fast[i].Points > fast[j].Points
		}
		return fast[i].Name < fast[j].Name
	})
	if len(fast) > 5 {
		fast = fast[:5]
	}
	return fast
}

func truncateTop15(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	if len(entries) > 15 {
		return entries[:15]
	}
	return entries
}
