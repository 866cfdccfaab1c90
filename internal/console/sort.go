package console

import (
	"cmp"
	"slices"

	"ladder-console/internal/domain"
)

type SortKey string

const (
	SortByElo           SortKey = "elo"
	SortByMatchesPlayed SortKey = "matches_played"
	SortByWins          SortKey = "wins"
	SortByLosses        SortKey = "losses"
)

type SortDirection string

const (
	Ascending  SortDirection = "asc"
	Descending SortDirection = "desc"
)

func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(s); k {
	case SortByElo, SortByMatchesPlayed, SortByWins, SortByLosses:
		return k, true
	}
	return "", false
}

// NextSort returns the sort after clicking key: the direction flips when key
// is already active, otherwise key becomes active descending.
func NextSort(activeKey SortKey, activeDir SortDirection, key SortKey) (SortKey, SortDirection) {
	if key == activeKey {
		if activeDir == Descending {
			return key, Ascending
		}
		return key, Descending
	}
	return key, Descending
}

// SortPlayers returns a sorted copy. Order among equal keys is unspecified.
func SortPlayers(players []domain.Player, key SortKey, dir SortDirection) []domain.Player {
	out := slices.Clone(players)
	field := sortField(key)
	slices.SortFunc(out, func(a, b domain.Player) int {
		c := cmp.Compare(field(a), field(b))
		if dir == Descending {
			return -c
		}
		return c
	})
	return out
}

func sortField(key SortKey) func(domain.Player) int {
	switch key {
	case SortByMatchesPlayed:
		return func(p domain.Player) int { return p.MatchesPlayed }
	case SortByWins:
		return func(p domain.Player) int { return p.Wins }
	case SortByLosses:
		return func(p domain.Player) int { return p.Losses }
	default:
		return func(p domain.Player) int { return p.Elo }
	}
}
