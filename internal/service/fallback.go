package service

import "ladder-console/internal/domain"

// Fixed rosters served when the ladder API cannot be reached, so the
// console stays usable in a degraded state.
var (
	fallbackPlayers = []domain.Player{
		{ID: "1", Name: "Alice", Elo: 1501},
		{ID: "2", Name: "Bob", Elo: 1500},
		{ID: "3", Name: "Charlie", Elo: 1501},
		{ID: "4", Name: "Dana", Elo: 1500},
	}

	fallbackCharacters = []domain.Character{
		{ID: "1", Name: "Mario", IconName: "mario"},
		{ID: "2", Name: "Link", IconName: "link"},
		{ID: "3", Name: "Samus", IconName: "samus"},
		{ID: "4", Name: "Pikachu", IconName: "pikachu"},
	}
)

func FallbackPlayers() []domain.Player {
	out := make([]domain.Player, len(fallbackPlayers))
	copy(out, fallbackPlayers)
	return out
}

func FallbackCharacters() []domain.Character {
	out := make([]domain.Character, len(fallbackCharacters))
	copy(out, fallbackCharacters)
	return out
}
