package service

import (
	"context"
	"fmt"
	"strings"

	"ladder-console/internal/api"
	"ladder-console/internal/constants"
	"ladder-console/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerService struct {
	ladder *api.LadderClient
	logger zerolog.Logger
}

func NewPlayerService(ladder *api.LadderClient, logger zerolog.Logger) *PlayerService {
	return &PlayerService{ladder: ladder, logger: logger}
}

// FetchPlayers returns the full player list. When the API is unreachable it
// returns the fallback roster together with a non-nil advisory error.
func (s *PlayerService) FetchPlayers(ctx context.Context) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	players, err := s.ladder.GetPlayers(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch players, serving fallback roster")
		return FallbackPlayers(), fmt.Errorf("could not load players, showing offline roster: %w", err)
	}

	s.logger.Debug().Int("count", len(players)).Msg("players fetched")
	return players, nil
}

// AddPlayer creates a player. Failures are never replaced with fake data.
func (s *PlayerService) AddPlayer(ctx context.Context, input domain.NewPlayer) (*domain.Player, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Main = strings.TrimSpace(input.Main)
	if err := validateInput(input, "Player name is required"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	player, err := s.ladder.CreatePlayer(ctx, input)
	if err != nil {
		s.logger.Error().Err(err).Str("name", input.Name).Msg("failed to create player")
		return nil, err
	}

	s.logger.Info().Str("player_id", player.ID).Str("name", player.Name).Msg("player created")
	return player, nil
}

// Lookup finds a player by id.
func Lookup(players []domain.Player, id string) (*domain.Player, error) {
	for i := range players {
		if players[i].ID == id {
			return &players[i], nil
		}
	}
	return nil, &domain.NotFoundError{Kind: "player", ID: id}
}

// DisplayName degrades to the raw id when the player is unknown.
func DisplayName(players []domain.Player, id string) string {
	p, err := Lookup(players, id)
	if err != nil {
		return id
	}
	return p.Name
}
