package service

import (
	"context"
	"strings"

	"ladder-console/internal/api"
	"ladder-console/internal/constants"
	"ladder-console/internal/domain"

	"github.com/rs/zerolog"
)

const invalidMatchData = "Invalid match data"

type MatchService struct {
	ladder *api.LadderClient
	logger zerolog.Logger
}

func NewMatchService(ladder *api.LadderClient, logger zerolog.Logger) *MatchService {
	return &MatchService{ladder: ladder, logger: logger}
}

// ResolveLoser returns whichever of the two players is not the winner.
// A winner that is neither player is rejected.
func ResolveLoser(player1, player2, winner string) (string, error) {
	switch {
	case player1 == "" || player2 == "" || winner == "":
		return "", domain.NewValidationError("winner", invalidMatchData)
	case player1 == player2:
		return "", domain.NewValidationError("player2", "A player cannot play against themselves")
	case winner == player2:
		return player1, nil
	case winner == player1:
		return player2, nil
	default:
		return "", domain.NewValidationError("winner", "Winner must be one of the two players")
	}
}

func (s *MatchService) RecordMatch(ctx context.Context, result domain.MatchResult) (*domain.Match, error) {
	result.Player1 = strings.TrimSpace(result.Player1)
	result.Player2 = strings.TrimSpace(result.Player2)
	result.Winner = strings.TrimSpace(result.Winner)
	if err := validateInput(result, invalidMatchData); err != nil {
		return nil, err
	}

	loser, err := ResolveLoser(result.Player1, result.Player2, result.Winner)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	match, err := s.ladder.CreateMatch(ctx, result.Winner, loser)
	if err != nil {
		s.logger.Error().Err(err).Str("winner_id", result.Winner).Str("loser_id", loser).Msg("failed to record match")
		return nil, err
	}

	s.logger.Info().
		Str("match_id", match.ID).
		Str("winner_id", result.Winner).
		Str("loser_id", loser).
		Int("elo_change", match.EloChange).
		Msg("match recorded")
	return match, nil
}

func (s *MatchService) RecentMatches(ctx context.Context) ([]domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	matches, err := s.ladder.GetRecentMatches(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch recent matches")
		return nil, err
	}
	return matches, nil
}

// FilterMatches sends only the filter fields that are set.
func (s *MatchService) FilterMatches(ctx context.Context, filter domain.MatchFilter) ([]domain.Match, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	query := filter.Query()
	matches, err := s.ladder.FilterMatches(ctx, query)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", query.Encode()).Msg("failed to filter matches")
		return nil, err
	}

	s.logger.Debug().Str("query", query.Encode()).Int("count", len(matches)).Msg("matches filtered")
	return matches, nil
}

// AnnulMatch removes a recorded match. Callers confirm with the operator first.
func (s *MatchService) AnnulMatch(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.NewValidationError("id", "Match id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	if err := s.ladder.DeleteMatch(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("match_id", id).Msg("failed to annul match")
		return err
	}

	s.logger.Info().Str("match_id", id).Msg("match annulled")
	return nil
}
