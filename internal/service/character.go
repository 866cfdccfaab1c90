package service

import (
	"context"
	"fmt"
	"path"

	"ladder-console/internal/api"
	"ladder-console/internal/config"
	"ladder-console/internal/constants"
	"ladder-console/internal/domain"

	"github.com/rs/zerolog"
)

type CharacterService struct {
	ladder    *api.LadderClient
	assetBase string
	logger    zerolog.Logger
}

func NewCharacterService(ladder *api.LadderClient, cfg *config.Config, logger zerolog.Logger) *CharacterService {
	return &CharacterService{ladder: ladder, assetBase: cfg.AssetBasePath, logger: logger}
}

// FetchCharacters falls back to a built-in roster on failure, returning it
// together with an advisory error.
func (s *CharacterService) FetchCharacters(ctx context.Context) ([]domain.Character, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	characters, err := s.ladder.GetCharacters(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to fetch characters, serving fallback roster")
		return FallbackCharacters(), fmt.Errorf("could not load characters, showing built-in roster: %w", err)
	}
	return characters, nil
}

// IconPath resolves the asset for a character's icon_name. A missing icon
// resolves to the default asset.
func (s *CharacterService) IconPath(c domain.Character) string {
	name := c.IconName
	if name == "" {
		name = constants.DefaultIconName
	}
	return path.Join(s.assetBase, name+constants.IconExtension)
}
