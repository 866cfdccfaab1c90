package fx

import (
	"ladder-console/internal/api"
	"ladder-console/internal/config"
	"ladder-console/internal/console"
	"ladder-console/internal/database"
	"ladder-console/internal/logger"
	"ladder-console/internal/repository"
	"ladder-console/internal/server"
	"ladder-console/internal/service"
	"ladder-console/internal/session"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideSessionManager builds the manager and hands it to the ladder client
// as the bearer token source.
func ProvideSessionManager(client *api.LadderClient, repo *repository.SessionRepository, cfg *config.Config, log zerolog.Logger) *session.Manager {
	m := session.NewManager(client, repo, cfg, log)
	client.SetTokenSource(m)
	return m
}

var Module = fx.Options(
	fx.Provide(logger.New),
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewSessionRepository),
	// api client
	fx.Provide(api.NewLadderClient),
	// session
	fx.Provide(ProvideSessionManager),
	// svc
	fx.Provide(service.NewPlayerService),
	fx.Provide(service.NewMatchService),
	fx.Provide(service.NewCharacterService),
	fx.Provide(console.New),
	// server
	fx.Provide(server.NewConsoleServer),
)
