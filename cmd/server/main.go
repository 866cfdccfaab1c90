package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ladder-console/internal/config"
	"ladder-console/internal/console"
	"ladder-console/internal/constants"
	fxmodules "ladder-console/internal/fx"
	"ladder-console/internal/server"
	"ladder-console/internal/session"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runSessionWatcher),
		fx.Invoke(runConsole),
	).Run()
}

// runSessionWatcher restores any persisted session before the console can
// render, then keeps the expiry timers running for the app's lifetime.
func runSessionWatcher(lc fx.Lifecycle, sessions *session.Manager, logger zerolog.Logger) {
	watchCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sessions.Restore(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to restore session, starting logged out")
				sessions.Logout()
			}
			sessions.Start(watchCtx)

			go func() {
				for {
					select {
					case <-watchCtx.Done():
						return
					case notice := <-sessions.Notices():
						logger.Info().Str("notice_id", notice.ID).Time("expired_at", notice.ExpiredAt).Msg(notice.Message)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			sessions.Stop()
			return nil
		},
	})
}

func runConsole(
	lc fx.Lifecycle,
	consoleServer *server.ConsoleServer,
	c *console.Console,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: consoleServer,
	}
	loadCtx, cancelLoad := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				loadCtx, cancel := context.WithTimeout(loadCtx, constants.RequestTimeout)
				defer cancel()
				if err := c.Load(loadCtx); err != nil {
					logger.Warn().Err(err).Msg("initial load degraded")
				}
			}()

			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			cancelLoad()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}
