package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ladder-console/internal/domain"

	"github.com/rs/zerolog"
)

const (
	TokenKey  = "auth_token"
	ExpiryKey = "auth_token_expiry"
	OwnerKey  = "auth_owner"
)

// SessionRepository persists the console's bearer token, its expiry and the
// owning browser's secret as independent keys.
type SessionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSessionRepository(sqlDB *sql.DB, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Load returns the stored session. ok is false unless the token and expiry
// are both present and parseable. A missing owner leaves the session unbound.
func (r *SessionRepository) Load(ctx context.Context) (domain.Session, bool, error) {
	token, found, err := r.get(ctx, TokenKey)
	if err != nil || !found {
		return domain.Session{}, false, err
	}

	raw, found, err := r.get(ctx, ExpiryKey)
	if err != nil || !found {
		return domain.Session{}, false, err
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		r.logger.Warn().Err(err).Str("value", raw).Msg("stored session expiry is malformed")
		return domain.Session{}, false, nil
	}

	owner, _, err := r.get(ctx, OwnerKey)
	if err != nil {
		return domain.Session{}, false, err
	}

	return domain.Session{Token: token, Owner: owner, ExpiresAt: time.UnixMilli(ms)}, true, nil
}

func (r *SessionRepository) Save(ctx context.Context, sess domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if err := upsert(ctx, tx, TokenKey, sess.Token, now); err != nil {
		return err
	}
	if err := upsert(ctx, tx, ExpiryKey, strconv.FormatInt(sess.ExpiresAt.UnixMilli(), 10), now); err != nil {
		return err
	}
	if err := upsert(ctx, tx, OwnerKey, sess.Owner, now); err != nil {
		return err
	}

	return tx.Commit()
}

// Clear removes all session keys together.
func (r *SessionRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_state WHERE key IN (?, ?, ?)`, TokenKey, ExpiryKey, OwnerKey)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to clear session state")
		return fmt.Errorf("failed to clear session state: %w", err)
	}
	return nil
}

func (r *SessionRepository) get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM session_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func upsert(ctx context.Context, tx *sql.Tx, key, value string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO session_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
