// Package session owns the console's authentication lifecycle: login,
// logout, lazy expiry detection and the auto-logout timers.
package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"ladder-console/internal/api"
	"ladder-console/internal/config"
	"ladder-console/internal/constants"
	"ladder-console/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

const NoticeSessionExpired = "session_expired"

const ownerSecretLength = 32

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (*api.LoginResponse, error)
}

// Store persists the token, its absolute expiry and the owner secret.
type Store interface {
	Load(ctx context.Context) (domain.Session, bool, error)
	Save(ctx context.Context, sess domain.Session) error
	Clear(ctx context.Context) error
}

type Notice struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	ExpiredAt time.Time `json:"expired_at"`
}

// Manager holds at most one session at a time. Expiry is detected three
// ways (lazy check, one-shot timer, recurring poll) and all of them
// converge on the same logged-out state with a single notice per expiry.
type Manager struct {
	auth         Authenticator
	store        Store
	logger       zerolog.Logger
	clock        func() time.Time
	validity     time.Duration
	pollInterval time.Duration

	mu         sync.Mutex
	session    *domain.Session
	timer      *time.Timer
	stopPoll   context.CancelFunc
	pollDone   chan struct{}
	notifiedAt time.Time
	lastNotice *Notice
	notices    chan Notice
}

func NewManager(auth Authenticator, store Store, cfg *config.Config, logger zerolog.Logger) *Manager {
	validity := cfg.SessionValidity
	if validity <= 0 {
		validity = constants.SessionValidity
	}
	poll := cfg.SessionPollInterval
	if poll <= 0 {
		poll = constants.SessionPollInterval
	}

	return &Manager{
		auth:         auth,
		store:        store,
		logger:       logger.With().Str("component", "session").Logger(),
		clock:        time.Now,
		validity:     validity,
		pollInterval: poll,
		notices:      make(chan Notice, 8),
	}
}

// Login authenticates against the ladder API and starts a new session.
// Nothing is stored when it fails.
func (m *Manager) Login(ctx context.Context, creds domain.Credentials) (*domain.Session, error) {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || strings.TrimSpace(creds.Password) == "" {
		return nil, &domain.AuthError{Message: "Username and password are required"}
	}

	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.logger.Warn().Err(err).Str("username", creds.Username).Msg("login failed")
		return nil, loginError(err)
	}
	if resp == nil || resp.Token == "" {
		m.logger.Warn().Str("username", creds.Username).Msg("login response carried no token")
		return nil, &domain.AuthError{Message: "Login failed: no token received"}
	}

	owner, err := gonanoid.New(ownerSecretLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session owner: %w", err)
	}

	issued := m.clock()
	sess := &domain.Session{
		Token:     resp.Token,
		Owner:     owner,
		User:      userName(resp.User, creds.Username),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(m.validity),
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DatabaseTimeout)
	defer cancel()
	if err := m.store.Save(storeCtx, *sess); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist session, continuing in memory")
	}

	m.mu.Lock()
	m.session = sess
	m.scheduleLocked()
	m.mu.Unlock()

	m.logger.Info().Str("user", sess.User).Time("expires_at", sess.ExpiresAt).Msg("logged in")

	out := *sess
	return &out, nil
}

// Logout clears the token and its expiry. It is idempotent.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		m.logger.Info().Str("user", m.session.User).Msg("logged out")
	}
	m.clearLocked()
}

// IsAuthenticated reports whether a token is present and not yet expired.
// An expired session is logged out as a side effect.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.validLocked()
}

// Token implements api.TokenSource.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validLocked() {
		return "", false
	}
	return m.session.Token, true
}

// Owns reports whether owner is the secret of the current valid session.
func (m *Manager) Owns(owner string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner == "" || !m.validLocked() || m.session.Owner == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(owner), []byte(m.session.Owner)) == 1
}

// Session returns a copy of the current session, if any is valid.
func (m *Manager) Session() (domain.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.validLocked() {
		return domain.Session{}, false
	}
	return *m.session, true
}

// RemainingValiditySeconds is floored at 0.
func (m *Manager) RemainingValiditySeconds() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return 0
	}
	remaining := m.session.ExpiresAt.Sub(m.clock())
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// Restore loads a persisted session. An already expired session is logged
// out before Restore returns.
func (m *Manager) Restore(ctx context.Context) error {
	stored, ok, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !ok || stored.Token == "" {
		m.clearLocked()
		return nil
	}

	if m.clock().After(stored.ExpiresAt) {
		m.logger.Info().Time("expired_at", stored.ExpiresAt).Msg("stored session already expired")
		m.clearLocked()
		return nil
	}

	stored.IssuedAt = stored.ExpiresAt.Add(-m.validity)
	m.session = &stored
	m.scheduleLocked()
	m.logger.Info().Time("expires_at", stored.ExpiresAt).Bool("owned", stored.Owner != "").Msg("session restored")
	return nil
}

// Start runs the recurring expiry poll and arms the one-shot timer.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopPoll != nil {
		return
	}

	pollCtx, cancel := context.WithCancel(ctx)
	m.stopPoll = cancel
	m.pollDone = make(chan struct{})
	go m.poll(pollCtx, m.pollDone)

	m.scheduleLocked()
	m.logger.Debug().Dur("poll_interval", m.pollInterval).Msg("session watcher started")
}

// Stop tears down both timers.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.stopPoll, m.pollDone
	m.stopPoll, m.pollDone = nil, nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		m.logger.Debug().Msg("session watcher stopped")
	}
}

// Notices delivers session-expired notices.
func (m *Manager) Notices() <-chan Notice {
	return m.notices
}

// LastNotice returns the most recent undismissed notice.
func (m *Manager) LastNotice() (Notice, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastNotice == nil {
		return Notice{}, false
	}
	return *m.lastNotice, true
}

func (m *Manager) DismissNotice(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastNotice != nil && (id == "" || m.lastNotice.ID == id) {
		m.lastNotice = nil
	}
}

func (m *Manager) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.IsAuthenticated()
		}
	}
}

// onTimer fires at the expiry it was armed for. A newer session with a
// different expiry is left alone.
func (m *Manager) onTimer(expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || !m.session.ExpiresAt.Equal(expiresAt) {
		return
	}
	m.expireLocked()
}

func (m *Manager) validLocked() bool {
	if m.session == nil || m.session.Token == "" {
		return false
	}
	if m.clock().After(m.session.ExpiresAt) {
		m.expireLocked()
		return false
	}
	return true
}

func (m *Manager) expireLocked() {
	expiresAt := m.session.ExpiresAt
	m.logger.Info().Time("expired_at", expiresAt).Msg("session expired")
	m.clearLocked()

	if m.notifiedAt.Equal(expiresAt) {
		return
	}
	m.notifiedAt = expiresAt

	id, err := gonanoid.New()
	if err != nil {
		id = fmt.Sprintf("expired-%d", expiresAt.UnixMilli())
	}
	notice := Notice{
		ID:        id,
		Kind:      NoticeSessionExpired,
		Message:   "Your session has expired. Please log in again.",
		ExpiredAt: expiresAt,
	}
	m.lastNotice = &notice

	select {
	case m.notices <- notice:
	default:
		m.logger.Warn().Msg("notice channel full, dropping notice")
	}
}

func (m *Manager) clearLocked() {
	m.session = nil
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear persisted session")
	}
}

// scheduleLocked arms the one-shot timer when the watcher runs and the
// session still has validity left.
func (m *Manager) scheduleLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.stopPoll == nil || m.session == nil {
		return
	}

	expiresAt := m.session.ExpiresAt
	remaining := expiresAt.Sub(m.clock())
	if remaining <= 0 {
		m.expireLocked()
		return
	}

	m.timer = time.AfterFunc(remaining, func() { m.onTimer(expiresAt) })
	m.logger.Debug().Dur("remaining", remaining).Msg("auto-logout scheduled")
}

func loginError(err error) error {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	var te *domain.TransportError
	if errors.As(err, &te) && (te.Status == http.StatusUnauthorized || te.Status == http.StatusForbidden || te.Status == http.StatusBadRequest) {
		msg := te.Message
		if msg == "" {
			msg = "Invalid username or password"
		}
		return &domain.AuthError{Message: msg}
	}
	return err
}

func userName(user any, fallback string) string {
	switch u := user.(type) {
	case string:
		if u != "" {
			return u
		}
	case map[string]any:
		for _, key := range []string{"username", "name"} {
			if s, ok := u[key].(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}
