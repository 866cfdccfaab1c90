// Package console is the view-state machine behind the admin console. It
// coordinates initial loading, mutation commands and the refetches that
// keep the ladder consistent after each mutation.
package console

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"ladder-console/internal/config"
	"ladder-console/internal/constants"
	"ladder-console/internal/domain"
	"ladder-console/internal/service"
	"ladder-console/internal/session"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type View string

const (
	ViewLadder  View = "ladder"
	ViewMatches View = "matches"
)

func ParseView(s string) (View, bool) {
	switch v := View(s); v {
	case ViewLadder, ViewMatches:
		return v, true
	}
	return "", false
}

type command string

const (
	cmdLogin        command = "login"
	cmdAddPlayer    command = "add_player"
	cmdRecordMatch  command = "record_match"
	cmdAnnulMatch   command = "annul_match"
	cmdApplyFilters command = "apply_filters"
	cmdLoad         command = "load"
)

type readModel int

const (
	modelPlayers readModel = iota
	modelCharacters
	modelRecent
	modelFiltered
)

// Banner is the persistent inline error shown until superseded.
type Banner struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Console struct {
	players    *service.PlayerService
	matches    *service.MatchService
	characters *service.CharacterService
	sessions   *session.Manager
	logger     zerolog.Logger
	clock      func() time.Time

	defaultLimit int

	mu                sync.Mutex
	view              View
	loading           bool
	playerList        []domain.Player
	characterList     []domain.Character
	recent            []domain.Match
	filtered          []domain.Match
	draft             domain.MatchFilter
	applied           domain.MatchFilter
	hasAppliedFilters bool
	filtering         bool
	sortKey           SortKey
	sortDir           SortDirection
	banner            *Banner
	inflight          map[command]bool
	seq               map[readModel]uint64
}

func New(
	players *service.PlayerService,
	matches *service.MatchService,
	characters *service.CharacterService,
	sessions *session.Manager,
	cfg *config.Config,
	logger zerolog.Logger,
) *Console {
	limit := cfg.RecentMatchLimit
	if limit <= 0 {
		limit = constants.DefaultMatchLimit
	}

	return &Console{
		players:      players,
		matches:      matches,
		characters:   characters,
		sessions:     sessions,
		logger:       logger.With().Str("component", "console").Logger(),
		clock:        time.Now,
		defaultLimit: limit,
		view:         ViewLadder,
		loading:      true,
		draft:        domain.DefaultMatchFilter(limit),
		applied:      domain.DefaultMatchFilter(limit),
		sortKey:      SortByElo,
		sortDir:      Descending,
		inflight:     make(map[command]bool),
		seq:          make(map[readModel]uint64),
	}
}

// Load fetches players, characters and recent matches concurrently. The
// loading flag clears only once all three have completed.
func (c *Console) Load(ctx context.Context) error {
	if err := c.acquire(cmdLoad); err != nil {
		return err
	}
	defer c.release(cmdLoad)

	c.mu.Lock()
	c.loading = true
	playersSeq := c.beginLocked(modelPlayers)
	charactersSeq := c.beginLocked(modelCharacters)
	recentSeq := c.beginLocked(modelRecent)
	c.mu.Unlock()

	var (
		players    []domain.Player
		characters []domain.Character
		recent     []domain.Match
	)
	var playersErr, charactersErr, recentErr error

	var g errgroup.Group
	g.Go(func() error {
		players, playersErr = c.players.FetchPlayers(ctx)
		return nil
	})
	g.Go(func() error {
		characters, charactersErr = c.characters.FetchCharacters(ctx)
		return nil
	})
	g.Go(func() error {
		recent, recentErr = c.matches.RecentMatches(ctx)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.commitLocked(modelPlayers, playersSeq) {
		c.playerList = players
	}
	if c.commitLocked(modelCharacters, charactersSeq) {
		c.characterList = characters
	}
	if recentErr == nil && c.commitLocked(modelRecent, recentSeq) {
		c.recent = recent
	}
	c.loading = false

	// first error wins: players, then characters, then matches
	err := firstError(playersErr, charactersErr, recentErr)
	if err != nil {
		c.setBannerLocked(err)
	} else {
		c.banner = nil
	}

	c.logger.Info().
		Int("players", len(c.playerList)).
		Int("characters", len(c.characterList)).
		Int("recent_matches", len(c.recent)).
		Bool("degraded", err != nil).
		Msg("initial load completed")
	return err
}

// Login starts the operator session. The returned session carries the
// owner secret the caller binds to the operator's browser.
func (c *Console) Login(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	if err := c.acquire(cmdLogin); err != nil {
		return domain.Session{}, err
	}
	defer c.release(cmdLogin)

	sess, err := c.sessions.Login(ctx, creds)
	if err != nil {
		c.setBanner(err)
		return domain.Session{}, err
	}

	c.sessions.DismissNotice("")
	c.clearBanner()
	return *sess, nil
}

// IsOperator reports whether owner holds the current session.
func (c *Console) IsOperator(owner string) bool {
	return c.sessions.Owns(owner)
}

func (c *Console) Logout() {
	c.sessions.Logout()
}

func (c *Console) AddPlayer(ctx context.Context, input domain.NewPlayer) (*domain.Player, error) {
	if err := c.acquire(cmdAddPlayer); err != nil {
		return nil, err
	}
	defer c.release(cmdAddPlayer)

	if err := c.requireSession("add a player"); err != nil {
		return nil, err
	}

	player, err := c.players.AddPlayer(ctx, input)
	if err != nil {
		return nil, c.fail(err)
	}

	c.clearBanner()
	c.refresh(ctx, false)
	return player, nil
}

func (c *Console) RecordMatch(ctx context.Context, result domain.MatchResult) (*domain.Match, error) {
	if err := c.acquire(cmdRecordMatch); err != nil {
		return nil, err
	}
	defer c.release(cmdRecordMatch)

	if err := c.requireSession("record a match"); err != nil {
		return nil, err
	}

	match, err := c.matches.RecordMatch(ctx, result)
	if err != nil {
		return nil, c.fail(err)
	}

	c.clearBanner()
	c.refresh(ctx, true)
	return match, nil
}

// AnnulMatch is irreversible, so the caller must pass confirmed=true once
// the operator has agreed.
func (c *Console) AnnulMatch(ctx context.Context, id string, confirmed bool) error {
	if err := c.acquire(cmdAnnulMatch); err != nil {
		return err
	}
	defer c.release(cmdAnnulMatch)

	if !confirmed {
		err := domain.NewValidationError("confirm", "Annulling a match must be confirmed")
		c.setBanner(err)
		return err
	}
	if err := c.requireSession("annul a match"); err != nil {
		return err
	}

	if err := c.matches.AnnulMatch(ctx, id); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	c.recent = withoutMatch(c.recent, id)
	c.filtered = withoutMatch(c.filtered, id)
	c.banner = nil
	c.mu.Unlock()

	c.refresh(ctx, true)
	return nil
}

func (c *Console) SetView(v View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = v
}

// SortBy applies a click on the ranking column key.
func (c *Console) SortBy(key SortKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sortKey, c.sortDir = NextSort(c.sortKey, c.sortDir, key)
}

func (c *Console) SetDraftFilter(f domain.MatchFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = f
}

func (c *Console) DraftFilter() domain.MatchFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// ApplyFilters runs the draft filter. On failure the previous filtered view
// is left as it was.
func (c *Console) ApplyFilters(ctx context.Context) error {
	if err := c.acquire(cmdApplyFilters); err != nil {
		return err
	}
	defer c.release(cmdApplyFilters)

	c.mu.Lock()
	filter := c.draft
	c.filtering = true
	seq := c.beginLocked(modelFiltered)
	c.mu.Unlock()

	matches, err := c.matches.FilterMatches(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.filtering = false

	if err != nil {
		c.setBannerLocked(err)
		return err
	}
	if !c.commitLocked(modelFiltered, seq) {
		c.logger.Debug().Uint64("seq", seq).Msg("discarding superseded filter result")
		return nil
	}

	c.filtered = matches
	c.applied = filter
	c.hasAppliedFilters = true
	c.banner = nil
	return nil
}

// ClearFilters resets to the default window and shows unfiltered history.
func (c *Console) ClearFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft = domain.DefaultMatchFilter(c.defaultLimit)
	c.applied = domain.DefaultMatchFilter(c.defaultLimit)
	c.hasAppliedFilters = false
	c.filtered = nil
	// drop any filter query still in flight
	c.beginLocked(modelFiltered)
}

func (c *Console) HasAppliedFilters() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasAppliedFilters
}

// DisplayMatches returns filtered results when filters are applied and the
// recent feed otherwise.
func (c *Console) DisplayMatches() []domain.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.displayMatchesLocked())
}

func (c *Console) RecentMatches() []domain.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.recent)
}

func (c *Console) FilteredMatches() []domain.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.filtered)
}

func (c *Console) Players() []domain.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SortPlayers(c.playerList, c.sortKey, c.sortDir)
}

// ReportError shows err in the banner. Busy rejections are not reported.
func (c *Console) ReportError(err error) {
	if err == nil || errors.Is(err, domain.ErrBusy) {
		return
	}
	c.setBanner(err)
}

func (c *Console) DismissBanner() {
	c.clearBanner()
	c.sessions.DismissNotice("")
}

// refresh refetches the read models a mutation affects. Players are always
// refetched since ELO and win/loss counters change.
func (c *Console) refresh(ctx context.Context, refilter bool) {
	c.mu.Lock()
	playersSeq := c.beginLocked(modelPlayers)
	recentSeq := c.beginLocked(modelRecent)
	filter := c.applied
	refilter = refilter && c.hasAppliedFilters
	var filteredSeq uint64
	if refilter {
		filteredSeq = c.beginLocked(modelFiltered)
	}
	c.mu.Unlock()

	var (
		players          []domain.Player
		recent, filtered []domain.Match
	)
	var playersErr, recentErr, filtErr error

	var g errgroup.Group
	g.Go(func() error {
		players, playersErr = c.players.FetchPlayers(ctx)
		return nil
	})
	g.Go(func() error {
		recent, recentErr = c.matches.RecentMatches(ctx)
		return nil
	})
	if refilter {
		g.Go(func() error {
			filtered, filtErr = c.matches.FilterMatches(ctx, filter)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()

	// a failed refetch keeps the last good list instead of the fallback roster
	if playersErr == nil && c.commitLocked(modelPlayers, playersSeq) {
		c.playerList = players
	}
	if recentErr == nil && c.commitLocked(modelRecent, recentSeq) {
		c.recent = recent
	}
	if refilter && filtErr == nil && c.commitLocked(modelFiltered, filteredSeq) && c.hasAppliedFilters {
		c.filtered = filtered
	}

	if err := firstError(playersErr, recentErr, filtErr); err != nil {
		c.logger.Warn().Err(err).Msg("refresh after mutation failed")
		c.setBannerLocked(err)
	}
}

func (c *Console) requireSession(action string) error {
	if c.sessions.IsAuthenticated() {
		return nil
	}
	err := &domain.AuthError{Message: "You must be logged in to " + action}
	c.setBanner(err)
	return err
}

// fail records err in the banner. A token the server rejects ends the session.
func (c *Console) fail(err error) error {
	var te *domain.TransportError
	if errors.As(err, &te) && te.Status == http.StatusUnauthorized {
		c.logger.Warn().Msg("ladder API rejected the session token, logging out")
		c.sessions.Logout()
		err = &domain.AuthError{Message: "Your session is no longer valid. Please log in again."}
	}
	c.setBanner(err)
	return err
}

func (c *Console) acquire(cmd command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight[cmd] {
		return domain.ErrBusy
	}
	c.inflight[cmd] = true
	return nil
}

func (c *Console) release(cmd command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, cmd)
}

// beginLocked issues the next request number for model. Only the response
// to the latest number is applied.
func (c *Console) beginLocked(model readModel) uint64 {
	c.seq[model]++
	return c.seq[model]
}

func (c *Console) commitLocked(model readModel, seq uint64) bool {
	return c.seq[model] == seq
}

func (c *Console) displayMatchesLocked() []domain.Match {
	if c.hasAppliedFilters {
		return c.filtered
	}
	return c.recent
}

func (c *Console) setBanner(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setBannerLocked(err)
}

func (c *Console) setBannerLocked(err error) {
	id, idErr := gonanoid.New()
	if idErr != nil {
		id = ""
	}
	c.banner = &Banner{ID: id, Message: err.Error(), At: c.clock()}
}

func (c *Console) clearBanner() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.banner = nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func withoutMatch(matches []domain.Match, id string) []domain.Match {
	return slices.DeleteFunc(slices.Clone(matches), func(m domain.Match) bool {
		return m.ID == id
	})
}
