package console

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"ladder-console/internal/api"
	"ladder-console/internal/config"
	"ladder-console/internal/domain"
	"ladder-console/internal/service"
	"ladder-console/internal/session"
	"ladder-console/internal/testkit/fakeladder"

	"github.com/rs/zerolog"
)

type harness struct {
	console  *Console
	sessions *session.Manager
	ladder   *fakeladder.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ladder := fakeladder.New(t)
	cfg := &config.Config{
		LadderAPIURL:     ladder.URL,
		SessionValidity:  time.Hour,
		RecentMatchLimit: 50,
		AssetBasePath:    "/static/characters",
	}
	log := zerolog.Nop()

	client := api.NewLadderClient(cfg)
	sessions := session.NewManager(client, session.NewMemoryStore(), cfg, log)
	client.SetTokenSource(sessions)

	c := New(
		service.NewPlayerService(client, log),
		service.NewMatchService(client, log),
		service.NewCharacterService(client, cfg, log),
		sessions,
		cfg,
		log,
	)
	return &harness{console: c, sessions: sessions, ladder: ladder}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.console.Login(context.Background(), domain.Credentials{Username: fakeladder.Username, Password: fakeladder.Password})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
}

// mutations counts non-login writes that reached the ladder.
func (h *harness) mutations() int {
	n := 0
	for _, r := range h.ladder.Requests() {
		if r.Method != http.MethodGet && r.Path != "/api/auth/login" {
			n++
		}
	}
	return n
}

func TestLoad(t *testing.T) {
	h := newHarness(t)
	if !h.console.Snapshot().Loading {
		t.Fatal("console should start in the loading state")
	}

	if err := h.console.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	snap := h.console.Snapshot()
	if snap.Loading {
		t.Error("loading flag not cleared")
	}
	if len(snap.Players) != 2 || len(snap.Characters) != 2 {
		t.Errorf("players=%d characters=%d", len(snap.Players), len(snap.Characters))
	}
	if snap.Banner != nil {
		t.Errorf("unexpected banner %q", snap.Banner.Message)
	}
}

func TestLoadErrorPriority(t *testing.T) {
	tests := []struct {
		name       string
		failing    []string
		wantPrefix string
	}{
		{
			name:       "players before characters",
			failing:    []string{"GET /api/players", "GET /api/characters", "GET /api/matches/recent"},
			wantPrefix: "could not load players",
		},
		{
			name:       "characters before matches",
			failing:    []string{"GET /api/characters", "GET /api/matches/recent"},
			wantPrefix: "could not load characters",
		},
		{
			name:       "matches alone",
			failing:    []string{"GET /api/matches/recent"},
			wantPrefix: "injected failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			for _, endpoint := range tt.failing {
				h.ladder.Fail(endpoint, http.StatusInternalServerError)
			}

			err := h.console.Load(context.Background())
			if err == nil {
				t.Fatal("expected load error")
			}

			snap := h.console.Snapshot()
			if snap.Loading {
				t.Error("loading must clear even when fetches fail")
			}
			if snap.Banner == nil || !strings.HasPrefix(snap.Banner.Message, tt.wantPrefix) {
				t.Fatalf("banner = %+v, want prefix %q", snap.Banner, tt.wantPrefix)
			}
		})
	}
}

func TestLoadFallsBackToOfflineRoster(t *testing.T) {
	h := newHarness(t)
	h.ladder.Fail("GET /api/players", http.StatusBadGateway)

	_ = h.console.Load(context.Background())
	if got := len(h.console.Players()); got != 4 {
		t.Fatalf("expected the 4-player fallback roster, got %d", got)
	}
}

func TestMutationsRequireSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.console.AddPlayer(ctx, domain.NewPlayer{Name: "Ninten"})
	if !domain.IsAuth(err) {
		t.Fatalf("AddPlayer: expected AuthError, got %v", err)
	}
	_, err = h.console.RecordMatch(ctx, domain.MatchResult{Player1: "p1", Player2: "p2", Winner: "p1"})
	if !domain.IsAuth(err) {
		t.Fatalf("RecordMatch: expected AuthError, got %v", err)
	}
	if err := h.console.AnnulMatch(ctx, "m1", true); !domain.IsAuth(err) {
		t.Fatalf("AnnulMatch: expected AuthError, got %v", err)
	}

	if n := h.mutations(); n != 0 {
		t.Fatalf("expected no mutating requests, got %d", n)
	}
	if h.console.Snapshot().Banner == nil {
		t.Fatal("expected a banner")
	}
}

func TestAddPlayerRefreshesLadder(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	if err := h.console.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, err := h.console.AddPlayer(context.Background(), domain.NewPlayer{Name: "Ninten"}); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if got := len(h.console.Players()); got != 3 {
		t.Fatalf("expected refreshed roster of 3, got %d", got)
	}
}

func TestRecordMatchRefreshesPlayerStats(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	if err := h.console.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	match, err := h.console.RecordMatch(context.Background(), domain.MatchResult{Player1: "p1", Player2: "p2", Winner: "p1"})
	if err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}

	players := h.console.Players()
	if players[0].ID != "p1" || players[0].Elo != 1516 || players[0].Wins != 1 {
		t.Fatalf("winner not refreshed: %+v", players[0])
	}
	if players[1].Losses != 1 || players[1].MatchesPlayed != 1 {
		t.Fatalf("loser not refreshed: %+v", players[1])
	}

	recent := h.console.RecentMatches()
	if len(recent) != 1 || recent[0].ID != match.ID {
		t.Fatalf("recent matches not refreshed: %+v", recent)
	}
}

func TestRejectedTokenLogsOut(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.ladder.Fail("POST /api/players", http.StatusUnauthorized)

	_, err := h.console.AddPlayer(context.Background(), domain.NewPlayer{Name: "Ninten"})
	if !domain.IsAuth(err) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if h.sessions.IsAuthenticated() {
		t.Fatal("expected the session to be dropped")
	}
}

func TestApplyThenClearFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ladder.AddMatch(domain.Match{ID: "m1", WinnerID: "p1", LoserID: "p2", EloChange: 5})
	h.ladder.AddMatch(domain.Match{ID: "m2", WinnerID: "p2", LoserID: "p1", EloChange: 15})
	if err := h.console.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	h.console.SetDraftFilter(domain.MatchFilter{MinEloChange: domain.Ptr(10), MaxEloChange: domain.Ptr(20)})
	if err := h.console.ApplyFilters(ctx); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	if !h.console.HasAppliedFilters() {
		t.Fatal("expected filters applied")
	}
	if got := h.console.DisplayMatches(); len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("filtered display = %+v", got)
	}

	h.console.ClearFilters()
	if h.console.HasAppliedFilters() {
		t.Fatal("expected filters cleared")
	}
	if !h.console.DraftFilter().Equal(domain.DefaultMatchFilter(50)) {
		t.Fatalf("draft = %v, want default", h.console.DraftFilter().Query())
	}
	if got := h.console.DisplayMatches(); len(got) != 2 {
		t.Fatalf("expected unfiltered recent feed, got %+v", got)
	}
}

func TestApplyFailureKeepsPreviousView(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ladder.AddMatch(domain.Match{ID: "m1", WinnerID: "p1", LoserID: "p2", EloChange: 15})

	h.console.SetDraftFilter(domain.MatchFilter{WinnerID: domain.Ptr("p1")})
	if err := h.console.ApplyFilters(ctx); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}
	before := h.console.FilteredMatches()

	h.ladder.Fail("GET /api/matches/filter", http.StatusInternalServerError)
	h.console.SetDraftFilter(domain.MatchFilter{WinnerID: domain.Ptr("p2")})
	if err := h.console.ApplyFilters(ctx); err == nil {
		t.Fatal("expected filter failure")
	}

	after := h.console.FilteredMatches()
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Fatalf("filtered view changed on failure: %+v -> %+v", before, after)
	}
	snap := h.console.Snapshot()
	if !snap.HasAppliedFilters || snap.Banner == nil || snap.Filtering {
		t.Fatalf("unexpected state: applied=%v banner=%v filtering=%v", snap.HasAppliedFilters, snap.Banner, snap.Filtering)
	}
	if !snap.DraftPending {
		t.Fatal("the rejected draft should be reported as not applied")
	}

	h.ladder.Fail("GET /api/matches/filter", 0)
	if err := h.console.ApplyFilters(ctx); err != nil {
		t.Fatalf("retry ApplyFilters: %v", err)
	}
	if h.console.Snapshot().DraftPending {
		t.Fatal("draft still pending after it was applied")
	}
}

func TestAnnulWithFiltersActive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ladder.AddMatch(domain.Match{ID: "m1", WinnerID: "p1", LoserID: "p2", EloChange: 15})
	h.ladder.AddMatch(domain.Match{ID: "m2", WinnerID: "p2", LoserID: "p1", EloChange: 12})
	h.login(t)
	if err := h.console.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	h.console.SetDraftFilter(domain.MatchFilter{MinEloChange: domain.Ptr(10)})
	if err := h.console.ApplyFilters(ctx); err != nil {
		t.Fatalf("ApplyFilters: %v", err)
	}

	if err := h.console.AnnulMatch(ctx, "m1", false); !domain.IsValidation(err) {
		t.Fatalf("unconfirmed annul: expected ValidationError, got %v", err)
	}
	if n := h.mutations(); n != 0 {
		t.Fatalf("unconfirmed annul reached the API")
	}

	if err := h.console.AnnulMatch(ctx, "m1", true); err != nil {
		t.Fatalf("AnnulMatch: %v", err)
	}

	for name, list := range map[string][]domain.Match{
		"recent":   h.console.RecentMatches(),
		"filtered": h.console.FilteredMatches(),
	} {
		for _, m := range list {
			if m.ID == "m1" {
				t.Errorf("annulled match still in %s list", name)
			}
		}
	}
	if got := h.console.FilteredMatches(); len(got) != 1 || got[0].ID != "m2" {
		t.Fatalf("filtered = %+v", got)
	}
}

func TestBusyCommandIsRejected(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	if err := h.console.acquire(cmdRecordMatch); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	_, err := h.console.RecordMatch(context.Background(), domain.MatchResult{Player1: "p1", Player2: "p2", Winner: "p1"})
	if !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	h.console.release(cmdRecordMatch)

	if _, err := h.console.RecordMatch(context.Background(), domain.MatchResult{Player1: "p1", Player2: "p2", Winner: "p1"}); err != nil {
		t.Fatalf("after release: %v", err)
	}
}

func TestSupersededFilterResultIsDiscarded(t *testing.T) {
	h := newHarness(t)

	h.console.mu.Lock()
	stale := h.console.beginLocked(modelFiltered)
	h.console.mu.Unlock()

	h.console.ClearFilters()

	h.console.mu.Lock()
	defer h.console.mu.Unlock()
	if h.console.commitLocked(modelFiltered, stale) {
		t.Fatal("a result issued before ClearFilters must not be applied")
	}
}

func TestSnapshot(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	ctx := context.Background()
	if err := h.console.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := h.console.RecordMatch(ctx, domain.MatchResult{Player1: "p1", Player2: "p2", Winner: "p2"}); err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}

	snap := h.console.Snapshot()
	if !snap.Authenticated || snap.User != fakeladder.Username {
		t.Fatalf("auth = %v user = %q", snap.Authenticated, snap.User)
	}
	if snap.RemainingSeconds <= 0 {
		t.Errorf("RemainingSeconds = %d", snap.RemainingSeconds)
	}
	if snap.Players[0].Rank != 1 || snap.Players[0].Player.Name != "Lucas" {
		t.Errorf("top row = %+v", snap.Players[0])
	}
	if snap.Players[0].WinRate != 1 {
		t.Errorf("WinRate = %v", snap.Players[0].WinRate)
	}

	row := snap.Matches[0]
	if row.WinnerName != "Lucas" || row.LoserName != "Ness" {
		t.Errorf("names = %q / %q", row.WinnerName, row.LoserName)
	}
	// fake ladder clock starts at 12:00 UTC and advances a minute per match
	if row.DisplayTime != "2026-03-01 08:01" {
		t.Errorf("DisplayTime = %q", row.DisplayTime)
	}
	if snap.Draft["limit"] != "50" || snap.Draft["offset"] != "0" {
		t.Errorf("draft = %v", snap.Draft)
	}
}

func TestReportError(t *testing.T) {
	h := newHarness(t)

	h.console.ReportError(domain.ErrBusy)
	if h.console.Snapshot().Banner != nil {
		t.Fatal("busy rejections should not reach the banner")
	}

	h.console.ReportError(domain.NewValidationError("start_date", "Invalid date"))
	snap := h.console.Snapshot()
	if snap.Banner == nil || snap.Banner.Message != "Invalid date" {
		t.Fatalf("banner = %+v", snap.Banner)
	}

	h.console.DismissBanner()
	if h.console.Snapshot().Banner != nil {
		t.Fatal("banner not dismissed")
	}
}

func TestLoginReturnsOwnedSession(t *testing.T) {
	h := newHarness(t)

	sess, err := h.console.Login(context.Background(), domain.Credentials{Username: fakeladder.Username, Password: fakeladder.Password})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !h.console.IsOperator(sess.Owner) {
		t.Fatal("login browser should be the operator")
	}
	if h.console.IsOperator("") {
		t.Fatal("a browser without the secret is not the operator")
	}

	anon := h.console.Snapshot().Anonymous()
	if anon.Authenticated || anon.User != "" || anon.ExpiresAt != nil || anon.RemainingSeconds != 0 {
		t.Fatalf("anonymous snapshot leaks the session: %+v", anon)
	}
}
