// Package fakeladder is an in-memory stand-in for the remote ladder API,
// served over a real HTTP listener for tests.
package fakeladder

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"ladder-console/internal/domain"
)

const (
	Username = "admin"
	Password = "hunter2"
	Token    = "token-123"

	eloDelta = 16
)

type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	players    []domain.Player
	characters []domain.Character
	matches    []domain.Match
	annulled   map[string]bool
	failures   map[string]int
	requests   []Request
	nextID     int
	now        time.Time
}

// New starts a fake ladder with two players and two characters.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		players: []domain.Player{
			{ID: "p1", Name: "Ness", Elo: 1500},
			{ID: "p2", Name: "Lucas", Elo: 1500},
		},
		characters: []domain.Character{
			{ID: "c1", Name: "Ness", IconName: "ness"},
			{ID: "c2", Name: "Lucas", IconName: ""},
		},
		annulled: make(map[string]bool),
		failures: make(map[string]int),
		nextID:   100,
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/players", s.listPlayers)
	mux.HandleFunc("POST /api/players", s.createPlayer)
	mux.HandleFunc("GET /api/characters", s.listCharacters)
	mux.HandleFunc("POST /api/matches", s.createMatch)
	mux.HandleFunc("GET /api/matches/recent", s.recentMatches)
	mux.HandleFunc("GET /api/matches/filter", s.filterMatches)
	mux.HandleFunc("DELETE /api/matches/{id}", s.deleteMatch)
	mux.HandleFunc("POST /api/auth/login", s.login)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

// Fail makes the endpoint ("GET /api/players") answer with status until cleared with 0.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, endpoint)
		return
	}
	s.failures[endpoint] = status
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

func (s *Server) Players() []domain.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.players)
}

// AddMatch seeds a match directly, bypassing ELO bookkeeping.
func (s *Server) AddMatch(m domain.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, m)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		status, failing := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if failing {
			writeJSON(w, status, map[string]string{"error": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listPlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Players())
}

func (s *Server) listCharacters(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.characters)
}

func (s *Server) createPlayer(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		Name string `json:"name"`
		Main string `json:"main"`
		Skin *int   `json:"skin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.players {
		if strings.EqualFold(p.Name, req.Name) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "Player already exists"})
			return
		}
	}

	p := domain.Player{ID: s.newIDLocked("p"), Name: req.Name, Elo: 1500, Main: req.Main, Skin: req.Skin}
	s.players = append(s.players, p)
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var req struct {
		PlayerAID string `json:"playerAId"`
		PlayerBID string `json:"playerBId"`
		WinnerID  string `json:"winnerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	winner := s.playerLocked(req.WinnerID)
	loserID := req.PlayerBID
	if req.WinnerID == req.PlayerBID {
		loserID = req.PlayerAID
	}
	loser := s.playerLocked(loserID)
	if winner == nil || loser == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "player not found"})
		return
	}

	winner.Elo += eloDelta
	winner.Wins++
	winner.MatchesPlayed++
	loser.Elo -= eloDelta
	loser.Losses++
	loser.MatchesPlayed++

	s.now = s.now.Add(time.Minute)
	m := domain.Match{
		ID:             s.newIDLocked("m"),
		Timestamp:      s.now,
		WinnerID:       winner.ID,
		LoserID:        loser.ID,
		EloChange:      eloDelta,
		WinnerEloAfter: winner.Elo,
		LoserEloAfter:  loser.Elo,
	}
	s.matches = append(s.matches, m)
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) recentMatches(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.liveMatchesLocked())
}

func (s *Server) filterMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Match
	for _, m := range s.liveMatchesLocked() {
		if v := q.Get("player_id"); v != "" && m.WinnerID != v && m.LoserID != v {
			continue
		}
		if v := q.Get("winner_id"); v != "" && m.WinnerID != v {
			continue
		}
		if v := q.Get("loser_id"); v != "" && m.LoserID != v {
			continue
		}
		if v, err := strconv.Atoi(q.Get("min_elo_change")); err == nil && m.EloChange < v {
			continue
		}
		if v, err := strconv.Atoi(q.Get("max_elo_change")); err == nil && m.EloChange > v {
			continue
		}
		out = append(out, m)
	}

	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		out = out[min(offset, len(out)):]
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Match{}
	}
	writeJSON(w, http.StatusOK, map[string][]domain.Match{"matches": out})
}

func (s *Server) deleteMatch(w http.ResponseWriter, r *http.Request) {
	if !authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.ID == id && !s.annulled[id] {
			s.annulled[id] = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "match not found"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if creds.Username != Username || creds.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": Token,
		"user":  map[string]string{"username": Username, "role": "moderator"},
	})
}

// liveMatchesLocked returns non-annulled matches, newest first.
func (s *Server) liveMatchesLocked() []domain.Match {
	out := make([]domain.Match, 0, len(s.matches))
	for i := len(s.matches) - 1; i >= 0; i-- {
		if !s.annulled[s.matches[i].ID] {
			out = append(out, s.matches[i])
		}
	}
	return out
}

func (s *Server) playerLocked(id string) *domain.Player {
	for i := range s.players {
		if s.players[i].ID == id {
			return &s.players[i]
		}
	}
	return nil
}

func (s *Server) newIDLocked(prefix string) string {
	s.nextID++
	return prefix + strconv.Itoa(s.nextID)
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+Token
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
