package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ladder-console/internal/console"
	"ladder-console/internal/domain"
	"ladder-console/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func (s *ConsoleServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(r)
	if err := s.templates.ExecuteTemplate(w, "index.html", snap); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render console")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *ConsoleServer) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot(r))
}

func (s *ConsoleServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respond(w, r, domain.NewValidationError("form", "Invalid form submission"))
		return
	}

	sess, err := s.console.Login(r.Context(), domain.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		s.respond(w, r, err)
		return
	}

	setOperatorCookie(w, r, sess)
	// the cookie is not on r yet
	s.respondSnapshot(w, r, s.console.Snapshot())
}

func (s *ConsoleServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.console.Logout()
	clearOperatorCookie(w)
	s.respondSnapshot(w, r, s.console.Snapshot().Anonymous())
}

func (s *ConsoleServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// load failures are already in the banner and the console stays usable
	err := s.console.Load(r.Context())
	if errors.Is(err, domain.ErrBusy) {
		s.respond(w, r, err)
		return
	}
	s.respond(w, r, nil)
}

func (s *ConsoleServer) handleView(w http.ResponseWriter, r *http.Request) {
	view, ok := console.ParseView(chi.URLParam(r, "view"))
	if !ok {
		s.respond(w, r, domain.NewValidationError("view", "Unknown view"))
		return
	}
	s.console.SetView(view)
	s.respond(w, r, nil)
}

func (s *ConsoleServer) handleSort(w http.ResponseWriter, r *http.Request) {
	key, ok := console.ParseSortKey(chi.URLParam(r, "key"))
	if !ok {
		s.respond(w, r, domain.NewValidationError("key", "Unknown sort column"))
		return
	}
	s.console.SortBy(key)
	s.respond(w, r, nil)
}

func (s *ConsoleServer) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respond(w, r, domain.NewValidationError("form", "Invalid form submission"))
		return
	}

	input := domain.NewPlayer{
		Name: r.PostFormValue("name"),
		Main: r.PostFormValue("main"),
	}
	if raw := strings.TrimSpace(r.PostFormValue("skin")); raw != "" && input.Main != "" {
		skin, err := strconv.Atoi(raw)
		if err != nil {
			s.respond(w, r, domain.NewValidationError("skin", "Skin must be a number"))
			return
		}
		input.Skin = &skin
	}

	_, err := s.console.AddPlayer(r.Context(), input)
	s.respond(w, r, err)
}

func (s *ConsoleServer) handleRecordMatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respond(w, r, domain.NewValidationError("form", "Invalid form submission"))
		return
	}

	_, err := s.console.RecordMatch(r.Context(), domain.MatchResult{
		Player1: r.PostFormValue("player1"),
		Player2: r.PostFormValue("player2"),
		Winner:  r.PostFormValue("winner"),
	})
	s.respond(w, r, err)
}

func (s *ConsoleServer) handleAnnulMatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respond(w, r, domain.NewValidationError("form", "Invalid form submission"))
		return
	}

	matchID := chi.URLParam(r, "matchID")
	confirmed := r.PostFormValue("confirm") == "yes"
	err := s.console.AnnulMatch(r.Context(), matchID, confirmed)
	s.respond(w, r, err)
}

func (s *ConsoleServer) handleApplyFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respond(w, r, domain.NewValidationError("form", "Invalid form submission"))
		return
	}

	filter, err := domain.ParseMatchFilter(r.PostForm)
	if err != nil {
		s.respond(w, r, err)
		return
	}
	// a blank form is the same as clearing
	if filter.IsZero() {
		s.console.ClearFilters()
		s.respond(w, r, nil)
		return
	}

	s.console.SetDraftFilter(filter)
	s.respond(w, r, s.console.ApplyFilters(r.Context()))
}

func (s *ConsoleServer) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	s.console.ClearFilters()
	s.respond(w, r, nil)
}

func (s *ConsoleServer) handleDismissBanner(w http.ResponseWriter, r *http.Request) {
	s.console.DismissBanner()
	s.respond(w, r, nil)
}

// respond answers JSON clients with a status and error body and everyone
// else with a redirect back to the console. Errors also go to the banner.
func (s *ConsoleServer) respond(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		s.respondSnapshot(w, r, s.snapshot(r))
		return
	}

	zerolog.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("console command failed")
	s.console.ReportError(err)

	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, statusFor(err), map[string]string{
		"error":      err.Error(),
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

func (s *ConsoleServer) respondSnapshot(w http.ResponseWriter, r *http.Request, snap console.Snapshot) {
	if !wantsJSON(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsAuth(err):
		return http.StatusUnauthorized
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
