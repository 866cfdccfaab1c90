package domain

import (
	"time"
)

type Player struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Elo           int    `json:"elo"`
	MatchesPlayed int    `json:"matches_played"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`

	// cosmetic selection, both optional
	Main string `json:"main,omitempty"`
	Skin *int   `json:"skin,omitempty"`
}

type Match struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	WinnerID       string    `json:"winner_id"`
	LoserID        string    `json:"loser_id"`
	EloChange      int       `json:"elo_change"`
	WinnerEloAfter int       `json:"winner_elo_after"`
	LoserEloAfter  int       `json:"loser_elo_after"`
}

type Character struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IconName string `json:"icon_name"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Session is the operator's login. Owner is the secret bound to the
// operator's browser cookie.
type Session struct {
	Token     string    `json:"token"`
	Owner     string    `json:"-"`
	User      string    `json:"user,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewPlayer is the input for creating a player. Main and Skin are optional.
type NewPlayer struct {
	Name string `validate:"required"`
	Main string
	Skin *int `validate:"omitempty,min=0"`
}

// MatchResult is the input for recording a match.
type MatchResult struct {
	Player1 string `validate:"required"`
	Player2 string `validate:"required"`
	Winner  string `validate:"required"`
}
