package service

import (
	"context"
	"errors"
	"testing"

	"ladder-console/internal/domain"

	"github.com/rs/zerolog"
)

func TestResolveLoser(t *testing.T) {
	tests := []struct {
		name           string
		p1, p2, winner string
		wantLoser      string
		wantErr        bool
	}{
		{name: "winner is player2", p1: "2", p2: "5", winner: "5", wantLoser: "2"},
		{name: "winner is player1", p1: "2", p2: "5", winner: "2", wantLoser: "5"},
		{name: "winner is neither player", p1: "2", p2: "5", winner: "7", wantErr: true},
		{name: "same player twice", p1: "2", p2: "2", winner: "2", wantErr: true},
		{name: "missing winner", p1: "2", p2: "5", winner: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loser, err := ResolveLoser(tt.p1, tt.p2, tt.winner)
			if tt.wantErr {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if loser != tt.wantLoser {
				t.Errorf("loser = %q, want %q", loser, tt.wantLoser)
			}
		})
	}
}

func TestRecordMatchRejectsEmptyIdentifiers(t *testing.T) {
	client, _, ladder := newStack(t)
	svc := NewMatchService(client, zerolog.Nop())

	inputs := []domain.MatchResult{
		{Player1: "", Player2: "p2", Winner: "p2"},
		{Player1: "p1", Player2: " ", Winner: "p1"},
		{Player1: "p1", Player2: "p2", Winner: ""},
	}
	for _, in := range inputs {
		_, err := svc.RecordMatch(context.Background(), in)
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%+v: expected ValidationError, got %v", in, err)
		}
		if ve.Message != "Invalid match data" {
			t.Errorf("message = %q", ve.Message)
		}
	}
	if n := len(ladder.Requests()); n != 0 {
		t.Fatalf("validation should not hit the network, saw %d requests", n)
	}
}

func TestRecordMatchSendsWinnerAndDerivedLoser(t *testing.T) {
	client, _, ladder := newStack(t)
	svc := NewMatchService(client, zerolog.Nop())

	match, err := svc.RecordMatch(context.Background(), domain.MatchResult{Player1: "p1", Player2: "p2", Winner: "p2"})
	if err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	if match.WinnerID != "p2" || match.LoserID != "p1" {
		t.Fatalf("unexpected match %+v", match)
	}

	players := ladder.Players()
	for _, p := range players {
		if p.Wins+p.Losses != p.MatchesPlayed {
			t.Errorf("%s: wins+losses != matches played", p.Name)
		}
	}
}

func TestAnnulMatch(t *testing.T) {
	client, _, ladder := newStack(t)
	svc := NewMatchService(client, zerolog.Nop())
	ladder.AddMatch(domain.Match{ID: "m1", WinnerID: "p1", LoserID: "p2", EloChange: 16})

	if err := svc.AnnulMatch(context.Background(), "m1"); err != nil {
		t.Fatalf("AnnulMatch: %v", err)
	}
	recent, err := svc.RecentMatches(context.Background())
	if err != nil {
		t.Fatalf("RecentMatches: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("annulled match still listed: %+v", recent)
	}

	if err := svc.AnnulMatch(context.Background(), "m1"); !domain.IsTransport(err) {
		t.Fatalf("expected second annul to fail with TransportError, got %v", err)
	}
	if err := svc.AnnulMatch(context.Background(), ""); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for empty id, got %v", err)
	}
}

func TestFilterMatches(t *testing.T) {
	client, _, ladder := newStack(t)
	svc := NewMatchService(client, zerolog.Nop())
	ladder.AddMatch(domain.Match{ID: "m1", WinnerID: "p1", LoserID: "p2", EloChange: 8})
	ladder.AddMatch(domain.Match{ID: "m2", WinnerID: "p2", LoserID: "p1", EloChange: 15})
	ladder.AddMatch(domain.Match{ID: "m3", WinnerID: "p1", LoserID: "p2", EloChange: 25})

	matches, err := svc.FilterMatches(context.Background(), domain.MatchFilter{
		MinEloChange: domain.Ptr(10),
		MaxEloChange: domain.Ptr(20),
	})
	if err != nil {
		t.Fatalf("FilterMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "m2" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
}
