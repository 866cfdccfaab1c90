package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"ladder-console/internal/domain"

	"github.com/rs/zerolog"
)

func TestFetchPlayersFallbackLaw(t *testing.T) {
	client, _, ladder := newStack(t)
	svc := NewPlayerService(client, zerolog.Nop())
	ladder.Fail("GET /api/players", http.StatusServiceUnavailable)

	players, err := svc.FetchPlayers(context.Background())
	if err == nil {
		t.Fatal("expected a non-nil advisory error")
	}
	if len(players) != 4 {
		t.Fatalf("expected 4 fallback players, got %d", len(players))
	}
	for _, p := range players {
		if p.Name == "" {
			t.Errorf("fallback player %q has no name", p.ID)
		}
		if p.Elo != 1500 && p.Elo != 1501 {
			t.Errorf("fallback player %s has elo %d", p.Name, p.Elo)
		}
	}
}

func TestFetchPlayersFallbackIsACopy(t *testing.T) {
	a := FallbackPlayers()
	a[0].Name = "changed"
	if FallbackPlayers()[0].Name == "changed" {
		t.Fatal("fallback roster mutated through returned slice")
	}
}

func TestFetchPlayers(t *testing.T) {
	client, _, _ := newStack(t)
	svc := NewPlayerService(client, zerolog.Nop())

	players, err := svc.FetchPlayers(context.Background())
	if err != nil {
		t.Fatalf("FetchPlayers: %v", err)
	}
	if len(players) != 2 || players[0].Name != "Ness" {
		t.Fatalf("unexpected players: %+v", players)
	}
}

func TestAddPlayerRequiresName(t *testing.T) {
	client, _, ladder := newStack(t)
	svc := NewPlayerService(client, zerolog.Nop())

	for _, name := range []string{"", "   ", "\t"} {
		_, err := svc.AddPlayer(context.Background(), domain.NewPlayer{Name: name})
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("name %q: expected ValidationError, got %v", name, err)
		}
	}
	if n := len(ladder.Requests()); n != 0 {
		t.Fatalf("validation should not hit the network, saw %d requests", n)
	}
}

func TestAddPlayerTrimsAndSendsCosmetics(t *testing.T) {
	client, _, ladder := newStack(t)
	svc := NewPlayerService(client, zerolog.Nop())

	player, err := svc.AddPlayer(context.Background(), domain.NewPlayer{Name: "  Ninten ", Main: "c1", Skin: domain.Ptr(3)})
	if err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if player.Name != "Ninten" || player.Main != "c1" || player.Skin == nil || *player.Skin != 3 {
		t.Fatalf("unexpected player: %+v", player)
	}
	if n := len(ladder.Players()); n != 3 {
		t.Fatalf("expected 3 players on the server, got %d", n)
	}
}

func TestAddPlayerDuplicateNeverFakesSuccess(t *testing.T) {
	client, _, _ := newStack(t)
	svc := NewPlayerService(client, zerolog.Nop())

	player, err := svc.AddPlayer(context.Background(), domain.NewPlayer{Name: "Lucas"})
	if err == nil {
		t.Fatal("expected duplicate name to fail")
	}
	if player != nil {
		t.Fatalf("expected no player on failure, got %+v", player)
	}
	if err.Error() != "Player already exists" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestDisplayNameDegradesToID(t *testing.T) {
	players := []domain.Player{{ID: "1", Name: "Ness"}}

	if got := DisplayName(players, "1"); got != "Ness" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := DisplayName(players, "42"); got != "42" {
		t.Errorf("unknown player rendered as %q, want raw id", got)
	}
	if _, err := Lookup(players, "42"); !domain.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}
