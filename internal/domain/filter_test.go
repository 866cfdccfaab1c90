package domain

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

func TestMatchFilterQuerySerializesOnlySetFields(t *testing.T) {
	start := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	f := MatchFilter{
		WinnerID:     Ptr("5"),
		StartDate:    &start,
		MinEloChange: Ptr(10),
		MaxEloChange: Ptr(0),
	}

	q := f.Query()
	want := url.Values{
		"winner_id":      {"5"},
		"start_date":     {"2026-01-02"},
		"min_elo_change": {"10"},
		"max_elo_change": {"0"},
	}
	if q.Encode() != want.Encode() {
		t.Fatalf("query = %q, want %q", q.Encode(), want.Encode())
	}
}

func TestMatchFilterEmptyStringIsUnconstrained(t *testing.T) {
	f := MatchFilter{PlayerID: Ptr("")}
	if !f.IsZero() {
		t.Fatalf("expected empty player id to impose no constraint, got %q", f.Query().Encode())
	}
}

func TestDefaultMatchFilter(t *testing.T) {
	f := DefaultMatchFilter(50)
	if got := f.Query().Encode(); got != "limit=50&offset=0" {
		t.Fatalf("default filter = %q", got)
	}
	if !f.Equal(MatchFilter{Limit: Ptr(50), Offset: Ptr(0)}) {
		t.Fatal("expected default filter to equal {limit:50, offset:0}")
	}
}

func TestParseMatchFilter(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		want    string
		wantErr bool
	}{
		{name: "empty form", values: url.Values{"player_id": {""}, "limit": {""}}, want: ""},
		{name: "elo range", values: url.Values{"min_elo_change": {"10"}, "max_elo_change": {"20"}}, want: "max_elo_change=20&min_elo_change=10"},
		{name: "dates", values: url.Values{"start_date": {"2026-02-01"}, "end_date": {"2026-02-28"}}, want: "end_date=2026-02-28&start_date=2026-02-01"},
		{name: "bad number", values: url.Values{"limit": {"ten"}}, wantErr: true},
		{name: "bad date", values: url.Values{"end_date": {"02/28/2026"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseMatchFilter(tt.values)
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := f.Query().Encode(); got != tt.want {
				t.Errorf("query = %q, want %q", got, tt.want)
			}
		})
	}
}
