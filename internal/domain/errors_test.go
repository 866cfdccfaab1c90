package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("failed to record match: %w", &TransportError{Op: "record match", Status: 502})

	if !IsTransport(wrapped) {
		t.Error("expected wrapped transport error to classify as transport")
	}
	if IsAuth(wrapped) || IsValidation(wrapped) || IsNotFound(wrapped) {
		t.Error("transport error classified as another kind")
	}
	if !IsNotFound(&NotFoundError{Kind: "player", ID: "9"}) {
		t.Error("expected not found")
	}
}

func TestTransportErrorMessage(t *testing.T) {
	tests := []struct {
		err  *TransportError
		want string
	}{
		{&TransportError{Op: "annul match", Message: "match not found"}, "match not found"},
		{&TransportError{Op: "annul match", Status: 500}, "annul match failed: server returned 500"},
		{&TransportError{Op: "fetch players", Err: errors.New("connection refused")}, "fetch players failed: connection refused"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
