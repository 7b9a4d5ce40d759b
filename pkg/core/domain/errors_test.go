package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorIsMatchesKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same sentinel", ErrNotFound, ErrNotFound, true},
		{"custom message same kind", NewError(KindConflict, "code abc taken"), ErrConflict, true},
		{"wrapped", fmt.Errorf("create: %w", ErrInvalidURL), ErrInvalidURL, true},
		{"different kind", ErrForbidden, ErrNotFound, false},
		{"plain error", errors.New("boom"), ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("wrap: %w", RateLimited(time.Second))); got != KindRateLimited {
		t.Errorf("KindOf = %v, want %v", got, KindRateLimited)
	}
	if got := KindOf(errors.New("db down")); got != KindUnknown {
		t.Errorf("KindOf = %v, want %v", got, KindUnknown)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindUnknown)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: KindAllocationExhausted, Err: errors.New("10 attempts")}
	if got, want := err.Error(), "allocation_exhausted: 10 attempts"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestOwnedBy(t *testing.T) {
	u1, u2 := "u1", "u2"
	link := &ShortLink{OwnerID: &u1}

	if !link.OwnedBy(&u1) {
		t.Error("expected owner match")
	}
	if link.OwnedBy(&u2) {
		t.Error("expected mismatch for other user")
	}
	if link.OwnedBy(nil) {
		t.Error("expected mismatch for anonymous requester")
	}
	if (&ShortLink{}).OwnedBy(&u1) {
		t.Error("ownerless link is not owned by anyone")
	}
}
