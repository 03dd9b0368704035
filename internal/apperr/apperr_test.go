package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCategory(t *testing.T) {
	dup := fmt.Errorf("%w: username already exists", ErrConflict)
	wrapped := fmt.Errorf("register: %w", dup)

	if got := Category(wrapped); got != ErrConflict {
		t.Fatalf("expected conflict category, got %v", got)
	}
	if !errors.Is(wrapped, dup) {
		t.Fatalf("expected specific error to survive wrapping")
	}
	if got := Category(errors.New("disk full")); got != nil {
		t.Fatalf("expected nil category for foreign error, got %v", got)
	}
}
