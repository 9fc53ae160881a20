package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("pipeline: %w", &Error{Kind: KindTimeout, Provider: "lightx", Message: "order not ready"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatal("expected errors.Is to match ErrTimeout")
	}
	if errors.Is(err, ErrProviderFailed) {
		t.Fatal("unexpected match on a different kind")
	}
	if got := KindOf(err); got != KindTimeout {
		t.Fatalf("KindOf = %q, want %q", got, KindTimeout)
	}
}

func TestKindOfUnknownError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("KindOf = %q, want %q", got, KindInternal)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("KindOf(nil) = %q", got)
	}
}

func TestDetailAppendsProviderCode(t *testing.T) {
	err := &Error{Kind: KindProviderRejected, Message: "image too dark", Code: 1001}
	want := "effect provider rejected the image: image too dark (code 1001)"
	if got := err.Detail(); got != want {
		t.Fatalf("Detail() = %q, want %q", got, want)
	}
	if got := (&Error{Kind: KindTimeout}).Detail(); got != "effect took too long" {
		t.Fatalf("Detail() = %q", got)
	}
}
