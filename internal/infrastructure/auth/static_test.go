package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/harivignesh/cp-tracker/internal/usecase"
)

func TestStaticVerifier(t *testing.T) {
	t.Parallel()

	verifier := NewStaticVerifier("sekret")

	if err := verifier.VerifyAccessToken(context.Background(), "sekret"); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := verifier.VerifyAccessToken(context.Background(), "wrong"); !errors.Is(err, usecase.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestStaticVerifier_UnconfiguredToken(t *testing.T) {
	t.Parallel()

	verifier := NewStaticVerifier("  ")

	err := verifier.VerifyAccessToken(context.Background(), "anything")
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}
