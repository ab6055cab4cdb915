package auth

import (
	"errors"
	"testing"
	"time"

	"exam-progress-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens, err := NewTokens("secret", time.Hour)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	raw, err := tokens.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	user, err := tokens.Parse(raw)
	if err != nil || user != "u1" {
		t.Fatalf("expected u1, got %q err=%v", user, err)
	}
}

func TestTokensRejectExpiredAndForeign(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	raw, err := tokens.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tokens.now = func() time.Time { return issued.Add(2 * time.Minute) }
	if _, err := tokens.Parse(raw); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}

	other, _ := NewTokens("other", time.Hour)
	foreign, _ := other.Issue("u1")
	tokens.now = time.Now
	if _, err := tokens.Parse(foreign); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected foreign signature rejected, got %v", err)
	}
}

func TestTokensRejectNoneAlgorithm(t *testing.T) {
	tokens, _ := NewTokens("secret", time.Hour)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tokens.Parse(raw); err == nil {
		t.Fatalf("expected unsigned token rejected")
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("", time.Hour); err == nil {
		t.Fatalf("expected error without secret")
	}
}
