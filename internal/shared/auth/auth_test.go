package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner("secret", "dev")
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	token, err := s.Sign(Claims{Sub: "user-1", Name: "Ada"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Sub != "user-1" || claims.Name != "Ada" || claims.Exp == 0 {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyRejectsTamperedAndExpired(t *testing.T) {
	s, _ := NewSigner("secret", "dev")
	other, _ := NewSigner("other", "dev")

	token, _ := other.Sign(Claims{Sub: "user-1"})
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	stale, _ := s.Sign(Claims{Sub: "user-1"})
	s.now = time.Now
	if _, err := s.Verify(stale); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	if _, err := s.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}

func TestNewSignerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewSigner("", "production"); err == nil {
		t.Fatalf("expected error without secret in production")
	}
	if _, err := NewSigner("", "dev"); err != nil {
		t.Fatalf("expected dev fallback, got %v", err)
	}
}

func TestContextGate(t *testing.T) {
	gate := ContextGate{}
	if gate.IsAuthenticated(context.Background()) {
		t.Fatalf("anonymous context must not be authenticated")
	}
	guest := WithIdentity(context.Background(), Identity{UserID: "guest:abc", Guest: true})
	if gate.IsAuthenticated(guest) {
		t.Fatalf("guest must not be authenticated")
	}
	user := WithIdentity(context.Background(), Identity{UserID: "user-1"})
	if !gate.IsAuthenticated(user) {
		t.Fatalf("signed-in user must be authenticated")
	}
}

func TestTokenGate(t *testing.T) {
	s, _ := NewSigner("secret", "dev")
	token, _ := s.Sign(Claims{Sub: "user-1"})
	guestToken, _ := s.Sign(Claims{Sub: "guest:1", Guest: true})

	if !(TokenGate{Signer: s, Token: token}).IsAuthenticated(context.Background()) {
		t.Fatalf("expected valid token to authenticate")
	}
	if (TokenGate{Signer: s, Token: guestToken}).IsAuthenticated(context.Background()) {
		t.Fatalf("expected guest token to be rejected")
	}
	if (TokenGate{Signer: s}).IsAuthenticated(context.Background()) {
		t.Fatalf("expected empty token to be rejected")
	}
}
