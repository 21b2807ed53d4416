package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(nil, "test-secret")
	userID := uuid.New()

	token, err := svc.issueToken(userID)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	got, err := svc.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if got != userID {
		t.Errorf("subject: got %s, want %s", got, userID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	issuer := NewService(nil, "secret-a")
	verifier := NewService(nil, "secret-b")

	token, err := issuer.issueToken(uuid.New())
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := verifier.ValidateToken(context.Background(), token); err == nil {
		t.Error("a token signed with another secret must be rejected")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := NewService(nil, "test-secret")
	for _, token := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := svc.ValidateToken(context.Background(), token); err == nil {
			t.Errorf("token %q must be rejected", token)
		}
	}
}
