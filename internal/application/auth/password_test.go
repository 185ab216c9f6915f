package auth

import (
	"context"
	"testing"

	"github.com/localmart/marketplace-service/internal/domain"
)

func TestChangePassword_ShortNew_ReturnsWeakPassword(t *testing.T) {
	t.Parallel()

	svc, users, _, _, _, _ := newSvcForTest(t)
	users.seed(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:old12345", TokenVersion: 1})

	err := svc.ChangePassword(context.Background(), "u1", "old12345", "short")
	requireCode(t, err, "weak_password")
}

func TestChangePassword_WrongCurrent_ReturnsInvalidCredentials(t *testing.T) {
	t.Parallel()

	svc, users, _, _, _, _ := newSvcForTest(t)
	users.seed(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:old12345", TokenVersion: 1})

	err := svc.ChangePassword(context.Background(), "u1", "wrong999", "newpass123")
	requireCode(t, err, "invalid_credentials")
}

func TestChangePassword_Success_RehashesAndRevokesEverything(t *testing.T) {
	t.Parallel()

	svc, users, _, _, sessions, _ := newSvcForTest(t)
	users.seed(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:old12345", TokenVersion: 1})
	sessions.byToken["t1"] = Session{UserID: "u1", Ver: 1}

	if err := svc.ChangePassword(context.Background(), "u1", "old12345", "newpass123"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := users.byID["u1"].PasswordHash; got != "hash:newpass123" {
		t.Fatalf("expected new hash stored, got %q", got)
	}
	if got := users.byID["u1"].TokenVersion; got != 2 {
		t.Fatalf("expected version bumped, got %d", got)
	}
	if len(sessions.byToken) != 0 {
		t.Fatalf("expected all sessions dropped, got %v", sessions.byToken)
	}
}
