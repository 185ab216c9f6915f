package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/localmart/marketplace-service/internal/domain"
)

func TestRefresh_Empty_ReturnsInvalid(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _, _ := newSvcForTest(t)

	_, err := svc.Refresh(context.Background(), "")
	requireCode(t, err, "refresh_token_invalid")
}

func TestRefresh_UnknownToken_ReturnsInvalid(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _, _ := newSvcForTest(t)

	_, err := svc.Refresh(context.Background(), "nope")
	requireCode(t, err, "refresh_token_invalid")
}

func TestRefresh_SessionStoreDown_SurfacesInfraError(t *testing.T) {
	t.Parallel()

	svc, _, _, _, sessions, _ := newSvcForTest(t)
	sessions.getErr = domain.ErrRedisUnavailable(errors.New("connection refused"))

	_, err := svc.Refresh(context.Background(), "whatever")
	requireCode(t, err, "redis_unavailable")
}

func TestRefresh_RotatesAndKillsOldToken(t *testing.T) {
	t.Parallel()

	svc, users, _, _, sessions, _ := newSvcForTest(t)
	users.seed(domain.User{ID: "u1", Email: "e@x.com", PasswordHash: "hash:pw123456", Role: "user", TokenVersion: 1})

	login, err := svc.Login(context.Background(), "e@x.com", "pw123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	old := login.Tokens.RefreshToken

	toks, err := svc.Refresh(context.Background(), old)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if toks.RefreshToken == "" || toks.RefreshToken == old {
		t.Fatalf("expected a new refresh token, got %q", toks.RefreshToken)
	}
	if _, ok := sessions.byToken[old]; ok {
		t.Fatalf("expected old token gone")
	}

	// Reusing the consumed token must fail.
	if _, err := svc.Refresh(context.Background(), old); err == nil {
		t.Fatalf("expected reuse of rotated token to fail")
	}
}

func TestRefresh_StaleVersion_ReturnsInvalidAndDropsSession(t *testing.T) {
	t.Parallel()

	svc, users, _, _, sessions, _ := newSvcForTest(t)
	users.seed(domain.User{ID: "u1", Email: "e@x.com", Role: "user", TokenVersion: 2})
	sessions.byToken["stale"] = Session{UserID: "u1", Ver: 1}

	_, err := svc.Refresh(context.Background(), "stale")
	requireCode(t, err, "refresh_token_invalid")
	if _, ok := sessions.byToken["stale"]; ok {
		t.Fatalf("expected stale session removed")
	}
}

func TestRefresh_UserGone_ReturnsInvalid(t *testing.T) {
	t.Parallel()

	svc, _, _, _, sessions, _ := newSvcForTest(t)
	sessions.byToken["orphan"] = Session{UserID: "ghost", Ver: 1}

	_, err := svc.Refresh(context.Background(), "orphan")
	requireCode(t, err, "refresh_token_invalid")
}

func TestLogout_EmptyToken_NoOp(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _, _ := newSvcForTest(t)

	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	t.Parallel()

	svc, _, _, _, sessions, _ := newSvcForTest(t)
	sessions.byToken["tok"] = Session{UserID: "u1", Ver: 1}

	if err := svc.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if _, ok := sessions.byToken["tok"]; ok {
		t.Fatalf("expected token revoked")
	}
}

func TestRevokeAll_BumpsVersionAndDropsSessions(t *testing.T) {
	t.Parallel()

	svc, users, _, _, sessions, _ := newSvcForTest(t)
	users.seed(domain.User{ID: "u1", Email: "e@x.com", Role: "user", TokenVersion: 1})
	sessions.byToken["t1"] = Session{UserID: "u1", Ver: 1}
	sessions.byToken["t2"] = Session{UserID: "u1", Ver: 1}
	sessions.byToken["other"] = Session{UserID: "u2", Ver: 1}

	if err := svc.RevokeAll(context.Background(), "u1"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := users.byID["u1"].TokenVersion; got != 2 {
		t.Fatalf("expected version bumped to 2, got %d", got)
	}
	if sessions.lastVer != 2 {
		t.Fatalf("expected session store told about version 2, got %d", sessions.lastVer)
	}
	if _, ok := sessions.byToken["t1"]; ok {
		t.Fatalf("expected u1 sessions dropped")
	}
	if _, ok := sessions.byToken["other"]; !ok {
		t.Fatalf("expected other users' sessions untouched")
	}
}

func TestRevokeAll_EmptyUser_ReturnsTokenMissing(t *testing.T) {
	t.Parallel()

	svc, _, _, _, _, _ := newSvcForTest(t)

	err := svc.RevokeAll(context.Background(), "")
	requireCode(t, err, "token_missing")
}
