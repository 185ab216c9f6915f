package domain

import (
	"errors"
	"testing"
)

func TestError_StringAndUnwrap(t *testing.T) {
	root := errors.New("connection refused")
	err := Wrap(KindInfrastructure, "db_unavailable", "database unavailable", root)

	if err.Error() == "" {
		t.Fatal("expected non-empty error string")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is to match cause")
	}
	if errors.Unwrap(err) != root {
		t.Fatalf("unwrap did not return cause")
	}
}

func TestIs_MatchesCode(t *testing.T) {
	err := ErrInvalidCredentials()

	if !Is(err, "invalid_credentials") {
		t.Fatalf("expected code match")
	}
	if Is(err, "something_else") {
		t.Fatalf("unexpected code match")
	}
	if Is(errors.New("plain"), "invalid_credentials") {
		t.Fatalf("should not match non-domain error")
	}
}

func TestConstructors_KindsAndMeta(t *testing.T) {
	cases := []struct {
		err  *Error
		kind ErrKind
		code string
	}{
		{ErrValidation("bad"), KindValidation, "validation_failed"},
		{ErrInvalidField("title", "too short"), KindValidation, "invalid_field"},
		{ErrTokenMissing(), KindAuth, "token_missing"},
		{ErrNotListingOwner(), KindForbidden, "not_listing_owner"},
		{ErrOwnListing(), KindForbidden, "own_listing"},
		{ErrListingNotFound(), KindNotFound, "listing_not_found"},
		{ErrConversationNotFound(), KindNotFound, "conversation_not_found"},
		{ErrEmailAlreadyExists(), KindConflict, "email_already_exists"},
		{ErrInvalidState("nope"), KindInvalidState, "invalid_state"},
		{ErrRateLimited("login"), KindRateLimited, "rate_limited"},
	}
	for _, c := range cases {
		if c.err.Kind != c.kind || c.err.Code != c.code {
			t.Fatalf("unexpected error: %+v", c.err)
		}
	}

	if ErrInvalidField("title", "too short").Meta["field"] != "title" {
		t.Fatalf("expected field meta")
	}
	if ErrImageLimitReached(8).Meta["max"] != "8" {
		t.Fatalf("expected max meta")
	}
	if ErrRateLimited("login").Meta["scope"] != "login" {
		t.Fatalf("expected scope meta")
	}
}

func TestRoles(t *testing.T) {
	for _, r := range []string{"user", "moderator", "admin"} {
		if !IsValidRole(r) {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if IsValidRole("root") || IsValidRole("") {
		t.Fatalf("unexpected valid role")
	}
	if !(RoleRank("user") < RoleRank("moderator") && RoleRank("moderator") < RoleRank("admin")) {
		t.Fatalf("role ranks out of order")
	}
	if RoleRank("unknown") != 0 {
		t.Fatalf("unknown role should rank 0")
	}
}
