package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/transport/http/response"
)

type ctxKey string

const (
	ctxUserID ctxKey = "user_id"
	ctxRole   ctxKey = "role"
)

type accessClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	Ver    int    `json:"ver"`
	jwt.RegisteredClaims
}

/*
TokenVersionChecker
-------------------
Looks up the user's current token version so revoked access tokens die before
their expiry. Backed by the Redis session store; a lookup error means Redis is
unreachable and the middleware lets the request through rather than taking
the whole API down with it.
*/
type TokenVersionChecker interface {
	GetTokenVersion(ctx context.Context, userID string) (int, error)
}

type AuthMiddleware struct {
	secret   []byte
	issuer   string
	versions TokenVersionChecker
}

func NewAuth(secret, issuer string, versions TokenVersionChecker) *AuthMiddleware {
	return &AuthMiddleware{
		secret:   []byte(secret),
		issuer:   issuer,
		versions: versions,
	}
}

// Require rejects requests without a valid bearer token.
func (a *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, role, ver, err := a.parse(r)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}
		if err := a.checkVersion(r.Context(), uid, ver); err != nil {
			response.WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), uid, role)))
	})
}

// Optional parses the bearer token when one is present and otherwise lets
// the request through anonymously. Listing reads use it: the response shape
// depends on who is looking, but nobody is turned away.
func (a *AuthMiddleware) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			next.ServeHTTP(w, r)
			return
		}
		uid, role, ver, err := a.parse(r)
		if err != nil {
			response.WriteError(w, r, err)
			return
		}
		if err := a.checkVersion(r.Context(), uid, ver); err != nil {
			response.WriteError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), uid, role)))
	})
}

func (a *AuthMiddleware) parse(r *http.Request) (string, string, int, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", "", 0, domain.ErrTokenMissing()
	}
	if !strings.HasPrefix(h, "Bearer ") {
		return "", "", 0, domain.ErrTokenInvalid()
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))

	claims := &accessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", 0, domain.ErrTokenExpired()
		}
		return "", "", 0, domain.ErrTokenInvalid()
	}
	if !tok.Valid {
		return "", "", 0, domain.ErrTokenInvalid()
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return "", "", 0, domain.ErrTokenInvalid()
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", "", 0, domain.ErrTokenInvalid()
	}

	role := strings.TrimSpace(claims.Role)
	if role == "" {
		role = string(domain.RoleUser)
	}
	return claims.UserID, role, claims.Ver, nil
}

// checkVersion fails only on a positive revocation signal. Lookup errors and
// cache misses let the request pass so a Redis blip does not log everyone out.
func (a *AuthMiddleware) checkVersion(ctx context.Context, uid string, ver int) error {
	if a.versions == nil {
		return nil
	}
	current, err := a.versions.GetTokenVersion(ctx, uid)
	if err == nil && current > ver {
		return domain.ErrTokenInvalid()
	}
	return nil
}

func withIdentity(ctx context.Context, uid, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, uid)
	return context.WithValue(ctx, ctxRole, role)
}

// UserID returns the authenticated user id, or "" for anonymous requests.
func UserID(r *http.Request) string {
	if v, ok := r.Context().Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func Role(r *http.Request) string {
	if v, ok := r.Context().Value(ctxRole).(string); ok {
		return v
	}
	return ""
}
