package auth

import (
	"context"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for accounts. Describes WHAT auth needs, not HOW it is
stored. Create must surface duplicate email/username as domain conflicts.
*/
type UserRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)

	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
	// BumpTokenVersion increments and returns the new version. Outstanding
	// tokens signed with an older version stop verifying.
	BumpTokenVersion(ctx context.Context, userID string) (int, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenSigner
-----------
Issues and verifies access tokens (JWT). Used by the service and by the
auth middleware.
*/
type TokenClaims struct {
	UserID string
	Role   string
	Ver    int
	Exp    time.Time
}

type TokenSigner interface {
	SignAccessToken(userID, role string, ver int, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
SessionStore
------------
Opaque refresh tokens, backed by Redis. Each session remembers the token
version it was issued under so revoke-all invalidates it even if the row
outlives the bump.
*/
type Session struct {
	UserID string
	Ver    int
}

type SessionStore interface {
	CreateRefreshToken(ctx context.Context, userID string, ver int, ttl time.Duration) (token string, err error)
	GetRefreshSession(ctx context.Context, token string) (Session, error)
	// RotateRefreshToken atomically invalidates oldToken and returns a
	// replacement. A token that was already rotated or revoked errors.
	RotateRefreshToken(ctx context.Context, oldToken string, ver int, ttl time.Duration) (newToken string, err error)
	RevokeRefreshToken(ctx context.Context, token string) error
	// RevokeAll drops every session of the user and records newVer as the
	// current token version for middleware checks.
	RevokeAll(ctx context.Context, userID string, newVer int) error
}

/*
EventPublisher
--------------
Fire-and-forget domain events. Consumers (mail, analytics) live elsewhere.
*/
type UserRegisteredEvent struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, evt UserRegisteredEvent) error
}

// Clock lets tests control time.
type Clock interface {
	Now() time.Time
}
