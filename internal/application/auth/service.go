package auth

import (
	"context"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

type Service struct {
	users    UserRepo
	hasher   PasswordHasher
	signer   TokenSigner
	sessions SessionStore
	pub      EventPublisher
	clock    Clock

	accessTTL  time.Duration
	refreshTTL time.Duration
}

type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewService(users UserRepo, hasher PasswordHasher, signer TokenSigner, sessions SessionStore, pub EventPublisher, clock Clock, cfg Config) *Service {
	if clock == nil {
		clock = sysClock{}
	}
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &Service{
		users:      users,
		hasher:     hasher,
		signer:     signer,
		sessions:   sessions,
		pub:        pub,
		clock:      clock,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

// AuthTokens is the common token output for handlers.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // "Bearer"
	ExpiresIn    int64  // access token lifetime, seconds
}

type RegisterResult struct {
	User   domain.User
	Tokens AuthTokens
}

type LoginResult struct {
	User   domain.User
	Tokens AuthTokens
}

func (s *Service) issueTokens(ctx context.Context, u domain.User) (AuthTokens, error) {
	access, err := s.signer.SignAccessToken(u.ID, u.Role, u.TokenVersion, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	refresh, err := s.sessions.CreateRefreshToken(ctx, u.ID, u.TokenVersion, s.refreshTTL)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
