package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/localmart/marketplace-service/internal/domain"
)

// Register creates an account and issues the first token pair. Full input
// validation (email format, username charset, password strength) happens at
// the transport layer; the service keeps a floor so it cannot be bypassed.
func (s *Service) Register(ctx context.Context, email, username, password string) (RegisterResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if email == "" {
		return RegisterResult{}, domain.ErrInvalidField("email", "empty")
	}
	if username == "" {
		return RegisterResult{}, domain.ErrInvalidField("username", "empty")
	}
	if len(password) < 8 {
		return RegisterResult{}, domain.ErrWeakPassword("must be at least 8 characters")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return RegisterResult{}, domain.ErrHashFailed(err)
	}

	now := s.clock.Now().UTC()
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         string(domain.RoleUser),
		TokenVersion: 1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, u)
	if err != nil {
		return RegisterResult{}, err
	}

	if s.pub != nil {
		evt := UserRegisteredEvent{UserID: created.ID, Email: created.Email, Username: created.Username}
		if err := s.pub.PublishUserRegistered(ctx, evt); err != nil {
			zlog.Warn().Err(err).Str("user_id", created.ID).Msg("user.registered publish failed")
		}
	}

	toks, err := s.issueTokens(ctx, created)
	if err != nil {
		return RegisterResult{}, err
	}

	return RegisterResult{User: created, Tokens: toks}, nil
}
