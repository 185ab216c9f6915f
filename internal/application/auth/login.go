package auth

import (
	"context"
	"strings"

	"github.com/localmart/marketplace-service/internal/domain"
)

// dummyHash is a bcrypt hash compared against when the email is unknown, so
// a miss costs the same as a wrong password (no user enumeration by timing).
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Login authenticates a user and issues tokens.
// IMPORTANT: must not leak whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if isInfra(err) {
			return LoginResult{}, err
		}
		_ = s.hasher.Compare(dummyHash, password)
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return LoginResult{}, domain.ErrInvalidCredentials()
	}

	toks, err := s.issueTokens(ctx, u)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{User: u, Tokens: toks}, nil
}
