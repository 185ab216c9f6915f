package auth

import (
	"context"

	"github.com/localmart/marketplace-service/internal/domain"
)

// Logout revokes the presented refresh token (single session). A missing
// token is a no-op so the handler can always call it.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.RevokeRefreshToken(ctx, refreshToken)
}

// RevokeAll logs the user out everywhere: bumps the token version so
// outstanding access tokens stop verifying, then drops all sessions.
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrTokenMissing()
	}
	newVer, err := s.users.BumpTokenVersion(ctx, userID)
	if err != nil {
		return err
	}
	return s.sessions.RevokeAll(ctx, userID, newVer)
}
