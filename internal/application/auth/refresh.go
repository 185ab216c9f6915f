package auth

import (
	"context"
	"errors"

	"github.com/localmart/marketplace-service/internal/domain"
)

func isInfra(err error) bool {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Kind == domain.KindInfrastructure
	}
	return false
}

// Refresh rotates a refresh token and issues a new access token.
// Rotation rule: the old refresh token becomes invalid once used.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthTokens, error) {
	if refreshToken == "" {
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	sess, err := s.sessions.GetRefreshSession(ctx, refreshToken)
	if err != nil {
		// Hide why the token is bad, but let store outages surface as 503
		// so clients retry instead of dropping the session.
		if isInfra(err) {
			return AuthTokens{}, err
		}
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if isInfra(err) {
			return AuthTokens{}, err
		}
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	// A session issued before a revoke-all is dead even if its row survived.
	if sess.Ver != u.TokenVersion {
		_ = s.sessions.RevokeRefreshToken(ctx, refreshToken)
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	newRefresh, err := s.sessions.RotateRefreshToken(ctx, refreshToken, u.TokenVersion, s.refreshTTL)
	if err != nil {
		if isInfra(err) {
			return AuthTokens{}, err
		}
		return AuthTokens{}, domain.ErrRefreshTokenInvalid()
	}

	access, err := s.signer.SignAccessToken(u.ID, u.Role, u.TokenVersion, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}

	return AuthTokens{
		AccessToken:  access,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
