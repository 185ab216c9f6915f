package auth

import (
	"context"

	"github.com/localmart/marketplace-service/internal/domain"
)

// ChangePassword verifies the current password, stores the new hash and
// invalidates every session. The caller has to log in again.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if userID == "" {
		return domain.ErrTokenMissing()
	}
	if len(next) < 8 {
		return domain.ErrWeakPassword("must be at least 8 characters")
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(u.PasswordHash, current); err != nil {
		return domain.ErrInvalidCredentials()
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return domain.ErrHashFailed(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	return s.RevokeAll(ctx, userID)
}
