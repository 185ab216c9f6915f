package listing

import (
	"context"
	"strings"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

func (s *Service) Get(ctx context.Context, id string) (*domain.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Status == domain.ListingDeleted {
		return nil, domain.ErrListingNotFound()
	}
	return l, nil
}

type OwnerListResult struct {
	Items      []*domain.Listing
	NextCursor string
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string, pageSize int, cursor string) (OwnerListResult, error) {
	if strings.TrimSpace(ownerID) == "" {
		return OwnerListResult{}, domain.ErrForbidden()
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	afterCreated, afterID, hasCursor, err := parseCursorOrEmpty(cursor)
	if err != nil {
		return OwnerListResult{}, err
	}

	items, err := s.repo.ListByOwnerKeyset(ctx, ownerID, pageSize, hasCursor, afterCreated, afterID)
	if err != nil {
		return OwnerListResult{}, err
	}

	next := ""
	if len(items) == pageSize {
		last := items[len(items)-1]
		next = formatCursor(last.CreatedAt.UTC(), last.ID)
	}
	return OwnerListResult{Items: items, NextCursor: next}, nil
}

// -------- cursor helpers --------

func formatCursor(t time.Time, id string) string {
	return t.Format(time.RFC3339Nano) + "|" + id
}

func parseCursorOrEmpty(cur string) (time.Time, string, bool, error) {
	cur = strings.TrimSpace(cur)
	if cur == "" {
		return time.Time{}, "", false, nil
	}
	parts := strings.Split(cur, "|")
	if len(parts) != 2 {
		return time.Time{}, "", false, domain.ErrValidation("invalid cursor (expected time|uuid)")
	}
	t, err := parseRFC3339OrNano(parts[0])
	if err != nil {
		return time.Time{}, "", false, domain.ErrValidation("invalid cursor (expected time|uuid)")
	}
	id := strings.TrimSpace(parts[1])
	if id == "" {
		return time.Time{}, "", false, domain.ErrValidation("invalid cursor (expected time|uuid)")
	}
	return t.UTC(), id, true, nil
}

func parseRFC3339OrNano(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
