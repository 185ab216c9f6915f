package listing

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/localmart/marketplace-service/internal/domain"
)

type UpdateCmd struct {
	Title       *string
	Description *string
	Location    *string
	PriceCents  *int64
	Tags        *[]string
}

func (s *Service) Update(ctx context.Context, id, actorID, actorRole string, cmd UpdateCmd) (*domain.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(l.OwnerID, actorID, actorRole) {
		return nil, domain.ErrNotListingOwner()
	}
	if err := l.ApplyUpdate(cmd.Title, cmd.Description, cmd.Location, cmd.PriceCents, cmd.Tags, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) MarkSold(ctx context.Context, id, actorID string) (*domain.Listing, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != actorID {
		return nil, domain.ErrNotListingOwner()
	}
	if err := l.MarkSold(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Delete soft-deletes a listing. Owners take down their own; admins take
// down anything (moderation path shares this code).
func (s *Service) Delete(ctx context.Context, id, actorID, actorRole, reason string) error {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canDelete(l.OwnerID, actorID, actorRole) {
		return domain.ErrForbidden()
	}
	if err := l.SoftDelete(s.clock.Now()); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, l); err != nil {
		return err
	}

	if actorID != l.OwnerID {
		zlog.Info().
			Str("listing_id", l.ID).
			Str("actor_id", actorID).
			Str("actor_role", actorRole).
			Str("reason", reason).
			Msg("listing removed by staff")
	}
	if s.pub != nil {
		evt := ListingDeletedEvent{ListingID: l.ID, ActorID: actorID, Reason: reason}
		if err := s.pub.PublishListingDeleted(ctx, evt); err != nil {
			zlog.Warn().Err(err).Str("listing_id", l.ID).Msg("listing.deleted publish failed")
		}
	}
	return nil
}
