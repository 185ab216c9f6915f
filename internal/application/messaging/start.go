package messaging

import (
	"context"
	"errors"

	"github.com/localmart/marketplace-service/internal/domain"
)

// Start opens (or reuses) the conversation between buyerID and the seller of
// listingID and appends the first message. One thread per (listing, buyer).
func (s *Service) Start(ctx context.Context, listingID, buyerID, body string) (*domain.Conversation, *domain.Message, error) {
	l, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, nil, err
	}
	if l.Status != domain.ListingActive {
		return nil, nil, domain.ErrInvalidState("listing is not active")
	}
	if l.OwnerID == buyerID {
		return nil, nil, domain.ErrOwnListing()
	}

	now := s.clock.Now()

	conv, err := s.convs.GetByListingAndBuyer(ctx, listingID, buyerID)
	switch {
	case err == nil:
		// reuse existing thread
	case isNotFound(err):
		conv, err = domain.NewConversation(listingID, buyerID, l.OwnerID, now)
		if err != nil {
			return nil, nil, err
		}
		if err := s.convs.Create(ctx, conv); err != nil {
			// lost a race with a concurrent first message; reuse that thread
			if domain.Is(err, "conversation_exists") {
				conv, err = s.convs.GetByListingAndBuyer(ctx, listingID, buyerID)
			}
			if err != nil {
				return nil, nil, err
			}
		}
	default:
		return nil, nil, err
	}

	msg, err := s.appendMessage(ctx, conv, buyerID, body)
	if err != nil {
		return nil, nil, err
	}
	return conv, msg, nil
}

func isNotFound(err error) bool {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Kind == domain.KindNotFound
	}
	return false
}
