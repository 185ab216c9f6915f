package rabbitmq

import (
	"context"

	"github.com/localmart/marketplace-service/internal/application/auth"
	"github.com/localmart/marketplace-service/internal/application/listing"
	"github.com/localmart/marketplace-service/internal/application/media"
	"github.com/localmart/marketplace-service/internal/application/messaging"
)

// NoopPublisher swallows events. Dev fallback when RABBIT_URL is unset;
// uploads then stay "uploaded" until a worker or janitor shows up.
type NoopPublisher struct{}

func NewNoopPublisher() NoopPublisher { return NoopPublisher{} }

func (NoopPublisher) PublishUserRegistered(ctx context.Context, evt auth.UserRegisteredEvent) error {
	return nil
}

func (NoopPublisher) PublishListingCreated(ctx context.Context, evt listing.ListingCreatedEvent) error {
	return nil
}

func (NoopPublisher) PublishListingDeleted(ctx context.Context, evt listing.ListingDeletedEvent) error {
	return nil
}

func (NoopPublisher) PublishMessageSent(ctx context.Context, evt messaging.MessageSentEvent) error {
	return nil
}

func (NoopPublisher) PublishProcessImage(ctx context.Context, evt media.ProcessImageEvent) error {
	return nil
}
