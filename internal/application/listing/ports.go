package listing

import (
	"context"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

/*
ListingRepo
-----------
Persistence port for listings. Only describes WHAT the listing flows need,
not HOW rows are stored.

SearchText returns active listings whose title, description, tags or location
contain the query as a case-insensitive substring (all active listings when
the query is empty), newest first. DistinctActiveLocations returns the raw
location strings of the full active corpus; the service derives the candidate
city vocabulary from it per request.
*/
type ListingRepo interface {
	Create(ctx context.Context, l *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	Update(ctx context.Context, l *domain.Listing) error

	SearchText(ctx context.Context, textQuery string, limit int) ([]*domain.Listing, error)
	DistinctActiveLocations(ctx context.Context) ([]string, error)

	ListByOwnerKeyset(ctx context.Context, ownerID string, pageSize int, hasCursor bool, afterCreated time.Time, afterID string) ([]*domain.Listing, error)
}

/*
EventPublisher
--------------
Emits listing lifecycle events to the broker. Consumers (feed builders,
notification fan-out) live outside this service.
*/
type EventPublisher interface {
	PublishListingCreated(ctx context.Context, evt ListingCreatedEvent) error
	PublishListingDeleted(ctx context.Context, evt ListingDeletedEvent) error
}

type ListingCreatedEvent struct {
	ListingID string `json:"listing_id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	City      string `json:"city"`
}

type ListingDeletedEvent struct {
	ListingID string `json:"listing_id"`
	ActorID   string `json:"actor_id"`
	Reason    string `json:"reason"`
}

/*
SuggestionProvider
------------------
Opaque metadata classifier: given a free-form description it proposes a
title, tags and a price. The real implementation is an external system;
failures degrade to "no suggestions".
*/
type Suggestion struct {
	Title      string
	Tags       []string
	PriceCents int64
}

type SuggestionProvider interface {
	Suggest(ctx context.Context, description string) (Suggestion, error)
}

/*
ReverseGeocoder
---------------
Opaque coordinates-to-place lookup used to prefill the location field.
Returns "City, Region" or an empty string when unknown.
*/
type ReverseGeocoder interface {
	ReverseCity(ctx context.Context, lat, lon float64) (string, error)
}
