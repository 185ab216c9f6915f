package listing

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/localmart/marketplace-service/internal/domain"
)

type CreateCmd struct {
	Title       string
	Description string
	// PriceCents nil means "not given"; the suggester may fill it.
	PriceCents *int64
	Currency   string
	Location   string
	Tags       []string
}

// Create validates and persists a new listing for ownerID. Fields the caller
// left out (empty title, no tags, no price) are filled from the suggestion
// provider when one is configured; suggester failure is not an error, the
// listing is simply created with what was given.
func (s *Service) Create(ctx context.Context, ownerID string, cmd CreateCmd) (*domain.Listing, error) {
	title := cmd.Title
	tags := cmd.Tags
	var price int64
	if cmd.PriceCents != nil {
		price = *cmd.PriceCents
	}

	wantSuggestion := strings.TrimSpace(title) == "" || len(tags) == 0 || cmd.PriceCents == nil
	if s.suggest != nil && wantSuggestion && strings.TrimSpace(cmd.Description) != "" {
		sug, err := s.suggest.Suggest(ctx, cmd.Description)
		if err != nil {
			zlog.Warn().Err(err).Msg("metadata suggestion failed")
		} else {
			if strings.TrimSpace(title) == "" {
				title = sug.Title
			}
			if len(tags) == 0 {
				tags = sug.Tags
			}
			if cmd.PriceCents == nil && sug.PriceCents > 0 {
				price = sug.PriceCents
			}
		}
	}

	l, err := domain.NewListing(ownerID, title, cmd.Description, cmd.Location, price, cmd.Currency, tags, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}

	if s.pub != nil {
		evt := ListingCreatedEvent{ListingID: l.ID, OwnerID: l.OwnerID, Title: l.Title, City: l.CityToken()}
		if err := s.pub.PublishListingCreated(ctx, evt); err != nil {
			zlog.Warn().Err(err).Str("listing_id", l.ID).Msg("listing.created publish failed")
		}
	}
	return l, nil
}

// ResolveArea turns coordinates into a "City, Region" string for the client
// to prefill the location field. Unknown or failing lookups yield "".
func (s *Service) ResolveArea(ctx context.Context, lat, lon float64) string {
	if s.geo == nil {
		return ""
	}
	area, err := s.geo.ReverseCity(ctx, lat, lon)
	if err != nil {
		zlog.Debug().Err(err).Msg("reverse geocode failed")
		return ""
	}
	return strings.TrimSpace(area)
}
