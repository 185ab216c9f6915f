package media

import (
	"context"

	"github.com/localmart/marketplace-service/internal/domain"
)

// AttachToListing binds a ready listing photo to a listing the actor owns.
// Attaching the same upload to the same listing twice is a no-op.
func (s *Service) AttachToListing(ctx context.Context, uploadID, listingID, actorID string) error {
	up, err := s.uploads.GetByID(ctx, uploadID)
	if err != nil {
		return err
	}
	if up.OwnerID != actorID {
		return domain.ErrForbidden()
	}
	if up.Purpose != domain.PurposeListingPhoto {
		return domain.ErrValidation("upload is not a listing photo")
	}
	if up.Status != domain.UploadReady {
		return domain.ErrInvalidState("upload is not ready")
	}
	if up.ListingID == listingID {
		return nil
	}
	if up.ListingID != "" {
		return domain.ErrInvalidState("upload already attached to another listing")
	}

	l, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return err
	}
	if l.OwnerID != actorID {
		return domain.ErrNotListingOwner()
	}

	n, err := s.uploads.CountByListing(ctx, listingID)
	if err != nil {
		return err
	}
	if n >= domain.MaxImagesPerListing {
		return domain.ErrImageLimitReached(domain.MaxImagesPerListing)
	}

	up.ListingID = listingID
	up.UpdatedAt = s.clock.Now().UTC()
	return s.uploads.Update(ctx, up)
}

// ListListingImages returns the ready images attached to a listing.
func (s *Service) ListListingImages(ctx context.Context, listingID string) ([]*domain.Upload, error) {
	return s.uploads.ListByListing(ctx, listingID)
}

// ThumbURLsByListing returns, per listing, the public thumb URL of every
// ready attached image. Listings without images are simply absent from the
// map. Meant for result pages where one query per row would be wasteful.
func (s *Service) ThumbURLsByListing(ctx context.Context, listingIDs []string) (map[string][]string, error) {
	if len(listingIDs) == 0 {
		return map[string][]string{}, nil
	}
	byListing, err := s.uploads.ListByListings(ctx, listingIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(byListing))
	for listingID, ups := range byListing {
		for _, up := range ups {
			if up.Status != domain.UploadReady {
				continue
			}
			if key, ok := up.DerivedKeys["thumb"]; ok {
				out[listingID] = append(out[listingID], s.storage.PublicURL(key))
			}
		}
	}
	return out, nil
}
