package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/localmart/marketplace-service/internal/domain/citymatch"
)

type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingSold    ListingStatus = "sold"
	ListingDeleted ListingStatus = "deleted"
)

// MaxImagesPerListing caps attached photos per listing.
const MaxImagesPerListing = 8

type Listing struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	PriceCents  int64
	Currency    string
	// Location is free-form, "City, Region" by convention. Never validated
	// beyond length; the search side extracts what it can.
	Location string
	Tags     []string
	Status   ListingStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewListing(ownerID, title, description, location string, priceCents int64, currency string, tags []string, now time.Time) (*Listing, error) {
	ownerID = strings.TrimSpace(ownerID)
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	location = strings.TrimSpace(location)

	if ownerID == "" {
		return nil, ErrValidation("owner_id is required")
	}
	if len(title) < 3 || len(title) > 140 {
		return nil, ErrValidation("title must be 3..140 chars")
	}
	if len(description) > 4000 {
		return nil, ErrValidation("description must be <= 4000 chars")
	}
	if len(location) > 160 {
		return nil, ErrValidation("location must be <= 160 chars")
	}
	if priceCents < 0 {
		return nil, ErrValidation("price must be >= 0")
	}
	cur, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	cleanTags, err := normalizeTags(tags)
	if err != nil {
		return nil, err
	}

	return &Listing{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		PriceCents:  priceCents,
		Currency:    cur,
		Location:    location,
		Tags:        cleanTags,
		Status:      ListingActive,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// CityToken derives the city portion of the listing location. Empty when the
// listing has no usable city.
func (l *Listing) CityToken() string {
	return citymatch.ExtractCityToken(l.Location)
}

func (l *Listing) ApplyUpdate(title, description, location *string, priceCents *int64, tags *[]string, now time.Time) error {
	if l.Status == ListingDeleted {
		return ErrInvalidState("deleted listing cannot be updated")
	}
	if l.Status == ListingSold {
		return ErrInvalidState("sold listing cannot be updated")
	}

	if title != nil {
		v := strings.TrimSpace(*title)
		if len(v) < 3 || len(v) > 140 {
			return ErrValidation("title must be 3..140 chars")
		}
		l.Title = v
	}
	if description != nil {
		v := strings.TrimSpace(*description)
		if len(v) > 4000 {
			return ErrValidation("description must be <= 4000 chars")
		}
		l.Description = v
	}
	if location != nil {
		v := strings.TrimSpace(*location)
		if len(v) > 160 {
			return ErrValidation("location must be <= 160 chars")
		}
		l.Location = v
	}
	if priceCents != nil {
		if *priceCents < 0 {
			return ErrValidation("price must be >= 0")
		}
		l.PriceCents = *priceCents
	}
	if tags != nil {
		clean, err := normalizeTags(*tags)
		if err != nil {
			return err
		}
		l.Tags = clean
	}

	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) MarkSold(now time.Time) error {
	if l.Status != ListingActive {
		return ErrInvalidState("only active listing can be marked sold")
	}
	l.Status = ListingSold
	l.UpdatedAt = now.UTC()
	return nil
}

func (l *Listing) SoftDelete(now time.Time) error {
	if l.Status == ListingDeleted {
		return ErrInvalidState("listing already deleted")
	}
	l.Status = ListingDeleted
	l.UpdatedAt = now.UTC()
	return nil
}

func normalizeCurrency(currency string) (string, error) {
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if cur == "" {
		return "USD", nil
	}
	if len(cur) != 3 {
		return "", ErrValidation("currency must be a 3-letter code")
	}
	for _, r := range cur {
		if r < 'A' || r > 'Z' {
			return "", ErrValidation("currency must be a 3-letter code")
		}
	}
	return cur, nil
}

func normalizeTags(tags []string) ([]string, error) {
	if len(tags) > 10 {
		return nil, ErrValidation("at most 10 tags")
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		v := strings.ToLower(strings.TrimSpace(tag))
		if v == "" {
			continue
		}
		if len(v) > 40 {
			return nil, ErrValidation("tag must be <= 40 chars")
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
