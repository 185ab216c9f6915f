package listing

import (
	"strings"
	"time"

	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/domain/citymatch"
)

type Service struct {
	repo    ListingRepo
	pub     EventPublisher
	suggest SuggestionProvider
	geo     ReverseGeocoder
	clock   Clock
	matcher citymatch.Matcher
}

func New(repo ListingRepo, pub EventPublisher, suggest SuggestionProvider, geo ReverseGeocoder, clock Clock, matcher citymatch.Matcher) *Service {
	if clock == nil {
		clock = sysClock{}
	}
	return &Service{
		repo:    repo,
		pub:     pub,
		suggest: suggest,
		geo:     geo,
		clock:   clock,
		matcher: matcher,
	}
}

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

func isModerator(role string) bool { return role == string(domain.RoleModerator) }
func isAdmin(role string) bool     { return role == string(domain.RoleAdmin) }

// Owner or moderator+ may edit.
func canEdit(ownerID, actorID, actorRole string) bool {
	if strings.TrimSpace(actorID) == "" {
		return false
	}
	if actorID == ownerID {
		return true
	}
	return isModerator(actorRole) || isAdmin(actorRole)
}

// Owner or admin may delete.
func canDelete(ownerID, actorID, actorRole string) bool {
	if strings.TrimSpace(actorID) == "" {
		return false
	}
	return actorID == ownerID || isAdmin(actorRole)
}
