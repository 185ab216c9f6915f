package listing

import (
	"context"
	"strings"

	"github.com/localmart/marketplace-service/internal/domain"
	"github.com/localmart/marketplace-service/internal/domain/citymatch"
)

// searchCorpusCap bounds how many text-filtered rows one search request pulls
// before city narrowing. Local marketplaces stay far under this.
const searchCorpusCap = 500

// Search runs the two-stage listing search. Stage one filters by free text
// (title, description, tags, location substring, case-insensitive). Stage
// two narrows those rows to cities matching locationQuery:
//
//   - empty locationQuery skips narrowing entirely,
//   - the candidate city vocabulary comes from the FULL active corpus, not
//     the text-filtered subset, so the text query cannot hide a known city,
//   - a locationQuery matching no known city returns an empty result rather
//     than falling back to the unfiltered rows. Mistyping a city badly
//     enough yields nothing; that is intended.
//
// Both queries arrive pre-trimmed and size-capped from the transport layer.
// Results are newest first.
func (s *Service) Search(ctx context.Context, textQuery, locationQuery string) ([]*domain.Listing, error) {
	textQuery = strings.TrimSpace(textQuery)
	locationQuery = strings.TrimSpace(locationQuery)

	rows, err := s.repo.SearchText(ctx, textQuery, searchCorpusCap)
	if err != nil {
		return nil, err
	}
	if locationQuery == "" {
		return rows, nil
	}

	locations, err := s.repo.DistinctActiveLocations(ctx)
	if err != nil {
		return nil, err
	}

	matched := s.matcher.Match(candidateCities(locations), locationQuery)
	if len(matched) == 0 {
		return []*domain.Listing{}, nil
	}

	allowed := make(map[string]struct{}, len(matched))
	for _, city := range matched {
		allowed[citymatch.NormalizeKey(city)] = struct{}{}
	}

	filtered := make([]*domain.Listing, 0, len(rows))
	for _, l := range rows {
		key := citymatch.NormalizeKey(l.CityToken())
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; ok {
			filtered = append(filtered, l)
		}
	}
	return filtered, nil
}

// candidateCities derives the distinct city vocabulary from raw location
// strings. Locations without a usable city contribute nothing.
func candidateCities(locations []string) []string {
	seen := make(map[string]struct{}, len(locations))
	out := make([]string, 0, len(locations))
	for _, loc := range locations {
		city := citymatch.ExtractCityToken(loc)
		if city == "" {
			continue
		}
		if _, dup := seen[city]; dup {
			continue
		}
		seen[city] = struct{}{}
		out = append(out, city)
	}
	return out
}
