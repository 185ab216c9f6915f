// Package citymatch narrows free-form location strings down to known city
// names. Listings store locations like "Brooklyn, NY"; search requests carry
// whatever the user typed. The package derives a city token from each side,
// reduces both to normalized comparison keys and decides, per known city,
// whether the query is close enough to count as a match.
//
// All functions are pure and total over string inputs. Nothing here touches
// storage or caches results; callers rebuild the candidate vocabulary per
// request.
package citymatch

import "strings"

// ExtractCityToken returns the city portion of a stored location string:
// everything before the first comma, trimmed. Locations without a comma are
// taken whole. An empty result means the listing carries no usable city and
// must be left out of the candidate vocabulary.
func ExtractCityToken(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

// NormalizeKey reduces a string to its comparison key: lowercase with every
// character outside ASCII a-z dropped. Spaces, punctuation and digits vanish,
// so "St. Paul" and "stpaul" produce the same key. Idempotent.
func NormalizeKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
