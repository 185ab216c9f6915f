package citymatch

import "strings"

// DefaultMaxDistance is the edit-distance budget for a fuzzy hit. Two lets
// a query absorb roughly two typos regardless of city length, which favours
// recall; very short city names may over-match as a consequence.
const DefaultMaxDistance = 2

// Matcher selects which known cities satisfy a fuzzy location query.
type Matcher struct {
	// MaxDistance is the inclusive edit-distance threshold between
	// normalized keys.
	MaxDistance int
}

// NewMatcher returns a Matcher with the default distance threshold.
func NewMatcher() Matcher {
	return Matcher{MaxDistance: DefaultMaxDistance}
}

// Match returns the subset of candidates considered a match for query,
// de-duplicated and in candidate order. Candidates are raw city tokens as
// extracted from stored listings; the result never contains a city that was
// not in the input, so a query cannot invent a location. Candidates whose
// normalized key is empty never match, and an empty query matches nothing.
// Callers wanting "no location filter" must skip the Matcher instead of
// passing an empty string.
//
// A candidate is accepted when any of these holds between the raw strings
// or the normalized keys cn/qn:
//   - lowercase(candidate) contains lowercase(query)
//   - cn contains qn, or cn starts with qn
//   - the edit distance between cn and qn is at most MaxDistance
func (m Matcher) Match(candidates []string, query string) []string {
	if query == "" {
		return []string{}
	}
	qRaw := strings.ToLower(query)
	qn := NormalizeKey(query)

	matched := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}

		cn := NormalizeKey(c)
		if cn == "" {
			continue
		}
		if m.accepts(c, cn, qRaw, qn) {
			matched = append(matched, c)
		}
	}
	return matched
}

func (m Matcher) accepts(raw, cn, qRaw, qn string) bool {
	if strings.Contains(strings.ToLower(raw), qRaw) {
		return true
	}
	if strings.Contains(cn, qn) || strings.HasPrefix(cn, qn) {
		return true
	}
	return Distance(cn, qn) <= m.MaxDistance
}
