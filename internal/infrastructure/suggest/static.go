package suggest

import (
	"context"
	"strings"
	"unicode"

	"github.com/localmart/marketplace-service/internal/application/listing"
)

// StaticProvider derives draft metadata from the description with a keyword
// table. Stand-in for an external classifier; failures upstream degrade to
// "no suggestions", so this never errors.
type StaticProvider struct{}

func NewStaticProvider() StaticProvider { return StaticProvider{} }

type rule struct {
	keywords   []string
	tag        string
	priceCents int64
}

// Ordered: the first matching rule prices the item, later matches only add
// tags.
var rules = []rule{
	{keywords: []string{"laptop", "macbook", "thinkpad"}, tag: "electronics", priceCents: 45000},
	{keywords: []string{"phone", "iphone", "android", "pixel"}, tag: "electronics", priceCents: 20000},
	{keywords: []string{"monitor", "keyboard", "headphones", "speaker"}, tag: "electronics", priceCents: 8000},
	{keywords: []string{"bike", "bicycle", "ebike"}, tag: "bikes", priceCents: 12000},
	{keywords: []string{"sofa", "couch"}, tag: "furniture", priceCents: 15000},
	{keywords: []string{"table", "chair", "desk", "shelf", "dresser"}, tag: "furniture", priceCents: 8000},
	{keywords: []string{"lamp", "mirror", "rug", "curtain"}, tag: "decor", priceCents: 2500},
	{keywords: []string{"guitar", "piano", "drum", "violin"}, tag: "music", priceCents: 25000},
	{keywords: []string{"stroller", "crib", "toy", "lego"}, tag: "kids", priceCents: 4000},
	{keywords: []string{"jacket", "coat", "shoes", "sneakers", "dress"}, tag: "clothing", priceCents: 3000},
	{keywords: []string{"book", "novel", "textbook"}, tag: "books", priceCents: 1000},
}

const maxSuggestedTags = 3

func (StaticProvider) Suggest(ctx context.Context, description string) (listing.Suggestion, error) {
	desc := strings.ToLower(description)

	var sug listing.Suggestion
	for _, r := range rules {
		if !matchesAny(desc, r.keywords) {
			continue
		}
		if sug.PriceCents == 0 {
			sug.PriceCents = r.priceCents
		}
		if len(sug.Tags) < maxSuggestedTags && !contains(sug.Tags, r.tag) {
			sug.Tags = append(sug.Tags, r.tag)
		}
	}

	sug.Title = titleFrom(description)
	return sug, nil
}

func matchesAny(desc string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// titleFrom takes the first line up to 60 runes, capitalized. Empty when the
// description has no usable text.
func titleFrom(description string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(description), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}

	runes := []rune(line)
	if len(runes) > 60 {
		runes = runes[:60]
		// back off to the last full word
		for i := len(runes) - 1; i > 0; i-- {
			if unicode.IsSpace(runes[i]) {
				runes = runes[:i]
				break
			}
		}
	}
	runes[0] = unicode.ToUpper(runes[0])
	return strings.TrimSpace(string(runes))
}
