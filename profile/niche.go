package profile

import (
	"strings"
)

// nicheEntry pairs a tag with the keywords that imply it. Matching is plain
// substring containment over the lower-cased name+description, so "asian"
// also matches "asiantown". The order here is the output order.
type nicheEntry struct {
	tag      string
	keywords []string
}

var nicheVocabulary = []nicheEntry{
	{"feet", []string{"feet", "foot", "soles", "toes"}},
	{"petite", []string{"petite", "tiny", "small"}},
	{"bbw", []string{"bbw", "curvy", "thick", "chubby"}},
	{"latina", []string{"latina", "latin"}},
	{"asian", []string{"asian", "japanese", "korean", "chinese"}},
	{"ebony", []string{"ebony", "black"}},
	{"blonde", []string{"blonde", "blond"}},
	{"redhead", []string{"redhead", "ginger"}},
	{"brunette", []string{"brunette"}},
	{"milf", []string{"milf", "mature", "mom"}},
	{"cosplay", []string{"cosplay", "costume"}},
	{"tattoo", []string{"tattoo", "tattooed", "ink"}},
	{"lingerie", []string{"lingerie", "underwear"}},
	{"amateur", []string{"amateur", "homemade"}},
	{"fitness", []string{"fitness", "gym", "athletic", "yoga"}},
	{"goth", []string{"goth", "gothic", "emo"}},
	{"lesbian", []string{"lesbian"}},
}

// InferNicheTags matches the subreddit display name and description against
// the niche vocabulary. A tag is included when any of its keywords appears
// anywhere in the text. Never returns an empty slice: with no matches the
// result is ["general"].
func InferNicheTags(displayName, description string) []string {
	text := strings.ToLower(displayName + " " + description)

	tags := make([]string, 0, 4)
	for _, entry := range nicheVocabulary {
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				tags = append(tags, entry.tag)
				break
			}
		}
	}

	if len(tags) == 0 {
		return []string{"general"}
	}
	return tags
}
