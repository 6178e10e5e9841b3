package drafts

import "strings"

// refusalPhrases are the static fallback markers used when the refusal
// classifier itself is unavailable. The list errs toward false negatives:
// a missed refusal produces a bad draft the user can regenerate, while a
// false positive burns the single retry on a good draft.
var refusalPhrases = []string{
	"cannot write",
	"can't write",
	"i apologize",
	"i'm sorry, but",
	"i am sorry, but",
	"unable to assist",
	"as an ai",
}

// LooksLikeRefusal reports whether the text matches the static refusal
// heuristic.
func LooksLikeRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
