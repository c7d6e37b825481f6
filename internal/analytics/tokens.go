package analytics

import (
	"regexp"
	"slices"

	"behavior/internal/ordered"
)

// TokenThreshold is the minimum similarity for a token to join a category.
// It is deliberately coarse: chaining through one shared member is enough.
const TokenThreshold = 0.4

var wordRun = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize extracts the distinct word tokens of every text description in
// the bucket, sorted.
func Tokenize(b DateBucket) []string {
	seen := make(map[string]struct{})
	var tokens []string
	for _, records := range b.All() {
		for _, r := range records {
			if !r.Description.IsText() {
				continue
			}
			for _, tok := range wordRun.FindAllString(r.Description.Value, -1) {
				if _, ok := seen[tok]; ok {
					continue
				}
				seen[tok] = struct{}{}
				tokens = append(tokens, tok)
			}
		}
	}
	slices.Sort(tokens)
	return tokens
}

// GenerateCategories clusters the bucket's tokens in one greedy pass. Each
// token joins the first existing category holding a member at least
// TokenThreshold similar to it, or founds a category named after itself.
// The result is a token taxonomy, not a partition of records.
func GenerateCategories(b DateBucket) *ordered.Map[[]string] {
	categories := ordered.New[[]string]()
	for _, tok := range Tokenize(b) {
		joined := false
		for name, members := range categories.All() {
			if matchesAny(tok, members) {
				ordered.Append(categories, name, tok)
				joined = true
				break
			}
		}
		if !joined {
			categories.Set(tok, []string{tok})
		}
	}
	return categories
}

func matchesAny(tok string, members []string) bool {
	for _, m := range members {
		if Similarity(tok, m) >= TokenThreshold {
			return true
		}
	}
	return false
}
