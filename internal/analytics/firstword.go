package analytics

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"behavior/internal/core"
	"behavior/internal/ordered"
)

// MergeThreshold is the similarity above which two group keys are merged.
const MergeThreshold = 0.8

// CategoryGroup maps a grouping key to the records assigned to it.
type CategoryGroup = *ordered.Map[[]core.Record]

// GroupKey derives the grouping key of a record from its description.
//
// Numeric descriptions of at most one character fall back to the bank
// activity status; longer ones use the words after the first. Text
// descriptions use their first word, unless that word is all digits and is
// followed by another word: a second word starting with a digit keeps the
// numeric code (phone number followed by a time), otherwise the code is
// dropped and the remaining words form the key.
func GroupKey(r core.Record) string {
	desc := r.Description.Value
	if !r.Description.IsText() {
		if utf8.RuneCountInString(desc) <= 1 {
			return r.BankActivityStatus
		}
		if rest := strings.Join(tail(strings.Fields(desc)), " "); rest != "" {
			return rest
		}
		return r.BankActivityStatus
	}

	words := strings.Fields(desc)
	switch {
	case len(words) == 0:
		return r.BankActivityStatus
	case len(words) >= 2 && allDigits(words[0]):
		if first, _ := utf8.DecodeRuneInString(words[1]); unicode.IsDigit(first) {
			return words[0]
		}
		return strings.Join(words[1:], " ")
	default:
		return words[0]
	}
}

// GroupByFirstWord groups records by GroupKey, then merges pairs of keys that
// are more than MergeThreshold similar. Keys are scanned in insertion order
// and each key takes part in at most one merge; the longer key names the
// merged group (the scanned key on a tie) and its records come first.
func GroupByFirstWord(records []core.Record) CategoryGroup {
	grouped := ordered.New[[]core.Record]()
	for _, r := range records {
		ordered.Append(grouped, GroupKey(r), r)
	}

	keys := grouped.Keys()
	merged := make(map[string]bool, len(keys))
	out := ordered.New[[]core.Record]()
	for _, key := range keys {
		if merged[key] {
			continue
		}
		own, _ := grouped.Get(key)

		partner := ""
		for _, other := range keys {
			if other == key || merged[other] {
				continue
			}
			if Similarity(key, other) > MergeThreshold {
				partner = other
				break
			}
		}
		if partner == "" {
			ordered.Append(out, key, own...)
			continue
		}

		combined := key
		if utf8.RuneCountInString(partner) > utf8.RuneCountInString(key) {
			combined = partner
		}
		theirs, _ := grouped.Get(partner)
		ordered.Append(out, combined, own...)
		ordered.Append(out, combined, theirs...)
		merged[key], merged[partner] = true, true
	}
	return out
}

// CategorizeBuckets applies GroupByFirstWord to every bucket.
func CategorizeBuckets(b DateBucket) *ordered.Map[CategoryGroup] {
	out := ordered.New[CategoryGroup]()
	for key, records := range b.All() {
		out.Set(key, GroupByFirstWord(records))
	}
	return out
}

func tail(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	return words[1:]
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
