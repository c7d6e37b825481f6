// Package analytics groups, categorizes and totals statement records.
//
// Every function here is pure: inputs are never modified, results are fresh
// values, so callers may share cached record slices across requests.
package analytics

import (
	"fmt"
	"regexp"
	"strings"

	"behavior/internal/core"
	"behavior/internal/ordered"
)

// DateBucket maps a YYYY/MM/DD period key to the records it holds.
type DateBucket = *ordered.Map[[]core.Record]

// dateSuffix matches a trailing " 29 JUL" style fragment that card
// processors append to descriptions.
var dateSuffix = regexp.MustCompile(`(?i)\s+\d{1,2}\s+[A-Z]{3}$`)

// StripDateSuffix removes a trailing day + month-abbreviation fragment.
func StripDateSuffix(s string) string {
	return dateSuffix.ReplaceAllString(s, "")
}

// GroupByDate buckets records by their exact date. The first and last
// records are the opening and closing balance rows and are dropped. Bucketed
// copies lose their date (it is the key) and carry a lower-cased,
// suffix-stripped text description.
func GroupByDate(records []core.Record) (DateBucket, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 records to drop the balance rows, got %d",
			core.ErrInsufficientData, len(records))
	}

	buckets := ordered.New[[]core.Record]()
	for _, r := range records[1 : len(records)-1] {
		key := r.Date
		r.Date = ""
		if r.Description.IsText() {
			r.Description = core.Text(StripDateSuffix(strings.ToLower(r.Description.Value)))
		}
		ordered.Append(buckets, key, r)
	}
	return buckets, nil
}
