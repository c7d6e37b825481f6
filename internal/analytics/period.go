package analytics

import (
	"fmt"

	"behavior/internal/core"
	"behavior/internal/ordered"
)

// Rebucket re-keys a daily bucket by period. Daily returns the input as is.
// Weekly keys are the Monday on or before each date, monthly keys the first
// of the month; buckets landing on the same key are concatenated in source
// order.
func Rebucket(daily DateBucket, p core.Period) (DateBucket, error) {
	switch p {
	case core.Daily:
		return daily, nil
	case core.Weekly, core.Monthly:
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, p)
	}

	out := ordered.New[[]core.Record]()
	for key, records := range daily.All() {
		periodKey, err := core.PeriodKey(key, p)
		if err != nil {
			return nil, err
		}
		ordered.Append(out, periodKey, records...)
	}
	return out, nil
}
