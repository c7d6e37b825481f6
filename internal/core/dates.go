package core

import (
	"fmt"
	"time"
)

const (
	// CompactDateLayout is the YYYYMMDD form used by bank exports.
	CompactDateLayout = "20060102"
	// DateLayout is the canonical YYYY/MM/DD key format.
	DateLayout = "2006/01/02"
)

// NormalizeDate converts a YYYYMMDD value into YYYY/MM/DD. The value must be
// exactly eight ASCII digits; callers trim cell padding first.
func NormalizeDate(raw string) (string, error) {
	if len(raw) != len(CompactDateLayout) || !isASCIIDigits(raw) {
		return "", fmt.Errorf("%w: %q is not an 8-digit YYYYMMDD value", ErrInvalidDateFormat, raw)
	}
	t, err := time.Parse(CompactDateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidDateFormat, raw, err)
	}
	return t.Format(DateLayout), nil
}

// ParseDateKey parses a canonical YYYY/MM/DD key.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(DateLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bucket key %q: %v", ErrInvalidDateFormat, key, err)
	}
	return t, nil
}

// WeekStart returns the Monday on or before t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// PeriodKey maps a canonical date key onto the key of the bucket holding it.
func PeriodKey(dateKey string, p Period) (string, error) {
	if p == Daily {
		return dateKey, nil
	}
	t, err := ParseDateKey(dateKey)
	if err != nil {
		return "", err
	}
	switch p {
	case Weekly:
		return WeekStart(t).Format(DateLayout), nil
	case Monthly:
		return MonthStart(t).Format(DateLayout), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, p)
	}
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
