package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

const (
	// StatusOpen and StatusClose mark the balance rows that bracket a statement.
	StatusOpen  = "OPEN"
	StatusClose = "CLOSE"
)

const (
	TextDescription DescriptionKind = iota
	NumericDescription
)

type (
	// Period is the granularity used to bucket transactions.
	Period string

	DescriptionKind int

	// Description is the free-text expense description of a statement line.
	// Cells that arrive as numbers (or are missing) are kept as
	// NumericDescription so grouping can pick the fallback key.
	Description struct {
		Kind  DescriptionKind
		Value string
	}

	// Record is one statement line.
	Record struct {
		Date               string          `json:"date,omitempty"`
		Status             string          `json:"status"`
		Amount             decimal.Decimal `json:"amount"`
		BankActivityStatus string          `json:"bank_activity_status"`
		Description        Description     `json:"expense_description"`
	}
)

var (
	ErrInvalidDateFormat  = errors.New("invalid date format")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrMissingDataSource  = errors.New("missing data source")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrMalformedStatement = errors.New("malformed statement")
)

// Periods lists the supported periods in canonical order.
func Periods() []Period {
	return []Period{Daily, Weekly, Monthly}
}

// ParsePeriod validates a period name. Matching ignores case and surrounding space.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Daily, Weekly, Monthly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want daily, weekly or monthly)", ErrInvalidPeriod, s)
	}
}

func (p Period) String() string {
	return string(p)
}

// Text builds a text description.
func Text(s string) Description {
	return Description{Kind: TextDescription, Value: s}
}

// Numeric builds a numeric description from its raw string form.
func Numeric(raw string) Description {
	return Description{Kind: NumericDescription, Value: raw}
}

// MissingDescription is the neutral value stored for an absent description cell.
func MissingDescription() Description {
	return Numeric("0")
}

func (d Description) IsText() bool {
	return d.Kind == TextDescription
}

func (d Description) String() string {
	return d.Value
}

// MarshalJSON renders text descriptions as strings and numeric ones as
// numbers. A numeric value that is not a valid JSON number is quoted.
func (d Description) MarshalJSON() ([]byte, error) {
	if d.Kind == NumericDescription && isJSONNumber(d.Value) {
		return []byte(d.Value), nil
	}
	return json.Marshal(d.Value)
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	var n json.Number
	return json.Valid([]byte(s)) && json.Unmarshal([]byte(s), &n) == nil
}

func (d *Description) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expense description: %w", err)
	}
	*d = Numeric(n.String())
	return nil
}

// IsBalanceMarker reports whether the record is an opening or closing balance row.
func (r Record) IsBalanceMarker() bool {
	return r.Status == StatusOpen || r.Status == StatusClose
}

// IsExpense reports whether the record counts towards expense totals.
func (r Record) IsExpense() bool {
	return !r.IsBalanceMarker() && !r.Amount.IsPositive()
}
