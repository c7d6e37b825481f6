// Package statement turns tabular bank-statement data into core records.
//
// The first column always holds the YYYYMMDD date. The remaining columns are
// located by header name, so exports that reorder or omit them still load;
// absent cells get neutral values (empty text, zero amount, missing
// description).
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"behavior/internal/core"
)

// Normalized column names.
const (
	ColumnDate               = "DATE"
	ColumnStatus             = "STATUS"
	ColumnAmount             = "AMOUNT"
	ColumnBankActivityStatus = "BANK ACTIVITY STATUS"
	ColumnExpenseDescription = "EXPENSE DESCRIPTION"
)

// Header is the header row written by the bank export.
var Header = []string{"DATE (YYYY/MM/DD)", "STATUS", "AMOUNT", "BANK ACTIVITY STATUS", "EXPENSE DESCRIPTION"}

// Parse reads a headered CSV statement.
func Parse(r io.Reader) ([]core.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: read csv: %v", core.ErrMalformedStatement, err)
	}
	return FromRows(rows)
}

// FromRows builds records from a header row followed by data rows. Blank
// rows are skipped; errors carry the 1-based line number.
func FromRows(rows [][]string) ([]core.Record, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", core.ErrMalformedStatement)
	}
	cols := columnsOf(rows[0])
	data := rows[1:]
	numeric := cols.description >= 0 && numericColumn(data, cols.description)

	records := make([]core.Record, 0, len(data))
	for i, row := range data {
		if blank(row) {
			continue
		}
		r, err := cols.record(row, numeric)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		records = append(records, r)
	}
	return records, nil
}

// CellString renders a loosely typed cell (as returned by spreadsheet and
// database drivers) the way it would appear in a CSV export. Integral floats
// lose their fraction so dates survive the round trip.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

// NormalizeHeader upper-cases a header, drops parenthetical hints such as
// "(YYYY/MM/DD)" and treats underscores as spaces.
func NormalizeHeader(h string) string {
	if i := strings.IndexByte(h, '('); i >= 0 {
		h = h[:i]
	}
	h = strings.ReplaceAll(h, "_", " ")
	return strings.ToUpper(strings.Join(strings.Fields(h), " "))
}

// ColumnIndex returns the position of a normalized column name in header, or
// -1 when absent. ColumnDate is always the first column.
func ColumnIndex(header []string, name string) int {
	if name == ColumnDate {
		if len(header) == 0 {
			return -1
		}
		return 0
	}
	for i := 1; i < len(header); i++ {
		if NormalizeHeader(header[i]) == name {
			return i
		}
	}
	return -1
}

// Cell returns row[idx], or "" when the row is too short or idx is negative.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

type columns struct {
	status, amount, activity, description int
}

func columnsOf(header []string) columns {
	return columns{
		status:      ColumnIndex(header, ColumnStatus),
		amount:      ColumnIndex(header, ColumnAmount),
		activity:    ColumnIndex(header, ColumnBankActivityStatus),
		description: ColumnIndex(header, ColumnExpenseDescription),
	}
}

func (c columns) record(row []string, numericDescriptions bool) (core.Record, error) {
	date, err := core.NormalizeDate(strings.TrimSpace(Cell(row, 0)))
	if err != nil {
		return core.Record{}, err
	}

	amount := decimal.Zero
	if s := strings.TrimSpace(Cell(row, c.amount)); s != "" {
		amount, err = decimal.NewFromString(s)
		if err != nil {
			return core.Record{}, fmt.Errorf("%w: %q", core.ErrInvalidAmount, s)
		}
	}

	desc := core.MissingDescription()
	if raw := Cell(row, c.description); raw != "" {
		if numericDescriptions {
			desc = core.Numeric(canonicalNumber(raw))
		} else {
			desc = core.Text(raw)
		}
	}

	return core.Record{
		Date:               date,
		Status:             strings.TrimSpace(Cell(row, c.status)),
		Amount:             amount,
		BankActivityStatus: strings.TrimSpace(Cell(row, c.activity)),
		Description:        desc,
	}, nil
}

// numericColumn reports whether every non-empty cell of column idx is a
// finite decimal number, which makes the whole description column numeric.
func numericColumn(rows [][]string, idx int) bool {
	seen := false
	for _, row := range rows {
		s := strings.TrimSpace(Cell(row, idx))
		if s == "" {
			continue
		}
		if _, err := decimal.NewFromString(s); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

// canonicalNumber rewrites a numeric cell the way a number prints: no sign
// prefix, no leading zeros, no bare decimal point. "0636974075" becomes
// "636974075" and ".5" becomes "0.5".
func canonicalNumber(raw string) string {
	s := strings.TrimSpace(raw)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
