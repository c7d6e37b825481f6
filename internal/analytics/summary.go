package analytics

import (
	"github.com/shopspring/decimal"

	"behavior/internal/core"
	"behavior/internal/ordered"
)

// TotalPlaces is the number of decimal places kept in expense totals.
const TotalPlaces = 3

// DailyExpenseTotals sums expenses per date. Balance rows and income are
// skipped; each total is the absolute value of the sum, rounded half-even to
// TotalPlaces. Dates without expenses are absent.
func DailyExpenseTotals(records []core.Record) *ordered.Map[decimal.Decimal] {
	return sumExpenses(records, func(r core.Record) (string, error) {
		return r.Date, nil
	})
}

// ExpenseTotals is DailyExpenseTotals with dates re-keyed to their week
// (Monday) or month (first day) before summing.
func ExpenseTotals(records []core.Record, p core.Period) (*ordered.Map[decimal.Decimal], error) {
	if _, err := core.ParsePeriod(string(p)); err != nil {
		return nil, err
	}
	if p == core.Daily {
		return DailyExpenseTotals(records), nil
	}
	var keyErr error
	out := sumExpenses(records, func(r core.Record) (string, error) {
		key, err := core.PeriodKey(r.Date, p)
		if err != nil && keyErr == nil {
			keyErr = err
		}
		return key, err
	})
	if keyErr != nil {
		return nil, keyErr
	}
	return out, nil
}

// sumExpenses buckets expense amounts by keyOf. Records whose key cannot be
// computed are dropped.
func sumExpenses(records []core.Record, keyOf func(core.Record) (string, error)) *ordered.Map[decimal.Decimal] {
	sums := ordered.New[decimal.Decimal]()
	for _, r := range records {
		if !r.IsExpense() {
			continue
		}
		key, err := keyOf(r)
		if err != nil {
			continue
		}
		cur, _ := sums.Get(key)
		sums.Set(key, cur.Add(r.Amount))
	}

	out := ordered.New[decimal.Decimal]()
	for key, sum := range sums.All() {
		out.Set(key, sum.Abs().RoundBank(TotalPlaces))
	}
	return out
}
