package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"behavior/internal/core"
)

const statementCSV = `DATE (YYYY/MM/DD),STATUS,AMOUNT,BANK ACTIVITY STATUS,EXPENSE DESCRIPTION
20230701,OPEN,1500,BALANCE,
20230702,TRANS,-12.5,CARD PAYMENT,UBER EATS 29 JUL
20230703,TRANS,-40,CARD PAYMENT,TESCO STORES
20230731,CLOSE,1447.5,BALANCE,
`

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "statements.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestImportAndLoad(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	n, err := repo.ImportCSV(ctx, strings.NewReader(statementCSV), false)
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 rows imported, got %d", n)
	}

	records, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	uber := records[1]
	if uber.Date != "2023/07/02" || !uber.Amount.Equal(decimal.RequireFromString("-12.5")) {
		t.Fatalf("unexpected record %+v", uber)
	}
	if !uber.Description.IsText() || uber.Description.Value != "UBER EATS 29 JUL" {
		t.Fatalf("description = %+v", uber.Description)
	}
	if records[0].Description.IsText() || records[0].Description.Value != "0" {
		t.Fatalf("NULL description should load as numeric zero, got %+v", records[0].Description)
	}
}

func TestImportReplaceAndAppend(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := repo.ImportCSV(ctx, strings.NewReader(statementCSV), false); err != nil {
			t.Fatalf("ImportCSV: %v", err)
		}
	}
	if n, _ := repo.Count(ctx); n != 8 {
		t.Fatalf("expected appended imports to give 8 rows, got %d", n)
	}

	if _, err := repo.ImportCSV(ctx, strings.NewReader(statementCSV), true); err != nil {
		t.Fatalf("ImportCSV replace: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 4 {
		t.Fatalf("expected replace to leave 4 rows, got %d", n)
	}
}

func TestImportRollsBackOnBadRow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bad := "DATE,STATUS,AMOUNT\n20230701,TRANS,-1\n20230702,TRANS,lots\n"
	_, err := repo.ImportCSV(ctx, strings.NewReader(bad), false)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("error should name the line: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Fatalf("expected nothing stored, got %d rows", n)
	}

	_, err = repo.ImportCSV(ctx, strings.NewReader("DATE,AMOUNT\n2023-07-01,-1\n"), false)
	if !errors.Is(err, core.ErrInvalidDateFormat) {
		t.Fatalf("expected ErrInvalidDateFormat, got %v", err)
	}

	for _, amount := range []string{"NaN", "Inf", "-Infinity"} {
		body := "DATE,AMOUNT\n20230701," + amount + "\n"
		if _, err := repo.ImportCSV(ctx, strings.NewReader(body), false); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Fatalf("expected nothing stored, got %d rows", n)
	}
}

func TestLoadEmptyTable(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.Load(context.Background()); !errors.Is(err, core.ErrMissingDataSource) {
		t.Fatalf("expected ErrMissingDataSource, got %v", err)
	}
}

func TestListStatementsKeepsNulls(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.ImportCSV(ctx, strings.NewReader("DATE,STATUS,AMOUNT,EXPENSE_DESCRIPTION\n20230701,,,coffee\n"), false); err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	rows, err := repo.ListStatements(ctx)
	if err != nil {
		t.Fatalf("ListStatements: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Date == nil || *r.Date != 20230701 {
		t.Fatalf("date = %v", r.Date)
	}
	if r.Status != nil || r.Amount != nil || r.BankActivityStatus != nil {
		t.Fatalf("empty cells should be NULL: %+v", r)
	}
	if r.ExpenseDescription == nil || *r.ExpenseDescription != "coffee" {
		t.Fatalf("description = %v", r.ExpenseDescription)
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	v, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 1 || dirty {
		t.Fatalf("version = %d dirty = %v", v, dirty)
	}
	if err := ResetSchema(path); err != nil {
		t.Fatalf("ResetSchema: %v", err)
	}
}

func TestVersionChangesOnEveryImport(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	version := func() string {
		t.Helper()
		v, err := repo.Version(ctx)
		if err != nil {
			t.Fatalf("Version: %v", err)
		}
		return v
	}

	seen := map[string]string{"empty": version()}
	steps := []struct {
		name    string
		body    string
		replace bool
	}{
		{"first import", statementCSV, false},
		{"append", statementCSV, false},
		{"replace same rows", statementCSV, true},
		{"replace with header only", "DATE,STATUS,AMOUNT\n", true},
	}
	for _, step := range steps {
		if _, err := repo.ImportCSV(ctx, strings.NewReader(step.body), step.replace); err != nil {
			t.Fatalf("%s: ImportCSV: %v", step.name, err)
		}
		v := version()
		for prev, pv := range seen {
			if pv == v {
				t.Fatalf("%s: version %q repeats the %s version", step.name, v, prev)
			}
		}
		seen[step.name] = v
	}
}
