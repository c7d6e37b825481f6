package storage

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"behavior/internal/core"
	"behavior/internal/source"
	"behavior/internal/statement"

	_ "modernc.org/sqlite"
)

var (
	_ source.Provider  = (*SQLiteRepository)(nil)
	_ source.Versioner = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	path    string
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		path:    dbPath,
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Name identifies the repository in logs and readiness output.
func (r *SQLiteRepository) Name() string {
	return "sqlite:" + r.path
}

// ImportCSV bulk-loads a headered statement CSV inside one transaction and
// returns the number of inserted rows. Columns are matched by normalized
// header name; empty cells are stored as NULL. With replace set, existing
// rows are deleted first. Any bad row rolls the whole import back.
func (r *SQLiteRepository) ImportCSV(ctx context.Context, src io.Reader, replace bool) (int, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("%w: read csv: %v", core.ErrMalformedStatement, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: no header row", core.ErrMalformedStatement)
	}

	params, err := importParams(rows)
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if replace {
		if err := q.DeleteAllStatements(ctx); err != nil {
			return 0, fmt.Errorf("clear statements: %w", err)
		}
	}
	for _, p := range params {
		if err := q.InsertStatement(ctx, p); err != nil {
			return 0, fmt.Errorf("insert statement: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Statement imported into SQLite",
		"rows", len(params),
		"replace", replace,
		"db", r.path)

	return len(params), nil
}

func importParams(rows [][]string) ([]InsertStatementParams, error) {
	header := rows[0]
	status := statement.ColumnIndex(header, statement.ColumnStatus)
	amount := statement.ColumnIndex(header, statement.ColumnAmount)
	activity := statement.ColumnIndex(header, statement.ColumnBankActivityStatus)
	description := statement.ColumnIndex(header, statement.ColumnExpenseDescription)

	out := make([]InsertStatementParams, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		if blankRow(row) {
			continue
		}

		rawDate := strings.TrimSpace(statement.Cell(row, 0))
		if _, err := core.NormalizeDate(rawDate); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		date, err := strconv.ParseInt(rawDate, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %q", line, core.ErrInvalidDateFormat, rawDate)
		}

		p := InsertStatementParams{
			Date:               sql.NullInt64{Int64: date, Valid: true},
			Status:             nullString(statement.Cell(row, status)),
			BankActivityStatus: nullString(statement.Cell(row, activity)),
			ExpenseDescription: nullString(statement.Cell(row, description)),
		}
		if s := strings.TrimSpace(statement.Cell(row, amount)); s != "" {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w: %q", line, core.ErrInvalidAmount, s)
			}
			p.Amount = sql.NullFloat64{Float64: d.InexactFloat64(), Valid: true}
		}
		out = append(out, p)
	}
	return out, nil
}

// StatementRow is the JSON view of a stored row; NULL columns encode as null.
type StatementRow struct {
	ID                 int64    `json:"id"`
	Date               *int64   `json:"date"`
	Status             *string  `json:"status"`
	Amount             *float64 `json:"amount"`
	BankActivityStatus *string  `json:"bank_activity_status"`
	ExpenseDescription *string  `json:"expense_description"`
}

func (r *SQLiteRepository) ListStatements(ctx context.Context) ([]StatementRow, error) {
	items, err := r.queries.ListStatements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list statements: %w", err)
	}
	out := make([]StatementRow, 0, len(items))
	for _, s := range items {
		row := StatementRow{ID: s.ID}
		if s.Date.Valid {
			row.Date = &s.Date.Int64
		}
		if s.Status.Valid {
			row.Status = &s.Status.String
		}
		if s.Amount.Valid {
			row.Amount = &s.Amount.Float64
		}
		if s.BankActivityStatus.Valid {
			row.BankActivityStatus = &s.BankActivityStatus.String
		}
		if s.ExpenseDescription.Valid {
			row.ExpenseDescription = &s.ExpenseDescription.String
		}
		out = append(out, row)
	}
	return out, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountStatements(ctx)
	if err != nil {
		return 0, fmt.Errorf("count statements: %w", err)
	}
	return n, nil
}

// Version identifies the current contents of the statements table. It
// changes whenever an import commits.
func (r *SQLiteRepository) Version(ctx context.Context) (string, error) {
	seq, count, err := r.queries.StatementsVersion(ctx)
	if err != nil {
		return "", fmt.Errorf("statements version: %w", err)
	}
	return fmt.Sprintf("%d.%d", seq, count), nil
}

// Load returns the stored statement as records, in insertion order. An empty
// table is reported as a missing data source.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Record, error) {
	items, err := r.queries.ListStatements(ctx)
	if err != nil {
		return nil, fmt.Errorf("load statements: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: statements table is empty", core.ErrMissingDataSource)
	}

	rows := make([][]string, 0, len(items)+1)
	rows = append(rows, statement.Header)
	for _, s := range items {
		rows = append(rows, []string{
			cellOf(s.Date.Valid, s.Date.Int64),
			cellOf(s.Status.Valid, s.Status.String),
			cellOf(s.Amount.Valid, s.Amount.Float64),
			cellOf(s.BankActivityStatus.Valid, s.BankActivityStatus.String),
			cellOf(s.ExpenseDescription.Valid, s.ExpenseDescription.String),
		})
	}
	return statement.FromRows(rows)
}

func cellOf(valid bool, v any) string {
	if !valid {
		return ""
	}
	return statement.CellString(v)
}

func nullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
