package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Statement mirrors a row of the statements table. Every data column is
// nullable: bulk imports store empty cells as NULL.
type Statement struct {
	ID                 int64
	Date               sql.NullInt64
	Status             sql.NullString
	Amount             sql.NullFloat64
	BankActivityStatus sql.NullString
	ExpenseDescription sql.NullString
}

type InsertStatementParams struct {
	Date               sql.NullInt64
	Status             sql.NullString
	Amount             sql.NullFloat64
	BankActivityStatus sql.NullString
	ExpenseDescription sql.NullString
}

const insertStatement = `
INSERT INTO statements (date, status, amount, bank_activity_status, expense_description)
VALUES (?, ?, ?, ?, ?)
`

func (q *Queries) InsertStatement(ctx context.Context, arg InsertStatementParams) error {
	_, err := q.db.ExecContext(ctx, insertStatement,
		arg.Date,
		arg.Status,
		arg.Amount,
		arg.BankActivityStatus,
		arg.ExpenseDescription,
	)
	return err
}

const listStatements = `
SELECT id, date, status, amount, bank_activity_status, expense_description
FROM statements
ORDER BY id
`

func (q *Queries) ListStatements(ctx context.Context) ([]Statement, error) {
	rows, err := q.db.QueryContext(ctx, listStatements)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Statement
	for rows.Next() {
		var i Statement
		if err := rows.Scan(
			&i.ID,
			&i.Date,
			&i.Status,
			&i.Amount,
			&i.BankActivityStatus,
			&i.ExpenseDescription,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countStatements = `SELECT COUNT(*) FROM statements`

func (q *Queries) CountStatements(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countStatements)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deleteAllStatements = `DELETE FROM statements`

func (q *Queries) DeleteAllStatements(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllStatements)
	return err
}

const statementsVersion = `
SELECT
    COALESCE((SELECT seq FROM sqlite_sequence WHERE name = 'statements'), 0),
    (SELECT COUNT(*) FROM statements)
`

// StatementsVersion returns the AUTOINCREMENT high-water mark and the row
// count. The sequence never moves backwards, even when the table is cleared,
// so any import that inserts rows or empties the table changes the pair.
func (q *Queries) StatementsVersion(ctx context.Context) (int64, int64, error) {
	row := q.db.QueryRowContext(ctx, statementsVersion)
	var seq, count int64
	err := row.Scan(&seq, &count)
	return seq, count, err
}
