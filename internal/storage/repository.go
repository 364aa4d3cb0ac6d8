package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"easybudget/internal/core"

	_ "modernc.org/sqlite"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so every query method can
// run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
}

var _ Store = (*SQLiteRepository)(nil)

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

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithTx runs fn against a transaction-bound copy of the repository. A
// repository that is already transaction-bound reuses its transaction, so a
// service can compose helpers that each call WithTx.
func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&SQLiteRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PersistExpense(ctx context.Context, e *core.Expense, forceInsert bool) error {
	if e.ID != 0 && !forceInsert {
		res, err := r.q.ExecContext(ctx,
			`UPDATE expense SET title = ?, amount = ?, date = ?, monthly_id = ? WHERE id = ?`,
			e.Title, e.Amount.Cents, e.Day.Key(), recurringIDValue(e.RecurringID), e.ID)
		if err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update expense rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("update expense %d: %w", e.ID, ErrNotFound)
		}
		return nil
	}

	var (
		res sql.Result
		err error
	)
	if forceInsert && e.ID != 0 {
		// Restore path: reinsert a previously deleted row under its old ID.
		res, err = r.q.ExecContext(ctx,
			`INSERT INTO expense (id, title, amount, date, monthly_id) VALUES (?, ?, ?, ?, ?)`,
			e.ID, e.Title, e.Amount.Cents, e.Day.Key(), recurringIDValue(e.RecurringID))
	} else {
		res, err = r.q.ExecContext(ctx,
			`INSERT INTO expense (title, amount, date, monthly_id) VALUES (?, ?, ?, ?)`,
			e.Title, e.Amount.Cents, e.Day.Key(), recurringIDValue(e.RecurringID))
	}
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert expense id: %w", err)
	}
	e.ID = id

	slog.DebugContext(ctx, "Expense saved",
		"id", e.ID,
		"title", e.Title,
		"amount_cents", e.Amount.Cents,
		"day", e.Day.String())
	return nil
}

func (r *SQLiteRepository) GetExpensesForDay(ctx context.Context, day core.Day) ([]core.Expense, error) {
	start, end := day.Range()
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, title, amount, date, monthly_id FROM expense WHERE date >= ? AND date <= ? ORDER BY date ASC, id ASC`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("query expenses for day: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

func (r *SQLiteRepository) GetExpensesForMonth(ctx context.Context, firstDay core.Day) ([]core.Expense, error) {
	first := firstDay.FirstOfMonth()
	start, _ := first.Range()
	nextStart, _ := first.AddMonths(1).Range()

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, title, amount, date, monthly_id FROM expense WHERE date >= ? AND date < ? ORDER BY date ASC, id ASC`,
		start, nextStart)
	if err != nil {
		return nil, fmt.Errorf("query expenses for month: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

func (r *SQLiteRepository) GetBalanceForDay(ctx context.Context, day core.Day) (core.Money, error) {
	_, end := day.Range()

	var cents int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expense WHERE date <= ?`, end).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum balance for day: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *SQLiteRepository) GetMonthSummary(ctx context.Context, firstDay core.Day) (core.MonthSummary, error) {
	first := firstDay.FirstOfMonth()
	start, _ := first.Range()
	nextStart, _ := first.AddMonths(1).Range()

	summary := core.MonthSummary{Month: first}
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*) FROM expense WHERE date >= ? AND date < ?`,
		start, nextStart).Scan(&summary.Total.Cents, &summary.Count)
	if err != nil {
		return core.MonthSummary{}, fmt.Errorf("summarize month: %w", err)
	}
	return summary, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (*core.Expense, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, title, amount, date, monthly_id FROM expense WHERE id = ?`, id)

	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM expense WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete expense %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) AddRecurringExpense(ctx context.Context, re *core.RecurringExpense) error {
	var (
		res sql.Result
		err error
	)
	if re.ID != 0 {
		// Restore path, same as PersistExpense with forceInsert.
		res, err = r.q.ExecContext(ctx,
			`INSERT INTO monthly_expense (id, title, amount, recurring_date, modified, type) VALUES (?, ?, ?, ?, ?, ?)`,
			re.ID, re.Title, re.Amount.Cents, re.AnchorDay.Key(), boolToInt(re.Modified), string(re.Type))
	} else {
		res, err = r.q.ExecContext(ctx,
			`INSERT INTO monthly_expense (title, amount, recurring_date, modified, type) VALUES (?, ?, ?, ?, ?)`,
			re.Title, re.Amount.Cents, re.AnchorDay.Key(), boolToInt(re.Modified), string(re.Type))
	}
	if err != nil {
		return fmt.Errorf("insert recurring expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert recurring expense id: %w", err)
	}
	re.ID = id

	slog.DebugContext(ctx, "Recurring expense saved",
		"id", re.ID,
		"title", re.Title,
		"type", string(re.Type),
		"anchor", re.AnchorDay.String())
	return nil
}

func (r *SQLiteRepository) DeleteRecurringExpense(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM monthly_expense WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recurring expense rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete recurring expense %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) FindRecurringExpenseForID(ctx context.Context, id int64) (*core.RecurringExpense, error) {
	var (
		re       core.RecurringExpense
		anchorMs int64
		modified int64
		typ      string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, title, amount, recurring_date, modified, type FROM monthly_expense WHERE id = ?`, id).
		Scan(&re.ID, &re.Title, &re.Amount.Cents, &anchorMs, &modified, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurring expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get recurring expense: %w", err)
	}

	re.AnchorDay = core.DayFromUnixMilli(anchorMs)
	re.Modified = modified != 0
	re.Type = core.RecurrenceType(typ)
	return &re, nil
}

func (r *SQLiteRepository) GetAllExpensesForRecurring(ctx context.Context, recurringID int64) ([]core.Expense, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, title, amount, date, monthly_id FROM expense WHERE monthly_id = ? ORDER BY date ASC, id ASC`,
		recurringID)
	if err != nil {
		return nil, fmt.Errorf("query expenses for recurring: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

func (r *SQLiteRepository) DeleteAllExpensesForRecurring(ctx context.Context, recurringID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM expense WHERE monthly_id = ?`, recurringID)
	if err != nil {
		return 0, fmt.Errorf("delete expenses for recurring: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expenses for recurring rows affected: %w", err)
	}
	return affected, nil
}

// DeleteExpensesForRecurringBeforeDay removes occurrences strictly before the
// day's range.
func (r *SQLiteRepository) DeleteExpensesForRecurringBeforeDay(ctx context.Context, recurringID int64, day core.Day) (int64, error) {
	start, _ := day.Range()
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM expense WHERE monthly_id = ? AND date < ?`, recurringID, start)
	if err != nil {
		return 0, fmt.Errorf("delete expenses before day: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expenses before day rows affected: %w", err)
	}
	return affected, nil
}

// DeleteExpensesForRecurringFromDay removes the day's occurrence and every
// later one.
func (r *SQLiteRepository) DeleteExpensesForRecurringFromDay(ctx context.Context, recurringID int64, day core.Day) (int64, error) {
	start, _ := day.Range()
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM expense WHERE monthly_id = ? AND date >= ?`, recurringID, start)
	if err != nil {
		return 0, fmt.Errorf("delete expenses from day: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expenses from day rows affected: %w", err)
	}
	return affected, nil
}

func (r *SQLiteRepository) HasExpensesForRecurringBeforeDay(ctx context.Context, recurringID int64, day core.Day) (bool, error) {
	start, _ := day.Range()
	var n int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expense WHERE monthly_id = ? AND date < ?`, recurringID, start).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count expenses before day: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*core.Expense, error) {
	var (
		e         core.Expense
		dateMs    int64
		recurring sql.NullInt64
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Amount.Cents, &dateMs, &recurring); err != nil {
		return nil, err
	}
	e.Day = core.DayFromUnixMilli(dateMs)
	if recurring.Valid {
		id := recurring.Int64
		e.RecurringID = &id
	}
	return &e, nil
}

func scanExpenses(rows *sql.Rows) ([]core.Expense, error) {
	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}
		expenses = append(expenses, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense rows: %w", err)
	}
	return expenses, nil
}

func recurringIDValue(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
