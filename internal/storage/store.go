package storage

import (
	"context"
	"errors"

	"easybudget/internal/core"
)

// ErrNotFound is returned when a lookup matches no row, or when an update or
// delete affects zero rows.
var ErrNotFound = errors.New("not found")

// Store is the persistence port for expenses and recurring-expense
// templates. The SQLite repository implements it; the day cache decorates it.
type Store interface {
	// PersistExpense updates the row matching e.ID when the ID is set and
	// forceInsert is false, otherwise inserts a new row and writes the
	// assigned ID back onto e.
	PersistExpense(ctx context.Context, e *core.Expense, forceInsert bool) error

	// GetExpensesForDay returns the expenses whose timestamp falls in the
	// day's range, date ascending.
	GetExpensesForDay(ctx context.Context, day core.Day) ([]core.Expense, error)

	// GetExpensesForMonth returns every expense of the month starting at
	// firstDay, date ascending.
	GetExpensesForMonth(ctx context.Context, firstDay core.Day) ([]core.Expense, error)

	// GetBalanceForDay returns the running balance as of end-of-day: the sum
	// of every expense dated on or before the day, not an isolated day total.
	GetBalanceForDay(ctx context.Context, day core.Day) (core.Money, error)

	// GetMonthSummary aggregates total and count for the month starting at
	// firstDay.
	GetMonthSummary(ctx context.Context, firstDay core.Day) (core.MonthSummary, error)

	GetExpense(ctx context.Context, id int64) (*core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error

	AddRecurringExpense(ctx context.Context, re *core.RecurringExpense) error
	DeleteRecurringExpense(ctx context.Context, id int64) error
	FindRecurringExpenseForID(ctx context.Context, id int64) (*core.RecurringExpense, error)

	// GetAllExpensesForRecurring returns every generated occurrence of a
	// template, date ascending. Used to snapshot rows before a bulk delete so
	// the deletion can be undone.
	GetAllExpensesForRecurring(ctx context.Context, recurringID int64) ([]core.Expense, error)
	DeleteAllExpensesForRecurring(ctx context.Context, recurringID int64) (int64, error)
	DeleteExpensesForRecurringBeforeDay(ctx context.Context, recurringID int64, day core.Day) (int64, error)
	DeleteExpensesForRecurringFromDay(ctx context.Context, recurringID int64, day core.Day) (int64, error)
	HasExpensesForRecurringBeforeDay(ctx context.Context, recurringID int64, day core.Day) (bool, error)

	// WithTx runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// Multi-row logical operations (recurrence flattening, bulk
	// delete/restore) must run inside WithTx so partial failure cannot leave
	// storage half-written.
	WithTx(ctx context.Context, fn func(Store) error) error
}
