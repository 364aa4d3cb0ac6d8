// Package services holds the business logic on top of the storage port:
// expense orchestration, recurrence flattening, scoped deletion and undo.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"easybudget/internal/amqp"
	"easybudget/internal/core"
	"easybudget/internal/storage"
)

// BudgetService orchestrates expense operations over the store (usually the
// day cache decorating the SQLite repository) and publishes change events
// for the backup worker. A nil events client disables publishing.
type BudgetService struct {
	store  storage.Store
	events *amqp.Client
}

func NewBudgetService(store storage.Store, events *amqp.Client) *BudgetService {
	return &BudgetService{store: store, events: events}
}

// CreateExpense validates and persists a new expense.
func (s *BudgetService) CreateExpense(ctx context.Context, e *core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate expense: %w", err)
	}
	e.ID = 0
	if err := s.store.PersistExpense(ctx, e, false); err != nil {
		return fmt.Errorf("persist expense: %w", err)
	}
	s.publish(ctx, amqp.NewExpenseChange(amqp.OpExpenseCreated, e.ID))
	return nil
}

// UpdateExpense updates an existing expense in place.
func (s *BudgetService) UpdateExpense(ctx context.Context, e *core.Expense) error {
	if e.ID == 0 {
		return fmt.Errorf("update expense: %w", storage.ErrNotFound)
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validate expense: %w", err)
	}
	if err := s.store.PersistExpense(ctx, e, false); err != nil {
		return fmt.Errorf("persist expense: %w", err)
	}
	s.publish(ctx, amqp.NewExpenseChange(amqp.OpExpenseUpdated, e.ID))
	return nil
}

// DeleteExpense removes a single expense by ID.
func (s *BudgetService) DeleteExpense(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.publish(ctx, amqp.NewExpenseChange(amqp.OpExpenseDeleted, id))
	return nil
}

func (s *BudgetService) GetExpensesForDay(ctx context.Context, day core.Day) ([]core.Expense, error) {
	return s.store.GetExpensesForDay(ctx, day)
}

func (s *BudgetService) GetExpensesForMonth(ctx context.Context, firstDay core.Day) ([]core.Expense, error) {
	return s.store.GetExpensesForMonth(ctx, firstDay)
}

func (s *BudgetService) GetBalanceForDay(ctx context.Context, day core.Day) (core.Money, error) {
	return s.store.GetBalanceForDay(ctx, day)
}

func (s *BudgetService) GetMonthSummary(ctx context.Context, firstDay core.Day) (core.MonthSummary, error) {
	return s.store.GetMonthSummary(ctx, firstDay)
}

func (s *BudgetService) FindRecurringExpenseForID(ctx context.Context, id int64) (*core.RecurringExpense, error) {
	return s.store.FindRecurringExpenseForID(ctx, id)
}

// publish sends a change event; publish failures are logged, never surfaced,
// because the local write already succeeded.
func (s *BudgetService) publish(ctx context.Context, msg *amqp.ChangeMessage) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"op", msg.Op,
			"expense_id", msg.ExpenseID,
			"recurring_id", msg.RecurringID,
			"error", err)
	}
}
