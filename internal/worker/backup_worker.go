package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"easybudget/internal/amqp"
	"easybudget/internal/backup"
	"easybudget/internal/storage"
)

// BackupWorker mirrors expense rows into an external backup (Google Sheets
// in production). It consumes change events and re-reads current row state
// from storage, so events only need to carry IDs.
type BackupWorker struct {
	store   storage.Store
	backend backup.Backend
}

func NewBackupWorker(store storage.Store, backend backup.Backend) *BackupWorker {
	return &BackupWorker{store: store, backend: backend}
}

// HandleChange processes one change event. Returning an error requeues the
// message, so only transient failures should be surfaced; rows that no
// longer exist are dropped silently.
func (w *BackupWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.InfoContext(ctx, "Processing change event",
		"op", msg.Op,
		"expense_id", msg.ExpenseID,
		"recurring_id", msg.RecurringID)

	switch msg.Op {
	case amqp.OpExpenseCreated, amqp.OpExpenseUpdated:
		return w.resyncExpense(ctx, msg.ExpenseID)

	case amqp.OpExpenseDeleted:
		if err := w.backend.RemoveExpense(ctx, msg.ExpenseID); err != nil {
			return fmt.Errorf("remove backup row %d: %w", msg.ExpenseID, err)
		}
		return nil

	case amqp.OpRecurringCreated:
		return w.resyncRecurring(ctx, msg.RecurringID)

	case amqp.OpRecurringDeleted:
		// Row removals arrive as per-expense delete events alongside this one.
		slog.InfoContext(ctx, "Recurring template deleted", "recurring_id", msg.RecurringID)
		return nil

	default:
		slog.WarnContext(ctx, "Unknown change operation, dropping", "op", msg.Op)
		return nil
	}
}

// resyncExpense replaces the backup row for one expense with its current
// database state. Remove-then-append keeps the handler idempotent under
// redelivery.
func (w *BackupWorker) resyncExpense(ctx context.Context, expenseID int64) error {
	e, err := w.store.GetExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Expense vanished before backup, dropping",
				"expense_id", expenseID)
			return nil
		}
		return fmt.Errorf("get expense %d: %w", expenseID, err)
	}

	if err := w.backend.RemoveExpense(ctx, expenseID); err != nil {
		return fmt.Errorf("remove stale backup row %d: %w", expenseID, err)
	}
	ref, err := w.backend.AppendExpense(ctx, *e)
	if err != nil {
		return fmt.Errorf("append backup row %d: %w", expenseID, err)
	}

	slog.InfoContext(ctx, "Backed up expense",
		"expense_id", expenseID,
		"backup_ref", ref,
		"amount_cents", e.Amount.Cents)
	return nil
}

// resyncRecurring re-mirrors every occurrence of a recurring template.
func (w *BackupWorker) resyncRecurring(ctx context.Context, recurringID int64) error {
	occurrences, err := w.store.GetAllExpensesForRecurring(ctx, recurringID)
	if err != nil {
		return fmt.Errorf("get occurrences for recurring %d: %w", recurringID, err)
	}
	if len(occurrences) == 0 {
		slog.WarnContext(ctx, "Recurring template has no occurrences to back up",
			"recurring_id", recurringID)
		return nil
	}

	synced := 0
	for _, e := range occurrences {
		if err := w.backend.RemoveExpense(ctx, e.ID); err != nil {
			return fmt.Errorf("remove stale backup row %d: %w", e.ID, err)
		}
		if _, err := w.backend.AppendExpense(ctx, e); err != nil {
			return fmt.Errorf("append backup row %d: %w", e.ID, err)
		}
		synced++
	}

	slog.InfoContext(ctx, "Backed up recurring occurrences",
		"recurring_id", recurringID,
		"count", synced)
	return nil
}
