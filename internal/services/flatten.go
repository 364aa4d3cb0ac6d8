package services

import (
	"context"
	"fmt"

	"easybudget/internal/amqp"
	"easybudget/internal/core"
	"easybudget/internal/storage"
)

// Occurrence caps per recurrence type. Day and month queries only understand
// individual dated rows, so a template is expanded eagerly up to a bounded
// horizon at creation time.
const (
	weeklyOccurrenceCap  = 12 * 4 * 5 // 5 years of weeks
	monthlyOccurrenceCap = 12 * 10    // 10 years of months
	yearlyOccurrenceCap  = 100        // 100 years
)

// RestoreAction snapshots what a scoped deletion removed so it can be
// undone. Template is set when the template row itself was removed: the all
// scope, or a from scope that left no earlier occurrences.
type RestoreAction struct {
	Scope    core.DeleteScope
	Template *core.RecurringExpense
	Expenses []core.Expense
}

func occurrenceCap(t core.RecurrenceType) int {
	switch t {
	case core.Weekly, core.BiWeekly:
		return weeklyOccurrenceCap
	case core.Yearly:
		return yearlyOccurrenceCap
	default:
		return monthlyOccurrenceCap
	}
}

// nthOccurrence computes occurrence n (zero-based) from the anchor. Each
// occurrence is derived from the anchor rather than the previous occurrence
// so month-length normalization cannot accumulate drift.
func nthOccurrence(re *core.RecurringExpense, n int) core.Day {
	switch re.Type {
	case core.Weekly:
		return re.AnchorDay.AddDays(7 * n)
	case core.BiWeekly:
		return re.AnchorDay.AddDays(14 * n)
	case core.Yearly:
		return re.AnchorDay.AddYears(n)
	default:
		return re.AnchorDay.AddMonths(n)
	}
}

// CreateRecurringExpense stores the template and flattens it into concrete
// expense rows, one per occurrence from the anchor day up to the type's cap
// or the optional end day. The whole batch runs in one transaction, so a
// failing insert leaves no partial expansion behind.
func (s *BudgetService) CreateRecurringExpense(ctx context.Context, re *core.RecurringExpense, until *core.Day) (int, error) {
	if err := re.Validate(); err != nil {
		return 0, fmt.Errorf("validate recurring expense: %w", err)
	}
	if until != nil && until.Before(re.AnchorDay) {
		return 0, core.ErrEndBeforeAnchor
	}

	created := 0
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		re.ID = 0
		if err := tx.AddRecurringExpense(ctx, re); err != nil {
			return fmt.Errorf("add recurring expense: %w", err)
		}

		for n := 0; n < occurrenceCap(re.Type); n++ {
			day := nthOccurrence(re, n)
			if until != nil && day.After(*until) {
				break
			}
			e := &core.Expense{
				Title:       re.Title,
				Amount:      re.Amount,
				Day:         day,
				RecurringID: &re.ID,
			}
			if err := tx.PersistExpense(ctx, e, false); err != nil {
				return fmt.Errorf("persist occurrence %d (%s): %w", n, day, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, amqp.NewRecurringChange(amqp.OpRecurringCreated, re.ID))
	return created, nil
}

// DeleteRecurring removes occurrences of the template that generated the
// given expense, according to scope:
//
//	one:  only that occurrence
//	from: that occurrence and all later ones; if no earlier occurrence
//	      remains, the template goes too
//	to:   all occurrences up to and including it
//	all:  every occurrence and the template row itself
//
// The returned RestoreAction carries the removed rows for undo.
func (s *BudgetService) DeleteRecurring(ctx context.Context, expenseID int64, scope core.DeleteScope) (*RestoreAction, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	occurrence, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("get occurrence: %w", err)
	}
	if occurrence.RecurringID == nil {
		return nil, fmt.Errorf("expense %d has no recurring template: %w", expenseID, storage.ErrNotFound)
	}
	recurringID := *occurrence.RecurringID

	action := &RestoreAction{Scope: scope}
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		switch scope {
		case core.DeleteOne:
			action.Expenses = []core.Expense{*occurrence}
			if err := tx.DeleteExpense(ctx, occurrence.ID); err != nil {
				return fmt.Errorf("delete occurrence: %w", err)
			}

		case core.DeleteFrom:
			all, err := tx.GetAllExpensesForRecurring(ctx, recurringID)
			if err != nil {
				return fmt.Errorf("snapshot occurrences: %w", err)
			}
			for _, e := range all {
				if !e.Day.Before(occurrence.Day) {
					action.Expenses = append(action.Expenses, e)
				}
			}
			if _, err := tx.DeleteExpensesForRecurringFromDay(ctx, recurringID, occurrence.Day); err != nil {
				return fmt.Errorf("delete from day: %w", err)
			}
			// A from-delete starting at the earliest occurrence empties the
			// template; removing it keeps it out of future lookups.
			remains, err := tx.HasExpensesForRecurringBeforeDay(ctx, recurringID, occurrence.Day)
			if err != nil {
				return fmt.Errorf("check earlier occurrences: %w", err)
			}
			if !remains {
				template, err := tx.FindRecurringExpenseForID(ctx, recurringID)
				if err != nil {
					return fmt.Errorf("get template: %w", err)
				}
				action.Template = template
				if err := tx.DeleteRecurringExpense(ctx, recurringID); err != nil {
					return fmt.Errorf("delete template: %w", err)
				}
			}

		case core.DeleteTo:
			all, err := tx.GetAllExpensesForRecurring(ctx, recurringID)
			if err != nil {
				return fmt.Errorf("snapshot occurrences: %w", err)
			}
			for _, e := range all {
				if !e.Day.After(occurrence.Day) {
					action.Expenses = append(action.Expenses, e)
				}
			}
			// "Up to and including" is "strictly before the next day".
			if _, err := tx.DeleteExpensesForRecurringBeforeDay(ctx, recurringID, occurrence.Day.AddDays(1)); err != nil {
				return fmt.Errorf("delete to day: %w", err)
			}

		case core.DeleteAll:
			template, err := tx.FindRecurringExpenseForID(ctx, recurringID)
			if err != nil {
				return fmt.Errorf("get template: %w", err)
			}
			all, err := tx.GetAllExpensesForRecurring(ctx, recurringID)
			if err != nil {
				return fmt.Errorf("snapshot occurrences: %w", err)
			}
			action.Template = template
			action.Expenses = all
			if _, err := tx.DeleteAllExpensesForRecurring(ctx, recurringID); err != nil {
				return fmt.Errorf("delete occurrences: %w", err)
			}
			if err := tx.DeleteRecurringExpense(ctx, recurringID); err != nil {
				return fmt.Errorf("delete template: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, amqp.NewRecurringChange(amqp.OpRecurringDeleted, recurringID))
	// Workers cannot recover deleted rows from the database, so each removed
	// occurrence gets its own delete event.
	for _, e := range action.Expenses {
		s.publish(ctx, amqp.NewExpenseChange(amqp.OpExpenseDeleted, e.ID))
	}
	return action, nil
}

// Restore undoes a scoped deletion by reinserting the snapshot under the
// original IDs, in one transaction.
func (s *BudgetService) Restore(ctx context.Context, action *RestoreAction) error {
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if action.Template != nil {
			if err := tx.AddRecurringExpense(ctx, action.Template); err != nil {
				return fmt.Errorf("restore template: %w", err)
			}
		}
		for i := range action.Expenses {
			e := action.Expenses[i]
			if err := tx.PersistExpense(ctx, &e, true); err != nil {
				return fmt.Errorf("restore occurrence %d: %w", e.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if action.Template != nil {
		// The recurring-level event makes the worker resync every occurrence.
		s.publish(ctx, amqp.NewRecurringChange(amqp.OpRecurringCreated, action.Template.ID))
		return nil
	}
	for _, e := range action.Expenses {
		s.publish(ctx, amqp.NewExpenseChange(amqp.OpExpenseCreated, e.ID))
	}
	return nil
}
