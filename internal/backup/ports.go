package backup

import (
	"context"

	"easybudget/internal/core"
)

// Ports for outbound backup adapters.
type (
	RowAppender interface {
		AppendExpense(ctx context.Context, e core.Expense) (rowRef string, err error)
	}

	RowRemover interface {
		// RemoveExpense removes the backup row previously written for the
		// given expense ID. Removing an ID that was never backed up is not
		// an error.
		RemoveExpense(ctx context.Context, expenseID int64) error
	}

	// Backend is the full backup surface the worker drives.
	Backend interface {
		RowAppender
		RowRemover
	}
)
