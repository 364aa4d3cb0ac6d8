// Package memory provides an in-process backup backend, used in tests and
// when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"easybudget/internal/backup"
	"easybudget/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

var _ backup.Backend = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendExpense stores the expense and returns a synthetic row reference.
func (s *Store) AppendExpense(_ context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// RemoveExpense drops the stored row for the given expense ID, if any.
func (s *Store) RemoveExpense(_ context.Context, expenseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.items {
		if e.ID == expenseID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// Expenses returns a copy of the stored rows.
func (s *Store) Expenses() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...)
}
