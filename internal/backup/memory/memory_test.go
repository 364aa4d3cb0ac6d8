package memory

import (
	"context"
	"testing"

	"easybudget/internal/core"
)

func sample(id int64) core.Expense {
	return core.Expense{
		ID:     id,
		Title:  "groceries",
		Amount: core.Money{Cents: 1250},
		Day:    core.NewDay(2026, 3, 14),
	}
}

func TestAppendAndRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.AppendExpense(ctx, sample(1))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref == "" {
		t.Fatal("expected a row reference")
	}
	if _, err := s.AppendExpense(ctx, sample(2)); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.RemoveExpense(ctx, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got := s.Expenses()
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("expected only expense 2 to remain, got %+v", got)
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	s := New()
	if err := s.RemoveExpense(context.Background(), 99); err != nil {
		t.Fatalf("remove of unknown id should not fail: %v", err)
	}
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := New()
	e := sample(1)
	e.Amount = core.Money{}
	if _, err := s.AppendExpense(context.Background(), e); err == nil {
		t.Fatal("expected validation error for zero amount")
	}
	if len(s.Expenses()) != 0 {
		t.Fatal("invalid expense must not be stored")
	}
}
