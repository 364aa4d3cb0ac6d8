package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"easybudget/internal/core"
	"easybudget/internal/storage"
)

func newTestService(t *testing.T) (*BudgetService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "easybudget.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return NewBudgetService(repo, nil), repo
}

func TestFlattenMonthlyProduces120Occurrences(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	re := &core.RecurringExpense{
		Title:     "subscription",
		Amount:    core.Money{Cents: 500},
		AnchorDay: core.NewDay(2024, 1, 1),
		Type:      core.Monthly,
	}
	created, err := svc.CreateRecurringExpense(ctx, re, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created != 120 {
		t.Fatalf("created %d occurrences, want 120", created)
	}

	rows, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(rows) != 120 {
		t.Fatalf("stored %d rows, want 120", len(rows))
	}
	for i, row := range rows {
		want := core.NewDay(2024, 1+i, 1)
		if !row.Day.Equal(want) {
			t.Fatalf("occurrence %d dated %v, want %v", i, row.Day, want)
		}
		if row.Amount.Cents != 500 {
			t.Fatalf("occurrence %d amount %d, want 500", i, row.Amount.Cents)
		}
		if row.RecurringID == nil || *row.RecurringID != re.ID {
			t.Fatalf("occurrence %d missing template back-reference", i)
		}
	}
	if last := rows[119].Day; !last.Equal(core.NewDay(2033, 12, 1)) {
		t.Fatalf("last occurrence %v, want 2033-12-01", last)
	}
}

func TestFlattenWeeklyProduces240OccurrencesSevenDaysApart(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	re := &core.RecurringExpense{
		Title:     "cleaning",
		Amount:    core.Money{Cents: 2500},
		AnchorDay: core.NewDay(2024, 1, 1),
		Type:      core.Weekly,
	}
	created, err := svc.CreateRecurringExpense(ctx, re, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created != 240 {
		t.Fatalf("created %d occurrences, want 240", created)
	}

	rows, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i].Day.Equal(rows[i-1].Day.AddDays(7)) {
			t.Fatalf("occurrences %d and %d are not 7 days apart: %v, %v",
				i-1, i, rows[i-1].Day, rows[i].Day)
		}
	}
}

func TestFlattenMonthEndAnchorKeepsOnePerMonth(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	until := core.NewDay(2024, 4, 30)
	re := &core.RecurringExpense{
		Title:     "rent",
		Amount:    core.Money{Cents: 120000},
		AnchorDay: core.NewDay(2024, 1, 31),
		Type:      core.Monthly,
	}
	created, err := svc.CreateRecurringExpense(ctx, re, &until)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created != 4 {
		t.Fatalf("created %d occurrences, want 4", created)
	}

	rows, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	wantDays := []core.Day{
		core.NewDay(2024, 1, 31),
		core.NewDay(2024, 2, 29),
		core.NewDay(2024, 3, 31),
		core.NewDay(2024, 4, 30),
	}
	if len(rows) != len(wantDays) {
		t.Fatalf("stored %d rows, want %d", len(rows), len(wantDays))
	}
	for i, row := range rows {
		if !row.Day.Equal(wantDays[i]) {
			t.Fatalf("occurrence %d dated %v, want %v", i, row.Day, wantDays[i])
		}
	}

	february, err := repo.GetExpensesForMonth(ctx, core.NewDay(2024, 2, 1))
	if err != nil {
		t.Fatalf("get february: %v", err)
	}
	if len(february) != 1 {
		t.Fatalf("february has %d occurrences, want 1", len(february))
	}
	march, err := repo.GetExpensesForMonth(ctx, core.NewDay(2024, 3, 1))
	if err != nil {
		t.Fatalf("get march: %v", err)
	}
	if len(march) != 1 {
		t.Fatalf("march has %d occurrences, want 1", len(march))
	}
}

func TestFlattenYearlyLeapDayAnchorClampsToFeb28(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	until := core.NewDay(2026, 12, 31)
	re := &core.RecurringExpense{
		Title:     "insurance",
		Amount:    core.Money{Cents: 30000},
		AnchorDay: core.NewDay(2024, 2, 29),
		Type:      core.Yearly,
	}
	created, err := svc.CreateRecurringExpense(ctx, re, &until)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created != 3 {
		t.Fatalf("created %d occurrences, want 3", created)
	}

	rows, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	wantDays := []core.Day{
		core.NewDay(2024, 2, 29),
		core.NewDay(2025, 2, 28),
		core.NewDay(2026, 2, 28),
	}
	for i, row := range rows {
		if !row.Day.Equal(wantDays[i]) {
			t.Fatalf("occurrence %d dated %v, want %v", i, row.Day, wantDays[i])
		}
	}
}

func TestFlattenRespectsEndDay(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	until := core.NewDay(2024, 1, 31)
	re := &core.RecurringExpense{
		Title:     "yoga",
		Amount:    core.Money{Cents: 1500},
		AnchorDay: core.NewDay(2024, 1, 1),
		Type:      core.Weekly,
	}
	created, err := svc.CreateRecurringExpense(ctx, re, &until)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Jan 1, 8, 15, 22, 29.
	if created != 5 {
		t.Fatalf("created %d occurrences, want 5", created)
	}

	rows, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(rows) != 5 || rows[4].Day.After(until) {
		t.Fatalf("occurrences past end day: %+v", rows)
	}
}

func TestFlattenRejectsEndBeforeAnchor(t *testing.T) {
	svc, _ := newTestService(t)

	until := core.NewDay(2023, 12, 31)
	re := &core.RecurringExpense{
		Title:     "x",
		Amount:    core.Money{Cents: 100},
		AnchorDay: core.NewDay(2024, 1, 1),
		Type:      core.Monthly,
	}
	if _, err := svc.CreateRecurringExpense(context.Background(), re, &until); !errors.Is(err, core.ErrEndBeforeAnchor) {
		t.Fatalf("expected ErrEndBeforeAnchor, got %v", err)
	}
}

func TestFlattenValidationLeavesNothingBehind(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	re := &core.RecurringExpense{
		Title:     "",
		Amount:    core.Money{Cents: 100},
		AnchorDay: core.NewDay(2024, 1, 1),
		Type:      core.Monthly,
	}
	if _, err := svc.CreateRecurringExpense(ctx, re, nil); err == nil {
		t.Fatal("expected validation error")
	}

	got, err := repo.GetExpensesForMonth(ctx, core.NewDay(2024, 1, 1))
	if err != nil {
		t.Fatalf("get month: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("partial flatten persisted %d rows", len(got))
	}
}

func seedRecurring(t *testing.T, svc *BudgetService, repo *storage.SQLiteRepository, months int) (*core.RecurringExpense, []core.Expense) {
	t.Helper()
	ctx := context.Background()

	until := core.NewDay(2024, months, 1)
	re := &core.RecurringExpense{
		Title:     "rent",
		Amount:    core.Money{Cents: 90000},
		AnchorDay: core.NewDay(2024, 1, 1),
		Type:      core.Monthly,
	}
	if _, err := svc.CreateRecurringExpense(ctx, re, &until); err != nil {
		t.Fatalf("seed recurring: %v", err)
	}
	rows, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("seed rows: %v", err)
	}
	if len(rows) != months {
		t.Fatalf("seeded %d rows, want %d", len(rows), months)
	}
	return re, rows
}

func TestDeleteRecurringScopeOne(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	re, rows := seedRecurring(t, svc, repo, 6)

	action, err := svc.DeleteRecurring(ctx, rows[2].ID, core.DeleteOne)
	if err != nil {
		t.Fatalf("delete one: %v", err)
	}
	if len(action.Expenses) != 1 || action.Template != nil {
		t.Fatalf("unexpected action: %+v", action)
	}

	remaining, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(remaining) != 5 {
		t.Fatalf("%d rows remain, want 5", len(remaining))
	}
}

func TestDeleteRecurringScopeFromKeepsEarlierAndTemplate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	re, rows := seedRecurring(t, svc, repo, 6)

	// Delete from April: April, May, June go; Jan-Mar stay.
	action, err := svc.DeleteRecurring(ctx, rows[3].ID, core.DeleteFrom)
	if err != nil {
		t.Fatalf("delete from: %v", err)
	}
	if len(action.Expenses) != 3 {
		t.Fatalf("snapshot has %d rows, want 3", len(action.Expenses))
	}

	remaining, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("%d rows remain, want 3", len(remaining))
	}
	for _, e := range remaining {
		if !e.Day.Before(core.NewDay(2024, 4, 1)) {
			t.Fatalf("row after the cut survived: %v", e.Day)
		}
	}
	if _, err := repo.FindRecurringExpenseForID(ctx, re.ID); err != nil {
		t.Fatalf("template should survive from-scope delete: %v", err)
	}
}

func TestDeleteRecurringScopeFromEarliestRemovesTemplate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	re, rows := seedRecurring(t, svc, repo, 6)

	// Deleting from the first occurrence leaves nothing behind, so the
	// template itself goes with it.
	action, err := svc.DeleteRecurring(ctx, rows[0].ID, core.DeleteFrom)
	if err != nil {
		t.Fatalf("delete from: %v", err)
	}
	if action.Template == nil {
		t.Fatal("snapshot should carry the removed template")
	}
	if len(action.Expenses) != 6 {
		t.Fatalf("snapshot has %d rows, want 6", len(action.Expenses))
	}
	if _, err := repo.FindRecurringExpenseForID(ctx, re.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("template should be gone, got %v", err)
	}

	if err := svc.Restore(ctx, action); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := repo.FindRecurringExpenseForID(ctx, re.ID); err != nil {
		t.Fatalf("template not restored: %v", err)
	}
	restored, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(restored) != 6 {
		t.Fatalf("%d rows restored, want 6", len(restored))
	}
}

func TestDeleteRecurringScopeToKeepsLater(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	re, rows := seedRecurring(t, svc, repo, 6)

	// Delete up to and including March.
	action, err := svc.DeleteRecurring(ctx, rows[2].ID, core.DeleteTo)
	if err != nil {
		t.Fatalf("delete to: %v", err)
	}
	if len(action.Expenses) != 3 {
		t.Fatalf("snapshot has %d rows, want 3", len(action.Expenses))
	}

	remaining, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("%d rows remain, want 3", len(remaining))
	}
	for _, e := range remaining {
		if e.Day.Before(core.NewDay(2024, 4, 1)) {
			t.Fatalf("row before the cut survived: %v", e.Day)
		}
	}
}

func TestDeleteRecurringScopeAllRemovesTemplate(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	re, rows := seedRecurring(t, svc, repo, 6)

	action, err := svc.DeleteRecurring(ctx, rows[0].ID, core.DeleteAll)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if action.Template == nil || len(action.Expenses) != 6 {
		t.Fatalf("unexpected action: template=%v rows=%d", action.Template, len(action.Expenses))
	}

	if _, err := repo.FindRecurringExpenseForID(ctx, re.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("template should be gone, got %v", err)
	}
	remaining, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("%d rows remain, want 0", len(remaining))
	}
}

func TestRestoreUndoesDeleteAll(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	re, rows := seedRecurring(t, svc, repo, 6)

	action, err := svc.DeleteRecurring(ctx, rows[0].ID, core.DeleteAll)
	if err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if err := svc.Restore(ctx, action); err != nil {
		t.Fatalf("restore: %v", err)
	}

	template, err := repo.FindRecurringExpenseForID(ctx, re.ID)
	if err != nil {
		t.Fatalf("template not restored: %v", err)
	}
	if template.Title != "rent" {
		t.Fatalf("restored template mismatch: %+v", template)
	}
	restored, err := repo.GetAllExpensesForRecurring(ctx, re.ID)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(restored) != 6 {
		t.Fatalf("%d rows restored, want 6", len(restored))
	}
	for i := range rows {
		if restored[i].ID != rows[i].ID || !restored[i].Day.Equal(rows[i].Day) {
			t.Fatalf("row %d restored under different identity: %+v vs %+v", i, restored[i], rows[i])
		}
	}
}

func TestDeleteRecurringRejectsPlainExpense(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	e := &core.Expense{Title: "one-off", Amount: core.Money{Cents: 100}, Day: core.NewDay(2024, 1, 1)}
	if err := svc.CreateExpense(ctx, e); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.DeleteRecurring(ctx, e.ID, core.DeleteAll); err == nil {
		t.Fatal("expected error for expense without template")
	}
}

func TestDeleteRecurringRejectsUnknownScope(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.DeleteRecurring(context.Background(), 1, core.DeleteScope("sideways")); !errors.Is(err, core.ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}
