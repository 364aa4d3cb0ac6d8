// Package cache provides a write-through read cache decorating the storage
// layer. It caches, per calendar day, the expense list and the running
// balance used by calendar rendering, and pre-warms whole months on a single
// background worker. The storage layer itself knows nothing about caching.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"easybudget/internal/core"
	"easybudget/internal/storage"
)

// DefaultWarmQueueDepth bounds the month pre-warm queue.
const DefaultWarmQueueDepth = 16

// DayCache decorates a storage.Store with per-day caching.
//
// Coherence model: a write that touches a single day refreshes that day's
// expense list and clears every cached balance, since one day's change
// shifts the running balance of every later day. Bulk operations whose blast
// radius is not tracked wipe both maps. Neighbor days of a refreshed day are
// not recomputed; they converge on the next month warm.
type DayCache struct {
	inner storage.Store

	expensesMu sync.Mutex
	expenses   map[int64][]core.Expense // keyed by Day.Key()

	balancesMu sync.Mutex
	balances   map[int64]int64 // running balance cents, keyed by Day.Key()

	// Month warm requests are deduplicated while queued and run serially on
	// one worker goroutine.
	queuedMu sync.Mutex
	queued   map[int64]struct{}
	warmCh   chan core.Day

	done      chan struct{}
	workerWG  sync.WaitGroup
	closeOnce sync.Once
}

var _ storage.Store = (*DayCache)(nil)

func NewDayCache(inner storage.Store, warmQueueDepth int) *DayCache {
	if warmQueueDepth <= 0 {
		warmQueueDepth = DefaultWarmQueueDepth
	}
	c := &DayCache{
		inner:    inner,
		expenses: make(map[int64][]core.Expense),
		balances: make(map[int64]int64),
		queued:   make(map[int64]struct{}),
		warmCh:   make(chan core.Day, warmQueueDepth),
		done:     make(chan struct{}),
	}
	c.workerWG.Add(1)
	go c.worker()
	return c
}

// Close stops the warm worker. Pending warm requests are dropped.
func (c *DayCache) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.workerWG.Wait()
}

func (c *DayCache) worker() {
	defer c.workerWG.Done()
	for {
		select {
		case <-c.done:
			return
		case month := <-c.warmCh:
			c.dequeue(month)
			if err := c.WarmMonth(context.Background(), month); err != nil {
				slog.Error("Month warm failed", "month", month.String(), "error", err)
			}
		}
	}
}

// requestWarm enqueues a pre-warm of the day's month. Requests for a month
// already queued are dropped, as are requests that would overflow the queue.
func (c *DayCache) requestWarm(day core.Day) {
	month := day.FirstOfMonth()

	c.queuedMu.Lock()
	if _, already := c.queued[month.Key()]; already {
		c.queuedMu.Unlock()
		return
	}
	c.queued[month.Key()] = struct{}{}
	c.queuedMu.Unlock()

	select {
	case c.warmCh <- month:
	default:
		// Queue full; the next cache miss will retry.
		c.dequeue(month)
	}
}

func (c *DayCache) dequeue(month core.Day) {
	c.queuedMu.Lock()
	delete(c.queued, month.Key())
	c.queuedMu.Unlock()
}

// WarmMonth loads every day of the month containing day into the cache. It
// skips entirely when the month's first day is already a cache key, a coarse
// already-warmed check.
func (c *DayCache) WarmMonth(ctx context.Context, day core.Day) error {
	first := day.FirstOfMonth()

	c.expensesMu.Lock()
	_, warmed := c.expenses[first.Key()]
	c.expensesMu.Unlock()
	if warmed {
		return nil
	}

	for i := 0; i < first.DaysInMonth(); i++ {
		d := first.AddDays(i)

		expenses, err := c.inner.GetExpensesForDay(ctx, d)
		if err != nil {
			return fmt.Errorf("warm expenses for %s: %w", d, err)
		}
		balance, err := c.inner.GetBalanceForDay(ctx, d)
		if err != nil {
			return fmt.Errorf("warm balance for %s: %w", d, err)
		}

		c.expensesMu.Lock()
		c.expenses[d.Key()] = expenses
		c.expensesMu.Unlock()

		c.balancesMu.Lock()
		c.balances[d.Key()] = balance.Cents
		c.balancesMu.Unlock()
	}

	slog.Debug("Month warmed", "month", first.String())
	return nil
}

// WipeAll clears both maps unconditionally.
func (c *DayCache) WipeAll() {
	c.expensesMu.Lock()
	c.expenses = make(map[int64][]core.Expense)
	c.expensesMu.Unlock()

	c.balancesMu.Lock()
	c.balances = make(map[int64]int64)
	c.balancesMu.Unlock()
}

// refreshDay synchronously re-reads one day's expense list and clears every
// cached balance. Clearing all balances is required for correctness; leaving
// neighbor expense lists alone is an accepted approximation.
func (c *DayCache) refreshDay(ctx context.Context, day core.Day) {
	c.balancesMu.Lock()
	c.balances = make(map[int64]int64)
	c.balancesMu.Unlock()

	expenses, err := c.inner.GetExpensesForDay(ctx, day)
	if err != nil {
		slog.ErrorContext(ctx, "Day refresh failed, dropping cache entry",
			"day", day.String(), "error", err)
		c.expensesMu.Lock()
		delete(c.expenses, day.Key())
		c.expensesMu.Unlock()
		return
	}

	c.expensesMu.Lock()
	c.expenses[day.Key()] = expenses
	c.expensesMu.Unlock()
}

func (c *DayCache) GetExpensesForDay(ctx context.Context, day core.Day) ([]core.Expense, error) {
	c.expensesMu.Lock()
	cached, ok := c.expenses[day.Key()]
	c.expensesMu.Unlock()
	if ok {
		return append([]core.Expense(nil), cached...), nil
	}

	c.requestWarm(day)

	expenses, err := c.inner.GetExpensesForDay(ctx, day)
	if err != nil {
		return nil, err
	}

	c.expensesMu.Lock()
	c.expenses[day.Key()] = expenses
	c.expensesMu.Unlock()

	return append([]core.Expense(nil), expenses...), nil
}

// HasExpensesForDay reports whether any expense exists for the day, serving
// from the cached list when present.
func (c *DayCache) HasExpensesForDay(ctx context.Context, day core.Day) (bool, error) {
	expenses, err := c.GetExpensesForDay(ctx, day)
	if err != nil {
		return false, err
	}
	return len(expenses) > 0, nil
}

func (c *DayCache) GetBalanceForDay(ctx context.Context, day core.Day) (core.Money, error) {
	c.balancesMu.Lock()
	cents, ok := c.balances[day.Key()]
	c.balancesMu.Unlock()
	if ok {
		return core.Money{Cents: cents}, nil
	}

	c.requestWarm(day)

	balance, err := c.inner.GetBalanceForDay(ctx, day)
	if err != nil {
		return core.Money{}, err
	}

	c.balancesMu.Lock()
	c.balances[day.Key()] = balance.Cents
	c.balancesMu.Unlock()

	return balance, nil
}

func (c *DayCache) PersistExpense(ctx context.Context, e *core.Expense, forceInsert bool) error {
	isUpdate := e.ID != 0 && !forceInsert

	if err := c.inner.PersistExpense(ctx, e, forceInsert); err != nil {
		return err
	}

	if isUpdate {
		// The previous day of the row is unknown here, so the blast radius is
		// untracked.
		c.WipeAll()
	} else {
		c.refreshDay(ctx, e.Day)
	}
	return nil
}

func (c *DayCache) DeleteExpense(ctx context.Context, id int64) error {
	e, err := c.inner.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := c.inner.DeleteExpense(ctx, id); err != nil {
		return err
	}
	c.refreshDay(ctx, e.Day)
	return nil
}

func (c *DayCache) GetExpense(ctx context.Context, id int64) (*core.Expense, error) {
	return c.inner.GetExpense(ctx, id)
}

func (c *DayCache) GetExpensesForMonth(ctx context.Context, firstDay core.Day) ([]core.Expense, error) {
	return c.inner.GetExpensesForMonth(ctx, firstDay)
}

func (c *DayCache) GetMonthSummary(ctx context.Context, firstDay core.Day) (core.MonthSummary, error) {
	return c.inner.GetMonthSummary(ctx, firstDay)
}

func (c *DayCache) AddRecurringExpense(ctx context.Context, re *core.RecurringExpense) error {
	// Templates carry no day rows; generated occurrences arrive through
	// PersistExpense or WithTx.
	return c.inner.AddRecurringExpense(ctx, re)
}

func (c *DayCache) DeleteRecurringExpense(ctx context.Context, id int64) error {
	return c.inner.DeleteRecurringExpense(ctx, id)
}

func (c *DayCache) FindRecurringExpenseForID(ctx context.Context, id int64) (*core.RecurringExpense, error) {
	return c.inner.FindRecurringExpenseForID(ctx, id)
}

func (c *DayCache) GetAllExpensesForRecurring(ctx context.Context, recurringID int64) ([]core.Expense, error) {
	return c.inner.GetAllExpensesForRecurring(ctx, recurringID)
}

func (c *DayCache) DeleteAllExpensesForRecurring(ctx context.Context, recurringID int64) (int64, error) {
	n, err := c.inner.DeleteAllExpensesForRecurring(ctx, recurringID)
	if err != nil {
		return n, err
	}
	c.WipeAll()
	return n, nil
}

func (c *DayCache) DeleteExpensesForRecurringBeforeDay(ctx context.Context, recurringID int64, day core.Day) (int64, error) {
	n, err := c.inner.DeleteExpensesForRecurringBeforeDay(ctx, recurringID, day)
	if err != nil {
		return n, err
	}
	c.WipeAll()
	return n, nil
}

func (c *DayCache) DeleteExpensesForRecurringFromDay(ctx context.Context, recurringID int64, day core.Day) (int64, error) {
	n, err := c.inner.DeleteExpensesForRecurringFromDay(ctx, recurringID, day)
	if err != nil {
		return n, err
	}
	c.WipeAll()
	return n, nil
}

func (c *DayCache) HasExpensesForRecurringBeforeDay(ctx context.Context, recurringID int64, day core.Day) (bool, error) {
	return c.inner.HasExpensesForRecurringBeforeDay(ctx, recurringID, day)
}

// WithTx delegates to the inner store and wipes the cache after a successful
// commit; writes inside the transaction bypass the per-day refresh path.
func (c *DayCache) WithTx(ctx context.Context, fn func(storage.Store) error) error {
	if err := c.inner.WithTx(ctx, fn); err != nil {
		return err
	}
	c.WipeAll()
	return nil
}
