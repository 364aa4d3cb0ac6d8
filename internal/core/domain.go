package core

import (
	"errors"
	"strings"
)

const (
	Weekly   RecurrenceType = "weekly"
	BiWeekly RecurrenceType = "biweekly"
	Monthly  RecurrenceType = "monthly"
	Yearly   RecurrenceType = "yearly"
)

const (
	// DeleteOne removes a single generated occurrence.
	DeleteOne DeleteScope = "one"
	// DeleteFrom removes the occurrence and everything after it.
	DeleteFrom DeleteScope = "from"
	// DeleteTo removes everything up to and including the occurrence.
	DeleteTo DeleteScope = "to"
	// DeleteAll removes every occurrence and the template itself.
	DeleteAll DeleteScope = "all"
)

type (
	RecurrenceType string

	DeleteScope string

	// Expense is a single dated monetary entry. Positive cents denote a
	// payment, negative cents income. ID is zero until persisted.
	Expense struct {
		ID          int64
		Title       string
		Amount      Money
		Day         Day
		RecurringID *int64
	}

	// RecurringExpense is a template from which concrete Expense rows are
	// generated at creation time. Modified is reserved for a future edit flow.
	RecurringExpense struct {
		ID        int64
		Title     string
		Amount    Money
		AnchorDay Day
		Type      RecurrenceType
		Modified  bool
	}

	// MonthSummary aggregates one calendar month of expenses.
	MonthSummary struct {
		Month Day // first day of the month
		Total Money
		Count int
	}
)

var (
	ErrEmptyTitle      = errors.New("empty title")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDay      = errors.New("invalid day")
	ErrInvalidType     = errors.New("invalid recurrence type")
	ErrInvalidScope    = errors.New("invalid delete scope")
	ErrTitleTooLong    = errors.New("title too long (max 200 characters)")
	ErrEndBeforeAnchor = errors.New("end date before anchor date")
)

func (t RecurrenceType) Validate() error {
	switch t {
	case Weekly, BiWeekly, Monthly, Yearly:
		return nil
	default:
		return ErrInvalidType
	}
}

func (s DeleteScope) Validate() error {
	switch s {
	case DeleteOne, DeleteFrom, DeleteTo, DeleteAll:
		return nil
	default:
		return ErrInvalidScope
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Day.IsZero() {
		return ErrInvalidDay
	}
	return nil
}

// IsRecurring reports whether the expense was generated from a template.
func (e Expense) IsRecurring() bool {
	return e.RecurringID != nil
}

func (re RecurringExpense) Validate() error {
	if strings.TrimSpace(re.Title) == "" {
		return ErrEmptyTitle
	}
	if len(re.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if re.AnchorDay.IsZero() {
		return ErrInvalidDay
	}
	return re.Type.Validate()
}
