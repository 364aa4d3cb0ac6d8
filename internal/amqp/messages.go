package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried on the queue. Workers fetch current row state
// from the database, so messages stay small.
const (
	OpExpenseCreated   = "expense_created"
	OpExpenseUpdated   = "expense_updated"
	OpExpenseDeleted   = "expense_deleted"
	OpRecurringCreated = "recurring_created"
	OpRecurringDeleted = "recurring_deleted"
)

// ChangeMessage notifies workers that an expense or a recurring-expense
// template changed. Exactly one of ExpenseID / RecurringID is set, matching
// the operation.
type ChangeMessage struct {
	Op          string    `json:"op"`
	ExpenseID   int64     `json:"expense_id,omitempty"`
	RecurringID int64     `json:"recurring_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func NewExpenseChange(op string, expenseID int64) *ChangeMessage {
	return &ChangeMessage{Op: op, ExpenseID: expenseID, OccurredAt: time.Now()}
}

func NewRecurringChange(op string, recurringID int64) *ChangeMessage {
	return &ChangeMessage{Op: op, RecurringID: recurringID, OccurredAt: time.Now()}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
