package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		maxWait  time.Duration
		expected time.Duration
	}{
		{0, 30 * time.Second, 1 * time.Second},
		{1, 30 * time.Second, 2 * time.Second},
		{2, 30 * time.Second, 4 * time.Second},
		{3, 30 * time.Second, 8 * time.Second},
		{4, 30 * time.Second, 16 * time.Second},
		{5, 30 * time.Second, 30 * time.Second},  // capped
		{10, 30 * time.Second, 30 * time.Second}, // capped
		{3, 5 * time.Second, 5 * time.Second},    // configured cap wins
		{10, 2 * time.Minute, 2 * time.Minute},
		{10, 0, 30 * time.Second}, // zero cap falls back to the default
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d_cap_%s", tt.attempt, tt.maxWait), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt, tt.maxWait)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d, %v) = %v, want %v", tt.attempt, tt.maxWait, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"closed channel", errors.New("message channel closed"), true},
		{"not open", errors.New("channel/connection is not open"), true},
		{"other", errors.New("marshal message: bad payload"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestChangeMessageRoundTrip(t *testing.T) {
	msg := NewExpenseChange(OpExpenseCreated, 42)
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ChangeMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Op != OpExpenseCreated || got.ExpenseID != 42 || got.RecurringID != 0 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestChangeMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ChangeMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}
