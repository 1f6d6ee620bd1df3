package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger change published to other services
type EventType string

const (
	EventExpenseRecorded EventType = "expense.recorded"
	EventExpenseReversed EventType = "expense.reversed"
	EventPaymentRecorded EventType = "payment.recorded"
)

// LedgerEvent is emitted after a ledger change has been committed
type LedgerEvent struct {
	Type       EventType       `json:"type"`
	GroupID    uuid.UUID       `json:"group_id"`
	SubjectID  uuid.UUID       `json:"subject_id"` // Expense or payment ID
	Balances   BalanceSnapshot `json:"balances"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EventPublisher delivers ledger events. Delivery failures never undo a committed change.
type EventPublisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}
