package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
)

var ExchangeAggregateContract = Contract{
	Name: "Barter.ExchangeAggregate",
	Operations: []string{
		"Exchange.Propose",
		"Exchange.Accept",
		"Exchange.Reject",
		"Exchange.UpdateStatus",
		"Exchange.UploadReceipt",
	},
	Notes: "Status transitions, receipt slots and the notifications they emit commit together.",
}

// ExchangeAggregate owns the exchange lifecycle state machine.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeUnauthorized, CodeNotFound, CodeConflict,
// CodeInvariantViolation, CodeRetryable, CodeInternal.
type ExchangeAggregate interface {
	Aggregate

	// Propose creates a pending exchange and notifies the counterparty.
	Propose(ctx context.Context, in ProposeExchangeInput) (ExchangeWriteResult, error)

	// Accept moves a pending exchange to accepted.
	Accept(ctx context.Context, in ExchangeTransitionInput) (ExchangeWriteResult, error)

	// Reject moves a pending or accepted exchange to rejected.
	Reject(ctx context.Context, in ExchangeTransitionInput) (ExchangeWriteResult, error)

	// UpdateStatus applies a caller-chosen status, subject to the same transition rules.
	UpdateStatus(ctx context.Context, in ExchangeTransitionInput) (ExchangeWriteResult, error)

	// UploadReceipt fills the actor's receipt slot and completes the exchange
	// when both slots are filled.
	UploadReceipt(ctx context.Context, in UploadReceiptInput) (UploadReceiptResult, error)
}

type ProposeExchangeInput struct {
	ActorID          uuid.UUID
	CounterpartyID   uuid.UUID
	ProductOffered   uuid.UUID
	ProductRequested uuid.UUID
	ProposedAt       time.Time
}

type ExchangeTransitionInput struct {
	ActorID    uuid.UUID
	ExchangeID uuid.UUID
	Target     exchange.Status
	OccurredAt time.Time
}

type ExchangeWriteResult struct {
	Exchange      *exchange.Exchange
	Notifications int
}

type UploadReceiptInput struct {
	ActorID    uuid.UUID
	ExchangeID uuid.UUID
	Role       exchange.Role
	ReceiptRef string
	Address    string
	Phone      string
	UploadedAt time.Time
}

type UploadReceiptResult struct {
	Exchange      *exchange.Exchange
	Completed     bool
	Notifications int
	// ReplacedRef is the receipt this upload overwrote, read under the row
	// lock. Empty on a first upload or when the ref did not change.
	ReplacedRef string
}
