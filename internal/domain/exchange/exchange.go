package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the closed set of lifecycle states an exchange can be in.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var AllStatuses = []Status{StatusPending, StatusAccepted, StatusRejected, StatusCompleted}

// ActiveStatuses are the states in which receipts may still be uploaded and
// that show up in the received/sent inboxes.
var ActiveStatuses = []Status{StatusPending, StatusAccepted}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range AllStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown exchange status %q", raw)
}

func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusAccepted
}

func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Predecessors lists the statuses an exchange may move to s from.
// Nothing moves back to pending, and nothing leaves a terminal state.
func (s Status) Predecessors() []Status {
	switch s {
	case StatusAccepted:
		return []Status{StatusPending}
	case StatusRejected, StatusCompleted:
		return []Status{StatusPending, StatusAccepted}
	default:
		return nil
	}
}

func (s Status) CanTransitionFrom(from Status) bool {
	for _, p := range s.Predecessors() {
		if p == from {
			return true
		}
	}
	return false
}

func StatusStrings(in []Status) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}

// Role names one side of an exchange: offered is the proposer, requested the counterparty.
type Role string

const (
	RoleOffered   Role = "offered"
	RoleRequested Role = "requested"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleOffered, RoleRequested:
		return r, nil
	default:
		return "", fmt.Errorf("unknown participant role %q", raw)
	}
}

func (r Role) Other() Role {
	if r == RoleOffered {
		return RoleRequested
	}
	return RoleOffered
}

// Exchange is a barter proposal between two users over two products.
type Exchange struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UniqueCode string    `gorm:"column:unique_code;type:varchar(16);not null;uniqueIndex" json:"uniqueCode"`

	ProductOffered   uuid.UUID `gorm:"column:product_offered;type:uuid;not null;index" json:"productOffered"`
	ProductRequested uuid.UUID `gorm:"column:product_requested;type:uuid;not null;index" json:"productRequested"`
	UserOffered      uuid.UUID `gorm:"column:user_offered;type:uuid;not null;index:idx_exchange_offered_status,priority:1" json:"userOffered"`
	UserRequested    uuid.UUID `gorm:"column:user_requested;type:uuid;not null;index:idx_exchange_requested_status,priority:1" json:"userRequested"`

	Status Status `gorm:"column:status;type:varchar(16);not null;index;index:idx_exchange_offered_status,priority:2;index:idx_exchange_requested_status,priority:2" json:"status"`

	ReceiptOffered   string `gorm:"column:receipt_offered;type:text;not null;default:''" json:"receiptOffered"`
	AddressOffered   string `gorm:"column:address_offered;type:text;not null;default:''" json:"addressOffered"`
	PhoneOffered     string `gorm:"column:phone_offered;type:text;not null;default:''" json:"phoneOffered"`
	ReceiptRequested string `gorm:"column:receipt_requested;type:text;not null;default:''" json:"receiptRequested"`
	AddressRequested string `gorm:"column:address_requested;type:text;not null;default:''" json:"addressRequested"`
	PhoneRequested   string `gorm:"column:phone_requested;type:text;not null;default:''" json:"phoneRequested"`

	FirstReceiptUploadedBy *uuid.UUID `gorm:"column:first_receipt_uploaded_by;type:uuid" json:"firstReceiptUploadedBy,omitempty"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"column:created_at;not null;index" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (Exchange) TableName() string { return "exchange" }

func (e *Exchange) IsParticipant(userID uuid.UUID) bool {
	return e != nil && userID != uuid.Nil && (e.UserOffered == userID || e.UserRequested == userID)
}

// UserFor returns the participant holding role.
func (e *Exchange) UserFor(role Role) uuid.UUID {
	if role == RoleOffered {
		return e.UserOffered
	}
	return e.UserRequested
}

func (e *Exchange) ReceiptFor(role Role) string {
	if role == RoleOffered {
		return e.ReceiptOffered
	}
	return e.ReceiptRequested
}

func (e *Exchange) HasBothReceipts() bool {
	return strings.TrimSpace(e.ReceiptOffered) != "" && strings.TrimSpace(e.ReceiptRequested) != ""
}

// ViewerType labels the viewer's counterpart: the offering user sees
// "requested", anyone else sees "offered".
func (e *Exchange) ViewerType(viewer uuid.UUID) Role {
	if viewer != uuid.Nil && viewer == e.UserOffered {
		return RoleRequested
	}
	return RoleOffered
}

// NewUniqueCode returns a 10 character uppercase reference code.
func NewUniqueCode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:10])
}
