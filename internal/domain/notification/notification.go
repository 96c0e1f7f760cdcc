package notification

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies which message template produced a notification.
type Kind string

const (
	KindProposalReceived  Kind = "proposal_received"
	KindStatusChanged     Kind = "status_changed"
	KindReceiptUploaded   Kind = "receipt_uploaded"
	KindExchangeCompleted Kind = "exchange_completed_admin"
)

// Notification is an informational record owned by its recipient. The only
// mutation after creation is flipping Read.
type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index:idx_notification_user_created,priority:1" json:"userId"`
	ExchangeID *uuid.UUID `gorm:"column:exchange_id;type:uuid;index" json:"exchangeId,omitempty"`
	Kind       Kind       `gorm:"column:kind;type:varchar(40);not null;default:''" json:"kind"`
	Message    string     `gorm:"column:message;type:text;not null" json:"message"`
	Read       bool       `gorm:"column:read;not null;default:false" json:"read"`
	CreatedAt  time.Time  `gorm:"column:created_at;not null;index:idx_notification_user_created,priority:2" json:"timestamp"`
}

func (Notification) TableName() string { return "notification" }

// MessageCatalog renders the text for a notification kind.
type MessageCatalog interface {
	Render(kind Kind, vars map[string]string) (string, error)
}
