package domain

import (
	"github.com/yungbote/truequecito-backend/internal/domain/catalog"
	"github.com/yungbote/truequecito-backend/internal/domain/exchange"
	"github.com/yungbote/truequecito-backend/internal/domain/notification"
)

type Exchange = exchange.Exchange
type ExchangeStatus = exchange.Status
type ExchangeRole = exchange.Role
type ExchangeView = exchange.View
type ProductCard = exchange.ProductCard
type UserCard = exchange.UserCard

const (
	ExchangeStatusPending   = exchange.StatusPending
	ExchangeStatusAccepted  = exchange.StatusAccepted
	ExchangeStatusRejected  = exchange.StatusRejected
	ExchangeStatusCompleted = exchange.StatusCompleted

	ExchangeRoleOffered   = exchange.RoleOffered
	ExchangeRoleRequested = exchange.RoleRequested
)

type Notification = notification.Notification
type NotificationKind = notification.Kind

type Product = catalog.Product
type User = catalog.User

// NewExchangeCode returns a fresh human-facing exchange reference.
var NewExchangeCode = exchange.NewUniqueCode
