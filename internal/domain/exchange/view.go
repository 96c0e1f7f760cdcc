package exchange

import "github.com/google/uuid"

// ProductCard is the display subset of a catalog product.
type ProductCard struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Condition   string    `json:"estado,omitempty"`
	Preference  string    `json:"preference,omitempty"`
}

// UserCard is the display subset of a user profile.
type UserCard struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// View is the read model returned by every get/list operation: the stored
// exchange plus display cards joined at read time. Cards are nil when the
// catalog has no record for the reference.
type View struct {
	Exchange

	ProductOfferedCard   *ProductCard `json:"productOfferedDetails,omitempty"`
	ProductRequestedCard *ProductCard `json:"productRequestedDetails,omitempty"`
	UserOfferedCard      *UserCard    `json:"userOfferedDetails,omitempty"`
	UserRequestedCard    *UserCard    `json:"userRequestedDetails,omitempty"`

	ReceiptOfferedURL   string `json:"receiptOfferedUrl,omitempty"`
	ReceiptRequestedURL string `json:"receiptRequestedUrl,omitempty"`

	UserType Role `json:"userType,omitempty"`
}

func NewView(e *Exchange) *View {
	if e == nil {
		return nil
	}
	return &View{Exchange: *e}
}
