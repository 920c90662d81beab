package orders

import (
	"github.com/google/uuid"

	"github.com/proffmusic/proffmusic-backend/pkg/enums"
)

// CheckoutItem references one product in a checkout request.
type CheckoutItem struct {
	Kind enums.ProductKind
	ID   uuid.UUID
}

// CreateOrderInput captures everything needed to open a ledger entry.
type CreateOrderInput struct {
	Email  string
	UserID *uuid.UUID
	Items  []CheckoutItem
}
