package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
)

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// MarkPaid flips a pending order to paid in one guarded statement and
	// reports whether a row actually transitioned.
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
	SetProviderPaymentID(ctx context.Context, id uuid.UUID, paymentID string) error
	HasPaidOrderForProduct(ctx context.Context, email string, kind enums.ProductKind, productID uuid.UUID) (bool, error)
}
