package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proffmusic/proffmusic-backend/pkg/enums"
)

// Order is a customer's purchase record. Amount always equals the sum of the
// captured item prices; status is only ever mutated by the webhook path.
type Order struct {
	ID     uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID *uuid.UUID `gorm:"column:user_id;type:uuid"`
	Email  string     `gorm:"column:email;not null"`

	// Provider payment reference, set once when payment is initiated.
	ProviderPaymentID string `gorm:"column:provider_payment_id;not null;default:''"`

	Status enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Amount decimal.Decimal   `gorm:"column:amount;type:numeric(10,2);not null;default:0"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ShortID is the truncated order id used in emails and archive names.
func (o Order) ShortID() string {
	id := o.ID.String()
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
