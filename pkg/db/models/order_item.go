package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/proffmusic/proffmusic-backend/pkg/enums"
)

// OrderItem snapshots one purchased product. Exactly one of TrackID or
// CollectionID is set at creation; either may become NULL later if the catalog
// entity is deleted, which delivery degrades around instead of failing.
type OrderItem struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	TrackID      *uuid.UUID `gorm:"column:track_id;type:uuid"`
	CollectionID *uuid.UUID `gorm:"column:collection_id;type:uuid"`

	// Unit price captured at purchase time; never follows catalog changes.
	Price decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Ref returns the tagged product reference. ok is false when the referenced
// catalog entity has been deleted and the item dangles.
func (i OrderItem) Ref() (kind enums.ProductKind, id uuid.UUID, ok bool) {
	switch {
	case i.TrackID != nil:
		return enums.ProductKindTrack, *i.TrackID, true
	case i.CollectionID != nil:
		return enums.ProductKindCollection, *i.CollectionID, true
	default:
		return "", uuid.Nil, false
	}
}
