package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Collection is a purchasable bundle of tracks with its own price.
type Collection struct {
	ID    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title string          `gorm:"column:title;not null"`
	Slug  string          `gorm:"column:slug;not null;uniqueIndex:uniq_collections_slug"`
	Price decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`

	Tracks []Track `gorm:"many2many:collection_tracks;"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
