package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Track is a purchasable catalog entity, read-only to this service. The
// preview file lives under the public media root, the full-quality file under
// the protected root.
type Track struct {
	ID    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title string          `gorm:"column:title;not null"`
	Slug  string          `gorm:"column:slug;not null;uniqueIndex:uniq_tracks_slug"`
	Price decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`

	PreviewPath string `gorm:"column:preview_path;not null;default:''"`
	FullPath    string `gorm:"column:full_path;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
