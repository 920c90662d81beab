package models

import (
	"time"

	"github.com/google/uuid"
)

// DownloadToken is the order-wide capability credential for file retrieval.
// One token exists per order (unique order_id); it is never deleted, it simply
// stops validating once the limit or expiry is reached.
type DownloadToken struct {
	ID      uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uniq_download_tokens_order"`

	// Token is the opaque secret embedded in download URLs, distinct from ID.
	Token uuid.UUID `gorm:"column:token;type:uuid;not null;uniqueIndex:uniq_download_tokens_token"`

	UsageCount int       `gorm:"column:usage_count;not null;default:0"`
	MaxUsages  int       `gorm:"column:max_usages;not null;default:3"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (t DownloadToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t DownloadToken) Exhausted() bool {
	return t.UsageCount >= t.MaxUsages
}

func (t DownloadToken) IsValid(now time.Time) bool {
	return !t.Expired(now) && !t.Exhausted()
}
