package tokens

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
)

// Repository defines persistence operations for download tokens.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, token *models.DownloadToken) (*models.DownloadToken, error)
	FindByToken(ctx context.Context, token uuid.UUID) (*models.DownloadToken, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.DownloadToken, error)
	// IncrementUsage bumps usage_count only while it is below the limit and
	// reports whether a row was actually updated.
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
}
