package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
)

// Repository defines read access to the catalog tables. This service never
// writes catalog rows; the storefront CMS owns them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindTrackByID(ctx context.Context, id uuid.UUID) (*models.Track, error)
	FindTrackBySlug(ctx context.Context, slug string) (*models.Track, error)
	FindCollectionByID(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	FindTracksByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Track, error)
}
