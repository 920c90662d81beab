package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindTrackByID(ctx context.Context, id uuid.UUID) (*models.Track, error) {
	var track models.Track
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&track).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (r *repository) FindTrackBySlug(ctx context.Context, slug string) (*models.Track, error) {
	var track models.Track
	err := r.db.WithContext(ctx).
		Where("slug = ?", slug).
		First(&track).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

func (r *repository) FindCollectionByID(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	var collection models.Collection
	err := r.db.WithContext(ctx).
		Preload("Tracks").
		Where("id = ?", id).
		First(&collection).Error
	if err != nil {
		return nil, err
	}
	return &collection, nil
}

func (r *repository) FindTracksByCollection(ctx context.Context, collectionID uuid.UUID) ([]models.Track, error) {
	var tracks []models.Track
	err := r.db.WithContext(ctx).
		Joins("JOIN collection_tracks ct ON ct.track_id = tracks.id").
		Where("ct.collection_id = ?", collectionID).
		Order("tracks.title ASC").
		Find(&tracks).Error
	if err != nil {
		return nil, err
	}
	return tracks, nil
}
