package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
)

// Product is a priced catalog reference used by checkout to capture prices.
type Product struct {
	Kind  enums.ProductKind
	Track *models.Track
	Coll  *models.Collection
}

// ID returns the referenced entity's id.
func (p Product) ID() uuid.UUID {
	switch p.Kind {
	case enums.ProductKindTrack:
		return p.Track.ID
	case enums.ProductKindCollection:
		return p.Coll.ID
	default:
		return uuid.Nil
	}
}

// Price returns the current catalog price for the product.
func (p Product) Price() string {
	switch p.Kind {
	case enums.ProductKindTrack:
		return p.Track.Price.StringFixed(2)
	case enums.ProductKindCollection:
		return p.Coll.Price.StringFixed(2)
	default:
		return "0.00"
	}
}

// Title returns the display title for receipts and emails.
func (p Product) Title() string {
	switch p.Kind {
	case enums.ProductKindTrack:
		return p.Track.Title
	case enums.ProductKindCollection:
		return p.Coll.Title
	default:
		return ""
	}
}

// Service exposes catalog lookups with not-found mapping.
type Service interface {
	GetTrack(ctx context.Context, id uuid.UUID) (*models.Track, error)
	GetTrackBySlug(ctx context.Context, slug string) (*models.Track, error)
	GetCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error)
	ResolveProduct(ctx context.Context, kind enums.ProductKind, id uuid.UUID) (*Product, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetTrack(ctx context.Context, id uuid.UUID) (*models.Track, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track id required")
	}
	track, err := s.repo.FindTrackByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load track")
	}
	return track, nil
}

func (s *service) GetTrackBySlug(ctx context.Context, slug string) (*models.Track, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "track slug required")
	}
	track, err := s.repo.FindTrackBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "track not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load track")
	}
	return track, nil
}

func (s *service) GetCollection(ctx context.Context, id uuid.UUID) (*models.Collection, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collection id required")
	}
	collection, err := s.repo.FindCollectionByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "collection not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load collection")
	}
	return collection, nil
}

func (s *service) ResolveProduct(ctx context.Context, kind enums.ProductKind, id uuid.UUID) (*Product, error) {
	switch kind {
	case enums.ProductKindTrack:
		track, err := s.GetTrack(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Product{Kind: kind, Track: track}, nil
	case enums.ProductKindCollection:
		collection, err := s.GetCollection(ctx, id)
		if err != nil {
			return nil, err
		}
		return &Product{Kind: kind, Coll: collection}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product kind must be track or collection")
	}
}
