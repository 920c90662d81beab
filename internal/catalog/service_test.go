package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/proffmusic/proffmusic-backend/pkg/db/models"
	"github.com/proffmusic/proffmusic-backend/pkg/enums"
	pkgerrors "github.com/proffmusic/proffmusic-backend/pkg/errors"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS tracks (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  price NUMERIC NOT NULL,
  preview_path TEXT NOT NULL DEFAULT '',
  full_path TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS collections (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  slug TEXT NOT NULL,
  price NUMERIC NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS collection_tracks (
  collection_id TEXT NOT NULL,
  track_id TEXT NOT NULL,
  PRIMARY KEY (collection_id, track_id)
);`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedTrack(t *testing.T, db *gorm.DB, title, slug string, price float64) *models.Track {
	t.Helper()
	track := &models.Track{
		ID:       uuid.New(),
		Title:    title,
		Slug:     slug,
		Price:    decimal.NewFromFloat(price),
		FullPath: "tracks/" + slug + ".mp3",
	}
	require.NoError(t, db.Create(track).Error)
	return track
}

func seedCollection(t *testing.T, db *gorm.DB, title, slug string, price float64, tracks ...*models.Track) *models.Collection {
	t.Helper()
	collection := &models.Collection{
		ID:    uuid.New(),
		Title: title,
		Slug:  slug,
		Price: decimal.NewFromFloat(price),
	}
	require.NoError(t, db.Create(collection).Error)
	for _, track := range tracks {
		require.NoError(t, db.Exec(
			"INSERT INTO collection_tracks (collection_id, track_id) VALUES (?, ?)",
			collection.ID, track.ID,
		).Error)
	}
	return collection
}

func newCatalogService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestGetTrack(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	seeded := seedTrack(t, db, "Night Drive", "night-drive", 150)

	track, err := svc.GetTrack(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "Night Drive", track.Title)
	assert.Equal(t, "tracks/night-drive.mp3", track.FullPath)

	_, err = svc.GetTrack(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetTrackBySlug(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	seedTrack(t, db, "Night Drive", "night-drive", 150)

	track, err := svc.GetTrackBySlug(context.Background(), "night-drive")
	require.NoError(t, err)
	assert.Equal(t, "Night Drive", track.Title)

	_, err = svc.GetTrackBySlug(context.Background(), "missing")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestGetCollection_PreloadsTracks(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	one := seedTrack(t, db, "Alpha", "alpha", 100)
	two := seedTrack(t, db, "Beta", "beta", 120)
	seeded := seedCollection(t, db, "Synth Pack", "synth-pack", 180, one, two)

	collection, err := svc.GetCollection(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.Len(t, collection.Tracks, 2)
}

func TestResolveProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	track := seedTrack(t, db, "Night Drive", "night-drive", 150)
	collection := seedCollection(t, db, "Synth Pack", "synth-pack", 180, track)

	product, err := svc.ResolveProduct(context.Background(), enums.ProductKindTrack, track.ID)
	require.NoError(t, err)
	assert.Equal(t, "150.00", product.Price())
	assert.Equal(t, "Night Drive", product.Title())

	product, err = svc.ResolveProduct(context.Background(), enums.ProductKindCollection, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, "180.00", product.Price())

	_, err = svc.ResolveProduct(context.Background(), "album", track.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.ResolveProduct(context.Background(), enums.ProductKindTrack, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestFindTracksByCollection(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	b := seedTrack(t, db, "Beta", "beta", 120)
	a := seedTrack(t, db, "Alpha", "alpha", 100)
	collection := seedCollection(t, db, "Synth Pack", "synth-pack", 180, a, b)

	tracks, err := repo.FindTracksByCollection(context.Background(), collection.ID)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Alpha", tracks[0].Title)
	assert.Equal(t, "Beta", tracks[1].Title)
}
