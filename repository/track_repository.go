package repository

import (
	"context"
	"errors"
	"time"

	"TitanMusic/core/catalog"
	"TitanMusic/model"

	"gorm.io/gorm"
)

// TrackRepository persists tracks. It satisfies catalog.Store.
type TrackRepository interface {
	catalog.Store
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a gorm backed track repository.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Insert creates the record; the model hook assigns the id.
func (r *gormTrackRepository) Insert(ctx context.Context, track *model.Track) error {
	return r.db.WithContext(ctx).Create(track).Error
}

// Get returns nil, nil when no track has the id.
func (r *gormTrackRepository) Get(ctx context.Context, id string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&track).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &track, nil
}

// Find returns the tracks matching q, newest first.
func (r *gormTrackRepository) Find(ctx context.Context, q catalog.Query) ([]*model.Track, error) {
	var tracks []*model.Track
	err := r.scope(ctx, q).
		Order("created_at DESC").
		Order("id ASC").
		Find(&tracks).Error
	if err != nil {
		return nil, err
	}
	return tracks, nil
}

// Update writes the non-nil fields of patch.
func (r *gormTrackRepository) Update(ctx context.Context, id string, patch catalog.Patch) error {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Genre != nil {
		updates["genre"] = *patch.Genre
	}
	if patch.Artist != nil {
		updates["artist"] = *patch.Artist
	}
	if patch.AudioURL != nil {
		updates["audio_url"] = *patch.AudioURL
	}
	if patch.CoverURL != nil {
		updates["cover_url"] = *patch.CoverURL
	}
	if patch.IsPublic != nil {
		updates["is_public"] = *patch.IsPublic
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}

	return r.db.WithContext(ctx).Model(&model.Track{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *gormTrackRepository) scope(ctx context.Context, q catalog.Query) *gorm.DB {
	tx := r.db.WithContext(ctx).Model(&model.Track{})
	if q.UploaderID != "" {
		tx = tx.Where("uploader_id = ?", q.UploaderID)
	}
	if q.PublicOnly {
		tx = tx.Where("is_public = ? AND status = ?", true, model.TrackStatusActive)
	}
	if q.Genre != "" {
		tx = tx.Where("genre = ?", q.Genre)
	}
	return tx
}
