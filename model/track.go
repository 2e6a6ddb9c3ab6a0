package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrackStatus is the soft-delete state of a track.
type TrackStatus string

const (
	TrackStatusActive  TrackStatus = "active"
	TrackStatusRemoved TrackStatus = "removed"
)

// TrackStats holds the engagement counters of a track.
type TrackStats struct {
	Plays     int64 `json:"plays" gorm:"default:0"`
	Downloads int64 `json:"downloads" gorm:"default:0"`
	Likes     int64 `json:"likes" gorm:"default:0"`
	Shares    int64 `json:"shares" gorm:"default:0"`
}

// Track represents one uploaded audio asset.
type Track struct {
	ID            string      `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title         string      `json:"title" gorm:"size:255;not null"`
	Genre         string      `json:"genre" gorm:"size:100;index"`
	Artist        string      `json:"artist" gorm:"size:255"`
	UploaderID    string      `json:"uploaderId" gorm:"type:varchar(36);not null;index"`
	UploaderEmail string      `json:"uploaderEmail,omitempty" gorm:"size:255"`
	AudioURL      string      `json:"audioUrl" gorm:"size:1024"`
	CoverURL      string      `json:"coverUrl" gorm:"size:1024"`
	IsPublic      bool        `json:"isPublic" gorm:"not null;default:false;index:idx_tracks_feed,priority:1"`
	Status        TrackStatus `json:"status" gorm:"size:16;not null;default:'active';index:idx_tracks_feed,priority:2"`
	Stats         TrackStats  `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`
	CreatedAt     time.Time   `json:"createdAt" gorm:"index:idx_tracks_feed,priority:3"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// BeforeCreate assigns an id when the caller did not set one.
func (t *Track) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = TrackStatusActive
	}
	return nil
}

// IsListed reports whether the track belongs in the public catalog.
func (t *Track) IsListed() bool {
	return t.IsPublic && t.Status == TrackStatusActive
}

// IsRemoved reports whether the track has been soft deleted.
func (t *Track) IsRemoved() bool {
	return t.Status == TrackStatusRemoved
}
