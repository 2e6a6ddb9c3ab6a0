package catalog

import (
	"context"
	"io"
	"time"

	"TitanMusic/core/audio"
	"TitanMusic/model"
)

// Query selects tracks from a Store. Results are always ordered by
// createdAt descending.
type Query struct {
	UploaderID string // when set, only tracks of this owner
	PublicOnly bool   // isPublic = true AND status = active
	Genre      string // exact match when set
}

// Patch lists the fields an update changes. Nil fields are left untouched.
type Patch struct {
	Title    *string
	Genre    *string
	Artist   *string
	AudioURL *string
	CoverURL *string
	IsPublic *bool
	Status   *model.TrackStatus
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Genre == nil && p.Artist == nil &&
		p.AudioURL == nil && p.CoverURL == nil && p.IsPublic == nil && p.Status == nil
}

// Store is the persistence collaborator of the catalog.
type Store interface {
	// Insert saves a new track, assigning its id and timestamps.
	Insert(ctx context.Context, track *model.Track) error
	// Get returns (nil, nil) when no track has the given id.
	Get(ctx context.Context, id string) (*model.Track, error)
	Find(ctx context.Context, q Query) ([]*model.Track, error)
	// Update applies the patch and refreshes updatedAt.
	Update(ctx context.Context, id string, patch Patch) error
}

// BlobStore keeps the binary content referenced by a track.
type BlobStore interface {
	// Put stores the object under key and returns its public locator.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Remove releases the object behind a locator previously returned by Put.
	Remove(ctx context.Context, locator string) error
}

// FeedCache memoizes public listing pages between mutations.
type FeedCache interface {
	// Get returns nil on a miss. gen identifies the cache state the lookup
	// saw; Invalidate moves past it.
	Get(ctx context.Context, opts ListOptions) (page *Page, gen int64, err error)
	// Set stores page under gen. A page stored under a generation that was
	// already invalidated is never served.
	Set(ctx context.Context, gen int64, opts ListOptions, page *Page) error
	Invalidate(ctx context.Context) error
}

// EventType names a track lifecycle transition.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)

// Event is emitted after a successful mutation.
type Event struct {
	Type       EventType    `json:"type"`
	TrackID    string       `json:"trackId"`
	UploaderID string       `json:"uploaderId"`
	Track      *model.Track `json:"track,omitempty"`
	At         time.Time    `json:"at"`
}

// EventPublisher receives lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

// MetadataReader extracts embedded tags from an uploaded audio file.
type MetadataReader interface {
	Read(r io.ReadSeeker) (*audio.Metadata, error)
}
