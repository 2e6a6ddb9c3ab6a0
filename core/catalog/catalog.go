// Package catalog owns the listing, visibility and ownership rules of the
// track collection. Storage, blobs, caching and event delivery are injected
// collaborators so the rules stay independent of the backing technology.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"TitanMusic/core/audio"
	"TitanMusic/logger"
	"TitanMusic/model"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// ListOptions controls the public feed. Zero Page/PageSize select the defaults.
type ListOptions struct {
	Page     int    `json:"page"`
	PageSize int    `json:"limit"`
	Genre    string `json:"genre,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Pagination describes where a page sits within the filtered feed.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is one slice of the public feed.
type Page struct {
	Tracks     []*model.Track `json:"tracks"`
	Pagination Pagination     `json:"pagination"`
}

// Service implements the track catalog.
type Service struct {
	store      Store
	blobs      BlobStore
	cache      FeedCache
	publishers []EventPublisher
	metadata   MetadataReader
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithFeedCache serves public pages through c.
func WithFeedCache(c FeedCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithPublishers adds receivers for lifecycle events.
func WithPublishers(p ...EventPublisher) Option {
	return func(s *Service) { s.publishers = append(s.publishers, p...) }
}

// WithMetadataReader replaces the audio tag reader used on upload.
func WithMetadataReader(r MetadataReader) Option {
	return func(s *Service) { s.metadata = r }
}

// WithClock replaces time.Now, used for object keys and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a catalog over the given store and blob store.
func NewService(store Store, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		store:    store,
		blobs:    blobs,
		metadata: audio.TagReader{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPublicTracks returns one page of public, active tracks, newest first.
func (s *Service) ListPublicTracks(ctx context.Context, opts ListOptions) (*Page, error) {
	opts, err := normalize(opts)
	if err != nil {
		return nil, err
	}

	// the page is cached only under the generation seen before the store read
	cacheable := false
	var gen int64
	if s.cache != nil {
		page, g, err := s.cache.Get(ctx, opts)
		switch {
		case err != nil:
			logger.Warn("feed cache read failed", logger.ErrorField(err))
		case page != nil:
			return page, nil
		default:
			cacheable, gen = true, g
		}
	}

	tracks, err := s.store.Find(ctx, Query{PublicOnly: true, Genre: opts.Genre})
	if err != nil {
		return nil, unavailable("list public tracks", err)
	}

	// The store is trusted for the selection but the contract is re-applied
	// here so every backend yields the same feed.
	listed := tracks[:0:0]
	for _, t := range tracks {
		if t.IsListed() && (opts.Genre == "" || t.Genre == opts.Genre) {
			listed = append(listed, t)
		}
	}
	sortNewestFirst(listed)
	listed = filterSearch(listed, opts.Search)

	page := paginate(listed, opts.Page, opts.PageSize)

	if cacheable {
		if err := s.cache.Set(ctx, gen, opts, page); err != nil {
			logger.Warn("feed cache write failed", logger.ErrorField(err))
		}
	}
	return page, nil
}

// ListOwnedTracks returns every track of ownerID, including private and
// removed ones, newest first.
func (s *Service) ListOwnedTracks(ctx context.Context, ownerID string) ([]*model.Track, error) {
	if ownerID == "" {
		return nil, invalidArgument("owner id is required")
	}
	tracks, err := s.store.Find(ctx, Query{UploaderID: ownerID})
	if err != nil {
		return nil, unavailable("list owned tracks", err)
	}

	owned := make([]*model.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.UploaderID == ownerID {
			owned = append(owned, t)
		}
	}
	sortNewestFirst(owned)
	return owned, nil
}

// GetTrack fetches a track by id without any visibility filtering.
func (s *Service) GetTrack(ctx context.Context, id string) (*model.Track, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	track, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, unavailable("get track", err)
	}
	if track == nil {
		return nil, ErrNotFound
	}
	return track, nil
}

// AuthorizeMutation succeeds only when callerID owns the track.
func AuthorizeMutation(track *model.Track, callerID string) error {
	if track == nil || callerID == "" || track.UploaderID != callerID {
		return ErrForbidden
	}
	return nil
}

func normalize(opts ListOptions) (ListOptions, error) {
	if opts.Page < 0 {
		return opts, invalidArgument("page must be >= 1, got %d", opts.Page)
	}
	if opts.PageSize < 0 {
		return opts, invalidArgument("page size must be >= 1, got %d", opts.PageSize)
	}
	if opts.Page == 0 {
		opts.Page = DefaultPage
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	return opts, nil
}

// sortNewestFirst orders by createdAt descending; equal timestamps fall back
// to id so repeated calls agree on the order.
func sortNewestFirst(tracks []*model.Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func filterSearch(tracks []*model.Track, term string) []*model.Track {
	if term == "" {
		return tracks
	}
	needle := strings.ToLower(term)
	kept := tracks[:0:0]
	for _, t := range tracks {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Artist), needle) {
			kept = append(kept, t)
		}
	}
	return kept
}

func paginate(tracks []*model.Track, page, size int) *Page {
	total := len(tracks)
	result := &Page{
		Tracks: []*model.Track{},
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			Total:      total,
			TotalPages: (total + size - 1) / size,
		},
	}

	start := (page - 1) * size
	if start >= total || start < 0 {
		return result
	}
	end := start + size
	if end > total || end < start {
		end = total
	}
	result.Tracks = tracks[start:end]
	return result
}
