package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"TitanMusic/core/audio"
	"TitanMusic/model"
)

var errBackend = errors.New("backend down")

// memoryStore is an in-memory Store used by the tests.
type memoryStore struct {
	mu         sync.Mutex
	tracks     map[string]*model.Track
	nextID     int
	now        time.Time
	failAll    bool
	failUpdate bool
	updates    int
}

func newMemoryStore(tracks ...*model.Track) *memoryStore {
	s := &memoryStore{tracks: map[string]*model.Track{}, now: time.Unix(1000, 0)}
	for _, t := range tracks {
		s.tracks[t.ID] = t
	}
	return s
}

func (s *memoryStore) Insert(ctx context.Context, track *model.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errBackend
	}
	s.nextID++
	track.ID = fmt.Sprintf("new-%d", s.nextID)
	s.now = s.now.Add(time.Second)
	track.CreatedAt = s.now
	track.UpdatedAt = s.now
	cp := *track
	s.tracks[track.ID] = &cp
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id string) (*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errBackend
	}
	t, ok := s.tracks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *memoryStore) Find(ctx context.Context, q Query) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errBackend
	}
	// deliberately unordered: the service owns the ordering contract
	var out []*model.Track
	for _, t := range s.tracks {
		if q.UploaderID != "" && t.UploaderID != q.UploaderID {
			continue
		}
		if q.PublicOnly && !t.IsListed() {
			continue
		}
		if q.Genre != "" && t.Genre != q.Genre {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) Update(ctx context.Context, id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll || s.failUpdate {
		return errBackend
	}
	t, ok := s.tracks[id]
	if !ok {
		return errors.New("missing")
	}
	s.updates++
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Genre != nil {
		t.Genre = *p.Genre
	}
	if p.Artist != nil {
		t.Artist = *p.Artist
	}
	if p.AudioURL != nil {
		t.AudioURL = *p.AudioURL
	}
	if p.CoverURL != nil {
		t.CoverURL = *p.CoverURL
	}
	if p.IsPublic != nil {
		t.IsPublic = *p.IsPublic
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	s.now = s.now.Add(time.Second)
	t.UpdatedAt = s.now
	return nil
}

type memoryBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	failPut    bool
	failRemove bool
	removed    []string
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: map[string][]byte{}}
}

func (b *memoryBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPut {
		return "", errBackend
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.objects[key] = data
	return "mem://" + key, nil
}

func (b *memoryBlobs) Remove(ctx context.Context, locator string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failRemove {
		return errBackend
	}
	b.removed = append(b.removed, locator)
	delete(b.objects, strings.TrimPrefix(locator, "mem://"))
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

type cacheKey struct {
	gen  int64
	opts ListOptions
}

// mapCache keys pages by generation like the Redis cache does.
type mapCache struct {
	mu          sync.Mutex
	gen         int64
	pages       map[cacheKey]*Page
	hits        int
	invalidated int
}

func newMapCache() *mapCache {
	return &mapCache{pages: map[cacheKey]*Page{}}
}

func (c *mapCache) Get(ctx context.Context, opts ListOptions) (*Page, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pages[cacheKey{c.gen, opts}]
	if ok {
		c.hits++
	}
	return p, c.gen, nil
}

func (c *mapCache) Set(ctx context.Context, gen int64, opts ListOptions, page *Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[cacheKey{gen, opts}] = page
	return nil
}

func (c *mapCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	c.gen++
	return nil
}

type stubTags struct {
	meta *audio.Metadata
	err  error
}

func (s stubTags) Read(r io.ReadSeeker) (*audio.Metadata, error) {
	// consume some input so the service has to rewind
	buf := make([]byte, 2)
	r.Read(buf)
	return s.meta, s.err
}

func audioFile(name, body string) *File {
	return &File{Name: name, ContentType: "audio/mpeg", Size: int64(len(body)), Reader: bytes.NewReader([]byte(body))}
}

func track(id, owner string, created int64, public bool, status model.TrackStatus) *model.Track {
	return &model.Track{
		ID:         id,
		Title:      "Title " + id,
		Artist:     "Artist " + id,
		UploaderID: owner,
		IsPublic:   public,
		Status:     status,
		CreatedAt:  time.Unix(created, 0),
		UpdatedAt:  time.Unix(created, 0),
	}
}

func ids(tracks []*model.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}
