package audio

import (
	"fmt"
	"io"
	"strings"

	"github.com/dhowden/tag"
)

// Metadata holds the tags read from an audio file.
type Metadata struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   int
	Format string
	// HasPicture reports an embedded cover image.
	HasPicture bool
}

// TagReader reads ID3, MP4, FLAC and OGG tags.
type TagReader struct{}

// Read parses the tags of r. The reader position is left wherever parsing
// stopped; callers rewind it before reuse.
func (TagReader) Read(r io.ReadSeeker) (*Metadata, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind audio: %w", err)
	}
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio tags: %w", err)
	}

	meta := &Metadata{
		Title:      strings.TrimSpace(m.Title()),
		Artist:     strings.TrimSpace(m.Artist()),
		Album:      strings.TrimSpace(m.Album()),
		Genre:      strings.TrimSpace(m.Genre()),
		Year:       m.Year(),
		Format:     string(m.Format()),
		HasPicture: m.Picture() != nil,
	}
	if meta.Artist == "" {
		meta.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	return meta, nil
}
