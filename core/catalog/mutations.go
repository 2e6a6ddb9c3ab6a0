package catalog

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"TitanMusic/logger"
	"TitanMusic/model"
)

// Caller identifies the authenticated user performing an operation.
type Caller struct {
	ID    string
	Email string
}

// File is an uploaded binary with its client-side name and declared type.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.ReadSeeker
}

// UploadInput carries the metadata and files of a new track.
type UploadInput struct {
	Title    string
	Genre    string
	Artist   string
	IsPublic bool
	Audio    *File
	Cover    *File // optional
}

// UploadTrack stores the files and creates an active track owned by caller.
func (s *Service) UploadTrack(ctx context.Context, caller Caller, in UploadInput) (*model.Track, error) {
	if caller.ID == "" {
		return nil, ErrForbidden
	}
	if in.Audio == nil || in.Audio.Reader == nil {
		return nil, invalidArgument("audio file is required")
	}

	s.fillFromTags(&in)
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalidArgument("title is required")
	}

	stamp := s.now().UnixMilli()
	audioURL, err := s.blobs.Put(ctx, objectKey("tracks", caller.ID, stamp, in.Audio.Name),
		in.Audio.Reader, in.Audio.Size, in.Audio.ContentType)
	if err != nil {
		return nil, unavailable("store audio", err)
	}

	var coverURL string
	if in.Cover != nil && in.Cover.Reader != nil {
		coverURL, err = s.blobs.Put(ctx, objectKey("covers", caller.ID, stamp, in.Cover.Name),
			in.Cover.Reader, in.Cover.Size, in.Cover.ContentType)
		if err != nil {
			s.release(ctx, audioURL)
			return nil, unavailable("store cover", err)
		}
	}

	track := &model.Track{
		Title:         in.Title,
		Genre:         strings.TrimSpace(in.Genre),
		Artist:        strings.TrimSpace(in.Artist),
		UploaderID:    caller.ID,
		UploaderEmail: caller.Email,
		AudioURL:      audioURL,
		CoverURL:      coverURL,
		IsPublic:      in.IsPublic,
		Status:        model.TrackStatusActive,
	}
	if err := s.store.Insert(ctx, track); err != nil {
		s.release(ctx, audioURL, coverURL)
		return nil, unavailable("insert track", err)
	}

	logger.Info("track uploaded",
		logger.String("trackId", track.ID),
		logger.String("uploaderId", caller.ID),
		logger.Bool("isPublic", track.IsPublic))

	s.afterMutation(ctx, EventCreated, track)
	return track, nil
}

// UpdateTrack applies patch to a track owned by callerID.
func (s *Service) UpdateTrack(ctx context.Context, callerID, id string, patch Patch) (*model.Track, error) {
	if patch.Status != nil {
		// status only moves through DeleteTrack
		return nil, invalidArgument("status cannot be changed by update")
	}
	if patch.IsEmpty() {
		return nil, invalidArgument("update has no fields")
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, invalidArgument("title cannot be empty")
	}

	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(track, callerID); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, id, patch); err != nil {
		return nil, unavailable("update track", err)
	}

	updated, err := s.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}
	// replaced files are no longer referenced by any track
	if patch.AudioURL != nil && track.AudioURL != updated.AudioURL {
		s.release(ctx, track.AudioURL)
	}
	if patch.CoverURL != nil && track.CoverURL != updated.CoverURL {
		s.release(ctx, track.CoverURL)
	}
	s.afterMutation(ctx, EventUpdated, updated)
	return updated, nil
}

// DeleteTrack marks a track owned by callerID removed, then releases its
// files. Removing an already removed track succeeds without side effects.
// A file that cannot be released is logged and left behind; the track is
// gone from the feed either way.
func (s *Service) DeleteTrack(ctx context.Context, callerID, id string) error {
	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeMutation(track, callerID); err != nil {
		return err
	}
	if track.IsRemoved() {
		return nil
	}

	removed := model.TrackStatusRemoved
	if err := s.store.Update(ctx, id, Patch{Status: &removed}); err != nil {
		return unavailable("mark track removed", err)
	}
	track.Status = removed

	s.release(ctx, track.AudioURL, track.CoverURL)

	logger.Info("track removed", logger.String("trackId", id), logger.String("uploaderId", callerID))
	s.afterMutation(ctx, EventRemoved, track)
	return nil
}

func (s *Service) fillFromTags(in *UploadInput) {
	if s.metadata != nil && (in.Title == "" || in.Artist == "" || in.Genre == "") {
		meta, err := s.metadata.Read(in.Audio.Reader)
		if err != nil {
			logger.Debug("no readable tags in upload",
				logger.String("file", in.Audio.Name), logger.ErrorField(err))
		} else if meta != nil {
			if in.Title == "" {
				in.Title = meta.Title
			}
			if in.Artist == "" {
				in.Artist = meta.Artist
			}
			if in.Genre == "" {
				in.Genre = meta.Genre
			}
		}
		if _, err := in.Audio.Reader.Seek(0, io.SeekStart); err != nil {
			logger.Warn("failed to rewind upload", logger.ErrorField(err))
		}
	}
	if strings.TrimSpace(in.Title) == "" {
		name := path.Base(in.Audio.Name)
		in.Title = strings.TrimSuffix(name, path.Ext(name))
	}
}

func (s *Service) release(ctx context.Context, locators ...string) {
	for _, l := range locators {
		if l == "" {
			continue
		}
		if err := s.blobs.Remove(ctx, l); err != nil {
			logger.Error("failed to release blob", logger.String("locator", l), logger.ErrorField(err))
		}
	}
}

func (s *Service) afterMutation(ctx context.Context, typ EventType, track *model.Track) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn("feed cache invalidation failed", logger.ErrorField(err))
		}
	}

	evt := Event{Type: typ, TrackID: track.ID, UploaderID: track.UploaderID, Track: track, At: s.now()}
	for _, p := range s.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			logger.Warn("failed to publish track event",
				logger.String("type", string(typ)),
				logger.String("trackId", track.ID),
				logger.ErrorField(err))
		}
	}
}

func objectKey(prefix, ownerID string, stamp int64, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%s/%d_%s", prefix, ownerID, stamp, name)
}
