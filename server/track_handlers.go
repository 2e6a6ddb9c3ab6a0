package server

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"TitanMusic/core/catalog"
	"TitanMusic/logger"
	"TitanMusic/model"

	"github.com/gorilla/mux"
)

// multipart bodies above this are spooled to disk
const maxUploadMemory = 32 << 20

var errFileTooLarge = errors.New("file too large")

// ListTracksHandler serves the public feed.
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := h.listOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.catalog.ListPublicTracks(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"tracks":     page.Tracks,
		"pagination": page.Pagination,
	})
}

// MyTracksHandler lists every track of the caller.
func (h *APIHandler) MyTracksHandler(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	tracks, err := h.catalog.ListOwnedTracks(r.Context(), caller.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tracks":  tracks,
	})
}

// GetTrackHandler returns one track by id.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	track, err := h.catalog.GetTrack(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"track":   track,
	})
}

// UploadTrackHandler accepts a multipart form with an "audio" file, an
// optional "cover" image and the title, genre, artist and isPublic fields.
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())

	// two files plus form fields; no file limit means no body limit
	if h.cfg.MaxFileSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.cfg.MaxFileSize+1<<20)
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusBadRequest, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	audioFile, audioHeader, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required")
		return
	}
	defer audioFile.Close()

	audio, err := h.formFile(audioFile, audioHeader, "audio/")
	if err != nil {
		writeError(w, http.StatusBadRequest, uploadErrorMessage(err, "Only audio files are allowed"))
		return
	}

	var cover *catalog.File
	coverFile, coverHeader, err := r.FormFile("cover")
	if err == nil {
		defer coverFile.Close()
		cover, err = h.formFile(coverFile, coverHeader, "image/")
		if err != nil {
			writeError(w, http.StatusBadRequest, uploadErrorMessage(err, "Only image files are allowed"))
			return
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		writeError(w, http.StatusBadRequest, "Invalid cover file")
		return
	}

	isPublic, _ := strconv.ParseBool(r.FormValue("isPublic"))
	track, err := h.catalog.UploadTrack(r.Context(), caller, catalog.UploadInput{
		Title:    r.FormValue("title"),
		Genre:    r.FormValue("genre"),
		Artist:   r.FormValue("artist"),
		IsPublic: isPublic,
		Audio:    audio,
		Cover:    cover,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Track uploaded",
		"trackId": track.ID,
		"track":   track,
	})
}

// TrackUpdateRequest is the JSON body of a partial update. Status is
// accepted only so that attempts to change it can be rejected.
type TrackUpdateRequest struct {
	Title    *string            `json:"title"`
	Genre    *string            `json:"genre"`
	Artist   *string            `json:"artist"`
	IsPublic *bool              `json:"isPublic"`
	AudioURL *string            `json:"audioUrl"`
	CoverURL *string            `json:"coverUrl"`
	Status   *model.TrackStatus `json:"status"`
}

// UpdateTrackHandler applies a partial update to a track of the caller.
func (h *APIHandler) UpdateTrackHandler(w http.ResponseWriter, r *http.Request) {
	var req TrackUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	caller := CallerFromContext(r.Context())
	track, err := h.catalog.UpdateTrack(r.Context(), caller.ID, mux.Vars(r)["id"], catalog.Patch{
		Title:    req.Title,
		Genre:    req.Genre,
		Artist:   req.Artist,
		IsPublic: req.IsPublic,
		AudioURL: req.AudioURL,
		CoverURL: req.CoverURL,
		Status:   req.Status,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Track updated",
		"track":   track,
	})
}

// DeleteTrackHandler removes a track of the caller.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	caller := CallerFromContext(r.Context())
	if err := h.catalog.DeleteTrack(r.Context(), caller.ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Track deleted",
	})
}

// listOptions reads page, limit, genre and search. Limits above the
// configured maximum are clamped.
func (h *APIHandler) listOptions(r *http.Request) (catalog.ListOptions, error) {
	q := r.URL.Query()
	opts := catalog.ListOptions{
		Genre:  strings.TrimSpace(q.Get("genre")),
		Search: strings.TrimSpace(q.Get("search")),
	}

	var err error
	if v := q.Get("page"); v != "" {
		if opts.Page, err = strconv.Atoi(v); err != nil || opts.Page < 1 {
			return opts, errors.New("page must be a positive integer")
		}
	}
	if v := q.Get("limit"); v != "" {
		if opts.PageSize, err = strconv.Atoi(v); err != nil || opts.PageSize < 1 {
			return opts, errors.New("limit must be a positive integer")
		}
	}
	if limit := h.cfg.MaxPageSize; limit > 0 && opts.PageSize > limit {
		opts.PageSize = limit
	}
	return opts, nil
}

type mimeTypeError struct{ got string }

func (e *mimeTypeError) Error() string { return "unsupported content type " + e.got }

func (h *APIHandler) formFile(f multipart.File, header *multipart.FileHeader, wantPrefix string) (*catalog.File, error) {
	if h.cfg.MaxFileSize > 0 && header.Size > h.cfg.MaxFileSize {
		return nil, errFileTooLarge
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, wantPrefix) {
		return nil, &mimeTypeError{got: contentType}
	}
	return &catalog.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Reader:      f,
	}, nil
}

func uploadErrorMessage(err error, mimeMessage string) string {
	if errors.Is(err, errFileTooLarge) {
		return "File too large"
	}
	var me *mimeTypeError
	if errors.As(err, &me) {
		return mimeMessage
	}
	logger.Warn("rejected upload", logger.ErrorField(err))
	return "Invalid file"
}
