package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/trustshare/trustshare/internal/api/middleware"
	"github.com/trustshare/trustshare/internal/apperr"
)

// POST /upload
// UploadFile godoc
// @Summary Upload a file
// @Description Streams one multipart file into storage. An optional expiresAt field (RFC 3339) must precede the file part.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Success 201 {object} models.File
// @Failure 400 {object} map[string]string
// @Router /upload [post]
func (h *Handlers) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	// Read the multipart body part by part so a large payload is never
	// buffered whole.
	mr, err := r.MultipartReader()
	if err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: expected multipart form", apperr.ErrValidation))
		return
	}

	var expiresAt *time.Time
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			h.writeServiceError(w, fmt.Errorf("%w: no file provided", apperr.ErrValidation))
			return
		}
		if err != nil {
			h.writeServiceError(w, fmt.Errorf("%w: malformed multipart body", apperr.ErrValidation))
			return
		}

		switch part.FormName() {
		case "expiresAt":
			t, err := parseExpiryPart(part)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			expiresAt = t

		case "file":
			file, err := h.files.Store(r.Context(), userID, part.FileName(), part, expiresAt)
			if err != nil {
				h.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, file)
			return

		default:
			// Legacy clients still send userId; identity comes from the
			// session, so drain and ignore.
			_, _ = io.Copy(io.Discard, part)
		}
	}
}

func parseExpiryPart(part *multipart.Part) (*time.Time, error) {
	raw, err := io.ReadAll(io.LimitReader(part, 64))
	if err != nil {
		return nil, fmt.Errorf("%w: bad expiresAt field", apperr.ErrValidation)
	}
	t, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: expiresAt must be RFC 3339", apperr.ErrValidation)
	}
	if !t.After(time.Now()) {
		return nil, fmt.Errorf("%w: expiresAt is in the past", apperr.ErrValidation)
	}
	return &t, nil
}

// GET /files
// ListFiles godoc
// @Summary List own files
// @Description Returns the caller's files, newest first.
// @Tags Files
// @Produce json
// @Success 200 {array} models.File
// @Router /files [get]
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	files, err := h.files.ListForOwner(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// GET /download/{fileId}
// DownloadFile godoc
// @Summary Download a file
// @Description Streams the file's bytes to an owner, grant recipient, or holder of a valid share token (?token=). A recipient's download marks their notification viewed.
// @Tags Files
// @Produce octet-stream
// @Param fileId path string true "File ID"
// @Param token query string false "Share token"
// @Success 200 {file} binary
// @Failure 403 {object} map[string]string
// @Failure 410 {object} map[string]string
// @Router /download/{fileId} [get]
func (h *Handlers) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	fileID, err := uuid.Parse(r.PathValue("fileId"))
	if err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: invalid file id", apperr.ErrValidation))
		return
	}

	shareToken := r.URL.Query().Get("token")

	file, err := h.access.CanAccess(r.Context(), fileID, userID, shareToken)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	rc, _, err := h.files.Open(r.Context(), file.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer rc.Close()

	// Downloading counts as seeing the notification.
	if recipient, err := h.access.IsRecipient(r.Context(), fileID, userID); err == nil && recipient {
		if err := h.notices.MarkViewed(r.Context(), fileID, userID); err != nil {
			h.log.WithError(err).Warn("mark viewed on download failed")
		}
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.OriginalName))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).WithField("file_id", file.ID).Warn("download interrupted")
	}
}
