package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/trustshare/trustshare/internal/api/middleware"
	"github.com/trustshare/trustshare/internal/apperr"
)

// POST /share
// ShareFile godoc
// @Summary Share a file with users
// @Description Grants each listed user read access and records a notification. Re-sharing with the same user is a no-op.
// @Tags Share
// @Accept json
// @Produce json
// @Param body body object true "{fileId, userIds[]}"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /share [post]
func (h *Handlers) ShareFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	var input struct {
		FileID  string   `json:"fileId"`
		UserIDs []string `json:"userIds"`
		// OwnerID is what the legacy client sends; identity comes from the
		// session, so it is ignored.
		OwnerID string `json:"ownerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: bad json", apperr.ErrValidation))
		return
	}

	fileID, err := uuid.Parse(input.FileID)
	if err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: invalid file id", apperr.ErrValidation))
		return
	}

	recipients := make([]uuid.UUID, 0, len(input.UserIDs))
	for _, raw := range input.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeServiceError(w, fmt.Errorf("%w: invalid user id %q", apperr.ErrValidation, raw))
			return
		}
		recipients = append(recipients, id)
	}

	if err := h.access.Grant(r.Context(), fileID, userID, recipients); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "File shared successfully"})
}

// POST /share-link
// CreateShareLink godoc
// @Summary Generate a share link
// @Description Mints an unguessable token for the file; optional expiresAt bounds the link independently of the file.
// @Tags Share
// @Accept json
// @Produce json
// @Param body body object true "{fileId, expiresAt?}"
// @Success 201 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /share-link [post]
func (h *Handlers) CreateShareLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	var input struct {
		FileID    string     `json:"fileId"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: bad json", apperr.ErrValidation))
		return
	}

	fileID, err := uuid.Parse(input.FileID)
	if err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: invalid file id", apperr.ErrValidation))
		return
	}
	if input.ExpiresAt != nil && !input.ExpiresAt.After(time.Now()) {
		h.writeServiceError(w, fmt.Errorf("%w: expiresAt is in the past", apperr.ErrValidation))
		return
	}

	link, err := h.links.Issue(r.Context(), fileID, userID, input.ExpiresAt)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token":     link.Token,
		"linkId":    link.ID,
		"url":       h.cfg.ShareBaseURL + "/" + link.Token,
		"expiresAt": link.ExpiresAt,
	})
}

// GET /file-by-link/{token}
// ResolveShareLink godoc
// @Summary Resolve a share link
// @Description Returns the metadata needed for a download prompt. Expired links are 410 Gone, distinct from unknown tokens (404).
// @Tags Share
// @Produce json
// @Param token path string true "Share token"
// @Success 200 {object} models.File
// @Failure 404 {object} map[string]string
// @Failure 410 {object} map[string]string
// @Router /file-by-link/{token} [get]
func (h *Handlers) ResolveShareLink(w http.ResponseWriter, r *http.Request) {
	file, err := h.links.Resolve(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// POST /share-link/revoke
// RevokeShareLink godoc
// @Summary Revoke one share link
// @Description Invalidates a single link; other links on the same file stay valid.
// @Tags Share
// @Accept json
// @Produce json
// @Param body body object true "{linkId}"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /share-link/revoke [post]
func (h *Handlers) RevokeShareLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	var input struct {
		LinkID string `json:"linkId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: bad json", apperr.ErrValidation))
		return
	}

	linkID, err := uuid.Parse(input.LinkID)
	if err != nil {
		h.writeServiceError(w, fmt.Errorf("%w: invalid link id", apperr.ErrValidation))
		return
	}

	if err := h.links.Revoke(r.Context(), linkID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Link revoked"})
}
