package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/trustshare/trustshare/internal/api/middleware"
	"github.com/trustshare/trustshare/internal/apperr"
)

// GET /notifications
// Notifications godoc
// @Summary Pending share notifications
// @Description Files shared with the caller that they have not viewed yet.
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]any
// @Router /notifications [get]
func (h *Handlers) Notifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	files, err := h.notices.PendingFor(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"files": files,
		"count": len(files),
	})
}

// POST /mark-viewed
// MarkViewed godoc
// @Summary Mark a shared file as viewed
// @Description Removes the file from the caller's pending notifications.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param body body object true "{fileId}"
// @Success 200 {object} map[string]string
// @Router /mark-viewed [post]
func (h *Handlers) MarkViewed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	var input struct {
		FileID string `json:"fileId"`
		// Legacy field, ignored; identity comes from the session.
		UserID string `json:"userId"`
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

	if err := h.notices.MarkViewed(r.Context(), fileID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Marked as viewed"})
}
