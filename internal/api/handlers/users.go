package handlers

import (
	"net/http"

	"github.com/trustshare/trustshare/internal/api/middleware"
	"github.com/trustshare/trustshare/internal/apperr"
	"github.com/trustshare/trustshare/internal/models"
)

// GET /users
// ListUsers godoc
// @Summary List other users
// @Description Returns everyone except the caller, for the share-with-user picker.
// @Tags Users
// @Produce json
// @Success 200 {array} object
// @Router /users [get]
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r)
	if !ok {
		h.writeServiceError(w, apperr.ErrForbidden)
		return
	}

	var users []models.User
	if err := h.db.WithContext(r.Context()).Where("id <> ?", userID).Order("email").Find(&users).Error; err != nil {
		h.log.WithError(err).Error("list users failed")
		h.writeServiceError(w, apperr.ErrStorage)
		return
	}

	type userOut struct {
		ID    string `json:"_id"`
		Email string `json:"email"`
	}
	out := make([]userOut, 0, len(users))
	for _, u := range users {
		out = append(out, userOut{ID: u.ID.String(), Email: u.Email})
	}
	writeJSON(w, http.StatusOK, out)
}
