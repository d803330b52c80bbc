package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trustshare/trustshare/internal/access"
	"github.com/trustshare/trustshare/internal/apperr"
	"github.com/trustshare/trustshare/internal/config"
	"github.com/trustshare/trustshare/internal/notify"
	"github.com/trustshare/trustshare/internal/sharelink"
	"github.com/trustshare/trustshare/internal/storage"
)

type Handlers struct {
	cfg     config.Config
	db      *gorm.DB
	files   *storage.Service
	access  *access.Engine
	links   *sharelink.Issuer
	notices *notify.Tracker
	log     *logrus.Logger
}

func New(cfg config.Config, db *gorm.DB, files *storage.Service, engine *access.Engine, links *sharelink.Issuer, notices *notify.Tracker, log *logrus.Logger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		db:      db,
		files:   files,
		access:  engine,
		links:   links,
		notices: notices,
		log:     log,
	}
}

// writeJSON emits a bare JSON body. The legacy endpoints the web client
// calls expect plain shapes (arrays, file objects), not an envelope.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a service error onto the legacy {error} shape.
// Gone responses additionally carry "expired": true, which the client checks.
func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	body := map[string]any{"error": publicMessage(err)}
	if status == http.StatusGone {
		body["expired"] = true
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, body)
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "Not found"
	case errors.Is(err, apperr.ErrForbidden):
		return "You do not have access to this file"
	case errors.Is(err, apperr.ErrGone):
		return "This share has expired"
	case errors.Is(err, apperr.ErrValidation):
		return "Invalid request"
	default:
		return "Internal server error"
	}
}
