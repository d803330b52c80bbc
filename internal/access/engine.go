// Package access resolves "who may read file F": the owner, holders of an
// explicit grant, or the bearer of a valid share token. It fails closed.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trustshare/trustshare/internal/apperr"
	"github.com/trustshare/trustshare/internal/models"
)

// Notifier is told about every grant so recipients can be alerted.
type Notifier interface {
	RecordShare(ctx context.Context, fileID, userID uuid.UUID) error
}

type Engine struct {
	db       *gorm.DB
	notifier Notifier
	log      *logrus.Logger

	// ownerBypass lets owners read their own expired files. Off by default:
	// an elapsed expiry makes a file 410 Gone on every path for everyone.
	ownerBypass bool

	now func() time.Time
}

func NewEngine(db *gorm.DB, notifier Notifier, log *logrus.Logger, ownerBypass bool) *Engine {
	return &Engine{
		db:          db,
		notifier:    notifier,
		log:         log,
		ownerBypass: ownerBypass,
		now:         time.Now,
	}
}

// Expired reports whether the file's expiry is set and elapsed.
func (e *Engine) Expired(file *models.File) bool {
	return file.ExpiresAt != nil && e.now().After(*file.ExpiresAt)
}

// CanAccess decides whether userID may read fileID. token, when non-empty,
// is a share token presented on this request; it only opens the file it is
// bound to. Expired files return Gone regardless of who asks, unless owner
// bypass is configured and the caller owns the file.
func (e *Engine) CanAccess(ctx context.Context, fileID, userID uuid.UUID, token string) (*models.File, error) {
	var file models.File
	err := e.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	isOwner := file.OwnerID == userID

	if e.Expired(&file) {
		if !(e.ownerBypass && isOwner) {
			return nil, apperr.ErrGone
		}
	}

	if isOwner {
		return &file, nil
	}

	var count int64
	err = e.db.WithContext(ctx).Model(&models.Grant{}).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if count > 0 {
		return &file, nil
	}

	if token != "" {
		var link models.ShareLink
		err = e.db.WithContext(ctx).
			Where("token = ? AND file_id = ? AND revoked = ?", token, fileID, false).
			First(&link).Error
		if err == nil && (link.ExpiresAt == nil || e.now().Before(*link.ExpiresAt)) {
			return &file, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
		}
	}

	return nil, apperr.ErrForbidden
}

// Grant shares a file with each listed user. Only the owner may grant.
// Granting twice is a no-op per user: the (file, user) pair is upserted, not
// appended, so concurrent grants for different users never lose updates.
func (e *Engine) Grant(ctx context.Context, fileID, callerID uuid.UUID, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return fmt.Errorf("%w: no recipients", apperr.ErrValidation)
	}

	var file models.File
	err := e.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if file.OwnerID != callerID {
		return apperr.ErrForbidden
	}
	if e.Expired(&file) {
		return apperr.ErrGone
	}

	for _, userID := range userIDs {
		if userID == callerID {
			continue // sharing with yourself is meaningless
		}
		grant := models.Grant{FileID: fileID, UserID: userID}
		err := e.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&grant).Error
		if err != nil {
			return fmt.Errorf("%w: create grant: %v", apperr.ErrStorage, err)
		}
		if err := e.notifier.RecordShare(ctx, fileID, userID); err != nil {
			return err
		}
		e.log.WithFields(logrus.Fields{
			"file_id": fileID,
			"user_id": userID,
		}).Info("file shared")
	}
	return nil
}

// IsRecipient reports whether userID holds an explicit grant on fileID.
func (e *Engine) IsRecipient(ctx context.Context, fileID, userID uuid.UUID) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&models.Grant{}).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return count > 0, nil
}
