// Package sharelink mints and resolves unguessable file share tokens.
package sharelink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trustshare/trustshare/internal/apperr"
	"github.com/trustshare/trustshare/internal/models"
	"github.com/trustshare/trustshare/internal/utils"
)

// tokenBytes gives 256 bits of randomness, well past the 128-bit floor for
// an unguessable URL token.
const tokenBytes = 32

type Issuer struct {
	db  *gorm.DB
	log *logrus.Logger
	now func() time.Time
}

func NewIssuer(db *gorm.DB, log *logrus.Logger) *Issuer {
	return &Issuer{db: db, log: log, now: time.Now}
}

// Issue mints a fresh token for the file. Only the owner may issue. The
// token's optional expiry is independent of the file's, but resolution never
// lets a token outlive its file.
func (i *Issuer) Issue(ctx context.Context, fileID, callerID uuid.UUID, expiresAt *time.Time) (*models.ShareLink, error) {
	var file models.File
	err := i.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if file.OwnerID != callerID {
		return nil, apperr.ErrForbidden
	}
	if file.ExpiresAt != nil && i.now().After(*file.ExpiresAt) {
		return nil, apperr.ErrGone
	}

	token, err := utils.GenerateSecureToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: generate token: %v", apperr.ErrStorage, err)
	}

	link := models.ShareLink{
		ID:        uuid.New(),
		FileID:    fileID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := i.db.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, fmt.Errorf("%w: persist link: %v", apperr.ErrStorage, err)
	}

	i.log.WithFields(logrus.Fields{
		"file_id": fileID,
		"link_id": link.ID,
	}).Info("share link issued")

	return &link, nil
}

// Resolve maps a token back to its file's metadata. Unknown tokens are
// NotFound; lapsed tokens or lapsed files are Gone, so holders of an old
// link can tell "expired" from "never existed".
func (i *Issuer) Resolve(ctx context.Context, token string) (*models.File, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", apperr.ErrValidation)
	}

	var link models.ShareLink
	err := i.db.WithContext(ctx).Where("token = ?", token).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	if link.Revoked {
		return nil, apperr.ErrGone
	}
	if link.ExpiresAt != nil && i.now().After(*link.ExpiresAt) {
		return nil, apperr.ErrGone
	}

	var file models.File
	err = i.db.WithContext(ctx).Where("id = ?", link.FileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// The file was swept; its links die with it.
		return nil, apperr.ErrGone
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if file.ExpiresAt != nil && i.now().After(*file.ExpiresAt) {
		return nil, apperr.ErrGone
	}

	return &file, nil
}

// Revoke invalidates one link. Other links bound to the same file stay valid.
func (i *Issuer) Revoke(ctx context.Context, linkID, callerID uuid.UUID) error {
	var link models.ShareLink
	err := i.db.WithContext(ctx).Where("id = ?", linkID).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	var file models.File
	if err := i.db.WithContext(ctx).Where("id = ?", link.FileID).First(&file).Error; err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	if file.OwnerID != callerID {
		return apperr.ErrForbidden
	}

	err = i.db.WithContext(ctx).Model(&models.ShareLink{}).
		Where("id = ?", linkID).
		Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return nil
}
