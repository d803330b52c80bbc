// Package notify tracks which shared files a recipient has not yet seen.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/trustshare/trustshare/internal/apperr"
	"github.com/trustshare/trustshare/internal/models"
)

type Tracker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

// RecordShare marks the (file, user) pair unseen if no row exists yet.
// A pair that was already viewed stays viewed; re-sharing does not resurrect
// the notification.
func (t *Tracker) RecordShare(ctx context.Context, fileID, userID uuid.UUID) error {
	notice := models.ShareNotice{FileID: fileID, UserID: userID, Viewed: false}
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&notice).Error
	if err != nil {
		return fmt.Errorf("%w: record share: %v", apperr.ErrStorage, err)
	}
	return nil
}

// PendingFor returns the files the user has been granted but not yet viewed,
// newest share first. Files that have lapsed are excluded; they would only
// 410 on download anyway.
func (t *Tracker) PendingFor(ctx context.Context, userID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := t.db.WithContext(ctx).
		Joins("JOIN share_notices ON share_notices.file_id = files.id").
		Where("share_notices.user_id = ? AND share_notices.viewed = ?", userID, false).
		Where("files.expires_at IS NULL OR files.expires_at > ?", t.now()).
		Order("share_notices.created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return files, nil
}

// MarkViewed flips the pair's flag. Unknown pairs are a no-op so a dismiss
// racing a sweep never errors.
func (t *Tracker) MarkViewed(ctx context.Context, fileID, userID uuid.UUID) error {
	err := t.db.WithContext(ctx).Model(&models.ShareNotice{}).
		Where("file_id = ? AND user_id = ?", fileID, userID).
		Update("viewed", true).Error
	if err != nil {
		return fmt.Errorf("%w: mark viewed: %v", apperr.ErrStorage, err)
	}
	return nil
}
