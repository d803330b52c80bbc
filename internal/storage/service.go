// Package storage owns file bytes and metadata: it streams content into a
// blob backend, issues opaque file identifiers, and serves content back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trustshare/trustshare/internal/apperr"
	"github.com/trustshare/trustshare/internal/models"
)

const (
	putAttempts = 3
	putBackoff  = 200 * time.Millisecond
)

type Service struct {
	db    *gorm.DB
	blobs BlobStore
	log   *logrus.Logger
	now   func() time.Time
}

func NewService(db *gorm.DB, blobs BlobStore, log *logrus.Logger) *Service {
	return &Service{db: db, blobs: blobs, log: log, now: time.Now}
}

// Store streams content into the blob store and records metadata. The reader
// is consumed exactly once per successful attempt; transient blob failures
// are retried before surfacing a storage error.
func (s *Service) Store(ctx context.Context, ownerID uuid.UUID, name string, r io.Reader, expiresAt *time.Time) (*models.File, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: missing file name", apperr.ErrValidation)
	}

	id := uuid.New()
	key := id.String() + "_" + filepath.Base(name)

	size, err := s.putWithRetry(ctx, key, r)
	if err != nil {
		return nil, err
	}

	file := models.File{
		ID:           id,
		OwnerID:      ownerID,
		OriginalName: name,
		Size:         size,
		BlobKey:      key,
		ExpiresAt:    expiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&file).Error; err != nil {
		_ = s.blobs.Delete(ctx, key)
		return nil, fmt.Errorf("%w: record file: %v", apperr.ErrStorage, err)
	}

	s.log.WithFields(logrus.Fields{
		"file_id": file.ID,
		"owner":   ownerID,
		"size":    size,
	}).Info("file stored")

	return &file, nil
}

func (s *Service) putWithRetry(ctx context.Context, key string, r io.Reader) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= putAttempts; attempt++ {
		size, err := s.blobs.Put(ctx, key, r)
		if err == nil {
			return size, nil
		}
		lastErr = err

		// The reader is already partially drained; only a seekable source
		// can be retried.
		seeker, ok := r.(io.Seeker)
		if !ok || attempt == putAttempts {
			break
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			break
		}
		s.log.WithFields(logrus.Fields{"key": key, "attempt": attempt}).
			Warn("blob write failed, retrying")

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(putBackoff * time.Duration(attempt)):
		}
	}
	return 0, lastErr
}

// Open returns the file's metadata and a stream of its content.
func (s *Service) Open(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *models.File, error) {
	file, err := s.Lookup(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, file.BlobKey)
	if err != nil {
		return nil, nil, err
	}
	return rc, file, nil
}

// Lookup fetches metadata only.
func (s *Service) Lookup(ctx context.Context, fileID uuid.UUID) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).Where("id = ?", fileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return &file, nil
}

// ListForOwner returns the owner's files, newest first.
func (s *Service) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return files, nil
}

// Delete removes the blob and the metadata row. Unknown ids are a no-op for
// the blob but still surface NotFound for the row.
func (s *Service) Delete(ctx context.Context, fileID uuid.UUID) error {
	file, err := s.Lookup(ctx, fileID)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, file.BlobKey); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.File{}, "id = ?", fileID).Error; err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return nil
}
