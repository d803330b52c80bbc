// Package sweep purges files whose expiry has elapsed, together with their
// grants, share links and notices. Expiry is also enforced at read time, so
// the sweeper is about reclaiming storage, not correctness.
package sweep

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/trustshare/trustshare/internal/models"
	"github.com/trustshare/trustshare/internal/storage"
)

type Sweeper struct {
	db    *gorm.DB
	files *storage.Service
	log   *logrus.Logger
	now   func() time.Time
}

func New(db *gorm.DB, files *storage.Service, log *logrus.Logger) *Sweeper {
	return &Sweeper{db: db, files: files, log: log, now: time.Now}
}

// Run sweeps at the given interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				s.log.WithError(err).Error("expiry sweep failed")
			} else if n > 0 {
				s.log.WithField("purged", n).Info("expiry sweep complete")
			}
		}
	}
}

// SweepOnce deletes every lapsed file and its dependents, returning how many
// files were purged. Each file is handled on its own; one bad blob does not
// stall the rest.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	var expired []models.File
	err := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Find(&expired).Error
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, file := range expired {
		if err := s.files.Delete(ctx, file.ID); err != nil {
			s.log.WithError(err).WithField("file_id", file.ID).Warn("purge failed")
			continue
		}
		s.db.WithContext(ctx).Delete(&models.Grant{}, "file_id = ?", file.ID)
		s.db.WithContext(ctx).Delete(&models.ShareLink{}, "file_id = ?", file.ID)
		s.db.WithContext(ctx).Delete(&models.ShareNotice{}, "file_id = ?", file.ID)
		purged++
	}
	return purged, nil
}
