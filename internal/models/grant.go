package models

import (
	"time"

	"github.com/google/uuid"
)

// Grant records an explicit share of a file with a user. The composite key
// makes re-sharing with the same user a no-op rather than a duplicate row.
type Grant struct {
	FileID    uuid.UUID `json:"fileId" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
