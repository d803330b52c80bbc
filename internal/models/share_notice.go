package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareNotice tracks whether a recipient has seen a file shared with them.
// One row per (file, user) pair; a new grant to another user never touches
// an existing pair's viewed flag.
type ShareNotice struct {
	FileID    uuid.UUID `json:"fileId" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;primaryKey;index"`
	Viewed    bool      `json:"viewed" gorm:"default:false;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
