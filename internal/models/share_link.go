package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareLink binds an unguessable token to a single file. Each link has its
// own ID so one token can be revoked without touching others on the same file.
type ShareLink struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	FileID    uuid.UUID  `json:"fileId" gorm:"type:uuid;index;not null"`
	Token     string     `json:"token" gorm:"uniqueIndex;not null"` // secure random token
	CreatedAt time.Time  `json:"createdAt" gorm:"autoCreateTime"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Revoked   bool       `json:"revoked" gorm:"default:false"`
}
