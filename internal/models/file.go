package models

import (
	"time"

	"github.com/google/uuid"
)

type File struct {
	ID           uuid.UUID  `json:"_id" gorm:"type:uuid;primaryKey"`
	OwnerID      uuid.UUID  `json:"ownerId" gorm:"type:uuid;index;not null"`
	OriginalName string     `json:"originalName" gorm:"not null"`
	Size         int64      `json:"size" gorm:"not null"` // bytes
	BlobKey      string     `json:"-" gorm:"not null"`    // key in the blob store
	CreatedAt    time.Time  `json:"createdAt" gorm:"autoCreateTime;index"`
	UpdatedAt    time.Time  `json:"updatedAt" gorm:"autoUpdateTime"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty" gorm:"index"`
}
