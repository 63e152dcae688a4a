package model

import (
	"time"

	"github.com/google/uuid"
)

// QRCode is the registry entity mapping a public token to a destination URL.
// Every owner-facing query is scoped by OwnerID; the public redirect path is
// the only reader that ignores ownership.
type QRCode struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID     uuid.UUID     `json:"owner_id" gorm:"type:uuid;index;not null"`
	Token       string        `json:"token" gorm:"size:32;uniqueIndex;not null"`
	Name        string        `json:"name" gorm:"size:255;not null"`
	Description string        `json:"description,omitempty" gorm:"type:text"`
	RedirectURL string        `json:"redirect_url" gorm:"type:text;not null"`
	Styling     StylingConfig `json:"styling" gorm:"type:jsonb"`
	ImageURL    string        `json:"image_url,omitempty" gorm:"type:text"`
	IsActive    bool          `json:"is_active" gorm:"not null;default:true"`
	ScanCount   int64         `json:"scan_count" gorm:"not null;default:0"`
	CreatedAt   time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName keeps the table name aligned with the scan events foreign key.
func (QRCode) TableName() string {
	return "qr_codes"
}
