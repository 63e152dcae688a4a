package model

import (
	"time"

	"github.com/google/uuid"
)

// ScanEvent is one append-only ledger row for a successful resolution of a
// token. Rows are written once by the scan consumer and never mutated.
type ScanEvent struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	QRCodeID  uuid.UUID `json:"qr_code_id" gorm:"type:uuid;index;not null"`
	IPAddress string    `json:"ip_address,omitempty" gorm:"size:45"`
	UserAgent string    `json:"user_agent,omitempty" gorm:"type:text"`
	Referrer  string    `json:"referrer,omitempty" gorm:"type:text"`
	Country   string    `json:"country,omitempty" gorm:"size:100"`
	City      string    `json:"city,omitempty" gorm:"size:100"`
	ScannedAt time.Time `json:"scanned_at" gorm:"index"`
}

func (ScanEvent) TableName() string {
	return "scan_events"
}

const (
	ScanStreamName     = "SCANS"
	ScanStreamSubject  = "scans.events"
	ScanConsumerName   = "scan-logger"
	ScanStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
