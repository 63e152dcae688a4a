package service

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/scantrail/scantrail/internal/app/model"
)

// ScanMeta carries the request metadata captured for a scan, all best-effort.
type ScanMeta struct {
	IPAddress string
	UserAgent string
	Referrer  string
	Country   string
	City      string
}

// ScanPublisher publishes scan events to NATS JetStream. The redirect path
// calls it fire-and-forget; a failed publish is logged by the caller and the
// redirect proceeds regardless.
type ScanPublisher struct {
	js nats.JetStreamContext
}

// NewScanPublisher creates a new scan event publisher.
func NewScanPublisher(js nats.JetStreamContext) *ScanPublisher {
	return &ScanPublisher{js: js}
}

// Publish emits a scan event for the given code entry.
func (p *ScanPublisher) Publish(qrCodeID uuid.UUID, meta ScanMeta) error {
	event := model.ScanEvent{
		ID:        uuid.New(),
		QRCodeID:  qrCodeID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
		Country:   meta.Country,
		City:      meta.City,
		ScannedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ScanStreamSubject, data)
	return err
}
