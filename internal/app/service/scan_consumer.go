package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/scantrail/scantrail/internal/app/model"
	apprepository "github.com/scantrail/scantrail/internal/app/repository"
	"github.com/scantrail/scantrail/internal/infra/metrics"
	"go.uber.org/zap"
)

// errMalformedEvent marks a payload that will never parse, no matter how
// often it is redelivered.
var errMalformedEvent = errors.New("malformed scan event")

// ScanConsumer consumes scan events from NATS JetStream, appends them to the
// ledger and bumps the owning code's scan counter.
type ScanConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	scans  apprepository.ScanEventRepository
	codes  apprepository.QRCodeRepository
}

// NewScanConsumer creates a new scan event consumer.
func NewScanConsumer(js nats.JetStreamContext, logger *zap.Logger, scans apprepository.ScanEventRepository, codes apprepository.QRCodeRepository) *ScanConsumer {
	return &ScanConsumer{js: js, logger: logger, scans: scans, codes: codes}
}

// Start ensures the stream and durable consumer exist, then begins consuming.
func (c *ScanConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ScanStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ScanStreamName,
			Subjects: []string{model.ScanStreamSubject},
			MaxBytes: model.ScanStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ScanStreamName, model.ScanConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ScanStreamName, &nats.ConsumerConfig{
			Durable:   model.ScanConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ScanStreamSubject, model.ScanConsumerName)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ScanConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch messages", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			if err := c.handleEvent(ctx, msg.Data); err != nil {
				if errors.Is(err, errMalformedEvent) {
					// Redelivery cannot make the payload parseable;
					// drop it instead of fetching it every cycle.
					msg.Term()
					continue
				}
				msg.Nak()
				continue
			}
			msg.Ack()
		}
	}
}

// handleEvent appends one scan event payload to the ledger and bumps the
// owning code's counter. A returned error means the message should be
// redelivered, except errMalformedEvent which never can succeed.
func (c *ScanConsumer) handleEvent(ctx context.Context, data []byte) error {
	var event model.ScanEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("failed to unmarshal scan event", zap.Error(err))
		return errMalformedEvent
	}

	if err := c.scans.Create(ctx, &event); err != nil {
		c.logger.Error("failed to store scan event",
			zap.String("id", event.ID.String()),
			zap.String("qr_code_id", event.QRCodeID.String()),
			zap.Error(err))
		return err
	}

	// Ledger row and counter are not transactional. Redelivery here would
	// duplicate the ledger row, so a failed increment is logged and dropped.
	if err := c.codes.IncrementScanCount(ctx, event.QRCodeID); err != nil {
		c.logger.Error("failed to increment scan count",
			zap.String("qr_code_id", event.QRCodeID.String()),
			zap.Error(err))
	}

	metrics.ScanEventsStored.Inc()
	c.logger.Debug("scan event stored",
		zap.String("id", event.ID.String()),
		zap.String("qr_code_id", event.QRCodeID.String()),
		zap.String("ip", event.IPAddress),
		zap.Time("scanned_at", event.ScannedAt),
	)

	return nil
}
