// Package events publishes rating-changed notifications to NATS after a
// ledger mutation commits. Publishing is fire-and-forget.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Clark-Hu/mangareview/internal/rating"
)

// RatingChanged is the payload published for every committed recomputation.
type RatingChanged struct {
	EventID    string    `json:"event_id"`
	SeriesID   int64     `json:"series_id"`
	Rating     *float64  `json:"rating"`
	Trigger    string    `json:"trigger"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher sends RatingChanged events. A nil *Publisher drops everything.
type Publisher struct {
	conn    Conn
	subject string
	log     *zap.Logger
	now     func() time.Time
}

// NewPublisher returns a publisher on subject.
func NewPublisher(conn Conn, subject string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{conn: conn, subject: subject, log: log, now: time.Now}
}

// RatingChanged publishes the new rating of a series. Failures are logged.
func (p *Publisher) RatingChanged(seriesID int64, value *float64, trigger rating.Trigger) {
	if p == nil || p.conn == nil {
		return
	}
	evt := RatingChanged{
		EventID:    uuid.NewString(),
		SeriesID:   seriesID,
		Rating:     value,
		Trigger:    string(trigger),
		OccurredAt: p.now().UTC(),
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		p.log.Warn("events: encode rating changed", zap.Error(err))
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.log.Warn("events: publish rating changed",
			zap.String("subject", p.subject),
			zap.Int64("series_id", seriesID),
			zap.Error(err),
		)
	}
}

// Connect dials NATS with reconnects enabled and connection state logged.
func Connect(url string, log *zap.Logger) (*nats.Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("mangareview"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return nc, nil
}
