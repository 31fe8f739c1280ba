package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Clark-Hu/mangareview/internal/rating"
)

type recordingConn struct {
	subject string
	data    [][]byte
	err     error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subject = subject
	c.data = append(c.data, data)
	return nil
}

func TestRatingChangedPayload(t *testing.T) {
	conn := &recordingConn{}
	p := NewPublisher(conn, "series.rating.updated", nil)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600)) }

	value := 8.67
	p.RatingChanged(12, &value, rating.TriggerLiked)

	if conn.subject != "series.rating.updated" || len(conn.data) != 1 {
		t.Fatalf("published %d messages on %q", len(conn.data), conn.subject)
	}
	var evt RatingChanged
	if err := json.Unmarshal(conn.data[0], &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(evt.EventID); err != nil {
		t.Fatalf("event id %q is not a uuid", evt.EventID)
	}
	if evt.SeriesID != 12 || evt.Rating == nil || *evt.Rating != 8.67 || evt.Trigger != "liked" {
		t.Fatalf("unexpected event: %+v", evt)
	}
	if !evt.OccurredAt.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("occurred_at = %s", evt.OccurredAt)
	}
}

func TestRatingChangedNullRating(t *testing.T) {
	conn := &recordingConn{}
	NewPublisher(conn, "s", nil).RatingChanged(3, nil, rating.TriggerReviewDeleted)

	var raw map[string]any
	if err := json.Unmarshal(conn.data[0], &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := raw["rating"]; !ok || v != nil {
		t.Fatalf("rating = %v (present=%v), want explicit null", v, ok)
	}
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	p.RatingChanged(1, nil, rating.TriggerUnliked)
	NewPublisher(nil, "s", nil).RatingChanged(1, nil, rating.TriggerUnliked)
}

func TestPublishFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	conn := &recordingConn{err: errors.New("nats: connection closed")}
	NewPublisher(conn, "s", zap.New(core)).RatingChanged(9, nil, rating.TriggerUserDeleted)

	if logs.FilterMessage("events: publish rating changed").Len() != 1 {
		t.Fatalf("expected one warning, got %v", logs.All())
	}
}
