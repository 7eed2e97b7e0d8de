package kafka

import (
	"encoding/json"
	"time"

	"github.com/Ramsey-B/juniper/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string
	TraceState  string
}

// EventType returns the event type header, falling back to the payload's
// event_type field for producers that do not set headers.
func (m *IncomingMessage) EventType() string {
	if t := m.Headers["event_type"]; t != "" {
		return t
	}
	var envelope struct {
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(m.Value, &envelope); err == nil {
		return envelope.EventType
	}
	return ""
}

// ParseLocationRecord parses the message value as an ingested location
// record.
func (m *IncomingMessage) ParseLocationRecord() (*models.LocationRecord, error) {
	var record models.LocationRecord
	if err := json.Unmarshal(m.Value, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
