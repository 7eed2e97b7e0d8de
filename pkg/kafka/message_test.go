package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingMessage_EventType(t *testing.T) {
	t.Run("prefers the header", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{"event_type": "location.ingested"},
			Value:   []byte(`{"event_type":"something.else"}`),
		}
		assert.Equal(t, "location.ingested", msg.EventType())
	})

	t.Run("falls back to the payload", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{},
			Value:   []byte(`{"event_type":"location.ingested","external_id":"osm-1"}`),
		}
		assert.Equal(t, "location.ingested", msg.EventType())
	})

	t.Run("empty when neither carries a type", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{},
			Value:   []byte(`{"name":"Cafe Central"}`),
		}
		assert.Equal(t, "", msg.EventType())
	})

	t.Run("empty on unparseable payload", func(t *testing.T) {
		msg := &IncomingMessage{
			Headers: map[string]string{},
			Value:   []byte(`not json`),
		}
		assert.Equal(t, "", msg.EventType())
	})
}

func TestIncomingMessage_ParseLocationRecord(t *testing.T) {
	t.Run("parses a full record", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{
				"external_id": "osm-node-4821",
				"source": "osm",
				"name": "Cafe Central",
				"latitude": 50.8503,
				"longitude": 4.3517,
				"city": "Brussels"
			}`),
		}

		record, err := msg.ParseLocationRecord()
		require.NoError(t, err)
		assert.Equal(t, "osm-node-4821", record.ExternalID)
		assert.Equal(t, "osm", record.Source)
		assert.Equal(t, 50.8503, record.Latitude)
		require.NotNil(t, record.City)
		assert.Equal(t, "Brussels", *record.City)
	})

	t.Run("errors on malformed payload", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"latitude": "north"}`)}
		_, err := msg.ParseLocationRecord()
		assert.Error(t, err)
	})
}
