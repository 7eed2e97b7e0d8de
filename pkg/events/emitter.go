// Package events handles event emission for location lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/juniper/pkg/kafka"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter handles event emission for Juniper
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitLocationMerged publishes the outcome of a committed merge so
// downstream consumers (trip planner, caches) can re-resolve the merged
// location.
func (e *Emitter) EmitLocationMerged(ctx context.Context, result *models.MergeResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitLocationMerged")
	defer span.End()

	payload := MergedPayload{
		SchemaVersion:       SchemaVersion,
		CanonicalLocationID: result.Winner.ID,
		MergedLocationID:    result.LoserID,
		CandidateID:         result.CandidateID,
		Redirected:          result.Redirected,
		MergedBy:            result.History.MergedBy,
		SourceCount:         result.Winner.SourceCount,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.LocationEvent{
		EventType:     EventTypeLocationMerged,
		SchemaVersion: SchemaVersion,
		LocationID:    result.Winner.ID,
		Source:        string(result.Winner.Source),
		Data:          data,
	}

	if err := e.producer.PublishLocationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit location.merged event")
		return err
	}

	return nil
}

// EmitCandidatesFlagged publishes a summary after a populate cycle stored
// new or rescored candidates.
func (e *Emitter) EmitCandidatesFlagged(ctx context.Context, affectedCount, minConfidence int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitCandidatesFlagged")
	defer span.End()

	payload := FlaggedPayload{
		SchemaVersion: SchemaVersion,
		AffectedCount: affectedCount,
		MinConfidence: minConfidence,
	}
	data, _ := json.Marshal(payload)

	event := &kafka.LocationEvent{
		EventType:     EventTypeCandidatesFlagged,
		SchemaVersion: SchemaVersion,
		LocationID:    "scan", // summary event, not tied to one location
		Data:          data,
	}

	if err := e.producer.PublishLocationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit candidate.flagged event")
		return err
	}

	return nil
}
