// Package processor consumes location.ingested records from the ingestion
// pipeline. It is the lookup-before-create boundary: a source record whose
// (external_id, source) mapping already exists refreshes its mapped
// location; only unmapped records create new locations. This is what keeps
// a merged-away record's re-ingestion from re-creating the duplicate.
package processor

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/Ramsey-B/juniper/internal/repositories/location"
	"github.com/Ramsey-B/juniper/internal/repositories/sourcemapping"
	"github.com/Ramsey-B/juniper/pkg/events"
	"github.com/Ramsey-B/juniper/pkg/geo"
	"github.com/Ramsey-B/juniper/pkg/kafka"
	"github.com/Ramsey-B/juniper/pkg/metrics"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

var validate = validator.New()

// Processor handles incoming location records
type Processor struct {
	logger        ectologger.Logger
	locationRepo  *location.Repository
	sourceMapRepo *sourcemapping.Repository
}

// NewProcessor creates a new ingest processor
func NewProcessor(
	logger ectologger.Logger,
	locationRepo *location.Repository,
	sourceMapRepo *sourcemapping.Repository,
) *Processor {
	return &Processor{
		logger:        logger,
		locationRepo:  locationRepo,
		sourceMapRepo: sourceMapRepo,
	}
}

// HandleMessage is the kafka.MessageHandler for the ingestion topic.
// Malformed or invalid records are logged and skipped (returning nil commits
// them; retrying cannot fix a bad payload). Store errors are returned so
// the consumer redelivers.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	if eventType := msg.EventType(); eventType != "" && eventType != events.EventTypeLocationIngested {
		p.logger.WithContext(ctx).WithFields(map[string]any{"event_type": eventType}).Debug("Skipping non-ingest event")
		return nil
	}

	record, err := msg.ParseLocationRecord()
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to parse location record; skipping")
		metrics.RecordIngest("unknown", "malformed")
		return nil
	}

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"external_id": record.ExternalID,
		"source":      record.Source,
	})

	if err := validate.Struct(record); err != nil {
		log.WithError(err).Error("Invalid location record; skipping")
		metrics.RecordIngest(record.Source, "invalid")
		return nil
	}
	if !geo.ValidLatLng(record.Latitude, record.Longitude) {
		log.Error("Location record coordinates outside WGS84 envelope; skipping")
		metrics.RecordIngest(record.Source, "invalid")
		return nil
	}

	result, err := p.ingest(ctx, record)
	if err != nil {
		log.WithError(err).Error("Failed to ingest location record")
		metrics.RecordIngest(record.Source, "error")
		return err
	}

	metrics.RecordIngest(record.Source, result)
	log.WithFields(map[string]any{"result": result}).Debug("Ingested location record")
	return nil
}

// ingest applies one record: update the mapped location when a mapping
// exists, otherwise create the location and its mapping.
func (p *Processor) ingest(ctx context.Context, record *models.LocationRecord) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.ingest")
	defer span.End()

	source := models.LocationSource(record.Source)

	cell, err := geo.CellRes8(record.Latitude, record.Longitude)
	if err != nil {
		return "", fmt.Errorf("failed to compute h3 cell: %w", err)
	}

	mapping, err := p.sourceMapRepo.GetByExternalID(ctx, record.ExternalID, source)
	if err != nil {
		return "", err
	}

	if mapping != nil {
		loc, redirected, err := p.locationRepo.ResolveCanonical(ctx, mapping.LocationID)
		if err != nil {
			return "", err
		}

		// A mapping can land on a canonical record that absorbed this
		// source at merge time, either through a stale canonical reference
		// or because the merge repointed the mapping at the winner. That
		// record's descriptive fields belong to the winner; the re-ingest
		// only proves the source is still alive.
		if redirected || loc.Source != source {
			if err := p.locationRepo.TouchLastSynced(ctx, loc.ID); err != nil {
				return "", err
			}
			return "refreshed", nil
		}

		loc.Name = record.Name
		loc.Latitude = record.Latitude
		loc.Longitude = record.Longitude
		loc.City = record.City
		loc.H3CellR8 = cell
		if err := p.locationRepo.UpdateFromSource(ctx, loc); err != nil {
			return "", err
		}
		return "updated", nil
	}

	loc, err := p.locationRepo.Create(ctx, &models.Location{
		Name:      record.Name,
		Latitude:  record.Latitude,
		Longitude: record.Longitude,
		City:      record.City,
		Source:    source,
		H3CellR8:  cell,
	})
	if err != nil {
		return "", err
	}

	if _, err := p.sourceMapRepo.Create(ctx, &models.SourceMapping{
		ExternalID: record.ExternalID,
		Source:     source,
		LocationID: loc.ID,
	}); err != nil {
		return "", err
	}

	return "created", nil
}
