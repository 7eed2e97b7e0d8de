package sourcemapping

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/juniper/pkg/database"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

// uniqueViolation is the postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// Repository handles source mapping persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new source mapping repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetByExternalID looks up the mapping for a provider record. Returns nil
// when none exists; ingestion uses this to decide create versus update.
func (r *Repository) GetByExternalID(ctx context.Context, externalID string, source models.LocationSource) (*models.SourceMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcemapping.Repository.GetByExternalID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "external_id", "source", "location_id", "created_at", "updated_at")
	sb.From("source_mappings")
	sb.Where(
		sb.Equal("external_id", externalID),
		sb.Equal("source", source),
	)

	query, args := sb.Build()
	var mapping models.SourceMapping
	if err := r.db.GetContext(ctx, &mapping, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil // no existing mapping
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get source mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get source mapping")
	}

	return &mapping, nil
}

// ListByLocationID returns every mapping currently pointing at a location.
func (r *Repository) ListByLocationID(ctx context.Context, locationID string) ([]models.SourceMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcemapping.Repository.ListByLocationID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "external_id", "source", "location_id", "created_at", "updated_at")
	sb.From("source_mappings")
	sb.Where(sb.Equal("location_id", locationID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var mappings []models.SourceMapping
	if err := r.db.SelectContext(ctx, &mappings, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list source mappings")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list source mappings")
	}

	return mappings, nil
}

// RepointLocation moves every mapping from one location to another. Called
// during a merge so future re-ingestion of the merged-away record resolves
// straight to the canonical winner.
func (r *Repository) RepointLocation(ctx context.Context, fromLocationID, toLocationID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcemapping.Repository.RepointLocation")
	defer span.End()

	query := `
		UPDATE source_mappings
		SET location_id = $1, updated_at = $2
		WHERE location_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, toLocationID, time.Now().UTC(), fromLocationID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"from_location_id": fromLocationID,
			"to_location_id":   toLocationID,
		}).Error("Failed to repoint source mappings")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to repoint source mappings")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// Create inserts a new mapping. A duplicate (external_id, source) is a hard
// conflict: it means ingestion skipped the lookup-before-create step.
func (r *Repository) Create(ctx context.Context, mapping *models.SourceMapping) (*models.SourceMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcemapping.Repository.Create")
	defer span.End()

	if mapping.ID == "" {
		mapping.ID = uuid.New().String()
	}
	mapping.CreatedAt = time.Now().UTC()
	mapping.UpdatedAt = mapping.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("source_mappings")
	sb.Cols("id", "external_id", "source", "location_id", "created_at", "updated_at")
	sb.Values(mapping.ID, mapping.ExternalID, mapping.Source, mapping.LocationID, mapping.CreatedAt, mapping.UpdatedAt)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, httperror.NewHTTPError(http.StatusConflict, "source mapping already exists for this external record")
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"external_id": mapping.ExternalID,
			"source":      mapping.Source,
		}).Error("Failed to create source mapping")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create source mapping")
	}

	return mapping, nil
}
