package mergehistory

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/juniper/pkg/database"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

var historyColumns = []string{
	"id", "canonical_location_id", "merged_location_id",
	"merged_source", "merged_external_id", "data_contributed",
	"merged_at", "merged_by",
}

// Repository handles the append-only merge audit trail. Rows are inserted
// exactly once per executed merge and never updated or deleted.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new merge history repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create appends one audit entry.
func (r *Repository) Create(ctx context.Context, entry *models.MergeHistory) (*models.MergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.Repository.Create")
	defer span.End()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.MergedAt.IsZero() {
		entry.MergedAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("merge_history")
	sb.Cols(historyColumns...)
	sb.Values(
		entry.ID, entry.CanonicalLocationID, entry.MergedLocationID,
		entry.MergedSource, entry.MergedExternalID, entry.DataContributed,
		entry.MergedAt, entry.MergedBy,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"canonical_location_id": entry.CanonicalLocationID,
			"merged_location_id":    entry.MergedLocationID,
		}).Error("Failed to create merge history entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to record merge history")
	}

	return entry, nil
}

// ListByCanonical returns the audit trail of a canonical location, newest
// first.
func (r *Repository) ListByCanonical(ctx context.Context, canonicalLocationID string) ([]models.MergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.Repository.ListByCanonical")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(historyColumns...)
	sb.From("merge_history")
	sb.Where(sb.Equal("canonical_location_id", canonicalLocationID))
	sb.OrderBy("merged_at DESC")

	query, args := sb.Build()
	var entries []models.MergeHistory
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list merge history")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list merge history")
	}

	return entries, nil
}

// GetByMergedLocation returns the audit entry for a merged-away location, or
// nil when it was never merged.
func (r *Repository) GetByMergedLocation(ctx context.Context, mergedLocationID string) (*models.MergeHistory, error) {
	ctx, span := tracing.StartSpan(ctx, "mergehistory.Repository.GetByMergedLocation")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(historyColumns...)
	sb.From("merge_history")
	sb.Where(sb.Equal("merged_location_id", mergedLocationID))
	sb.Limit(1)

	query, args := sb.Build()
	var entry models.MergeHistory
	if err := r.db.GetContext(ctx, &entry, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get merge history entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get merge history")
	}

	return &entry, nil
}
