package stats

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/juniper/pkg/database"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

// Repository serves read-only aggregations over locations and candidates.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new stats repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// GetDuplicateStats returns the dedup progress snapshot. All counts come
// from one statement so they reflect a single point in time; separate
// queries could tear across a concurrent merge.
func (r *Repository) GetDuplicateStats(ctx context.Context) (*models.DuplicateStats, error) {
	ctx, span := tracing.StartSpan(ctx, "stats.Repository.GetDuplicateStats")
	defer span.End()

	query := `
		SELECT
			(SELECT COUNT(*) FROM locations)                                            AS total_locations,
			(SELECT COUNT(*) FROM locations WHERE is_canonical = true)                  AS canonical_locations,
			(SELECT COUNT(*) FROM locations WHERE is_canonical = false)                 AS merged_locations,
			(SELECT COUNT(*) FROM duplicate_candidates WHERE status = 'pending')        AS pending_candidates,
			(SELECT COUNT(*) FROM duplicate_candidates WHERE status = 'confirmed')      AS confirmed_candidates,
			(SELECT COUNT(*) FROM duplicate_candidates WHERE status = 'rejected')       AS rejected_candidates,
			(SELECT COUNT(*) FROM duplicate_candidates WHERE status = 'merged')         AS merged_candidates
	`

	var snapshot models.DuplicateStats
	if err := r.db.GetContext(ctx, &snapshot, query); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get duplicate stats")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get duplicate stats")
	}

	return &snapshot, nil
}
