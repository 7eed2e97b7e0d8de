package duplicatecandidate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/juniper/pkg/database"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

var candidateColumns = []string{
	"id", "location_id_1", "location_id_2",
	"geo_proximity_score", "name_similarity_score", "overall_confidence",
	"distance_meters", "status", "resolved_at", "resolved_by",
	"created_at", "updated_at",
}

// Repository handles duplicate candidate persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new duplicate candidate repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// DB exposes the underlying connection for transactional callers.
func (r *Repository) DB() database.DB {
	return r.db
}

// UpsertScores writes one scan batch. New pairs are inserted as pending;
// existing pairs only get their score columns refreshed, and only when a
// score actually changed, so re-running over unchanged data affects zero
// rows. Status, resolved_at and resolved_by are never in the update list: a
// recorded decision survives every rescan. The whole batch is one statement,
// so it commits (or fails) atomically.
func (r *Repository) UpsertScores(ctx context.Context, pairs []models.CandidatePair) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.UpsertScores")
	defer span.End()

	if len(pairs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("duplicate_candidates")
	sb.Cols(
		"id", "location_id_1", "location_id_2",
		"geo_proximity_score", "name_similarity_score", "overall_confidence",
		"distance_meters", "status", "created_at", "updated_at",
	)
	for _, p := range pairs {
		sb.Values(
			uuid.New().String(), p.LocationID1, p.LocationID2,
			p.GeoScore, p.NameScore, p.OverallScore,
			p.DistanceMeters, models.CandidateStatusPending, now, now,
		)
	}

	query, args := sb.Build()
	query += `
		ON CONFLICT (location_id_1, location_id_2) DO UPDATE SET
			geo_proximity_score = EXCLUDED.geo_proximity_score,
			name_similarity_score = EXCLUDED.name_similarity_score,
			overall_confidence = EXCLUDED.overall_confidence,
			distance_meters = EXCLUDED.distance_meters,
			updated_at = EXCLUDED.updated_at
		WHERE (duplicate_candidates.geo_proximity_score,
		       duplicate_candidates.name_similarity_score,
		       duplicate_candidates.overall_confidence,
		       duplicate_candidates.distance_meters)
		IS DISTINCT FROM
		      (EXCLUDED.geo_proximity_score,
		       EXCLUDED.name_similarity_score,
		       EXCLUDED.overall_confidence,
		       EXCLUDED.distance_meters)`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"batch_size": len(pairs)}).Error("Failed to upsert candidate scores")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to upsert duplicate candidates")
	}

	affected, _ := result.RowsAffected()
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size":    len(pairs),
		"rows_affected": affected,
	}).Debug("Upserted candidate batch")

	return affected, nil
}

// Get retrieves a duplicate candidate by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.DuplicateCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("duplicate_candidates")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var candidate models.DuplicateCandidate
	if err := r.db.GetContext(ctx, &candidate, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("duplicate candidate %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get duplicate candidate")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get duplicate candidate")
	}

	return &candidate, nil
}

// GetByPair returns the candidate for an ordered location pair, or nil when
// none exists.
func (r *Repository) GetByPair(ctx context.Context, locationID1, locationID2 string) (*models.DuplicateCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.GetByPair")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("duplicate_candidates")
	sb.Where(
		sb.Equal("location_id_1", locationID1),
		sb.Equal("location_id_2", locationID2),
	)

	query, args := sb.Build()
	var candidate models.DuplicateCandidate
	if err := r.db.GetContext(ctx, &candidate, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil // no existing candidate
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get duplicate candidate by pair")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get duplicate candidate")
	}

	return &candidate, nil
}

// List returns candidates ordered by confidence, optionally filtered by
// status, with the total count for paging.
func (r *Repository) List(ctx context.Context, status string, page, pageSize int) ([]models.DuplicateCandidate, int, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.List")
	defer span.End()

	countSb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	countSb.Select("COUNT(*)")
	countSb.From("duplicate_candidates")
	if status != "" {
		countSb.Where(countSb.Equal("status", status))
	}

	query, args := countSb.Build()
	var totalCount int
	if err := r.db.GetContext(ctx, &totalCount, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count duplicate candidates")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list duplicate candidates")
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("duplicate_candidates")
	if status != "" {
		sb.Where(sb.Equal("status", status))
	}
	sb.OrderBy("overall_confidence DESC", "location_id_1 ASC", "location_id_2 ASC")
	sb.Limit(pageSize)
	sb.Offset((page - 1) * pageSize)

	query, args = sb.Build()
	var candidates []models.DuplicateCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list duplicate candidates")
		return nil, 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list duplicate candidates")
	}

	return candidates, totalCount, nil
}

// ListAutoMergeable returns pending candidates whose confidence reaches the
// threshold, for the auto resolver to work through.
func (r *Repository) ListAutoMergeable(ctx context.Context, minConfidence, limit int) ([]models.DuplicateCandidate, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.ListAutoMergeable")
	defer span.End()

	if limit < 1 || limit > 500 {
		limit = 100
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(candidateColumns...)
	sb.From("duplicate_candidates")
	sb.Where(
		sb.Equal("status", models.CandidateStatusPending),
		sb.GreaterEqualThan("overall_confidence", minConfidence),
	)
	sb.OrderBy("overall_confidence DESC", "location_id_1 ASC", "location_id_2 ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var candidates []models.DuplicateCandidate
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list auto-mergeable candidates")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list duplicate candidates")
	}

	return candidates, nil
}

// TransitionStatus advances a candidate's state machine. The update is
// predicated on the expected current status, so a lost race (or an illegal
// transition) comes back as a conflict rather than silently rewriting a
// decision. resolvedBy is recorded for terminal states.
func (r *Repository) TransitionStatus(ctx context.Context, id string, fromStatuses []string, toStatus string, resolvedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.TransitionStatus")
	defer span.End()

	now := time.Now().UTC()
	placeholders := make([]string, 0, len(fromStatuses))
	args := []any{toStatus, now, resolvedBy, id}
	for _, s := range fromStatuses {
		args = append(args, s)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(`
		UPDATE duplicate_candidates
		SET status = $1, resolved_at = $2, resolved_by = $3, updated_at = $2
		WHERE id = $4 AND status IN (%s)
	`, strings.Join(placeholders, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"candidate_id": id}).Error("Failed to transition candidate status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update candidate status")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a missing row from a status race for the caller.
		existing, getErr := r.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		return httperror.NewHTTPError(http.StatusConflict, fmt.Sprintf("candidate %s is %s; expected one of %s", id, existing.Status, strings.Join(fromStatuses, ", ")))
	}

	return nil
}

// CountByStatus returns candidate counts per status in one statement.
func (r *Repository) CountByStatus(ctx context.Context) (map[string]int, error) {
	ctx, span := tracing.StartSpan(ctx, "duplicatecandidate.Repository.CountByStatus")
	defer span.End()

	query := `
		SELECT status, COUNT(*) AS count
		FROM duplicate_candidates
		GROUP BY status
	`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count candidates by status")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count duplicate candidates")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count duplicate candidates")
		}
		counts[status] = count
	}

	return counts, nil
}
