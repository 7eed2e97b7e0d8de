package location

import (
	"context"
	"fmt"
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

// maxCanonicalHops bounds canonical resolution. The forest invariant keeps
// chains at depth 1, so anything deeper means corrupted references.
const maxCanonicalHops = 5

var locationColumns = []string{
	"id", "name", "latitude", "longitude", "city", "source",
	"is_active", "is_canonical", "canonical_id", "merged_at",
	"source_count", "last_synced_at", "h3_cell_r8", "created_at", "updated_at",
}

// Repository handles location persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new location repository
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

// Create inserts a new location. New locations start active, canonical and
// with a source count of 1.
func (r *Repository) Create(ctx context.Context, loc *models.Location) (*models.Location, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.Create")
	defer span.End()

	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	loc.IsActive = true
	loc.IsCanonical = true
	loc.SourceCount = 1
	loc.CreatedAt = time.Now().UTC()
	loc.UpdatedAt = loc.CreatedAt

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("locations")
	sb.Cols(locationColumns...)
	sb.Values(
		loc.ID, loc.Name, loc.Latitude, loc.Longitude, loc.City, loc.Source,
		loc.IsActive, loc.IsCanonical, loc.CanonicalID, loc.MergedAt,
		loc.SourceCount, loc.LastSyncedAt, loc.H3CellR8, loc.CreatedAt, loc.UpdatedAt,
	)

	query, args := sb.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"location_id": loc.ID}).Error("Failed to create location")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create location")
	}

	return loc, nil
}

// Get retrieves a location by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Location, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(locationColumns...)
	sb.From("locations")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var loc models.Location
	if err := r.db.GetContext(ctx, &loc, query, args...); err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("location %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get location")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get location")
	}

	return &loc, nil
}

// ResolveCanonical follows a location's canonical reference to the record
// all lookups should land on. Redirected is true when the requested id had
// been merged away.
func (r *Repository) ResolveCanonical(ctx context.Context, id string) (*models.Location, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.ResolveCanonical")
	defer span.End()

	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	for hops := 0; !current.IsCanonical && current.CanonicalID != nil; hops++ {
		if hops >= maxCanonicalHops {
			r.logger.WithContext(ctx).WithFields(map[string]any{"location_id": id}).Error("Canonical chain exceeds depth bound")
			return nil, false, httperror.NewHTTPError(http.StatusInternalServerError, "canonical reference chain too deep")
		}
		current, err = r.Get(ctx, *current.CanonicalID)
		if err != nil {
			return nil, false, err
		}
	}

	return current, current.ID != id, nil
}

// ListCanonicalBatch pages through active canonical locations in id order.
// Pass the last id of the previous page to continue.
func (r *Repository) ListCanonicalBatch(ctx context.Context, afterID string, limit int) ([]models.Location, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.ListCanonicalBatch")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(locationColumns...)
	sb.From("locations")
	where := []string{
		sb.Equal("is_active", true),
		sb.Equal("is_canonical", true),
	}
	if afterID != "" {
		where = append(where, sb.GreaterThan("id", afterID))
	}
	sb.Where(where...)
	sb.OrderBy("id ASC")
	sb.Limit(limit)

	query, args := sb.Build()
	var locations []models.Location
	if err := r.db.SelectContext(ctx, &locations, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list canonical locations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list locations")
	}

	return locations, nil
}

// FindNeighbors returns active canonical locations from other sources whose
// h3 cell falls inside the given disk and whose id sorts after the anchor.
// The id restriction makes every unordered pair come back exactly once.
func (r *Repository) FindNeighbors(ctx context.Context, id string, source models.LocationSource, cells []int64) ([]models.Location, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.FindNeighbors")
	defer span.End()

	if len(cells) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, latitude, longitude, city, source,
		       is_active, is_canonical, canonical_id, merged_at,
		       source_count, last_synced_at, h3_cell_r8, created_at, updated_at
		FROM locations
		WHERE is_active = true
		AND is_canonical = true
		AND id > $1
		AND source <> $2
		AND h3_cell_r8 = ANY($3)
	`

	var neighbors []models.Location
	if err := r.db.SelectContext(ctx, &neighbors, query, id, source, pq.Array(cells)); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"location_id": id}).Error("Failed to find neighbor locations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find neighbor locations")
	}

	return neighbors, nil
}

// MarkMerged folds the loser into the winner with a compare-and-swap: the
// update only lands while the loser is still canonical, so two concurrent
// merges can never claim the same loser. Zero rows affected means a
// concurrent transaction got there first.
func (r *Repository) MarkMerged(ctx context.Context, loserID, winnerID string, mergedAt time.Time) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.MarkMerged")
	defer span.End()

	query := `
		UPDATE locations
		SET is_canonical = false, canonical_id = $1, merged_at = $2, updated_at = $2
		WHERE id = $3 AND is_canonical = true
	`

	result, err := r.db.ExecContext(ctx, query, winnerID, mergedAt, loserID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"location_id": loserID}).Error("Failed to mark location merged")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to mark location merged")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// IncrementSourceCount bumps the winner's source count, conditional on the
// winner still being canonical. Zero rows means the winner was merged away
// concurrently and the caller must re-resolve its ancestor.
func (r *Repository) IncrementSourceCount(ctx context.Context, winnerID string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.IncrementSourceCount")
	defer span.End()

	query := `
		UPDATE locations
		SET source_count = source_count + 1, updated_at = $1
		WHERE id = $2 AND is_canonical = true
	`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), winnerID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"location_id": winnerID}).Error("Failed to increment source count")
		return false, httperror.NewHTTPError(http.StatusInternalServerError, "failed to increment source count")
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// RepointCanonicalRefs rewrites canonical references from one location to
// another. Run when a previous merge target is itself merged away, so the
// reference forest stays at depth one.
func (r *Repository) RepointCanonicalRefs(ctx context.Context, fromID, toID string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.RepointCanonicalRefs")
	defer span.End()

	query := `
		UPDATE locations
		SET canonical_id = $1, updated_at = $2
		WHERE canonical_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, toID, time.Now().UTC(), fromID)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to repoint canonical references")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to repoint canonical references")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// TouchLastSynced refreshes only the sync timestamp. Used when an ingested
// record resolves to a canonical location the record did not originate,
// whose descriptive fields were settled at merge time.
func (r *Repository) TouchLastSynced(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.TouchLastSynced")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("locations")
	sb.Set(
		sb.Assign("last_synced_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"location_id": id}).Error("Failed to refresh location sync time")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to refresh location sync time")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("location %s not found", id))
	}

	return nil
}

// UpdateFromSource refreshes the mutable fields of a location after a
// re-ingest of its source record.
func (r *Repository) UpdateFromSource(ctx context.Context, loc *models.Location) error {
	ctx, span := tracing.StartSpan(ctx, "location.Repository.UpdateFromSource")
	defer span.End()

	now := time.Now().UTC()
	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update("locations")
	sb.Set(
		sb.Assign("name", loc.Name),
		sb.Assign("latitude", loc.Latitude),
		sb.Assign("longitude", loc.Longitude),
		sb.Assign("city", loc.City),
		sb.Assign("h3_cell_r8", loc.H3CellR8),
		sb.Assign("last_synced_at", now),
		sb.Assign("updated_at", now),
	)
	sb.Where(sb.Equal("id", loc.ID))

	query, args := sb.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"location_id": loc.ID}).Error("Failed to update location")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update location")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("location %s not found", loc.ID))
	}

	return nil
}
