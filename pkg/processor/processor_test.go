package processor

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/juniper/internal/repositories/location"
	"github.com/Ramsey-B/juniper/internal/repositories/sourcemapping"
	"github.com/Ramsey-B/juniper/pkg/database"
	"github.com/Ramsey-B/juniper/pkg/models"
)

func testLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

type execCall struct {
	query string
	args  []any
}

type fakeResult struct{ rows int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.rows, nil }

// fakeDB satisfies database.DB, serving reads from fixtures keyed by the
// first where-clause argument and recording every write statement.
type fakeDB struct {
	mappings  map[string]models.SourceMapping
	locations map[string]models.Location
	execs     []execCall
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.execs = append(f.execs, execCall{query: query, args: args})
	return fakeResult{rows: 1}, nil
}

func (f *fakeDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	key, _ := args[0].(string)
	switch d := dest.(type) {
	case *models.SourceMapping:
		m, ok := f.mappings[key]
		if !ok {
			return sql.ErrNoRows
		}
		*d = m
		return nil
	case *models.Location:
		l, ok := f.locations[key]
		if !ok {
			return sql.ErrNoRows
		}
		*d = l
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}

func (f *fakeDB) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return fakeResult{rows: 1}, nil
}

func (f *fakeDB) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeDB) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, sql.ErrConnDone
}

func (f *fakeDB) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, database.Tx, error) {
	return ctx, nil, sql.ErrConnDone
}

func (f *fakeDB) PingContext(ctx context.Context) error { return nil }
func (f *fakeDB) Close() error                          { return nil }
func (f *fakeDB) SetConnMaxIdleTime(d time.Duration)    {}
func (f *fakeDB) SetConnMaxLifetime(d time.Duration)    {}
func (f *fakeDB) SetMaxIdleConns(n int)                 {}
func (f *fakeDB) SetMaxOpenConns(n int)                 {}
func (f *fakeDB) Stats() sql.DBStats                    { return sql.DBStats{} }

func newTestProcessor(db *fakeDB) *Processor {
	logger := testLogger()
	return NewProcessor(
		logger,
		location.NewRepository(db, logger),
		sourcemapping.NewRepository(db, logger),
	)
}

func strPtr(s string) *string { return &s }

func TestIngest_MergedAwaySourceKeepsWinnerFields(t *testing.T) {
	winner := models.Location{
		ID:          "1f4de2c8-9a2b-4c3d-8e5f-0a1b2c3d4e5f",
		Name:        "Cafe Central",
		Latitude:    50.8503,
		Longitude:   4.3517,
		City:        strPtr("Brussels"),
		Source:      models.LocationSourceOSM,
		IsActive:    true,
		IsCanonical: true,
		SourceCount: 2,
	}
	record := &models.LocationRecord{
		ExternalID: "scr-cc-1",
		Source:     "scraper",
		Name:       "Café Central",
		Latitude:   50.8504,
		Longitude:  4.3519,
		City:       strPtr("Bruxelles"),
	}

	t.Run("repointed mapping lands on the other source's winner", func(t *testing.T) {
		db := &fakeDB{
			mappings: map[string]models.SourceMapping{
				"scr-cc-1": {ExternalID: "scr-cc-1", Source: models.LocationSourceScraper, LocationID: winner.ID},
			},
			locations: map[string]models.Location{winner.ID: winner},
		}
		p := newTestProcessor(db)

		result, err := p.ingest(context.Background(), record)
		require.NoError(t, err)
		assert.Equal(t, "refreshed", result)

		require.Len(t, db.execs, 1)
		query := db.execs[0].query
		assert.Contains(t, query, "last_synced_at")
		assert.NotContains(t, query, "name")
		assert.NotContains(t, query, "latitude")
		assert.NotContains(t, query, "city")
		assert.NotContains(t, db.execs[0].args, "Café Central")
	})

	t.Run("stale reference resolves through the merged-away record", func(t *testing.T) {
		loser := models.Location{
			ID:          "2a5ef3d9-0b3c-4d4e-9f6a-1b2c3d4e5f6a",
			Name:        "Café Central",
			Source:      models.LocationSourceScraper,
			IsActive:    false,
			IsCanonical: false,
			CanonicalID: strPtr(winner.ID),
		}
		db := &fakeDB{
			mappings: map[string]models.SourceMapping{
				"scr-cc-1": {ExternalID: "scr-cc-1", Source: models.LocationSourceScraper, LocationID: loser.ID},
			},
			locations: map[string]models.Location{loser.ID: loser, winner.ID: winner},
		}
		p := newTestProcessor(db)

		result, err := p.ingest(context.Background(), record)
		require.NoError(t, err)
		assert.Equal(t, "refreshed", result)

		require.Len(t, db.execs, 1)
		assert.Contains(t, db.execs[0].query, "last_synced_at")
		assert.NotContains(t, db.execs[0].query, "name")
		// The touch lands on the canonical winner, not the merged-away row.
		assert.Equal(t, winner.ID, db.execs[0].args[len(db.execs[0].args)-1])
	})
}

func TestIngest_OwnCanonicalRecordRefreshesFields(t *testing.T) {
	own := models.Location{
		ID:          "3b6fa4ea-1c4d-4e5f-af7b-2c3d4e5f6a7b",
		Name:        "Old Name",
		Latitude:    50.8503,
		Longitude:   4.3517,
		Source:      models.LocationSourceScraper,
		IsActive:    true,
		IsCanonical: true,
		SourceCount: 1,
	}
	db := &fakeDB{
		mappings: map[string]models.SourceMapping{
			"scr-cc-1": {ExternalID: "scr-cc-1", Source: models.LocationSourceScraper, LocationID: own.ID},
		},
		locations: map[string]models.Location{own.ID: own},
	}
	p := newTestProcessor(db)

	result, err := p.ingest(context.Background(), &models.LocationRecord{
		ExternalID: "scr-cc-1",
		Source:     "scraper",
		Name:       "New Name",
		Latitude:   50.8504,
		Longitude:  4.3519,
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", result)

	require.Len(t, db.execs, 1)
	assert.Contains(t, db.execs[0].query, "name")
	assert.Contains(t, db.execs[0].query, "last_synced_at")
	assert.Contains(t, db.execs[0].args, "New Name")
}

func TestIngest_UnmappedRecordCreates(t *testing.T) {
	db := &fakeDB{
		mappings:  map[string]models.SourceMapping{},
		locations: map[string]models.Location{},
	}
	p := newTestProcessor(db)

	result, err := p.ingest(context.Background(), &models.LocationRecord{
		ExternalID: "osm-77",
		Source:     "osm",
		Name:       "Grand Place",
		Latitude:   50.8467,
		Longitude:  4.3525,
	})
	require.NoError(t, err)
	assert.Equal(t, "created", result)

	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].query, "locations")
	assert.Contains(t, db.execs[1].query, "source_mappings")
}
