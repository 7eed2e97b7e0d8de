package integration

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/juniper/pkg/merging"
	"github.com/Ramsey-B/juniper/pkg/models"
)

func TestCandidateStateMachine(t *testing.T) {
	t.Run("AllStatuses", func(t *testing.T) {
		statuses := []string{
			models.CandidateStatusPending,
			models.CandidateStatusConfirmed,
			models.CandidateStatusRejected,
			models.CandidateStatusMerged,
		}
		for _, s := range statuses {
			assert.NotEmpty(t, s)
		}
	})

	t.Run("LegalTransitions", func(t *testing.T) {
		legal := map[string][]string{
			models.CandidateStatusPending:   {models.CandidateStatusConfirmed, models.CandidateStatusRejected},
			models.CandidateStatusConfirmed: {models.CandidateStatusMerged},
			models.CandidateStatusRejected:  {},
			models.CandidateStatusMerged:    {},
		}

		// rejected and merged are terminal; nothing transitions out
		assert.Empty(t, legal[models.CandidateStatusRejected])
		assert.Empty(t, legal[models.CandidateStatusMerged])
		assert.NotContains(t, legal[models.CandidateStatusPending], models.CandidateStatusMerged)
	})
}

// simulateMerge applies the merge postconditions to in-memory locations the
// way the transactional engine does against the store.
func simulateMerge(winner, loser *models.Location, now time.Time) {
	loser.IsCanonical = false
	loser.CanonicalID = &winner.ID
	loser.MergedAt = &now
	winner.SourceCount++
}

func TestMergePostconditions(t *testing.T) {
	now := time.Now().UTC()
	winner := &models.Location{ID: uuid.New().String(), Name: "Cafe Central", IsCanonical: true, SourceCount: 1}
	loser := &models.Location{ID: uuid.New().String(), Name: "Café Central", IsCanonical: true, SourceCount: 1}

	simulateMerge(winner, loser, now)

	assert.False(t, loser.IsCanonical)
	require.NotNil(t, loser.CanonicalID)
	assert.Equal(t, winner.ID, *loser.CanonicalID)
	assert.NotNil(t, loser.MergedAt)
	assert.Equal(t, 2, winner.SourceCount)
	assert.True(t, winner.IsCanonical)
}

func TestMergeForest_DepthOneAfterChainedMerges(t *testing.T) {
	now := time.Now().UTC()
	a := &models.Location{ID: "aaaaaaaa-0000-0000-0000-000000000000", IsCanonical: true, SourceCount: 1}
	b := &models.Location{ID: "bbbbbbbb-0000-0000-0000-000000000000", IsCanonical: true, SourceCount: 1}
	c := &models.Location{ID: "cccccccc-0000-0000-0000-000000000000", IsCanonical: true, SourceCount: 1}

	// a merges into b, then b merges into c
	simulateMerge(b, a, now)
	simulateMerge(c, b, now)

	// the engine repoints every reference at the old winner when the winner
	// itself is merged away
	all := []*models.Location{a, b, c}
	for _, loc := range all {
		if loc.CanonicalID != nil && *loc.CanonicalID == b.ID {
			loc.CanonicalID = &c.ID
		}
	}

	// forest invariant: every canonical reference lands on a canonical row
	byID := map[string]*models.Location{a.ID: a, b.ID: b, c.ID: c}
	for _, loc := range all {
		if loc.CanonicalID == nil {
			continue
		}
		target := byID[*loc.CanonicalID]
		require.NotNil(t, target)
		assert.True(t, target.IsCanonical, "location %s points at non-canonical %s", loc.ID, target.ID)
	}
}

func TestMergeHistory_Model(t *testing.T) {
	t.Run("RecordsContribution", func(t *testing.T) {
		merger := merging.NewFieldMerger()

		city := "Brussels"
		winner := &models.Location{ID: uuid.New().String(), Name: "Cafe Central", Source: models.LocationSourceOSM}
		loser := &models.Location{ID: uuid.New().String(), Name: "Café Central", City: &city, Source: models.LocationSourceScraper}

		contributed, err := merger.Contribution(winner, loser)
		require.NoError(t, err)

		externalID := "osm-node-4821"
		entry := models.MergeHistory{
			ID:                  uuid.New().String(),
			CanonicalLocationID: winner.ID,
			MergedLocationID:    loser.ID,
			MergedSource:        loser.Source,
			MergedExternalID:    &externalID,
			DataContributed:     contributed,
			MergedAt:            time.Now().UTC(),
			MergedBy:            "reviewer@example.com",
		}

		data, err := json.Marshal(entry)
		require.NoError(t, err)

		var parsed models.MergeHistory
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Equal(t, winner.ID, parsed.CanonicalLocationID)
		assert.Equal(t, models.LocationSourceScraper, parsed.MergedSource)

		var contribution models.DataContribution
		require.NoError(t, json.Unmarshal(parsed.DataContributed, &contribution))
		assert.Equal(t, "Brussels", *contribution.City)
		assert.Equal(t, "Café Central", *contribution.AlternateName)
	})
}

func TestMergeResult_JSON(t *testing.T) {
	winner := &models.Location{ID: uuid.New().String(), Name: "Cafe Central", IsCanonical: true, SourceCount: 2}
	result := models.MergeResult{
		CandidateID: uuid.New().String(),
		Winner:      winner,
		LoserID:     uuid.New().String(),
		Redirected:  false,
		MergedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var parsed models.MergeResult
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.NotNil(t, parsed.Winner)
	assert.Equal(t, 2, parsed.Winner.SourceCount)
	assert.Equal(t, result.LoserID, parsed.LoserID)
}
