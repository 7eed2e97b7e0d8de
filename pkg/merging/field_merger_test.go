package merging

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/juniper/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestFieldMerger_Contribution(t *testing.T) {
	merger := NewFieldMerger()

	t.Run("loser fills the winner's missing city", func(t *testing.T) {
		winner := &models.Location{Name: "Cafe Central", Source: models.LocationSourceOSM}
		loser := &models.Location{Name: "Cafe Central", City: strPtr("Brussels"), Source: models.LocationSourceScraper}

		raw, err := merger.Contribution(winner, loser)
		require.NoError(t, err)

		var contribution models.DataContribution
		require.NoError(t, json.Unmarshal(raw, &contribution))
		require.NotNil(t, contribution.City)
		assert.Equal(t, "Brussels", *contribution.City)
		assert.Nil(t, contribution.AlternateName)
		assert.Equal(t, "scraper", contribution.SourceRecorded)
	})

	t.Run("winner's city is never overwritten", func(t *testing.T) {
		winner := &models.Location{Name: "Cafe Central", City: strPtr("Brussels"), Source: models.LocationSourceOSM}
		loser := &models.Location{Name: "Cafe Central", City: strPtr("Bruxelles"), Source: models.LocationSourceScraper}

		raw, err := merger.Contribution(winner, loser)
		require.NoError(t, err)

		var contribution models.DataContribution
		require.NoError(t, json.Unmarshal(raw, &contribution))
		assert.Nil(t, contribution.City)
	})

	t.Run("differing name is recorded as alternate", func(t *testing.T) {
		winner := &models.Location{Name: "Cafe Central", Source: models.LocationSourceOSM}
		loser := &models.Location{Name: "Café Central", Source: models.LocationSourceGooglePlaces}

		raw, err := merger.Contribution(winner, loser)
		require.NoError(t, err)

		var contribution models.DataContribution
		require.NoError(t, json.Unmarshal(raw, &contribution))
		require.NotNil(t, contribution.AlternateName)
		assert.Equal(t, "Café Central", *contribution.AlternateName)
	})

	t.Run("identical records contribute only provenance", func(t *testing.T) {
		winner := &models.Location{Name: "Cafe Central", City: strPtr("Brussels"), Source: models.LocationSourceOSM}
		loser := &models.Location{Name: "Cafe Central", City: strPtr("Brussels"), Source: models.LocationSourceManual}

		raw, err := merger.Contribution(winner, loser)
		require.NoError(t, err)

		var contribution models.DataContribution
		require.NoError(t, json.Unmarshal(raw, &contribution))
		assert.Nil(t, contribution.City)
		assert.Nil(t, contribution.AlternateName)
		assert.Equal(t, "manual", contribution.SourceRecorded)
	})
}
