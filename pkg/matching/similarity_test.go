package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	t.Run("lowercases", func(t *testing.T) {
		assert.Equal(t, "cafe central", NormalizeName("Cafe Central"))
	})

	t.Run("folds diacritics", func(t *testing.T) {
		assert.Equal(t, "cafe central", NormalizeName("Café Central"))
		assert.Equal(t, "creperie du soleil", NormalizeName("Crêperie du Soleil"))
	})

	t.Run("punctuation becomes word boundaries", func(t *testing.T) {
		assert.Equal(t, "joe s diner", NormalizeName("Joe's Diner"))
		assert.Equal(t, "bar restaurant rossi", NormalizeName("Bar-Restaurant \"Rossi\""))
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		assert.Equal(t, "cafe central", NormalizeName("  Cafe   Central  "))
	})

	t.Run("keeps digits", func(t *testing.T) {
		assert.Equal(t, "studio 54", NormalizeName("Studio 54"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", NormalizeName(""))
		assert.Equal(t, "", NormalizeName("  ---  "))
	})
}

func TestTrigramSimilarity(t *testing.T) {
	t.Run("identical names score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, TrigramSimilarity("Cafe Central", "Cafe Central"))
	})

	t.Run("diacritic variants score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, TrigramSimilarity("Café Central", "Cafe Central"))
	})

	t.Run("case variants score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, TrigramSimilarity("CAFE CENTRAL", "cafe central"))
	})

	t.Run("unrelated names score low", func(t *testing.T) {
		sim := TrigramSimilarity("Cafe Central", "Burger Palace")
		assert.Less(t, sim, 0.1)
	})

	t.Run("partial overlap lands between", func(t *testing.T) {
		sim := TrigramSimilarity("Cafe Central", "Cafe Centrale")
		assert.Greater(t, sim, 0.5)
		assert.Less(t, sim, 1.0)
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "Joe's Diner", "Joes Diner & Grill"
		assert.Equal(t, TrigramSimilarity(a, b), TrigramSimilarity(b, a))
	})

	t.Run("empty names score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, TrigramSimilarity("", "Cafe Central"))
		assert.Equal(t, 0.0, TrigramSimilarity("", ""))
	})
}

func TestTrigramSet_WordPadding(t *testing.T) {
	set := trigramSet("cafe")

	// "  cafe " yields "  c", " ca", "caf", "afe", "fe "
	assert.Len(t, set, 5)
	assert.Contains(t, set, "  c")
	assert.Contains(t, set, " ca")
	assert.Contains(t, set, "caf")
	assert.Contains(t, set, "afe")
	assert.Contains(t, set, "fe ")
}
