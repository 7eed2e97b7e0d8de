package merging

import (
	"encoding/json"

	"github.com/Ramsey-B/juniper/pkg/models"
)

// FieldMerger computes what a merged-away location contributed to its
// canonical record: only fields the winner was missing count.
type FieldMerger struct{}

// NewFieldMerger creates a new FieldMerger
func NewFieldMerger() *FieldMerger {
	return &FieldMerger{}
}

// Contribution diffs the loser against the winner and returns the
// serialized contribution for the audit trail. The winner's data is never
// overwritten; the result records provenance, not mutations.
func (m *FieldMerger) Contribution(winner, loser *models.Location) (json.RawMessage, error) {
	contribution := models.DataContribution{
		SourceRecorded: string(loser.Source),
	}

	if winner.City == nil && loser.City != nil {
		contribution.City = loser.City
	}
	if loser.Name != winner.Name {
		name := loser.Name
		contribution.AlternateName = &name
	}

	return json.Marshal(contribution)
}
