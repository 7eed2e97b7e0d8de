package models

import (
	"time"
)

// MergeResult reports one executed merge.
type MergeResult struct {
	CandidateID string    `json:"candidate_id"`
	Winner      *Location `json:"winner"`
	LoserID     string    `json:"loser_id"`
	// Redirected is true when the requested winner had itself been merged
	// away and the merge landed on its canonical ancestor instead.
	Redirected bool          `json:"redirected"`
	History    *MergeHistory `json:"history"`
	MergedAt   time.Time     `json:"merged_at"`
}
