// Package merging drives the duplicate candidate state machine and executes
// confirmed merges. Decisions (confirm/reject) never touch location data;
// the merge execution is the only path that mutates locations, source
// mappings and the audit trail, and it does so in a single transaction.
package merging

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/juniper/internal/repositories/duplicatecandidate"
	"github.com/Ramsey-B/juniper/internal/repositories/location"
	"github.com/Ramsey-B/juniper/internal/repositories/mergehistory"
	"github.com/Ramsey-B/juniper/internal/repositories/sourcemapping"
	"github.com/Ramsey-B/juniper/pkg/events"
	"github.com/Ramsey-B/juniper/pkg/metrics"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

// maxMergeAttempts bounds the optimistic retry loop when the merge target
// keeps moving under concurrent merges.
const maxMergeAttempts = 3

// Engine owns candidate resolution: the pending → confirmed/rejected
// decisions and the confirmed → merged execution.
type Engine struct {
	logger        ectologger.Logger
	locationRepo  *location.Repository
	sourceMapRepo *sourcemapping.Repository
	candidateRepo *duplicatecandidate.Repository
	historyRepo   *mergehistory.Repository
	fieldMerger   *FieldMerger
	emitter       *events.Emitter // optional; nil disables event emission
}

// NewEngine creates a new merge engine. emitter may be nil.
func NewEngine(
	logger ectologger.Logger,
	locationRepo *location.Repository,
	sourceMapRepo *sourcemapping.Repository,
	candidateRepo *duplicatecandidate.Repository,
	historyRepo *mergehistory.Repository,
	emitter *events.Emitter,
) *Engine {
	return &Engine{
		logger:        logger,
		locationRepo:  locationRepo,
		sourceMapRepo: sourceMapRepo,
		candidateRepo: candidateRepo,
		historyRepo:   historyRepo,
		fieldMerger:   NewFieldMerger(),
		emitter:       emitter,
	}
}

// Confirm accepts a pending candidate as a true duplicate. No location data
// changes until the merge is executed.
func (e *Engine) Confirm(ctx context.Context, candidateID, resolvedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Confirm")
	defer span.End()

	if err := e.candidateRepo.TransitionStatus(ctx, candidateID, []string{models.CandidateStatusPending}, models.CandidateStatusConfirmed, resolvedBy); err != nil {
		return err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"candidate_id": candidateID,
		"resolved_by":  resolvedBy,
	}).Info("Confirmed duplicate candidate")
	return nil
}

// Reject marks a pending candidate as not-a-duplicate. Terminal.
func (e *Engine) Reject(ctx context.Context, candidateID, resolvedBy string) error {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Reject")
	defer span.End()

	if err := e.candidateRepo.TransitionStatus(ctx, candidateID, []string{models.CandidateStatusPending}, models.CandidateStatusRejected, resolvedBy); err != nil {
		return err
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"candidate_id": candidateID,
		"resolved_by":  resolvedBy,
	}).Info("Rejected duplicate candidate")
	return nil
}

// Merge executes a confirmed candidate: the loser is folded into the winner
// in one transaction covering the location flip, source mapping repoints,
// the audit row and the candidate transition. When the requested winner was
// itself merged away concurrently, the merge resolves transitively to its
// canonical ancestor and retries, up to maxMergeAttempts. On failure
// everything rolls back and the candidate stays confirmed and retryable.
func (e *Engine) Merge(ctx context.Context, candidateID, winnerID, mergedBy string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.Merge")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"candidate_id": candidateID,
		"winner_id":    winnerID,
		"merged_by":    mergedBy,
	})

	candidate, err := e.candidateRepo.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.Status != models.CandidateStatusConfirmed {
		return nil, httperror.NewHTTPError(http.StatusConflict, "candidate must be confirmed before merging; status is "+candidate.Status)
	}

	var loserID string
	switch winnerID {
	case candidate.LocationID1:
		loserID = candidate.LocationID2
	case candidate.LocationID2:
		loserID = candidate.LocationID1
	default:
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "winner_id must be one of the candidate's locations")
	}

	var result *models.MergeResult
	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		result, err = e.mergeAttempt(ctx, candidate, winnerID, loserID, mergedBy)
		if err == nil {
			break
		}
		if !isRetryableConflict(err) {
			metrics.RecordMerge("failed")
			return nil, err
		}

		metrics.RecordMergeConflict()
		log.WithFields(map[string]any{"attempt": attempt}).Warn("Merge target moved concurrently; retrying against resolved ancestor")
	}
	if err != nil {
		metrics.RecordMerge("conflict")
		return nil, httperror.NewHTTPError(http.StatusConflict, "merge target kept changing; retry the merge")
	}

	metrics.RecordMerge("merged")
	log.WithFields(map[string]any{
		"final_winner_id": result.Winner.ID,
		"redirected":      result.Redirected,
	}).Info("Merged duplicate location")

	if e.emitter != nil {
		if err := e.emitter.EmitLocationMerged(ctx, result); err != nil {
			log.WithError(err).Warn("Failed to emit location.merged event")
		}
	}

	return result, nil
}

// mergeAttempt runs one transactional merge try.
func (e *Engine) mergeAttempt(ctx context.Context, candidate *models.DuplicateCandidate, winnerID, loserID, mergedBy string) (*models.MergeResult, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.mergeAttempt")
	defer span.End()

	ctxTx, tx, err := e.candidateRepo.DB().GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Re-validate the winner inside the transaction. A winner merged away
	// since confirmation is not fatal: follow its canonical reference and
	// merge into the ancestor instead.
	winner, redirected, err := e.locationRepo.ResolveCanonical(ctxTx, winnerID)
	if err != nil {
		return nil, err
	}
	if winner.ID == loserID {
		return nil, httperror.NewHTTPError(http.StatusConflict, "winner already resolves to the loser; pair is already merged")
	}

	loser, err := e.locationRepo.Get(ctxTx, loserID)
	if err != nil {
		return nil, err
	}
	if !loser.IsCanonical {
		return nil, httperror.NewHTTPError(http.StatusConflict, "location "+loserID+" was already merged")
	}

	// Capture the loser's own external identity before mappings move.
	var mergedExternalID *string
	mappings, err := e.sourceMapRepo.ListByLocationID(ctxTx, loser.ID)
	if err != nil {
		return nil, err
	}
	for i := range mappings {
		if mappings[i].Source == loser.Source {
			externalID := mappings[i].ExternalID
			mergedExternalID = &externalID
			break
		}
	}

	mergedAt := time.Now().UTC()

	flipped, err := e.locationRepo.MarkMerged(ctxTx, loser.ID, winner.ID, mergedAt)
	if err != nil {
		return nil, err
	}
	if !flipped {
		return nil, httperror.NewHTTPError(http.StatusConflict, "location "+loserID+" was merged by a concurrent transaction")
	}

	bumped, err := e.locationRepo.IncrementSourceCount(ctxTx, winner.ID)
	if err != nil {
		return nil, err
	}
	if !bumped {
		// The resolved winner lost its canonical status between the resolve
		// and the write. Roll back and retry from the top.
		return nil, errWinnerMoved
	}

	if _, err := e.sourceMapRepo.RepointLocation(ctxTx, loser.ID, winner.ID); err != nil {
		return nil, err
	}

	// Any locations previously merged into the loser now point at the
	// winner directly, keeping canonical references single-hop.
	if _, err := e.locationRepo.RepointCanonicalRefs(ctxTx, loser.ID, winner.ID); err != nil {
		return nil, err
	}

	contribution, err := e.fieldMerger.Contribution(winner, loser)
	if err != nil {
		return nil, err
	}

	history, err := e.historyRepo.Create(ctxTx, &models.MergeHistory{
		CanonicalLocationID: winner.ID,
		MergedLocationID:    loser.ID,
		MergedSource:        loser.Source,
		MergedExternalID:    mergedExternalID,
		DataContributed:     contribution,
		MergedAt:            mergedAt,
		MergedBy:            mergedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := e.candidateRepo.TransitionStatus(ctxTx, candidate.ID, []string{models.CandidateStatusConfirmed}, models.CandidateStatusMerged, mergedBy); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return nil, err
	}

	winner.SourceCount++
	return &models.MergeResult{
		CandidateID: candidate.ID,
		Winner:      winner,
		LoserID:     loser.ID,
		Redirected:  redirected,
		History:     history,
		MergedAt:    mergedAt,
	}, nil
}

// errWinnerMoved signals that the resolved winner was merged away between
// re-validation and the conditional write, so the attempt should be retried.
var errWinnerMoved = httperror.NewHTTPError(http.StatusConflict, "merge winner changed concurrently")

func isRetryableConflict(err error) bool {
	return err == errWinnerMoved
}
