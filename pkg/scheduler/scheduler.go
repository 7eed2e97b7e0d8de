// Package scheduler runs the periodic duplicate-detection cycle: populate
// the candidate store from a fresh scan and, when enabled, auto-resolve
// high-confidence candidates. Cycles are serialized across instances with a
// Redis lock; scanning itself is read-only so a skipped cycle just waits
// for the next tick.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/juniper/internal/repositories/duplicatecandidate"
	"github.com/Ramsey-B/juniper/internal/repositories/location"
	"github.com/Ramsey-B/juniper/pkg/events"
	"github.com/Ramsey-B/juniper/pkg/matching"
	"github.com/Ramsey-B/juniper/pkg/merging"
	"github.com/Ramsey-B/juniper/pkg/metrics"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/redis"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

var (
	// ErrSchedulerStopped is returned when the scheduler is stopped
	ErrSchedulerStopped = errors.New("scheduler stopped")

	// ErrSchedulerAlreadyRunning is returned when trying to start an already running scheduler
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

const (
	// DefaultPollInterval is the default interval between scan cycles
	DefaultPollInterval = 5 * time.Minute

	// DefaultLockTTL is the default TTL for the scan cycle lock
	DefaultLockTTL = 10 * time.Minute

	// scanCycleLockKey serializes whole cycles across instances
	scanCycleLockKey = "juniper:scan-cycle"

	// AutoResolverIdentity is stamped as resolved_by on automated decisions
	AutoResolverIdentity = "auto-resolver"

	// autoMergeBatchLimit bounds how many candidates one cycle resolves
	autoMergeBatchLimit = 100
)

// Config holds configuration for the scheduler
type Config struct {
	// PollInterval is how often to run a scan cycle
	PollInterval time.Duration

	// LockTTL is how long the cycle lock is held
	LockTTL time.Duration

	// DistanceMeters and MinConfidence are passed to populate
	DistanceMeters float64
	MinConfidence  int

	// AutoMergeEnabled turns on the automated resolver
	AutoMergeEnabled bool

	// AutoMergeMinConfidence is the floor for automated confirm+merge
	AutoMergeMinConfidence int
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{
		PollInterval:           DefaultPollInterval,
		LockTTL:                DefaultLockTTL,
		DistanceMeters:         100,
		MinConfidence:          60,
		AutoMergeEnabled:       false,
		AutoMergeMinConfidence: 95,
	}
}

// Scheduler drives periodic candidate population and auto resolution
type Scheduler struct {
	matchingService *matching.Service
	mergeEngine     *merging.Engine
	candidateRepo   *duplicatecandidate.Repository
	locationRepo    *location.Repository
	locker          *redis.Locker
	emitter         *events.Emitter // optional
	config          Config
	logger          ectologger.Logger

	// Coordination
	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	mu       sync.RWMutex
}

// NewScheduler creates a new scheduler. emitter may be nil.
func NewScheduler(
	matchingService *matching.Service,
	mergeEngine *merging.Engine,
	candidateRepo *duplicatecandidate.Repository,
	locationRepo *location.Repository,
	locker *redis.Locker,
	emitter *events.Emitter,
	config Config,
	logger ectologger.Logger,
) *Scheduler {
	// Apply defaults
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultLockTTL
	}

	return &Scheduler{
		matchingService: matchingService,
		mergeEngine:     mergeEngine,
		candidateRepo:   candidateRepo,
		locationRepo:    locationRepo,
		locker:          locker,
		emitter:         emitter,
		config:          config,
		logger:          logger,
		stopCh:          make(chan struct{}),
		stoppedC:        make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	s.logger.WithContext(ctx).Infof("Starting scheduler: poll_interval=%s auto_merge=%t",
		s.config.PollInterval, s.config.AutoMergeEnabled)

	go s.pollLoop(ctx)

	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Stopping scheduler...")

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// pollLoop continuously runs scan cycles
func (s *Scheduler) pollLoop(ctx context.Context) {
	defer close(s.stoppedC)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.runCycle(ctx)

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debug("Scheduler poll loop stopping")
			return
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle runs one populate (+ optional auto-resolve) cycle under the
// distributed lock. Losing the lock race is normal: another instance owns
// this cycle.
func (s *Scheduler) runCycle(ctx context.Context) {
	ctx, span := tracing.StartSpan(ctx, "scheduler.Scheduler.runCycle")
	defer span.End()

	lock, err := s.locker.Acquire(ctx, scanCycleLockKey, s.config.LockTTL)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			s.logger.WithContext(ctx).Debug("Scan cycle lock held elsewhere; skipping cycle")
			return
		}
		s.logger.WithContext(ctx).WithError(err).Error("Failed to acquire scan cycle lock")
		return
	}
	defer lock.Release(ctx)

	start := time.Now()

	resp, err := s.matchingService.PopulateDuplicateCandidates(ctx, models.PopulateRequest{
		DistanceThresholdMeters: s.config.DistanceMeters,
		MinConfidence:           s.config.MinConfidence,
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Populate cycle failed")
		return
	}

	if resp.AffectedCount > 0 && s.emitter != nil {
		if err := s.emitter.EmitCandidatesFlagged(ctx, resp.AffectedCount, s.config.MinConfidence); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to emit candidate.flagged event")
		}
	}

	merged := 0
	if s.config.AutoMergeEnabled {
		merged = s.autoResolve(ctx)
	}

	if stats, err := s.matchingService.GetDuplicateStats(ctx); err == nil {
		metrics.PendingCandidates.Set(float64(stats.PendingCandidates))
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"rows_affected": resp.AffectedCount,
		"auto_merged":   merged,
		"duration":      time.Since(start).String(),
	}).Info("Scan cycle completed")
}

// autoResolve acts as the automated decision agent: it confirms and merges
// candidates whose confidence reaches the auto-merge floor. The winner is
// the location with the higher source count (the record with more history),
// ties broken by the lower id for determinism.
func (s *Scheduler) autoResolve(ctx context.Context) int {
	ctx, span := tracing.StartSpan(ctx, "scheduler.Scheduler.autoResolve")
	defer span.End()

	candidates, err := s.candidateRepo.ListAutoMergeable(ctx, s.config.AutoMergeMinConfidence, autoMergeBatchLimit)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error("Failed to list auto-mergeable candidates")
		return 0
	}

	merged := 0
	for i := range candidates {
		candidate := candidates[i]

		select {
		case <-s.stopCh:
			return merged
		default:
		}

		winnerID, err := s.pickWinner(ctx, &candidate)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"candidate_id": candidate.ID}).Warn("Skipping auto-merge; could not pick winner")
			continue
		}

		if err := s.mergeEngine.Confirm(ctx, candidate.ID, AutoResolverIdentity); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"candidate_id": candidate.ID}).Warn("Failed to confirm candidate for auto-merge")
			continue
		}

		if _, err := s.mergeEngine.Merge(ctx, candidate.ID, winnerID, AutoResolverIdentity); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"candidate_id": candidate.ID}).Warn("Auto-merge failed; candidate stays confirmed")
			continue
		}
		merged++
	}

	return merged
}

// pickWinner prefers the richer record: higher source_count, then lower id.
func (s *Scheduler) pickWinner(ctx context.Context, candidate *models.DuplicateCandidate) (string, error) {
	loc1, err := s.locationRepo.Get(ctx, candidate.LocationID1)
	if err != nil {
		return "", err
	}
	loc2, err := s.locationRepo.Get(ctx, candidate.LocationID2)
	if err != nil {
		return "", err
	}

	if loc2.SourceCount > loc1.SourceCount {
		return loc2.ID, nil
	}
	return loc1.ID, nil
}
