package matching

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/juniper/internal/repositories/duplicatecandidate"
	"github.com/Ramsey-B/juniper/internal/repositories/stats"
	"github.com/Ramsey-B/juniper/pkg/metrics"
	"github.com/Ramsey-B/juniper/pkg/models"
	"github.com/Ramsey-B/juniper/pkg/redis"
	"github.com/Ramsey-B/juniper/pkg/tracing"
)

const (
	// populateSimilarityFloor is the loose similarity cut applied while
	// populating. The real filter is min_confidence on the overall score;
	// the floor only keeps obviously unrelated names out of scoring.
	populateSimilarityFloor = 0.3

	// populateScanCap bounds one population run.
	populateScanCap = 50000

	// upsertChunkSize is how many candidate rows go into one statement.
	// Each chunk commits independently so interrupted runs keep progress.
	upsertChunkSize = 500

	statsCacheKey = "juniper:duplicate-stats"
)

// Config contains the scan defaults applied when a request leaves a knob
// unset.
type Config struct {
	DefaultDistanceMeters float64
	DefaultNameSimilarity float64
	DefaultBatchSize      int
	DefaultMinConfidence  int
	StatsCacheTTL         time.Duration
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		DefaultDistanceMeters: 100,
		DefaultNameSimilarity: 0.4,
		DefaultBatchSize:      1000,
		DefaultMinConfidence:  60,
		StatsCacheTTL:         15 * time.Second,
	}
}

// Service is the boundary surface of duplicate detection: read-only scans,
// candidate population and the stats snapshot.
type Service struct {
	log           ectologger.Logger
	engine        *Engine
	candidateRepo *duplicatecandidate.Repository
	statsRepo     *stats.Repository
	cache         *redis.Client // optional; nil disables stats caching
	cfg           Config
}

// NewService creates a new matching service. cache may be nil.
func NewService(
	log ectologger.Logger,
	engine *Engine,
	candidateRepo *duplicatecandidate.Repository,
	statsRepo *stats.Repository,
	cache *redis.Client,
	cfg Config,
) *Service {
	return &Service{
		log:           log,
		engine:        engine,
		candidateRepo: candidateRepo,
		statsRepo:     statsRepo,
		cache:         cache,
		cfg:           cfg,
	}
}

// FindDuplicateCandidates runs a pure read scan and returns the scored,
// ordered pairs. Nothing is persisted.
func (s *Service) FindDuplicateCandidates(ctx context.Context, req models.ScanRequest) (*models.ScanResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.FindDuplicateCandidates")
	defer span.End()

	params, err := s.scanParams(req)
	if err != nil {
		return nil, err
	}

	pairs, err := s.engine.Scan(ctx, params)
	if err != nil {
		return nil, err
	}

	return &models.ScanResponse{
		Pairs: pairs,
		Count: len(pairs),
	}, nil
}

// PopulateDuplicateCandidates scans with the loose internal floor, keeps
// pairs at or above min_confidence and upserts them into the candidate
// store. Returns how many rows were actually created or rescored, so a
// second run over unchanged data reports zero.
func (s *Service) PopulateDuplicateCandidates(ctx context.Context, req models.PopulateRequest) (*models.PopulateResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.PopulateDuplicateCandidates")
	defer span.End()

	distance := req.DistanceThresholdMeters
	if distance == 0 {
		distance = s.cfg.DefaultDistanceMeters
	}
	if distance < 0 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "distance_threshold_meters must be greater than 0")
	}

	minConfidence := req.MinConfidence
	if minConfidence == 0 {
		minConfidence = s.cfg.DefaultMinConfidence
	}
	if minConfidence < 0 || minConfidence > 100 {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "min_confidence must be between 0 and 100")
	}

	start := time.Now()
	pairs, err := s.engine.Scan(ctx, ScanParams{
		DistanceThresholdMeters: distance,
		NameSimilarityThreshold: populateSimilarityFloor,
		BatchSize:               populateScanCap,
	})
	if err != nil {
		metrics.RecordScan("error", time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordScan("success", time.Since(start).Seconds())

	keep := ectolinq.Filter(pairs, func(pair models.CandidatePair) bool {
		return pair.OverallScore >= minConfidence
	})

	var affected int64
	for start := 0; start < len(keep); start += upsertChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + upsertChunkSize
		if end > len(keep) {
			end = len(keep)
		}

		n, err := s.candidateRepo.UpsertScores(ctx, keep[start:end])
		if err != nil {
			return nil, err
		}
		affected += n
	}

	metrics.RecordCandidatesUpserted(affected)

	s.log.WithContext(ctx).WithFields(map[string]any{
		"pairs_scored":   len(pairs),
		"pairs_kept":     len(keep),
		"rows_affected":  affected,
		"min_confidence": minConfidence,
	}).Infof("Populated %d duplicate candidates", affected)

	return &models.PopulateResponse{AffectedCount: int(affected)}, nil
}

// GetDuplicateStats returns the dedup progress snapshot, served from the
// short-lived cache when one is configured.
func (s *Service) GetDuplicateStats(ctx context.Context) (*models.DuplicateStats, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Service.GetDuplicateStats")
	defer span.End()

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, statsCacheKey); err == nil && cached != "" {
			var snapshot models.DuplicateStats
			if err := json.Unmarshal([]byte(cached), &snapshot); err == nil {
				return &snapshot, nil
			}
		}
	}

	snapshot, err := s.statsRepo.GetDuplicateStats(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(snapshot); err == nil {
			if err := s.cache.Set(ctx, statsCacheKey, string(payload), s.cfg.StatsCacheTTL); err != nil {
				s.log.WithContext(ctx).WithError(err).Warn("Failed to cache duplicate stats")
			}
		}
	}

	return snapshot, nil
}

// scanParams applies defaults and validates before any read happens.
func (s *Service) scanParams(req models.ScanRequest) (ScanParams, error) {
	params := ScanParams{
		DistanceThresholdMeters: req.DistanceThresholdMeters,
		NameSimilarityThreshold: req.NameSimilarityThreshold,
		BatchSize:               req.BatchSize,
	}

	if params.DistanceThresholdMeters == 0 {
		params.DistanceThresholdMeters = s.cfg.DefaultDistanceMeters
	}
	if params.NameSimilarityThreshold == 0 {
		params.NameSimilarityThreshold = s.cfg.DefaultNameSimilarity
	}
	if params.BatchSize == 0 {
		params.BatchSize = s.cfg.DefaultBatchSize
	}

	if params.DistanceThresholdMeters <= 0 {
		return ScanParams{}, httperror.NewHTTPError(http.StatusBadRequest, "distance_threshold_meters must be greater than 0")
	}
	if params.NameSimilarityThreshold < 0 || params.NameSimilarityThreshold > 1 {
		return ScanParams{}, httperror.NewHTTPError(http.StatusBadRequest, "name_similarity_threshold must be between 0 and 1")
	}
	if params.BatchSize <= 0 {
		return ScanParams{}, httperror.NewHTTPError(http.StatusBadRequest, "batch_size must be greater than 0")
	}

	return params, nil
}
