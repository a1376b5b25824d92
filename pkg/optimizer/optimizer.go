package optimizer

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/brianbland/l2feesim/pkg/analysis"
	"github.com/brianbland/l2feesim/pkg/blockchain"
	"github.com/brianbland/l2feesim/pkg/observability"
	"github.com/brianbland/l2feesim/pkg/simulator"
)

// ErrRangeTooLarge is returned when a sweep range exceeds SweepConfig.MaxBlocks
var ErrRangeTooLarge = errors.New("range too large")

// ErrInvalidRange is returned when a sweep range selects no samples
var ErrInvalidRange = blockchain.ErrInvalidRange

// Progress reports how far a sweep has come
type Progress struct {
	RunID     uint64
	Evaluated int
	Total     int
}

// SweepConfig controls how a sweep runs
type SweepConfig struct {
	Grid       Grid
	Score      analysis.ScoreConfig
	MaxBlocks  int // Largest range accepted
	Workers    int // Candidates evaluated in parallel
	YieldEvery int // Candidates between Yield calls
	Yield      func()
	// OnProgress is called after every evaluated candidate. With more than
	// one worker it may be called concurrently.
	OnProgress func(Progress)
}

// DefaultSweepConfig returns the default sweep configuration
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Grid:       DefaultGrid(),
		Score:      analysis.DefaultScoreConfig(),
		MaxBlocks:  200_000,
		Workers:    1,
		YieldEvery: 5,
		Yield:      runtime.Gosched,
	}
}

// SweepRequest is the input of one sweep
type SweepRequest struct {
	Samples  []blockchain.FeeSample
	Demand   []float64
	Params   simulator.SimulationParams // Base parameters each candidate overlays
	MinBlock int64
	MaxBlock int64
}

// ScoredCandidate is an evaluated grid point
type ScoredCandidate struct {
	Index      int                        `json:"index"`
	Candidate  Candidate                  `json:"candidate"`
	Controller simulator.ControllerConfig `json:"controller"`
	Score      *analysis.ScoreResult      `json:"score"`
}

// SweepResult is the ranked outcome of a sweep. A cancelled sweep holds the
// candidates evaluated before it stopped.
type SweepResult struct {
	RunID      uint64            `json:"runId"`
	Candidates []ScoredCandidate `json:"candidates"`
	Best       *ScoredCandidate  `json:"best,omitempty"`
	Evaluated  int               `json:"evaluated"`
	Total      int               `json:"total"`
	Cancelled  bool              `json:"cancelled"`
	StartBlock int64             `json:"startBlock"`
	EndBlock   int64             `json:"endBlock"`
}

// Optimizer runs controller parameter sweeps. Starting a sweep or calling
// Cancel invalidates any sweep still in flight.
type Optimizer struct {
	config  SweepConfig
	runner  *simulator.Runner
	logger  *zap.Logger
	metrics *observability.SweepMetrics

	runID atomic.Uint64

	lock sync.Mutex
	last *SweepResult
}

// New creates an optimizer. A nil logger or metrics disables them.
func New(cfg SweepConfig, logger *zap.Logger, metrics *observability.SweepMetrics) *Optimizer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.YieldEvery < 1 {
		cfg.YieldEvery = 1
	}
	if cfg.Yield == nil {
		cfg.Yield = func() {}
	}
	// Sweeps never zero the health ratios of a zero-target vault
	cfg.Score.UnitTargetFallback = true
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics, _ = observability.NewSweepMetrics(nil)
	}
	return &Optimizer{
		config:  cfg,
		runner:  simulator.NewRunner(logger),
		logger:  logger,
		metrics: metrics,
	}
}

// Cancel stops the sweep in flight at its next candidate boundary
func (o *Optimizer) Cancel() {
	o.runID.Add(1)
}

// CurrentRunID returns the id of the most recent sweep or cancellation
func (o *Optimizer) CurrentRunID() uint64 {
	return o.runID.Load()
}

// Last returns the result of the most recent complete sweep
func (o *Optimizer) Last() *SweepResult {
	o.lock.Lock()
	defer o.lock.Unlock()

	return o.last
}

// Run evaluates every grid candidate over [MinBlock, MaxBlock] and ranks them
// by ascending total badness
func (o *Optimizer) Run(ctx context.Context, req SweepRequest) (*SweepResult, error) {
	if err := o.config.Grid.Validate(); err != nil {
		o.metrics.SweepsRejected.Inc()
		return nil, err
	}
	if err := blockchain.ValidateSamples(req.Samples); err != nil {
		o.metrics.SweepsRejected.Inc()
		return nil, err
	}
	if len(req.Demand) != len(req.Samples) {
		o.metrics.SweepsRejected.Inc()
		return nil, fmt.Errorf("%w: %d demand values for %d samples",
			simulator.ErrLengthMismatch, len(req.Demand), len(req.Samples))
	}
	if err := req.Params.Validate(); err != nil {
		o.metrics.SweepsRejected.Inc()
		return nil, err
	}

	i0, i1, err := blockchain.IndexRange(req.Samples, req.MinBlock, req.MaxBlock)
	if err != nil {
		o.metrics.SweepsRejected.Inc()
		return nil, err
	}
	if n := i1 - i0 + 1; n > o.config.MaxBlocks {
		o.metrics.SweepsRejected.Inc()
		return nil, fmt.Errorf("%w: %d blocks exceeds limit of %d", ErrRangeTooLarge, n, o.config.MaxBlocks)
	}

	runID := o.runID.Add(1)
	o.metrics.SweepsStarted.Inc()

	samples := req.Samples[i0 : i1+1]
	demand := req.Demand[i0 : i1+1]
	base := req.Params
	base.BlockIndexOffset += i0

	candidates := o.config.Grid.Candidates()
	total := len(candidates)

	o.logger.Info("starting sweep",
		zap.Uint64("runID", runID),
		zap.Int("candidates", total),
		zap.Int("workers", o.config.Workers),
		zap.Int64("startBlock", samples[0].BlockNumber),
		zap.Int64("endBlock", samples[len(samples)-1].BlockNumber),
	)

	stopped := func(ctx context.Context) bool {
		return ctx.Err() != nil || o.runID.Load() != runID
	}

	var (
		results   = make([]*ScoredCandidate, total)
		evaluated atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for i, candidate := range candidates {
		if stopped(gctx) {
			break
		}

		i, candidate := i, candidate
		g.Go(func() error {
			if stopped(gctx) {
				return nil
			}

			scored, err := o.evaluate(i, candidate, samples, demand, base)
			if err != nil {
				o.metrics.CandidateFailures.Inc()
				return fmt.Errorf("candidate %d (%s): %w", i, candidate, err)
			}
			results[i] = scored

			count := int(evaluated.Add(1))
			if count%o.config.YieldEvery == 0 {
				o.config.Yield()
			}
			if o.config.OnProgress != nil {
				o.config.OnProgress(Progress{RunID: runID, Evaluated: count, Total: total})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &SweepResult{
		RunID:      runID,
		Total:      total,
		StartBlock: samples[0].BlockNumber,
		EndBlock:   samples[len(samples)-1].BlockNumber,
	}
	for _, scored := range results {
		if scored != nil {
			result.Candidates = append(result.Candidates, *scored)
		}
	}
	result.Evaluated = len(result.Candidates)
	result.Cancelled = result.Evaluated < total

	sort.SliceStable(result.Candidates, func(a, b int) bool {
		return result.Candidates[a].Score.TotalBadness < result.Candidates[b].Score.TotalBadness
	})
	if len(result.Candidates) > 0 {
		result.Best = &result.Candidates[0]
	}

	// A run superseded after its last candidate is reported as cancelled
	o.lock.Lock()
	if o.runID.Load() != runID {
		result.Cancelled = true
	}
	if !result.Cancelled {
		o.last = result
	}
	o.lock.Unlock()

	if result.Cancelled {
		o.metrics.SweepsCancelled.Inc()
		o.logger.Info("sweep cancelled",
			zap.Uint64("runID", runID),
			zap.Int("evaluated", result.Evaluated),
			zap.Int("total", total),
		)
		return result, nil
	}

	o.metrics.SweepsCompleted.Inc()
	if result.Best != nil {
		o.metrics.BestTotalBadness.Set(result.Best.Score.TotalBadness)
		o.logger.Info("sweep complete",
			zap.Uint64("runID", runID),
			zap.Int("evaluated", result.Evaluated),
			zap.Stringer("best", result.Best.Candidate),
			zap.Float64("bestTotalBadness", result.Best.Score.TotalBadness),
		)
	}

	return result, nil
}

func (o *Optimizer) evaluate(
	index int,
	candidate Candidate,
	samples []blockchain.FeeSample,
	demand []float64,
	base simulator.SimulationParams,
) (*ScoredCandidate, error) {
	start := time.Now()
	defer func() {
		o.metrics.CandidateDuration.Observe(time.Since(start).Seconds())
	}()

	params := base
	params.Mechanism = simulator.MechanismPID
	params.Controller = candidate.Apply(base.Controller)

	trace, err := o.runner.Run(samples, demand, params)
	if err != nil {
		return nil, err
	}

	score, err := analysis.ScoreIndices(trace, 0, len(trace.Rows)-1, o.config.Score)
	if err != nil {
		return nil, err
	}

	o.metrics.CandidatesEvaluated.Inc()
	return &ScoredCandidate{
		Index:      index,
		Candidate:  candidate,
		Controller: params.Controller,
		Score:      score,
	}, nil
}
