// Package sweep runs independent training runs over a hyperparameter grid in parallel.
package sweep

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"time"

	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/reporter"
	"rl-rebalancer-go/internal/simulation"
	"rl-rebalancer-go/internal/trace"

	"github.com/jxskiss/base62"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// resultVersion is bumped whenever models.RunResult changes shape.
const resultVersion = 1

// Job is one point of the grid.
type Job struct {
	Params models.RunParams
}

// ID returns a stable base62 identifier derived from the job's parameters.
func (j Job) ID() string {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range []uint64{
		uint64(j.Params.Seed),
		math.Float64bits(j.Params.LearningRate),
		math.Float64bits(j.Params.ExplorationRate),
		uint64(j.Params.Episodes),
	} {
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return base62.EncodeToString(h.Sum(nil))
}

// Expand builds the cartesian product seeds x learning rates x exploration rates. An empty
// dimension falls back to the value in base.
func Expand(cfg models.SweepConfig, base models.AgentConfig, episodes int) []Job {
	seeds := cfg.Seeds
	if len(seeds) == 0 {
		seeds = []int64{base.RandomSeed}
	}
	rates := cfg.LearningRates
	if len(rates) == 0 {
		rates = []float64{base.LearningRate}
	}
	explore := cfg.ExplorationRates
	if len(explore) == 0 {
		explore = []float64{base.ExplorationRate}
	}

	jobs := make([]Job, 0, len(seeds)*len(rates)*len(explore))
	for _, s := range seeds {
		for _, lr := range rates {
			for _, er := range explore {
				jobs = append(jobs, Job{Params: models.RunParams{
					Seed:            s,
					LearningRate:    lr,
					ExplorationRate: er,
					Episodes:        episodes,
				}})
			}
		}
	}
	return jobs
}

// Runner trains one independent agent per job. Agents never share a table or a random source.
type Runner struct {
	base      models.AgentConfig
	records   []models.StepRecord
	workers   int
	collector *Collector
	logger    *zap.Logger
}

// NewRunner creates a Runner. workers <= 0 runs one job at a time.
func NewRunner(base models.AgentConfig, records []models.StepRecord, workers int, collector *Collector, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		base:      base,
		records:   records,
		workers:   workers,
		collector: collector,
		logger:    logger,
	}
}

// Run executes every job and dispatches one result per job to the collector. A job whose run
// fails is reported through RunResult.Error; only context cancellation aborts the sweep.
func (r *Runner) Run(ctx context.Context, jobs []Job) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result := r.runJob(ctx, job)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.collector.Dispatch(result)
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) runJob(ctx context.Context, job Job) models.RunResult {
	ctx, span := trace.StartSpan(ctx, "sweep.run",
		attribute.Int64("seed", job.Params.Seed),
		attribute.Float64("learning_rate", job.Params.LearningRate),
		attribute.Float64("exploration_rate", job.Params.ExplorationRate),
	)
	defer span.End()

	result := models.RunResult{
		RunID:     job.ID(),
		Version:   resultVersion,
		Params:    job.Params,
		StartedAt: time.Now().UTC(),
	}

	cfg := r.base
	cfg.RandomSeed = job.Params.Seed
	cfg.LearningRate = job.Params.LearningRate
	cfg.ExplorationRate = job.Params.ExplorationRate

	trained, err := simulation.Train(ctx, cfg, r.records, simulation.TrainOptions{
		Episodes: job.Params.Episodes,
		Evaluate: true,
		Logger:   r.logger,
	})
	result.CompletedAt = time.Now().UTC()
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Summary = reporter.Calculate(trained.Evaluation, cfg.InitialCapital).Summary()
	result.Policy = trained.Table.Snapshot()
	return result
}
