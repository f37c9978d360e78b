// Package simulation drives the rebalancing agent one input record at a time.
package simulation

import (
	"errors"
	"fmt"

	"rl-rebalancer-go/internal/credit"
	"rl-rebalancer-go/internal/dataset"
	"rl-rebalancer-go/internal/decision"
	"rl-rebalancer-go/internal/ledger"
	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/policy"
	"rl-rebalancer-go/internal/randsrc"

	"go.uber.org/zap"
)

// Phase is the lifecycle position of an Agent.
type Phase int

const (
	PhaseReady     Phase = iota // no step taken yet
	PhaseRunning                // at least one step taken, records remain
	PhaseExhausted              // input consumed; every further Step returns ErrEndOfSimulation
)

func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseRunning:
		return "running"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Option customises NewAgent.
type Option func(*options)

type options struct {
	table  *policy.Table
	rng    randsrc.Source
	logger *zap.Logger
}

// WithPolicyTable continues learning in an existing table instead of a fresh one.
// The table must have been built for the same levels and rebalance limit.
func WithPolicyTable(t *policy.Table) Option {
	return func(o *options) { o.table = t }
}

// WithRandomSource replaces the source seeded from the configuration.
func WithRandomSource(src randsrc.Source) Option {
	return func(o *options) { o.rng = src }
}

// WithLogger sets the logger used for per-step debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Agent owns a policy table, a ledger, and the trailing decision history for one run over a
// StepRecord series. It is not safe for concurrent use; run independent agents in parallel
// instead.
type Agent struct {
	cfg      models.AgentConfig
	records  []models.StepRecord
	bins     int
	cursor   int
	phase    Phase
	failure  error
	table    *policy.Table
	engine   *decision.Engine
	ledger   *ledger.Ledger
	assigner credit.Assigner
	history  *credit.History

	trajectory []models.TrajectoryPoint
	logger     *zap.Logger
}

// NewAgent validates cfg and records and returns an Agent in PhaseReady.
func NewAgent(cfg models.AgentConfig, records []models.StepRecord, opts ...Option) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	bins := dataset.ResolveBins(records, cfg.ForecastBins)
	if o.table != nil {
		if o.table.Levels() != len(cfg.AssetBalanceLevels) || o.table.RebalanceLimit() != cfg.RebalanceLimitSteps {
			return nil, &models.ConfigurationError{Field: "policy_table", Reason: "table shape does not match levels and rebalance limit"}
		}
		if bins > o.table.Bins() {
			return nil, &models.ConfigurationError{Field: "policy_table", Reason: fmt.Sprintf("table has %d forecast bins, series needs %d", o.table.Bins(), bins)}
		}
		bins = o.table.Bins()
	}
	if err := dataset.Validate(records, bins); err != nil {
		return nil, err
	}

	series := append([]models.StepRecord(nil), records...)
	if cfg.MaxSteps > 0 && len(series) > cfg.MaxSteps {
		series = series[:cfg.MaxSteps]
	}
	if o.table == nil {
		o.table = policy.NewTable(len(cfg.AssetBalanceLevels), cfg.RebalanceLimitSteps, bins)
	}
	if o.rng == nil {
		o.rng = randsrc.New(cfg.RandomSeed)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	assigner, err := credit.New(cfg.CreditScheme, cfg.CreditDecay, o.table)
	if err != nil {
		return nil, &models.ConfigurationError{Field: "credit_scheme", Reason: err.Error()}
	}

	return &Agent{
		cfg:        cfg,
		records:    series,
		bins:       bins,
		phase:      PhaseReady,
		table:      o.table,
		engine:     decision.NewEngine(o.table, o.rng, cfg.ExplorationRate),
		ledger:     ledger.NewLedger(cfg.AssetBalanceLevels, cfg.InitialCapital, cfg.InitialBalanceIndex),
		assigner:   assigner,
		history:    credit.NewHistory(cfg.LookbackWindow),
		trajectory: make([]models.TrajectoryPoint, 0, len(series)),
		logger:     o.logger,
	}, nil
}

// Step consumes the next record: decide, settle the ledger, record, optionally learn, advance.
//
// It returns models.ErrEndOfSimulation once the series is consumed, without touching the
// trajectory or the table. A *models.NonPositiveValueError ends the run: the failing step
// leaves the ledger, history, trajectory and table unchanged, and every later call returns the
// same error.
func (a *Agent) Step(exploring, learning bool) error {
	if a.failure != nil {
		return a.failure
	}
	if a.phase == PhaseExhausted {
		return models.ErrEndOfSimulation
	}

	rec := a.records[a.cursor]
	state := models.State{BalanceIndex: a.ledger.BalanceIndex(), ForecastBin: rec.ForecastBin}
	d := a.engine.Decide(state, exploring)

	previous := a.ledger.Value()
	value, reward, err := a.ledger.Advance(d.Action, rec.RealizedReturn)
	if err != nil {
		var npv *models.NonPositiveValueError
		if errors.As(err, &npv) {
			npv.Step = a.cursor
		}
		a.failure = err
		a.logger.Error("simulation halted", zap.Int("step", a.cursor), zap.Error(err))
		return err
	}

	a.history.Push(credit.Entry{State: state, Action: d.Action})
	a.trajectory = append(a.trajectory, models.TrajectoryPoint{
		Step:          a.cursor,
		Date:          rec.Date,
		State:         state,
		Action:        d.Action,
		BalanceLevel:  a.ledger.Level(d.Action),
		PreviousValue: previous,
		Value:         value,
		Reward:        reward,
		Explored:      d.Explored,
	})

	if learning {
		if err := a.assigner.Assign(reward, a.history.Entries(), a.cfg.LearningRate); err != nil {
			a.failure = fmt.Errorf("credit assignment at step %d: %w", a.cursor, err)
			return a.failure
		}
	}

	a.logger.Debug("step",
		zap.Int("step", a.cursor),
		zap.Stringer("state", state),
		zap.Int("action", d.Action),
		zap.Bool("explored", d.Explored),
		zap.Float64("value", value),
		zap.Float64("reward", reward),
	)

	a.cursor++
	if a.cursor >= len(a.records) {
		a.phase = PhaseExhausted
	} else {
		a.phase = PhaseRunning
	}
	return nil
}

// Run steps until the series is exhausted and returns the number of steps taken.
func (a *Agent) Run(exploring, learning bool) (int, error) {
	steps := 0
	for {
		err := a.Step(exploring, learning)
		if errors.Is(err, models.ErrEndOfSimulation) {
			return steps, nil
		}
		if err != nil {
			return steps, err
		}
		steps++
	}
}

// Phase returns the current lifecycle phase.
func (a *Agent) Phase() Phase { return a.phase }

// Value returns the current portfolio value.
func (a *Agent) Value() float64 { return a.ledger.Value() }

// BalanceIndex returns the current balance-level index.
func (a *Agent) BalanceIndex() int { return a.ledger.BalanceIndex() }

// Remaining returns the number of records not yet consumed.
func (a *Agent) Remaining() int { return len(a.records) - a.cursor }

// Bins returns the number of forecast bins of the state space.
func (a *Agent) Bins() int { return a.bins }

// EquityCurve returns a copy of the value curve, starting with the initial capital.
func (a *Agent) EquityCurve() []float64 {
	return append([]float64(nil), a.ledger.EquityCurve...)
}

// Trajectory returns a copy of the decisions recorded so far.
func (a *Agent) Trajectory() []models.TrajectoryPoint {
	return append([]models.TrajectoryPoint(nil), a.trajectory...)
}

// PolicySnapshot returns a deep copy of the full policy table.
func (a *Agent) PolicySnapshot() []models.PolicyRow {
	return a.table.Snapshot()
}

// Table returns the live policy table, for handing to the next episode.
func (a *Agent) Table() *policy.Table { return a.table }
