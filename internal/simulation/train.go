package simulation

import (
	"context"
	"fmt"

	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/policy"
	"rl-rebalancer-go/internal/randsrc"
	"rl-rebalancer-go/internal/trace"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TrainOptions 定义了多轮训练的参数
type TrainOptions struct {
	Episodes int  // 探索+学习的轮数，至少为 1
	Evaluate bool // 训练后是否以贪心策略、不学习地再跑一遍
	Logger   *zap.Logger
}

// EpisodeSummary 记录一轮训练的结果
type EpisodeSummary struct {
	Episode    int
	Steps      int
	FinalValue float64
	Explored   int
}

// TrainResult 是训练的输出
type TrainResult struct {
	Episodes       []EpisodeSummary
	LastTrajectory []models.TrajectoryPoint // 最后一轮训练的轨迹
	Evaluation     []models.TrajectoryPoint // 贪心评估的轨迹，未评估时为空
	Table          *policy.Table
}

// Train 在同一个输入序列上依次运行多轮探索+学习。
// 每一轮使用新的账本，但共享同一个策略表和同一个随机源，因此给定种子时结果可复现。
func Train(ctx context.Context, cfg models.AgentConfig, records []models.StepRecord, opts TrainOptions) (*TrainResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Episodes < 1 {
		return nil, &models.ConfigurationError{Field: "episodes", Reason: "must be at least 1"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	rng := randsrc.New(cfg.RandomSeed)
	result := &TrainResult{Episodes: make([]EpisodeSummary, 0, opts.Episodes)}
	var table *policy.Table

	for ep := 1; ep <= opts.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, span := trace.StartSpan(ctx, "train.episode", attribute.Int("episode", ep))

		agentOpts := []Option{WithRandomSource(rng), WithLogger(logger)}
		if table != nil {
			agentOpts = append(agentOpts, WithPolicyTable(table))
		}
		agent, err := NewAgent(cfg, records, agentOpts...)
		if err != nil {
			span.End()
			return nil, err
		}
		steps, err := agent.Run(true, true)
		span.End()
		if err != nil {
			return nil, fmt.Errorf("episode %d: %w", ep, err)
		}

		table = agent.Table()
		traj := agent.Trajectory()
		explored := 0
		for _, p := range traj {
			if p.Explored {
				explored++
			}
		}
		result.Episodes = append(result.Episodes, EpisodeSummary{
			Episode:    ep,
			Steps:      steps,
			FinalValue: agent.Value(),
			Explored:   explored,
		})
		result.LastTrajectory = traj
		logger.Info("episode finished",
			zap.Int("episode", ep),
			zap.Int("steps", steps),
			zap.Float64("final_value", agent.Value()),
			zap.Int("explored", explored),
		)
	}

	if opts.Evaluate {
		_, span := trace.StartSpan(ctx, "train.evaluate")
		agent, err := NewAgent(cfg, records, WithPolicyTable(table), WithRandomSource(rng), WithLogger(logger))
		if err != nil {
			span.End()
			return nil, err
		}
		_, err = agent.Run(false, false)
		span.End()
		if err != nil {
			return nil, fmt.Errorf("evaluation: %w", err)
		}
		result.Evaluation = agent.Trajectory()
		logger.Info("evaluation finished", zap.Float64("final_value", agent.Value()))
	}

	result.Table = table
	return result, nil
}
