package models

import "time"

// RunResult 定义了一次扫描运行需要持久化的所有关键数据
type RunResult struct {
	RunID       string      `json:"run_id" msgpack:"run_id"`             // 运行的唯一标识符 (base62)
	Version     int         `json:"version" msgpack:"version"`           // 结果模型的版本号，用于未来迁移
	Params      RunParams   `json:"params" msgpack:"params"`             // 本次运行的超参数 (不可变)
	Summary     RunSummary  `json:"summary" msgpack:"summary"`           // 评估轨迹的指标
	Policy      []PolicyRow `json:"policy,omitempty" msgpack:"policy"`   // 训练结束后的策略表快照
	StartedAt   time.Time   `json:"started_at" msgpack:"started_at"`     // 开始时间
	CompletedAt time.Time   `json:"completed_at" msgpack:"completed_at"` // 完成时间
	Error       string      `json:"error,omitempty" msgpack:"error"`     // 运行失败时的错误信息
}

// RunParams 存储一次运行被扫描的超参数
type RunParams struct {
	Seed            int64   `json:"seed" msgpack:"seed"`
	LearningRate    float64 `json:"learning_rate" msgpack:"learning_rate"`
	ExplorationRate float64 `json:"exploration_rate" msgpack:"exploration_rate"`
	Episodes        int     `json:"episodes" msgpack:"episodes"`
}

// RunSummary 是持久化所需的最小指标集合
type RunSummary struct {
	Steps          int     `json:"steps" msgpack:"steps"`
	FinalValue     float64 `json:"final_value" msgpack:"final_value"`
	TotalReturnPct float64 `json:"total_return_pct" msgpack:"total_return_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct" msgpack:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio" msgpack:"sharpe_ratio"`
}

// PolicyRow 是策略表中一个状态的一行：合法动作按升序排列，与权重一一对应
type PolicyRow struct {
	State   State     `json:"state" msgpack:"state"`
	Actions []int     `json:"actions" msgpack:"actions"`
	Weights []float64 `json:"weights" msgpack:"weights"`
}
