package models

import (
	"fmt"
	"math"
	"time"
)

// 信用分配方案
const (
	CreditIndiscriminate = "indiscriminate" // 回溯窗口内每个决策获得相同的信用
	CreditDiscounted     = "discounted"     // 越早的决策按 decay^k 衰减
)

// Config 结构体定义了程序的所有配置参数
type Config struct {
	Agent     AgentConfig    `json:"agent" yaml:"agent"`
	Data      DataConfig     `json:"data" yaml:"data"`
	Training  TrainingConfig `json:"training" yaml:"training"`
	Sweep     SweepConfig    `json:"sweep" yaml:"sweep"`
	LogConfig LogConfig      `json:"log" yaml:"log"`         // 日志配置
	Tracing   bool           `json:"tracing" yaml:"tracing"` // 是否启用 OpenTelemetry 追踪
}

// AgentConfig 定义了强化学习智能体的超参数
type AgentConfig struct {
	AssetBalanceLevels  []float64 `json:"asset_balance_levels" yaml:"asset_balance_levels"`   // 可选的风险资产仓位比例，0为全现金，1为满仓
	RebalanceLimitSteps int       `json:"rebalance_limit_steps" yaml:"rebalance_limit_steps"` // 每一步仓位最多移动的档位数
	LearningRate        float64   `json:"learning_rate" yaml:"learning_rate"`                 // 每次权重更新的幅度
	ExplorationRate     float64   `json:"exploration_rate" yaml:"exploration_rate"`           // 忽略已学策略、随机行动的概率
	LookbackWindow      int       `json:"lookback_window" yaml:"lookback_window"`             // 分享一次奖励的历史决策数量
	InitialCapital      float64   `json:"initial_capital" yaml:"initial_capital"`             // 初始资金
	InitialBalanceIndex int       `json:"initial_balance_index" yaml:"initial_balance_index"` // 初始仓位档位
	RandomSeed          int64     `json:"random_seed" yaml:"random_seed"`                     // 随机种子，用于复现
	ForecastBins        int       `json:"forecast_bins,omitempty" yaml:"forecast_bins"`       // 预测分箱数量，0 表示从数据中推导
	CreditScheme        string    `json:"credit_scheme,omitempty" yaml:"credit_scheme"`       // indiscriminate 或 discounted
	CreditDecay         float64   `json:"credit_decay,omitempty" yaml:"credit_decay"`         // discounted 方案的衰减系数
	MaxSteps            int       `json:"max_steps,omitempty" yaml:"max_steps"`               // 单次运行的最大步数，0 表示不限制
}

// DataConfig 定义了输入序列的来源与列名
type DataConfig struct {
	Path             string `json:"path" yaml:"path"`
	DateColumn       string `json:"date_column" yaml:"date_column"`
	BinColumn        string `json:"bin_column" yaml:"bin_column"`
	ReturnColumn     string `json:"return_column" yaml:"return_column"`
	ForecastColumn   string `json:"forecast_column,omitempty" yaml:"forecast_column"`       // 原始预测值列，仅在没有分箱列时使用
	CalibrationRows  int    `json:"calibration_rows,omitempty" yaml:"calibration_rows"`     // 用于拟合分箱边界的前缀行数
	DiscretizeToBins int    `json:"discretize_to_bins,omitempty" yaml:"discretize_to_bins"` // 原始预测值分箱数量
}

// TrainingConfig 定义了多轮训练的参数
type TrainingConfig struct {
	Episodes int  `json:"episodes" yaml:"episodes"` // 探索+学习的轮数
	Evaluate bool `json:"evaluate" yaml:"evaluate"` // 训练结束后是否进行一次贪心评估
}

// SweepConfig 定义了参数扫描的网格
type SweepConfig struct {
	Seeds            []int64   `json:"seeds" yaml:"seeds"`
	LearningRates    []float64 `json:"learning_rates" yaml:"learning_rates"`
	ExplorationRates []float64 `json:"exploration_rates" yaml:"exploration_rates"`
	Workers          int       `json:"workers" yaml:"workers"`
	DBPath           string    `json:"db_path" yaml:"db_path"` // 扫描结果数据库路径
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`             // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output" yaml:"output"`           // 输出模式: "console", "file", "both"
	File       string `json:"file" yaml:"file"`               // 日志文件路径
	MaxSize    int    `json:"max_size" yaml:"max_size"`       // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups" yaml:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age" yaml:"max_age"`         // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress" yaml:"compress"`       // 是否压缩旧日志文件
}

// DefaultAgentConfig 返回与原始模型一致的默认超参数
func DefaultAgentConfig() AgentConfig {
	levels := make([]float64, 11)
	for i := range levels {
		levels[i] = float64(i) / 10.0
	}
	return AgentConfig{
		AssetBalanceLevels:  levels,
		RebalanceLimitSteps: 2,
		LearningRate:        0.05,
		ExplorationRate:     0.3,
		LookbackWindow:      5,
		InitialCapital:      1000000,
		InitialBalanceIndex: 0,
		RandomSeed:          42,
		CreditScheme:        CreditIndiscriminate,
	}
}

// Validate 检查超参数，任何不合法的值都返回 *ConfigurationError
func (c AgentConfig) Validate() error {
	if len(c.AssetBalanceLevels) == 0 {
		return &ConfigurationError{Field: "asset_balance_levels", Reason: "must not be empty"}
	}
	for i, level := range c.AssetBalanceLevels {
		if math.IsNaN(level) || level < 0 || level > 1 {
			return &ConfigurationError{Field: "asset_balance_levels", Reason: fmt.Sprintf("level %d (%v) outside [0,1]", i, level)}
		}
		if i > 0 && level <= c.AssetBalanceLevels[i-1] {
			return &ConfigurationError{Field: "asset_balance_levels", Reason: "must be sorted ascending without duplicates"}
		}
	}
	if c.RebalanceLimitSteps < 0 {
		return &ConfigurationError{Field: "rebalance_limit_steps", Reason: "must be non-negative"}
	}
	if math.IsNaN(c.LearningRate) || math.IsInf(c.LearningRate, 0) || c.LearningRate <= 0 {
		return &ConfigurationError{Field: "learning_rate", Reason: "must be a positive finite number"}
	}
	if math.IsNaN(c.ExplorationRate) || c.ExplorationRate < 0 || c.ExplorationRate > 1 {
		return &ConfigurationError{Field: "exploration_rate", Reason: "must be within [0,1]"}
	}
	if c.LookbackWindow < 0 {
		return &ConfigurationError{Field: "lookback_window", Reason: "must be non-negative"}
	}
	if math.IsNaN(c.InitialCapital) || math.IsInf(c.InitialCapital, 0) || c.InitialCapital <= 0 {
		return &ConfigurationError{Field: "initial_capital", Reason: "must be a positive finite number"}
	}
	if c.InitialBalanceIndex < 0 || c.InitialBalanceIndex >= len(c.AssetBalanceLevels) {
		return &ConfigurationError{Field: "initial_balance_index", Reason: fmt.Sprintf("%d is not a valid level index", c.InitialBalanceIndex)}
	}
	if c.ForecastBins < 0 {
		return &ConfigurationError{Field: "forecast_bins", Reason: "must be non-negative"}
	}
	if c.MaxSteps < 0 {
		return &ConfigurationError{Field: "max_steps", Reason: "must be non-negative"}
	}
	switch c.CreditScheme {
	case "", CreditIndiscriminate:
	case CreditDiscounted:
		if math.IsNaN(c.CreditDecay) || c.CreditDecay <= 0 || c.CreditDecay > 1 {
			return &ConfigurationError{Field: "credit_decay", Reason: "must be within (0,1] for the discounted scheme"}
		}
	default:
		return &ConfigurationError{Field: "credit_scheme", Reason: fmt.Sprintf("unknown scheme %q", c.CreditScheme)}
	}
	return nil
}

// State 是决策时的状态：当前仓位档位与预测分箱
type State struct {
	BalanceIndex int `json:"balance_index" msgpack:"balance_index"`
	ForecastBin  int `json:"forecast_bin" msgpack:"forecast_bin"`
}

func (s State) String() string {
	return fmt.Sprintf("(%d,%d)", s.BalanceIndex, s.ForecastBin)
}

// StepRecord 是每一步的输入。
// ForecastBin 只能使用该步之前可得的信息计算；RealizedReturn 在该步结束后才可知。
type StepRecord struct {
	Index          int       // 排序键：步序号
	Date           time.Time // 排序键：日期 (可为空)
	ForecastBin    int
	RealizedReturn float64
}

// Key 返回用于单调性检查的排序键
func (r StepRecord) Key() int64 {
	if r.Date.IsZero() {
		return int64(r.Index)
	}
	return r.Date.UnixNano()
}

// TrajectoryPoint 记录一次决策及其结果
type TrajectoryPoint struct {
	Step          int       `json:"step"`
	Date          time.Time `json:"date,omitempty"`
	State         State     `json:"state"`
	Action        int       `json:"action"`         // 选择的目标仓位档位
	BalanceLevel  float64   `json:"balance_level"`  // 该档位对应的风险资产比例
	PreviousValue float64   `json:"previous_value"` // 本步之前的组合价值
	Value         float64   `json:"value"`          // 本步之后的组合价值
	Reward        float64   `json:"reward"`
	Explored      bool      `json:"explored"` // 是否为随机探索的决策
}
