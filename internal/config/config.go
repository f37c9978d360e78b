package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rl-rebalancer-go/internal/models"

	"gopkg.in/yaml.v3"
)

// 可以覆盖配置文件的环境变量
const (
	EnvRandomSeed = "AGENT_RANDOM_SEED"
	EnvDataPath   = "AGENT_DATA_PATH"
	EnvLogLevel   = "LOG_LEVEL"
)

// Default 返回完整的默认配置，配置文件中未出现的字段保持默认值
func Default() *models.Config {
	return &models.Config{
		Agent: models.DefaultAgentConfig(),
		Data: models.DataConfig{
			DateColumn:   "date",
			BinColumn:    "forecast_bin",
			ReturnColumn: "return",
		},
		Training: models.TrainingConfig{Episodes: 1, Evaluate: true},
		Sweep:    models.SweepConfig{Workers: 4, DBPath: "sweep_db"},
		LogConfig: models.LogConfig{
			Level:      "info",
			Output:     "console",
			File:       "logs/agent.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// LoadConfig 从指定路径加载配置文件并解析到Config结构体中。
// .yaml/.yml 按 YAML 解析，其余按 JSON 解析。
func LoadConfig(path string) (*models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv 用环境变量覆盖配置
func ApplyEnv(cfg *models.Config) error {
	if v := os.Getenv(EnvRandomSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return &models.ConfigurationError{Field: "random_seed", Reason: fmt.Sprintf("%s=%q is not an integer", EnvRandomSeed, v)}
		}
		cfg.Agent.RandomSeed = seed
	}
	if v := os.Getenv(EnvDataPath); v != "" {
		cfg.Data.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogConfig.Level = v
	}
	return nil
}
