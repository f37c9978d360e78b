package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rl-rebalancer-go/internal/config"
	"rl-rebalancer-go/internal/dataset"
	"rl-rebalancer-go/internal/logger"
	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/persistence"
	"rl-rebalancer-go/internal/reporter"
	"rl-rebalancer-go/internal/simulation"
	"rl-rebalancer-go/internal/sweep"
	"rl-rebalancer-go/internal/trace"

	"github.com/joho/godotenv"
)

func main() {
	// --- 命令行参数定义 ---
	configPath := flag.String("config", "config.json", "path to the config file (.json, .yaml or .yml)")
	mode := flag.String("mode", "simulate", "running mode: simulate, train, sweep or inspect")
	dataPath := flag.String("data", "", "path to the step record csv, overrides data.path")
	episodes := flag.Int("episodes", 0, "training episodes, overrides training.episodes")
	showPolicy := flag.Bool("policy", false, "print the learned policy table")
	runID := flag.String("run", "", "inspect mode: print the policy of this run")
	flag.Parse()

	// --- 初始化日志 (提前) ---
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	// --- 加载 .env 文件 ---
	if err := godotenv.Load(); err != nil {
		logger.S().Info("未找到 .env 文件，将从系统环境变量中读取。")
	} else {
		logger.S().Info("成功从 .env 文件加载配置。")
	}

	// --- 加载配置 ---
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.S().Fatalf("无法加载配置文件: %v", err)
		}
		logger.S().Warnf("配置文件 %s 不存在，使用默认配置。", *configPath)
		cfg = config.Default()
	}
	if err := config.ApplyEnv(cfg); err != nil {
		logger.S().Fatalf("环境变量无效: %v", err)
	}
	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *episodes > 0 {
		cfg.Training.Episodes = *episodes
	}

	// --- 使用文件中的配置重新初始化日志 ---
	logger.InitLogger(cfg.LogConfig)
	defer logger.Sync()

	if err := trace.Init(cfg.Tracing, os.Stdout); err != nil {
		logger.S().Fatalf("初始化追踪失败: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			logger.S().Warnf("关闭追踪失败: %v", err)
		}
	}()

	// 等待中断信号以实现优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "simulate":
		err = runSimulateMode(cfg, *showPolicy)
	case "train":
		err = runTrainMode(ctx, cfg, *showPolicy)
	case "sweep":
		err = runSweepMode(ctx, cfg)
	case "inspect":
		err = runInspectMode(cfg, *runID)
	default:
		logger.S().Fatalf("未知的运行模式: %s。请选择 'simulate', 'train', 'sweep' 或 'inspect'。", *mode)
	}
	if err != nil {
		logger.S().Errorf("运行失败: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func loadRecords(cfg *models.Config) ([]models.StepRecord, error) {
	if cfg.Data.Path == "" {
		return nil, &models.ConfigurationError{Field: "data.path", Reason: "a step record csv is required (-data or AGENT_DATA_PATH)"}
	}
	records, err := dataset.LoadCSV(cfg.Data.Path, cfg.Data)
	if err != nil {
		return nil, err
	}
	logger.S().Infof("从 %s 加载了 %d 条记录。", cfg.Data.Path, len(records))
	return records, nil
}

// runSimulateMode 以探索+学习的方式在序列上运行一次
func runSimulateMode(cfg *models.Config, showPolicy bool) error {
	logger.S().Info("--- 启动单次模拟模式 ---")
	records, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	agent, err := simulation.NewAgent(cfg.Agent, records, simulation.WithLogger(logger.L()))
	if err != nil {
		return err
	}
	steps, runErr := agent.Run(true, true)
	logger.S().Infof("模拟结束，共 %d 步，状态: %s。", steps, agent.Phase())

	// 即使提前终止，也打印已完成部分的报告
	reporter.WriteReport(os.Stdout, "模拟结果报告", reporter.Calculate(agent.Trajectory(), cfg.Agent.InitialCapital))
	if showPolicy {
		reporter.WritePolicy(os.Stdout, agent.PolicySnapshot(), cfg.Agent.AssetBalanceLevels)
	}
	return runErr
}

// runTrainMode 运行多轮训练，并可选地进行一次贪心评估
func runTrainMode(ctx context.Context, cfg *models.Config, showPolicy bool) error {
	logger.S().Infof("--- 启动训练模式: %d 轮 ---", cfg.Training.Episodes)
	records, err := loadRecords(cfg)
	if err != nil {
		return err
	}

	result, err := simulation.Train(ctx, cfg.Agent, records, simulation.TrainOptions{
		Episodes: cfg.Training.Episodes,
		Evaluate: cfg.Training.Evaluate,
		Logger:   logger.L(),
	})
	if err != nil {
		return err
	}

	reporter.WriteEpisodes(os.Stdout, result.Episodes)
	reporter.WriteReport(os.Stdout, "最后一轮训练报告", reporter.Calculate(result.LastTrajectory, cfg.Agent.InitialCapital))
	if cfg.Training.Evaluate {
		reporter.WriteReport(os.Stdout, "贪心评估报告", reporter.Calculate(result.Evaluation, cfg.Agent.InitialCapital))
	}
	if showPolicy {
		reporter.WritePolicy(os.Stdout, result.Table.Snapshot(), cfg.Agent.AssetBalanceLevels)
	}
	return nil
}

// runSweepMode 在参数网格上并行训练，并把结果写入数据库
func runSweepMode(ctx context.Context, cfg *models.Config) error {
	records, err := loadRecords(cfg)
	if err != nil {
		return err
	}
	if err := cfg.Agent.Validate(); err != nil {
		return err
	}

	repo, err := persistence.NewBadgerRepository(cfg.Sweep.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	jobs := sweep.Expand(cfg.Sweep, cfg.Agent, cfg.Training.Episodes)
	logger.S().Infof("--- 启动参数扫描模式: %d 组参数, %d 个并发 ---", len(jobs), cfg.Sweep.Workers)

	collector := sweep.NewCollector(repo, logger.L())
	collector.Start()
	runErr := sweep.NewRunner(cfg.Agent, records, cfg.Sweep.Workers, collector, logger.L()).Run(ctx, jobs)
	collector.Stop()

	reporter.WriteSweep(os.Stdout, collector.Results())
	if n := collector.SaveErrors(); n > 0 {
		logger.S().Warnf("%d 个结果未能写入数据库。", n)
	}
	return runErr
}

// runInspectMode 打印数据库中保存的扫描结果
func runInspectMode(cfg *models.Config, runID string) error {
	repo, err := persistence.NewBadgerRepository(cfg.Sweep.DBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	if runID == "" {
		results, err := repo.ListResults()
		if err != nil {
			return err
		}
		reporter.WriteSweep(os.Stdout, results)
		return nil
	}

	result, err := repo.LoadResult(runID)
	if err != nil {
		return err
	}
	if result == nil {
		logger.S().Warnf("未找到运行 %s。", runID)
		return nil
	}
	reporter.WriteSweep(os.Stdout, []models.RunResult{*result})
	reporter.WritePolicy(os.Stdout, result.Policy, cfg.Agent.AssetBalanceLevels)
	return nil
}
