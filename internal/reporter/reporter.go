package reporter

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"rl-rebalancer-go/internal/models"
	"rl-rebalancer-go/internal/simulation"

	"github.com/jedib0t/go-pretty/v6/table"
	"gonum.org/v1/gonum/stat"
)

// 年化使用的交易日数量
const periodsPerYear = 252

// Metrics 存储根据轨迹计算出的所有性能指标
type Metrics struct {
	InitialBalance   float64
	FinalBalance     float64
	TotalProfit      float64
	ProfitPercentage float64
	Steps            int
	Rebalances       int     // 改变仓位档位的次数
	Explored         int     // 随机探索的决策次数
	AvgAllocation    float64 // 平均风险资产比例
	MaxDrawdown      float64 // 百分比
	MeanReturn       float64 // 每步平均收益率
	Volatility       float64 // 每步收益率标准差
	SharpeRatio      float64 // 年化夏普比率 (无风险利率为0)
	StartTime        time.Time
	EndTime          time.Time
}

// Calculate 根据轨迹计算性能指标
func Calculate(trajectory []models.TrajectoryPoint, initialCapital float64) *Metrics {
	m := &Metrics{
		InitialBalance: initialCapital,
		FinalBalance:   initialCapital,
		Steps:          len(trajectory),
	}
	if len(trajectory) == 0 {
		return m
	}

	curve := make([]float64, 0, len(trajectory)+1)
	curve = append(curve, initialCapital)
	returns := make([]float64, 0, len(trajectory))
	var allocation float64
	for _, p := range trajectory {
		curve = append(curve, p.Value)
		if p.PreviousValue != 0 {
			returns = append(returns, p.Value/p.PreviousValue-1)
		}
		if p.Action != p.State.BalanceIndex {
			m.Rebalances++
		}
		if p.Explored {
			m.Explored++
		}
		allocation += p.BalanceLevel
	}

	m.FinalBalance = trajectory[len(trajectory)-1].Value
	m.TotalProfit = m.FinalBalance - m.InitialBalance
	if m.InitialBalance != 0 {
		m.ProfitPercentage = (m.TotalProfit / m.InitialBalance) * 100
	}
	m.AvgAllocation = allocation / float64(len(trajectory))
	m.MaxDrawdown = calculateMaxDrawdown(curve) * 100
	m.StartTime = trajectory[0].Date
	m.EndTime = trajectory[len(trajectory)-1].Date

	if len(returns) > 0 {
		m.MeanReturn = stat.Mean(returns, nil)
	}
	if len(returns) > 1 {
		m.Volatility = stat.StdDev(returns, nil)
		if m.Volatility > 0 {
			m.SharpeRatio = m.MeanReturn / m.Volatility * math.Sqrt(periodsPerYear)
		}
	}
	return m
}

// Summary 返回需要持久化的指标子集
func (m *Metrics) Summary() models.RunSummary {
	return models.RunSummary{
		Steps:          m.Steps,
		FinalValue:     m.FinalBalance,
		TotalReturnPct: m.ProfitPercentage,
		MaxDrawdownPct: m.MaxDrawdown,
		SharpeRatio:    m.SharpeRatio,
	}
}

func calculateMaxDrawdown(equityCurve []float64) float64 {
	if len(equityCurve) < 2 {
		return 0.0
	}
	peak := equityCurve[0]
	maxDrawdown := 0.0

	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		drawdown := (peak - equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// WriteReport 将性能报告以表格形式写入 w
func WriteReport(w io.Writer, title string, m *Metrics) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"指标", "数值"})
	if !m.StartTime.IsZero() {
		t.AppendRow(table.Row{"回测周期", fmt.Sprintf("%s 到 %s", m.StartTime.Format("2006-01-02"), m.EndTime.Format("2006-01-02"))})
	}
	t.AppendRows([]table.Row{
		{"步数", m.Steps},
		{"初始资金", fmt.Sprintf("%.2f", m.InitialBalance)},
		{"最终资金", fmt.Sprintf("%.2f", m.FinalBalance)},
		{"总利润", fmt.Sprintf("%.2f", m.TotalProfit)},
		{"收益率", fmt.Sprintf("%.2f%%", m.ProfitPercentage)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"调仓次数", m.Rebalances},
		{"探索次数", m.Explored},
		{"平均仓位", fmt.Sprintf("%.2f", m.AvgAllocation)},
		{"最大回撤", fmt.Sprintf("%.2f%%", m.MaxDrawdown)},
		{"每步波动率", fmt.Sprintf("%.4f", m.Volatility)},
		{"夏普比率", fmt.Sprintf("%.2f", m.SharpeRatio)},
	})
	t.Render()
}

// WritePolicy 打印策略表：每个状态一行，列出所有合法动作的权重
func WritePolicy(w io.Writer, rows []models.PolicyRow, levels []float64) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("策略表 (当前仓位, 预测分箱) -> 动作权重")
	t.AppendHeader(table.Row{"仓位", "预测分箱", "动作 -> 权重", "最优动作"})
	for _, row := range rows {
		parts := make([]string, len(row.Actions))
		best := -1
		for i, a := range row.Actions {
			parts[i] = fmt.Sprintf("%.2f -> %.6f", levelOf(levels, a), row.Weights[i])
			if best < 0 || row.Weights[i] > row.Weights[best] {
				best = i
			}
		}
		bestLabel := "-"
		if best >= 0 {
			bestLabel = fmt.Sprintf("%.2f", levelOf(levels, row.Actions[best]))
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%.2f", levelOf(levels, row.State.BalanceIndex)),
			row.State.ForecastBin,
			strings.Join(parts, ", "),
			bestLabel,
		})
	}
	t.Render()
}

// WriteEpisodes 打印每一轮训练的结果
func WriteEpisodes(w io.Writer, episodes []simulation.EpisodeSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("训练轮次")
	t.AppendHeader(table.Row{"轮次", "步数", "探索次数", "最终资金"})
	for _, ep := range episodes {
		t.AppendRow(table.Row{ep.Episode, ep.Steps, ep.Explored, fmt.Sprintf("%.2f", ep.FinalValue)})
	}
	t.Render()
}

// WriteSweep 按夏普比率降序打印参数扫描结果，失败的运行排在最后
func WriteSweep(w io.Writer, results []models.RunResult) {
	sorted := append([]models.RunResult(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].Error == "") != (sorted[j].Error == "") {
			return sorted[i].Error == ""
		}
		return sorted[i].Summary.SharpeRatio > sorted[j].Summary.SharpeRatio
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("参数扫描结果")
	t.AppendHeader(table.Row{"运行ID", "种子", "学习率", "探索率", "最终资金", "收益率", "最大回撤", "夏普比率", "错误"})
	for _, r := range sorted {
		t.AppendRow(table.Row{
			r.RunID,
			r.Params.Seed,
			r.Params.LearningRate,
			r.Params.ExplorationRate,
			fmt.Sprintf("%.2f", r.Summary.FinalValue),
			fmt.Sprintf("%.2f%%", r.Summary.TotalReturnPct),
			fmt.Sprintf("%.2f%%", r.Summary.MaxDrawdownPct),
			fmt.Sprintf("%.2f", r.Summary.SharpeRatio),
			r.Error,
		})
	}
	t.Render()
}

func levelOf(levels []float64, index int) float64 {
	if index < 0 || index >= len(levels) {
		return math.NaN()
	}
	return levels[index]
}
