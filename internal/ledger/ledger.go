// Package ledger tracks portfolio value as allocations earn realized returns.
package ledger

import (
	"fmt"

	"rl-rebalancer-go/internal/models"
)

// Ledger 记录组合价值与当前仓位档位。
// 风险资产部分获得当期收益率，现金部分收益为 0。
type Ledger struct {
	levels         []float64
	InitialBalance float64
	value          float64
	balanceIndex   int
	steps          int
	EquityCurve    []float64 // 包含初始资金在内的价值曲线
}

// NewLedger 创建一个新的 Ledger 实例。
func NewLedger(levels []float64, initialCapital float64, initialIndex int) *Ledger {
	curve := make([]float64, 1, 1024)
	curve[0] = initialCapital
	return &Ledger{
		levels:         append([]float64(nil), levels...),
		InitialBalance: initialCapital,
		value:          initialCapital,
		balanceIndex:   initialIndex,
		EquityCurve:    curve,
	}
}

// Value 返回当前组合价值
func (l *Ledger) Value() float64 { return l.value }

// BalanceIndex 返回当前仓位档位
func (l *Ledger) BalanceIndex() int { return l.balanceIndex }

// Level 返回档位对应的风险资产比例
func (l *Ledger) Level(index int) float64 { return l.levels[index] }

// Steps 返回已经结算的步数
func (l *Ledger) Steps() int { return l.steps }

// Advance 以 actionIndex 的仓位结算一期收益，返回新的组合价值和奖励。
//
//	newValue = value * (1 + level*ret)
//	reward   = level * ret
//
// 若结果价值非正，返回 *NonPositiveValueError 且不修改任何状态。
func (l *Ledger) Advance(actionIndex int, realizedReturn float64) (newValue, reward float64, err error) {
	if actionIndex < 0 || actionIndex >= len(l.levels) {
		return 0, 0, fmt.Errorf("ledger: action index %d outside %d levels", actionIndex, len(l.levels))
	}
	level := l.levels[actionIndex]
	reward = level * realizedReturn
	growth := 1 + reward
	if !(growth > 0) {
		return 0, 0, &models.NonPositiveValueError{
			Step:   l.steps,
			Action: actionIndex,
			Level:  level,
			Return: realizedReturn,
		}
	}

	l.value *= growth
	l.balanceIndex = actionIndex
	l.steps++
	l.EquityCurve = append(l.EquityCurve, l.value)
	return l.value, reward, nil
}
