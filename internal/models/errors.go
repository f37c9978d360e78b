package models

import (
	"errors"
	"fmt"
)

// ErrEndOfSimulation 表示输入序列已经耗尽。它不是失败，调用方应据此停止循环。
var ErrEndOfSimulation = errors.New("end of simulation")

// ConfigurationError 表示超参数不合法，在构造时返回
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// DataContractError 表示输入记录违反了数据约定 (缺失、非单调、分箱越界等)
type DataContractError struct {
	Index  int // 出错记录的下标，-1 表示整个序列
	Reason string
}

func (e *DataContractError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("data contract violated: %s", e.Reason)
	}
	return fmt.Sprintf("data contract violated at record %d: %s", e.Index, e.Reason)
}

// NonPositiveValueError 表示收益率过于极端，会使组合价值变为非正数
type NonPositiveValueError struct {
	Step   int
	Action int
	Level  float64
	Return float64
}

func (e *NonPositiveValueError) Error() string {
	return fmt.Sprintf("step %d: return %v at allocation %v (level %d) drives portfolio value to zero or below",
		e.Step, e.Return, e.Level, e.Action)
}

// UnknownActionError 表示对某个状态更新了非法动作的权重，只会由调用方的程序错误引起
type UnknownActionError struct {
	State  State
	Action int
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("action %d is not legal in state %s", e.Action, e.State)
}
