package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
)

// Position 一个跟单仓位，从额度预留到平仓的完整生命周期
type Position struct {
	ID       string // ULID，预留额度时生成
	SignalID string // 触发开仓的巨鲸信号ID

	TokenAddress string
	TokenSymbol  string
	TokenName    string

	Size decimal.Decimal // 按计价货币投入的本金

	State common.PositionState

	EntryPrice decimal.Decimal
	EntryTime  time.Time

	ExitPrice  decimal.Decimal
	ExitReason common.ExitReason
	ExitTime   time.Time

	RealizedPnl decimal.Decimal // 平仓后的已实现盈亏，计价货币

	FailReason string // 开仓失败原因，仅 failed 状态有值

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ComputePnl 按入场价/出场价计算已实现盈亏(只做多)
// pnl = (exit - entry) * size / entry
func ComputePnl(entry, exit, size decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	return exit.Sub(entry).Mul(size).Div(entry)
}

// PnlPct 相对入场价的涨跌幅(百分比)
func PnlPct(entry, current decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	return current.Sub(entry).Div(entry).Mul(hundred)
}

// Clone 返回仓位的深拷贝，快照对外只暴露拷贝
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}
