package common

// TransactionType 巨鲸交易方向
type TransactionType string

const (
	TransactionTypeBuy  TransactionType = "buy"
	TransactionTypeSell TransactionType = "sell"
)

// TradeSize 交易规模档位
type TradeSize string

const (
	TradeSizeSmall  TradeSize = "small"
	TradeSizeMedium TradeSize = "medium"
	TradeSizeLarge  TradeSize = "large"
)

// RugcheckStatus 代币合约安全评级
type RugcheckStatus string

const (
	RugcheckGood    RugcheckStatus = "good"
	RugcheckCaution RugcheckStatus = "caution"
	RugcheckBad     RugcheckStatus = "bad"
	RugcheckUnknown RugcheckStatus = "unknown"
)

// PositionState 仓位生命周期状态
type PositionState string

const (
	// PositionPending 已通过准入检查，等待成交确认
	PositionPending PositionState = "pending"
	// PositionOpen 已确认成交的持仓
	PositionOpen PositionState = "open"
	// PositionClosingRequested 已触发平仓，等待成交确认
	PositionClosingRequested PositionState = "closing_requested"
	// PositionClosed 已平仓
	PositionClosed PositionState = "closed"
	// PositionFailed 开仓失败，仅保留用于审计
	PositionFailed PositionState = "failed"
)

// Active 状态是否占用仓位额度
func (s PositionState) Active() bool {
	switch s {
	case PositionPending, PositionOpen, PositionClosingRequested:
		return true
	default:
		return false
	}
}

// ExitReason 平仓原因
type ExitReason string

const (
	ExitReasonTakeProfit      ExitReason = "take_profit"
	ExitReasonStopLoss        ExitReason = "stop_loss"
	ExitReasonMaxHold         ExitReason = "max_hold"
	ExitReasonManual          ExitReason = "manual"
	ExitReasonExecutionFailed ExitReason = "execution_failed"
)

// AbortReason 预留额度回滚原因
type AbortReason string

const (
	AbortReasonExecutionFailed AbortReason = "execution_failed"
	AbortReasonTimedOut        AbortReason = "timed_out"
)
