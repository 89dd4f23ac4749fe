package model

import (
	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
)

// Decision 风控规则链对一笔信号的准入结论
type Decision struct {
	Accept bool   `json:"accept"`
	Reason string `json:"reason"` // 拒绝时为第一条未通过的规则说明
}

// ExitSignal 退出评估器对一个持仓的结论
type ExitSignal struct {
	Reason  common.ExitReason `json:"reason"`
	PnlPct  decimal.Decimal   `json:"pnl_pct"` // 触发时相对入场价的涨跌幅
	Price   decimal.Decimal   `json:"price"`   // 触发时的参考价
	Message string            `json:"message"`
}

// PortfolioSnapshot 仓位簿在某一时刻的只读快照
type PortfolioSnapshot struct {
	ActiveCount int
	OpenTokens  map[string]struct{} // 所有活跃仓位的代币地址
	Positions   []*Position         // 活跃仓位的拷贝
}

// HasToken 指定代币是否已有活跃仓位
func (s *PortfolioSnapshot) HasToken(tokenAddress string) bool {
	_, ok := s.OpenTokens[tokenAddress]
	return ok
}
