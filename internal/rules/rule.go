package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
)

// Config 准入规则的阈值配置
type Config struct {
	MinTradeAmount decimal.Decimal // 巨鲸单笔交易金额下限
	MinWinRate     decimal.Decimal // 来源钱包胜率下限 0-100
	MaxMarketCap   decimal.Decimal // 代币市值上限
	MaxPositions   int             // 最大同时持仓数
}

// EvaluationContext 规则评估上下文
type EvaluationContext struct {
	Signal    *model.WhaleTransaction
	Config    *Config
	Portfolio *model.PortfolioSnapshot
}

// Rule 单条准入规则
type Rule interface {
	// Evaluate 评估是否通过，未通过时返回拒绝原因
	Evaluate(ctx *EvaluationContext) (bool, string)

	// GetName 规则名称，用于拒绝统计
	GetName() string
}

// BuyOnlyRule 只跟买入信号
type BuyOnlyRule struct{}

func (r *BuyOnlyRule) GetName() string { return "buy_only" }

func (r *BuyOnlyRule) Evaluate(ctx *EvaluationContext) (bool, string) {
	if ctx.Signal.TransactionType != common.TransactionTypeBuy {
		return false, fmt.Sprintf("not a buy transaction: %s", ctx.Signal.TransactionType)
	}
	return true, ""
}

// MinTradeAmountRule 巨鲸交易金额过小说明信念不足
type MinTradeAmountRule struct{}

func (r *MinTradeAmountRule) GetName() string { return "min_trade_amount" }

func (r *MinTradeAmountRule) Evaluate(ctx *EvaluationContext) (bool, string) {
	if ctx.Signal.TradeAmount.LessThan(ctx.Config.MinTradeAmount) {
		return false, fmt.Sprintf("trade_amount %s below minimum %s",
			ctx.Signal.TradeAmount, ctx.Config.MinTradeAmount)
	}
	return true, ""
}

// MinWinRateRule 只跟胜率达标的钱包
type MinWinRateRule struct{}

func (r *MinWinRateRule) GetName() string { return "min_win_rate" }

func (r *MinWinRateRule) Evaluate(ctx *EvaluationContext) (bool, string) {
	if ctx.Signal.WinRate.LessThan(ctx.Config.MinWinRate) {
		return false, fmt.Sprintf("win_rate %s below minimum %s",
			ctx.Signal.WinRate, ctx.Config.MinWinRate)
	}
	return true, ""
}

// MaxMarketCapRule 市值过大的代币上涨空间有限
type MaxMarketCapRule struct{}

func (r *MaxMarketCapRule) GetName() string { return "max_market_cap" }

func (r *MaxMarketCapRule) Evaluate(ctx *EvaluationContext) (bool, string) {
	if ctx.Signal.TokenMarketCap.GreaterThan(ctx.Config.MaxMarketCap) {
		return false, fmt.Sprintf("market_cap %s above maximum %s",
			ctx.Signal.TokenMarketCap, ctx.Config.MaxMarketCap)
	}
	return true, ""
}

// RugcheckRule 合约安全评级为 bad 或 unknown 时一律拒绝
type RugcheckRule struct{}

func (r *RugcheckRule) GetName() string { return "rugcheck" }

func (r *RugcheckRule) Evaluate(ctx *EvaluationContext) (bool, string) {
	switch ctx.Signal.RugcheckStatus {
	case common.RugcheckBad, common.RugcheckUnknown:
		return false, fmt.Sprintf("rugcheck status %s", ctx.Signal.RugcheckStatus)
	default:
		return true, ""
	}
}

// DuplicateTokenRule 同一代币只允许一个活跃仓位
type DuplicateTokenRule struct{}

func (r *DuplicateTokenRule) GetName() string { return "duplicate_token" }

func (r *DuplicateTokenRule) Evaluate(ctx *EvaluationContext) (bool, string) {
	if ctx.Portfolio.HasToken(ctx.Signal.TokenAddress) {
		return false, fmt.Sprintf("already holding token %s", ctx.Signal.TokenAddress)
	}
	return true, ""
}

// MaxPositionsRule 持仓数达到上限后不再开新仓
type MaxPositionsRule struct{}

func (r *MaxPositionsRule) GetName() string { return "max_positions" }

func (r *MaxPositionsRule) Evaluate(ctx *EvaluationContext) (bool, string) {
	if ctx.Portfolio.ActiveCount >= ctx.Config.MaxPositions {
		return false, fmt.Sprintf("max positions reached: %d/%d",
			ctx.Portfolio.ActiveCount, ctx.Config.MaxPositions)
	}
	return true, ""
}
