package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
)

func testConfig() *Config {
	return &Config{
		MinTradeAmount: decimal.NewFromInt(1000),
		MinWinRate:     decimal.NewFromInt(60),
		MaxMarketCap:   decimal.NewFromFloat(1e8),
		MaxPositions:   1,
	}
}

func goodSignal() *model.WhaleTransaction {
	return &model.WhaleTransaction{
		ID:              "sig-1",
		TransactionType: common.TransactionTypeBuy,
		TokenAddress:    "So11111111111111111111111111111111111111112",
		TokenSymbol:     "TEST",
		TradeAmount:     decimal.NewFromInt(2000),
		WinRate:         decimal.NewFromInt(75),
		TokenMarketCap:  decimal.NewFromFloat(5e7),
		RugcheckStatus:  common.RugcheckGood,
	}
}

func emptyPortfolio() *model.PortfolioSnapshot {
	return &model.PortfolioSnapshot{
		OpenTokens: make(map[string]struct{}),
	}
}

func TestEvaluateAccept(t *testing.T) {
	e := NewEvaluator()

	d := e.Evaluate(goodSignal(), testConfig(), emptyPortfolio())
	require.True(t, d.Accept)
	assert.Contains(t, d.Reason, "criteria passed")
}

func TestEvaluateRejectSell(t *testing.T) {
	e := NewEvaluator()

	sig := goodSignal()
	sig.TransactionType = common.TransactionTypeSell

	d := e.Evaluate(sig, testConfig(), emptyPortfolio())
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "not a buy transaction")
}

func TestEvaluateRejectTradeAmount(t *testing.T) {
	e := NewEvaluator()

	sig := goodSignal()
	sig.TradeAmount = decimal.NewFromInt(999)

	d := e.Evaluate(sig, testConfig(), emptyPortfolio())
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "below minimum")
}

func TestEvaluateRejectWinRate(t *testing.T) {
	e := NewEvaluator()

	sig := goodSignal()
	sig.WinRate = decimal.NewFromInt(59)

	d := e.Evaluate(sig, testConfig(), emptyPortfolio())
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "win_rate")
}

func TestEvaluateRejectMarketCap(t *testing.T) {
	e := NewEvaluator()

	sig := goodSignal()
	sig.TokenMarketCap = decimal.NewFromFloat(2e8)

	d := e.Evaluate(sig, testConfig(), emptyPortfolio())
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "market_cap")
}

func TestEvaluateRejectRugcheck(t *testing.T) {
	e := NewEvaluator()

	for _, status := range []common.RugcheckStatus{common.RugcheckBad, common.RugcheckUnknown} {
		sig := goodSignal()
		sig.RugcheckStatus = status

		d := e.Evaluate(sig, testConfig(), emptyPortfolio())
		require.False(t, d.Accept)
		assert.Contains(t, d.Reason, "rugcheck")
	}

	// caution 不被拒绝
	sig := goodSignal()
	sig.RugcheckStatus = common.RugcheckCaution
	d := e.Evaluate(sig, testConfig(), emptyPortfolio())
	assert.True(t, d.Accept)
}

func TestEvaluateRejectDuplicateToken(t *testing.T) {
	e := NewEvaluator()

	sig := goodSignal()
	portfolio := &model.PortfolioSnapshot{
		ActiveCount: 0,
		OpenTokens:  map[string]struct{}{sig.TokenAddress: {}},
	}

	d := e.Evaluate(sig, testConfig(), portfolio)
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "already holding")
}

func TestEvaluateRejectMaxPositions(t *testing.T) {
	e := NewEvaluator()

	portfolio := &model.PortfolioSnapshot{
		ActiveCount: 1,
		OpenTokens:  map[string]struct{}{"OtherToken1111111111111111111111111111111111": {}},
	}

	d := e.Evaluate(goodSignal(), testConfig(), portfolio)
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "max positions")
}

// 多条规则同时不满足时，优先级最高的规则决定拒绝原因
func TestEvaluatePrecedence(t *testing.T) {
	e := NewEvaluator()

	sig := goodSignal()
	sig.TransactionType = common.TransactionTypeSell
	sig.TradeAmount = decimal.NewFromInt(1)
	sig.WinRate = decimal.NewFromInt(10)
	sig.RugcheckStatus = common.RugcheckBad

	portfolio := &model.PortfolioSnapshot{
		ActiveCount: 5,
		OpenTokens:  map[string]struct{}{sig.TokenAddress: {}},
	}

	d := e.Evaluate(sig, testConfig(), portfolio)
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "not a buy transaction")

	// 去掉方向问题后，轮到金额规则
	sig.TransactionType = common.TransactionTypeBuy
	d = e.Evaluate(sig, testConfig(), portfolio)
	require.False(t, d.Accept)
	assert.Contains(t, d.Reason, "below minimum")
}

func TestEvaluatorStats(t *testing.T) {
	e := NewEvaluator()

	e.Evaluate(goodSignal(), testConfig(), emptyPortfolio())

	sig := goodSignal()
	sig.TransactionType = common.TransactionTypeSell
	e.Evaluate(sig, testConfig(), emptyPortfolio())
	e.Evaluate(sig, testConfig(), emptyPortfolio())

	accepted, rejected := e.Stats()
	assert.Equal(t, uint64(1), accepted)
	assert.Equal(t, uint64(2), rejected["buy_only"])
}
