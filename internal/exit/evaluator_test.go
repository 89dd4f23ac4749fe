package exit

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
)

func testEvaluator() *Evaluator {
	return NewEvaluator(&Config{
		TakeProfitPct: decimal.NewFromInt(50),
		StopLossPct:   decimal.NewFromInt(20),
	})
}

func openPosition(entry int64, entryTime time.Time) *model.Position {
	return &model.Position{
		ID:         "pos-1",
		State:      common.PositionOpen,
		EntryPrice: decimal.NewFromInt(entry),
		EntryTime:  entryTime,
		Size:       decimal.NewFromFloat(0.1),
	}
}

func TestEvaluateTakeProfit(t *testing.T) {
	e := testEvaluator()
	pos := openPosition(100, time.Now())

	sig := e.Evaluate(pos, decimal.NewFromInt(151), time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonTakeProfit, sig.Reason)
	assert.True(t, sig.PnlPct.Equal(decimal.NewFromInt(51)))

	// 恰好达到阈值也触发
	sig = e.Evaluate(pos, decimal.NewFromInt(150), time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonTakeProfit, sig.Reason)
}

func TestEvaluateStopLoss(t *testing.T) {
	e := testEvaluator()
	pos := openPosition(100, time.Now())

	sig := e.Evaluate(pos, decimal.NewFromInt(79), time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonStopLoss, sig.Reason)

	sig = e.Evaluate(pos, decimal.NewFromInt(80), time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonStopLoss, sig.Reason)
}

func TestEvaluateHold(t *testing.T) {
	e := testEvaluator()
	pos := openPosition(100, time.Now())

	assert.Nil(t, e.Evaluate(pos, decimal.NewFromInt(110), time.Now()))
	assert.Nil(t, e.Evaluate(pos, decimal.NewFromInt(81), time.Now()))
	assert.Nil(t, e.Evaluate(pos, decimal.NewFromInt(149), time.Now()))
}

func TestEvaluateMaxHold(t *testing.T) {
	e := NewEvaluator(&Config{
		TakeProfitPct: decimal.NewFromInt(50),
		StopLossPct:   decimal.NewFromInt(20),
		MaxHold:       24 * time.Hour,
	})

	entry := time.Now().Add(-25 * time.Hour)
	pos := openPosition(100, entry)

	// 未触发止盈止损但超过最长持仓时间
	sig := e.Evaluate(pos, decimal.NewFromInt(110), time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonMaxHold, sig.Reason)

	// 止盈的优先级高于持仓时间
	sig = e.Evaluate(pos, decimal.NewFromInt(160), time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonTakeProfit, sig.Reason)
}

func TestEvaluatePriority(t *testing.T) {
	// 退化配置下止盈止损可能同时满足，优先级决定结论
	tpFirst := NewEvaluator(&Config{
		TakeProfitPct: decimal.NewFromInt(0),
		StopLossPct:   decimal.NewFromInt(0),
		Priority:      TakeProfitFirst,
	})
	slFirst := NewEvaluator(&Config{
		TakeProfitPct: decimal.NewFromInt(0),
		StopLossPct:   decimal.NewFromInt(0),
		Priority:      StopLossFirst,
	})

	pos := openPosition(100, time.Now())
	price := decimal.NewFromInt(100)

	sig := tpFirst.Evaluate(pos, price, time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonTakeProfit, sig.Reason)

	sig = slFirst.Evaluate(pos, price, time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonStopLoss, sig.Reason)
}

func TestNewEvaluatorDoesNotMutateConfig(t *testing.T) {
	cfg := &Config{
		TakeProfitPct: decimal.NewFromInt(50),
		StopLossPct:   decimal.NewFromInt(20),
	}
	e := NewEvaluator(cfg)

	assert.Equal(t, Priority(""), cfg.Priority, "caller config should keep its zero value")

	// 默认止盈优先
	pos := openPosition(100, time.Now())
	sig := e.Evaluate(pos, decimal.NewFromInt(160), time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, common.ExitReasonTakeProfit, sig.Reason)
}
