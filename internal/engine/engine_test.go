package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/whale-trader/internal/book"
	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/exit"
	"github.com/ninja0404/whale-trader/internal/model"
	"github.com/ninja0404/whale-trader/internal/publisher"
	"github.com/ninja0404/whale-trader/internal/rules"
	"github.com/ninja0404/whale-trader/internal/venue"
)

// fakeVenue 可控的执行场所
type fakeVenue struct {
	mu         sync.Mutex
	openErr    error
	closeErr   error
	fillPrice  decimal.Decimal
	openDelay  time.Duration
	openCalls  int
	closeCalls int
}

func (v *fakeVenue) Open(ctx context.Context, tokenAddress string, size decimal.Decimal) (*venue.Fill, error) {
	v.mu.Lock()
	v.openCalls++
	delay, err, price := v.openDelay, v.openErr, v.fillPrice
	v.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if err != nil {
		return nil, err
	}
	return &venue.Fill{Price: price, Time: time.Now()}, nil
}

func (v *fakeVenue) Close(ctx context.Context, positionID, tokenAddress string, size decimal.Decimal) (*venue.Fill, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeCalls++
	if v.closeErr != nil {
		return nil, v.closeErr
	}
	return &venue.Fill{Price: v.fillPrice, Time: time.Now()}, nil
}

func (v *fakeVenue) set(fn func(*fakeVenue)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v)
}

func (v *fakeVenue) calls() (open, close int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.openCalls, v.closeCalls
}

// fakePrices 固定价格源
type fakePrices struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newFakePrices() *fakePrices {
	return &fakePrices{prices: make(map[string]decimal.Decimal)}
}

func (p *fakePrices) Price(_ context.Context, tokenAddress string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if price, ok := p.prices[tokenAddress]; ok {
		return price, nil
	}
	return decimal.NewFromInt(100), nil
}

func (p *fakePrices) set(tokenAddress string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prices[tokenAddress] = price
}

func testEngineConfig() *Config {
	return &Config{
		SolPerTrade: decimal.NewFromFloat(0.1),
		RuleConfig: &rules.Config{
			MinTradeAmount: decimal.NewFromInt(1000),
			MinWinRate:     decimal.NewFromInt(60),
			MaxMarketCap:   decimal.NewFromFloat(1e8),
			MaxPositions:   1,
		},
		ExitConfig: &exit.Config{
			TakeProfitPct: decimal.NewFromInt(50),
			StopLossPct:   decimal.NewFromInt(20),
		},
		MonitorInterval:    20 * time.Millisecond,
		ReservationTimeout: time.Second,
		OpenTimeout:        time.Second,
		CloseTimeout:       time.Second,
	}
}

func acceptableSignal(token string) *model.WhaleTransaction {
	return &model.WhaleTransaction{
		ID:              "sig-" + token,
		TransactionType: common.TransactionTypeBuy,
		TokenAddress:    token,
		TokenSymbol:     "TEST",
		TradeAmount:     decimal.NewFromInt(2000),
		WinRate:         decimal.NewFromInt(75),
		TokenMarketCap:  decimal.NewFromFloat(5e7),
		RugcheckStatus:  common.RugcheckGood,
	}
}

func newTestEngine(cfg *Config, v venue.Venue, p venue.PriceSource) (*Engine, *book.Book) {
	b := book.NewBook(cfg.RuleConfig.MaxPositions)
	e := NewEngine(cfg, b, v, p, nil, publisher.NewManager(nil))
	return e, b
}

func TestEngineOpensAcceptedSignal(t *testing.T) {
	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100)}
	fp := newFakePrices()

	e, b := newTestEngine(testEngineConfig(), fv, fp)
	require.NoError(t, e.Start())
	defer e.Stop()

	e.ProcessSignal(acceptableSignal("TokenA"))

	require.Eventually(t, func() bool {
		snap := b.Snapshot()
		return len(snap.Positions) == 1 && snap.Positions[0].State == common.PositionOpen
	}, time.Second, 5*time.Millisecond)

	pos := b.Snapshot().Positions[0]
	assert.True(t, pos.EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, uint64(1), e.GetStats().PositionsOpened)
}

func TestEngineRejectedSignalNoPosition(t *testing.T) {
	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100)}
	e, b := newTestEngine(testEngineConfig(), fv, newFakePrices())
	require.NoError(t, e.Start())
	defer e.Stop()

	sig := acceptableSignal("TokenA")
	sig.TransactionType = common.TransactionTypeSell
	e.ProcessSignal(sig)

	require.Eventually(t, func() bool {
		return e.GetStats().SignalsProcessed == 1
	}, time.Second, 5*time.Millisecond)

	openCalls, _ := fv.calls()
	assert.Equal(t, 0, openCalls)
	assert.Equal(t, 0, b.ActiveCount())
	assert.Equal(t, uint64(1), e.GetStats().SignalsRejected["buy_only"])
}

func TestEngineFailedOpenReleasesCapacity(t *testing.T) {
	fv := &fakeVenue{openErr: errors.New("venue down")}
	e, b := newTestEngine(testEngineConfig(), fv, newFakePrices())
	require.NoError(t, e.Start())
	defer e.Stop()

	e.ProcessSignal(acceptableSignal("TokenA"))

	require.Eventually(t, func() bool {
		return e.GetStats().OpenFailures == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.ActiveCount())

	// 额度已释放，后续信号可以继续开仓
	fv.set(func(v *fakeVenue) {
		v.openErr = nil
		v.fillPrice = decimal.NewFromInt(100)
	})
	e.ProcessSignal(acceptableSignal("TokenB"))

	require.Eventually(t, func() bool {
		return b.ActiveCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEngineTakeProfitClosesPosition(t *testing.T) {
	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100)}
	fp := newFakePrices()
	fp.set("TokenA", decimal.NewFromInt(100))

	e, b := newTestEngine(testEngineConfig(), fv, fp)
	require.NoError(t, e.Start())
	defer e.Stop()

	e.ProcessSignal(acceptableSignal("TokenA"))
	require.Eventually(t, func() bool {
		snap := b.Snapshot()
		return len(snap.Positions) == 1 && snap.Positions[0].State == common.PositionOpen
	}, time.Second, 5*time.Millisecond)

	// 价格上涨60%，触发止盈
	fp.set("TokenA", decimal.NewFromInt(160))
	fv.set(func(v *fakeVenue) { v.fillPrice = decimal.NewFromInt(160) })

	require.Eventually(t, func() bool {
		return e.GetStats().PositionsClosed == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.ActiveCount())
}

func TestEngineFailedCloseRevertsAndRetries(t *testing.T) {
	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100)}
	fp := newFakePrices()
	fp.set("TokenA", decimal.NewFromInt(100))

	e, b := newTestEngine(testEngineConfig(), fv, fp)
	require.NoError(t, e.Start())
	defer e.Stop()

	e.ProcessSignal(acceptableSignal("TokenA"))
	require.Eventually(t, func() bool {
		snap := b.Snapshot()
		return len(snap.Positions) == 1 && snap.Positions[0].State == common.PositionOpen
	}, time.Second, 5*time.Millisecond)

	// 止损触发但场所持续失败，仓位回滚为 open 后每轮重试
	fv.set(func(v *fakeVenue) { v.closeErr = errors.New("venue down") })
	fp.set("TokenA", decimal.NewFromInt(70))

	require.Eventually(t, func() bool {
		return e.GetStats().CloseFailures >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.ActiveCount())

	// 场所恢复后平仓完成
	fv.set(func(v *fakeVenue) {
		v.closeErr = nil
		v.fillPrice = decimal.NewFromInt(70)
	})
	require.Eventually(t, func() bool {
		return e.GetStats().PositionsClosed == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.ActiveCount())
}

func TestEngineCapacityUnderConcurrentSignals(t *testing.T) {
	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100)}
	e, b := newTestEngine(testEngineConfig(), fv, newFakePrices())
	require.NoError(t, e.Start())
	defer e.Stop()

	// 不同代币的信号同时到达，最多只能有1个仓位
	tokens := []string{"TokenA", "TokenB", "TokenC", "TokenD", "TokenE"}
	for _, token := range tokens {
		e.ProcessSignal(acceptableSignal(token))
	}

	require.Eventually(t, func() bool {
		stats := e.GetStats()
		return stats.SignalsProcessed == uint64(len(tokens)) && stats.PositionsOpened == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 1, b.ActiveCount())
}

func TestEngineReservationTimeout(t *testing.T) {
	cfg := testEngineConfig()
	cfg.ReservationTimeout = 30 * time.Millisecond
	cfg.OpenTimeout = 2 * time.Second

	// 场所响应远慢于预留超时
	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100), openDelay: 500 * time.Millisecond}
	e, b := newTestEngine(cfg, fv, newFakePrices())
	require.NoError(t, e.Start())
	defer e.Stop()

	e.ProcessSignal(acceptableSignal("TokenA"))

	// 超时后额度被释放，成交确认到达时已无仓位可提交
	require.Eventually(t, func() bool {
		return e.GetStats().OpenFailures == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, b.ActiveCount())

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, 0, b.ActiveCount())
	assert.Equal(t, uint64(0), e.GetStats().PositionsOpened)
}

func TestEngineDuplicateTokenSecondSignalRejected(t *testing.T) {
	cfg := testEngineConfig()
	cfg.RuleConfig.MaxPositions = 3

	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100)}
	e, b := newTestEngine(cfg, fv, newFakePrices())
	require.NoError(t, e.Start())
	defer e.Stop()

	e.ProcessSignal(acceptableSignal("TokenA"))
	require.Eventually(t, func() bool {
		return b.ActiveCount() == 1
	}, time.Second, 5*time.Millisecond)

	// 同代币的第二笔信号被重复代币规则拒绝
	sig := acceptableSignal("TokenA")
	sig.ID = "sig-TokenA-2"
	e.ProcessSignal(sig)

	require.Eventually(t, func() bool {
		return e.GetStats().SignalsProcessed == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, b.ActiveCount())
	assert.Equal(t, uint64(1), e.GetStats().SignalsRejected["duplicate_token"])
}

func TestEngineManualClose(t *testing.T) {
	fv := &fakeVenue{fillPrice: decimal.NewFromInt(100)}
	fp := newFakePrices()

	e, b := newTestEngine(testEngineConfig(), fv, fp)
	require.NoError(t, e.Start())
	defer e.Stop()

	e.ProcessSignal(acceptableSignal("TokenA"))
	require.Eventually(t, func() bool {
		snap := b.Snapshot()
		return len(snap.Positions) == 1 && snap.Positions[0].State == common.PositionOpen
	}, time.Second, 5*time.Millisecond)
	pos := b.Snapshot().Positions[0]

	// 未触发任何退出条件也能手动平仓
	fp.set("TokenA", decimal.NewFromInt(110))
	fv.set(func(v *fakeVenue) { v.fillPrice = decimal.NewFromInt(110) })
	require.NoError(t, e.ForceClose(pos.ID))

	assert.Equal(t, 0, b.ActiveCount())
	assert.Equal(t, uint64(1), e.GetStats().PositionsClosed)

	// 仓位已完结，重复手动平仓报未找到
	require.ErrorIs(t, e.ForceClose(pos.ID), book.ErrPositionNotFound)
}
