package book

import (
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
)

func testSignal(token string) *model.WhaleTransaction {
	return &model.WhaleTransaction{
		ID:           "sig-" + token,
		TokenAddress: token,
		TokenSymbol:  "TEST",
	}
}

func TestReserveAndCommitOpen(t *testing.T) {
	b := NewBook(3)

	pos, err := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	require.NoError(t, err)
	assert.Equal(t, common.PositionPending, pos.State)
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, 1, b.ActiveCount())

	fillTime := time.Now()
	opened, err := b.CommitOpen(pos.ID, decimal.NewFromInt(100), fillTime)
	require.NoError(t, err)
	assert.Equal(t, common.PositionOpen, opened.State)
	assert.True(t, opened.EntryPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, b.ActiveCount())
}

func TestReserveDuplicateToken(t *testing.T) {
	b := NewBook(3)

	_, err := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	require.NoError(t, err)

	_, err = b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateToken))
}

func TestReserveCapacity(t *testing.T) {
	b := NewBook(1)

	_, err := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	require.NoError(t, err)

	_, err = b.Reserve(testSignal("TokenB"), decimal.NewFromFloat(0.1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxPositions))
}

// 并发抢占1个额度，只能有一个成功，活跃数不超过上限
func TestReserveConcurrent(t *testing.T) {
	b := NewBook(1)

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token := string(rune('A'+n%26)) + "Token"
			if _, err := b.Reserve(testSignal(token), decimal.NewFromFloat(0.1)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, b.ActiveCount())
}

func TestAbortReleasesCapacity(t *testing.T) {
	b := NewBook(1)

	pos, err := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	require.NoError(t, err)

	failed, err := b.Abort(pos.ID, common.AbortReasonExecutionFailed)
	require.NoError(t, err)
	assert.Equal(t, common.PositionFailed, failed.State)
	assert.Equal(t, string(common.AbortReasonExecutionFailed), failed.FailReason)
	assert.Equal(t, 0, b.ActiveCount())

	// 额度已释放，同一代币可以重新开仓
	_, err = b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	assert.NoError(t, err)
}

func TestRequestCloseIdempotent(t *testing.T) {
	b := NewBook(1)

	pos, _ := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	_, err := b.CommitOpen(pos.ID, decimal.NewFromInt(100), time.Now())
	require.NoError(t, err)

	p1, transitioned, err := b.RequestClose(pos.ID, common.ExitReasonTakeProfit)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, common.PositionClosingRequested, p1.State)

	// 重复触发不报错、不重复转换
	p2, transitioned, err := b.RequestClose(pos.ID, common.ExitReasonStopLoss)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, common.ExitReasonTakeProfit, p2.ExitReason)
}

func TestCommitClosePnl(t *testing.T) {
	b := NewBook(1)
	size := decimal.NewFromFloat(0.1)

	pos, _ := b.Reserve(testSignal("TokenA"), size)
	_, err := b.CommitOpen(pos.ID, decimal.NewFromInt(100), time.Now())
	require.NoError(t, err)
	_, _, err = b.RequestClose(pos.ID, common.ExitReasonTakeProfit)
	require.NoError(t, err)

	closed, err := b.CommitClose(pos.ID, decimal.NewFromInt(150), common.ExitReasonTakeProfit, time.Now())
	require.NoError(t, err)
	assert.Equal(t, common.PositionClosed, closed.State)
	// (150-100)*0.1/100 = +0.05，即本金的+50%
	assert.True(t, closed.RealizedPnl.Equal(decimal.NewFromFloat(0.05)), "pnl=%s", closed.RealizedPnl)
	assert.Equal(t, 0, b.ActiveCount())
}

func TestCommitCloseLossPnl(t *testing.T) {
	b := NewBook(1)
	size := decimal.NewFromFloat(0.1)

	pos, _ := b.Reserve(testSignal("TokenA"), size)
	b.CommitOpen(pos.ID, decimal.NewFromInt(100), time.Now())
	b.RequestClose(pos.ID, common.ExitReasonStopLoss)

	closed, err := b.CommitClose(pos.ID, decimal.NewFromInt(80), common.ExitReasonStopLoss, time.Now())
	require.NoError(t, err)
	// (80-100)*0.1/100 = -0.02，即本金的-20%
	assert.True(t, closed.RealizedPnl.Equal(decimal.NewFromFloat(-0.02)), "pnl=%s", closed.RealizedPnl)
}

func TestRevertClose(t *testing.T) {
	b := NewBook(1)

	pos, _ := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	b.CommitOpen(pos.ID, decimal.NewFromInt(100), time.Now())
	b.RequestClose(pos.ID, common.ExitReasonStopLoss)

	reverted, err := b.RevertClose(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, common.PositionOpen, reverted.State)
	assert.Empty(t, reverted.ExitReason)
	assert.Equal(t, 1, b.ActiveCount())

	// 回滚后可以再次触发平仓
	_, transitioned, err := b.RequestClose(pos.ID, common.ExitReasonStopLoss)
	require.NoError(t, err)
	assert.True(t, transitioned)
}

func TestInvalidTransitions(t *testing.T) {
	b := NewBook(2)

	pos, _ := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))

	// pending 状态不允许平仓
	_, _, err := b.RequestClose(pos.ID, common.ExitReasonManual)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	// pending 状态不允许确认平仓
	_, err = b.CommitClose(pos.ID, decimal.NewFromInt(1), common.ExitReasonManual, time.Now())
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	b.CommitOpen(pos.ID, decimal.NewFromInt(100), time.Now())

	// open 状态不允许重复确认开仓
	_, err = b.CommitOpen(pos.ID, decimal.NewFromInt(100), time.Now())
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	// open 状态不允许回滚平仓
	_, err = b.RevertClose(pos.ID)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	// 不存在的仓位
	_, err = b.CommitOpen("missing", decimal.NewFromInt(1), time.Now())
	assert.True(t, errors.Is(err, ErrPositionNotFound))
}

func TestRestore(t *testing.T) {
	b := NewBook(2)

	open := &model.Position{
		ID:           "pos-1",
		TokenAddress: "TokenA",
		State:        common.PositionOpen,
		EntryPrice:   decimal.NewFromInt(100),
		Size:         decimal.NewFromFloat(0.1),
	}
	require.NoError(t, b.Restore([]*model.Position{open}))
	assert.Equal(t, 1, b.ActiveCount())

	snap := b.Snapshot()
	assert.True(t, snap.HasToken("TokenA"))

	// 恢复后重复代币仍然被拒绝
	_, err := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	assert.True(t, errors.Is(err, ErrDuplicateToken))

	// 非 open 状态不允许恢复
	err = b.Restore([]*model.Position{{ID: "pos-2", TokenAddress: "TokenB", State: common.PositionClosed}})
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestSnapshotIsolation(t *testing.T) {
	b := NewBook(1)

	pos, _ := b.Reserve(testSignal("TokenA"), decimal.NewFromFloat(0.1))
	b.CommitOpen(pos.ID, decimal.NewFromInt(100), time.Now())

	snap := b.Snapshot()
	require.Len(t, snap.Positions, 1)

	// 修改快照不影响仓位簿内部状态
	snap.Positions[0].State = common.PositionClosed
	assert.Equal(t, 1, b.ActiveCount())
	assert.Equal(t, common.PositionOpen, b.Snapshot().Positions[0].State)
}
