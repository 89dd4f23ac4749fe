package book

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
	"github.com/ninja0404/whale-trader/pkg/utils"
)

// Book 仓位簿，所有仓位状态变更的唯一入口
// 全部操作在同一把锁内完成，活跃仓位数在任何时刻都不会超过上限
type Book struct {
	mu sync.Mutex

	maxPositions int
	positions    map[string]*model.Position // 仓位ID -> 活跃仓位
	byToken      map[string]string          // 代币地址 -> 仓位ID
}

// NewBook 创建仓位簿
func NewBook(maxPositions int) *Book {
	return &Book{
		maxPositions: maxPositions,
		positions:    make(map[string]*model.Position),
		byToken:      make(map[string]string),
	}
}

// Reserve 预留一个仓位额度，检查与占用在同一临界区内完成
// 成功后仓位进入 pending 状态并立即计入活跃数
func (b *Book) Reserve(signal *model.WhaleTransaction, size decimal.Decimal) (*model.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.positions) >= b.maxPositions {
		return nil, errors.Wrapf(ErrMaxPositions, "%d/%d", len(b.positions), b.maxPositions)
	}
	if _, ok := b.byToken[signal.TokenAddress]; ok {
		return nil, errors.Wrap(ErrDuplicateToken, signal.TokenAddress)
	}

	now := time.Now()
	pos := &model.Position{
		ID:           utils.GenerateID(),
		SignalID:     signal.ID,
		TokenAddress: signal.TokenAddress,
		TokenSymbol:  signal.TokenSymbol,
		TokenName:    signal.TokenName,
		Size:         size,
		State:        common.PositionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.positions[pos.ID] = pos
	b.byToken[pos.TokenAddress] = pos.ID
	return pos.Clone(), nil
}

// CommitOpen 成交确认，pending -> open
func (b *Book) CommitOpen(positionID string, fillPrice decimal.Decimal, fillTime time.Time) (*model.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return nil, errors.Wrap(ErrPositionNotFound, positionID)
	}
	if pos.State != common.PositionPending {
		return nil, errors.Wrapf(ErrInvalidTransition, "commitOpen on %s position %s", pos.State, positionID)
	}

	pos.State = common.PositionOpen
	pos.EntryPrice = fillPrice
	pos.EntryTime = fillTime
	pos.UpdatedAt = time.Now()
	return pos.Clone(), nil
}

// Abort 开仓失败或预留超时，pending -> failed，立即释放额度
// 仓位从活跃集合移除，返回的拷贝仅用于审计落盘
func (b *Book) Abort(positionID string, reason common.AbortReason) (*model.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return nil, errors.Wrap(ErrPositionNotFound, positionID)
	}
	if pos.State != common.PositionPending {
		return nil, errors.Wrapf(ErrInvalidTransition, "abort on %s position %s", pos.State, positionID)
	}

	pos.State = common.PositionFailed
	pos.FailReason = string(reason)
	pos.UpdatedAt = time.Now()
	delete(b.positions, positionID)
	delete(b.byToken, pos.TokenAddress)
	return pos.Clone(), nil
}

// RequestClose 触发平仓，open -> closing_requested
// 幂等：仓位已在 closing_requested 时返回 transitioned=false，不报错
func (b *Book) RequestClose(positionID string, reason common.ExitReason) (pos *model.Position, transitioned bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.positions[positionID]
	if !ok {
		return nil, false, errors.Wrap(ErrPositionNotFound, positionID)
	}
	switch p.State {
	case common.PositionClosingRequested:
		return p.Clone(), false, nil
	case common.PositionOpen:
		p.State = common.PositionClosingRequested
		p.ExitReason = reason
		p.UpdatedAt = time.Now()
		return p.Clone(), true, nil
	default:
		return nil, false, errors.Wrapf(ErrInvalidTransition, "requestClose on %s position %s", p.State, positionID)
	}
}

// CommitClose 平仓成交确认，closing_requested -> closed，计算已实现盈亏并释放额度
func (b *Book) CommitClose(positionID string, exitPrice decimal.Decimal, reason common.ExitReason, exitTime time.Time) (*model.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return nil, errors.Wrap(ErrPositionNotFound, positionID)
	}
	if pos.State != common.PositionClosingRequested {
		return nil, errors.Wrapf(ErrInvalidTransition, "commitClose on %s position %s", pos.State, positionID)
	}

	pos.State = common.PositionClosed
	pos.ExitPrice = exitPrice
	pos.ExitReason = reason
	pos.ExitTime = exitTime
	pos.RealizedPnl = model.ComputePnl(pos.EntryPrice, exitPrice, pos.Size)
	pos.UpdatedAt = time.Now()
	delete(b.positions, positionID)
	delete(b.byToken, pos.TokenAddress)
	return pos.Clone(), nil
}

// RevertClose 平仓失败回滚，closing_requested -> open，等待下一轮重试
func (b *Book) RevertClose(positionID string) (*model.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[positionID]
	if !ok {
		return nil, errors.Wrap(ErrPositionNotFound, positionID)
	}
	if pos.State != common.PositionClosingRequested {
		return nil, errors.Wrapf(ErrInvalidTransition, "revertClose on %s position %s", pos.State, positionID)
	}

	pos.State = common.PositionOpen
	pos.ExitReason = ""
	pos.UpdatedAt = time.Now()
	return pos.Clone(), nil
}

// Restore 进程重启后恢复持仓，只接受 open 状态
func (b *Book) Restore(positions []*model.Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range positions {
		if p.State != common.PositionOpen {
			return errors.Wrapf(ErrInvalidTransition, "restore %s position %s", p.State, p.ID)
		}
		if len(b.positions) >= b.maxPositions {
			return errors.Wrapf(ErrMaxPositions, "restore position %s", p.ID)
		}
		if _, ok := b.byToken[p.TokenAddress]; ok {
			return errors.Wrap(ErrDuplicateToken, p.TokenAddress)
		}
		cp := p.Clone()
		b.positions[cp.ID] = cp
		b.byToken[cp.TokenAddress] = cp.ID
	}
	return nil
}

// Snapshot 当前活跃仓位的只读快照，内部仓位不外泄
func (b *Book) Snapshot() *model.PortfolioSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := &model.PortfolioSnapshot{
		ActiveCount: len(b.positions),
		OpenTokens:  make(map[string]struct{}, len(b.byToken)),
		Positions:   make([]*model.Position, 0, len(b.positions)),
	}
	for token := range b.byToken {
		snap.OpenTokens[token] = struct{}{}
	}
	for _, p := range b.positions {
		snap.Positions = append(snap.Positions, p.Clone())
	}
	return snap
}

// ActiveCount 当前活跃仓位数
func (b *Book) ActiveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.positions)
}
