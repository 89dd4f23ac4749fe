package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
)

// PositionRecord 仓位的数据库落盘结构，引擎每次状态变更后写穿
type PositionRecord struct {
	ID       uint64 `gorm:"column:id;primaryKey;autoIncrement;comment:主键"`
	PosID    string `gorm:"column:pos_id;type:varchar(64);uniqueIndex:idx_pos_id;not null;comment:仓位ULID"`
	SignalID string `gorm:"column:signal_id;type:varchar(64);not null;default:'';comment:触发信号ID"`

	TokenAddress string `gorm:"column:token_address;type:varchar(128);not null;comment:代币地址"`
	TokenSymbol  string `gorm:"column:token_symbol;type:varchar(64);not null;default:'';comment:代币符号"`
	TokenName    string `gorm:"column:token_name;type:varchar(128);not null;default:'';comment:代币名称"`

	Size decimal.Decimal `gorm:"column:size;type:decimal(32,18);not null;comment:投入本金"`

	State string `gorm:"column:state;type:varchar(32);index:idx_state;not null;comment:仓位状态"`

	EntryPrice decimal.Decimal `gorm:"column:entry_price;type:decimal(32,18);default:0;comment:入场价"`
	EntryTime  *time.Time      `gorm:"column:entry_time;comment:入场时间"`

	ExitPrice  decimal.Decimal `gorm:"column:exit_price;type:decimal(32,18);default:0;comment:出场价"`
	ExitReason string          `gorm:"column:exit_reason;type:varchar(32);default:'';comment:平仓原因"`
	ExitTime   *time.Time      `gorm:"column:exit_time;comment:出场时间"`

	RealizedPnl decimal.Decimal `gorm:"column:realized_pnl;type:decimal(32,18);default:0;comment:已实现盈亏"`

	FailReason string `gorm:"column:fail_reason;type:varchar(255);default:'';comment:开仓失败原因"`

	CreatedAt *time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt *time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (*PositionRecord) TableName() string {
	return "position_record"
}

// ToRecord 转换为落盘结构
func (p *Position) ToRecord() *PositionRecord {
	rec := &PositionRecord{
		PosID:        p.ID,
		SignalID:     p.SignalID,
		TokenAddress: p.TokenAddress,
		TokenSymbol:  p.TokenSymbol,
		TokenName:    p.TokenName,
		Size:         p.Size,
		State:        string(p.State),
		EntryPrice:   p.EntryPrice,
		ExitPrice:    p.ExitPrice,
		ExitReason:   string(p.ExitReason),
		RealizedPnl:  p.RealizedPnl,
		FailReason:   p.FailReason,
	}
	if !p.EntryTime.IsZero() {
		t := p.EntryTime
		rec.EntryTime = &t
	}
	if !p.ExitTime.IsZero() {
		t := p.ExitTime
		rec.ExitTime = &t
	}
	return rec
}

// FromRecord 从落盘结构还原仓位，进程重启后恢复持仓用
func FromRecord(rec *PositionRecord) *Position {
	p := &Position{
		ID:           rec.PosID,
		SignalID:     rec.SignalID,
		TokenAddress: rec.TokenAddress,
		TokenSymbol:  rec.TokenSymbol,
		TokenName:    rec.TokenName,
		Size:         rec.Size,
		State:        common.PositionState(rec.State),
		EntryPrice:   rec.EntryPrice,
		ExitPrice:    rec.ExitPrice,
		ExitReason:   common.ExitReason(rec.ExitReason),
		RealizedPnl:  rec.RealizedPnl,
		FailReason:   rec.FailReason,
	}
	if rec.EntryTime != nil {
		p.EntryTime = *rec.EntryTime
	}
	if rec.ExitTime != nil {
		p.ExitTime = *rec.ExitTime
	}
	if rec.CreatedAt != nil {
		p.CreatedAt = *rec.CreatedAt
	}
	if rec.UpdatedAt != nil {
		p.UpdatedAt = *rec.UpdatedAt
	}
	return p
}
