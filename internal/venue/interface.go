package venue

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Fill 一笔成交确认
type Fill struct {
	Price decimal.Decimal
	Time  time.Time
}

// Venue 执行场所，开平仓可能很慢，调用方决定超时
// 返回 error 即视为执行失败，由调用方回滚仓位状态
type Venue interface {
	// Open 按指定本金买入代币
	Open(ctx context.Context, tokenAddress string, size decimal.Decimal) (*Fill, error)

	// Close 卖出指定仓位
	Close(ctx context.Context, positionID string, tokenAddress string, size decimal.Decimal) (*Fill, error)
}

// PriceSource 价格源，退出评估与模拟成交共用
type PriceSource interface {
	// Price 返回代币当前参考价
	Price(ctx context.Context, tokenAddress string) (decimal.Decimal, error)
}
