package publisher

import (
	"github.com/ninja0404/whale-trader/pkg/logger"
)

// LogPublisher 日志发布器，把仓位事件写入结构化日志
type LogPublisher struct{}

func (p *LogPublisher) GetType() string {
	return "log"
}

func (p *LogPublisher) Publish(event *PositionEvent) error {
	pos := event.Position
	fields := []logger.Field{
		logger.String("position_id", pos.ID),
		logger.String("token", pos.TokenSymbol),
		logger.String("token_address", pos.TokenAddress),
		logger.String("size", pos.Size.String()),
	}

	switch event.Kind {
	case EventPositionOpened:
		fields = append(fields, logger.String("entry_price", pos.EntryPrice.String()))
		logger.Info("🟢 开仓", fields...)
	case EventPositionClosed:
		fields = append(fields,
			logger.String("entry_price", pos.EntryPrice.String()),
			logger.String("exit_price", pos.ExitPrice.String()),
			logger.String("exit_reason", string(pos.ExitReason)),
			logger.String("realized_pnl", pos.RealizedPnl.String()))
		logger.Info("🔴 平仓", fields...)
	case EventOpenFailed:
		fields = append(fields, logger.String("fail_reason", pos.FailReason))
		logger.Warn("⚠️ 开仓失败", fields...)
	default:
		logger.Info("仓位事件", append(fields, logger.String("kind", string(event.Kind)))...)
	}
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
