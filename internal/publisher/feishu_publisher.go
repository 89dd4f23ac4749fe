package publisher

import (
	"fmt"
	"strings"
	"time"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/notifier"
	"github.com/ninja0404/whale-trader/pkg/utils"
)

// FeishuPublisher 飞书发布器，开平仓后推送卡片消息
type FeishuPublisher struct {
	webhookURL string
}

// NewFeishuPublisher 创建飞书发布器
func NewFeishuPublisher(webhookURL string) *FeishuPublisher {
	return &FeishuPublisher{
		webhookURL: webhookURL,
	}
}

func (p *FeishuPublisher) GetType() string {
	return "feishu"
}

func (p *FeishuPublisher) Publish(event *PositionEvent) error {
	message := p.formatMessage(event)
	if message == "" {
		return nil
	}
	// 发送到飞书
	return notifier.SendToLark(message, p.webhookURL)
}

func (p *FeishuPublisher) Close() error {
	return nil
}

// formatMessage 格式化仓位事件消息
func (p *FeishuPublisher) formatMessage(event *PositionEvent) string {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	pos := event.Position

	var sb strings.Builder
	switch event.Kind {
	case EventPositionOpened:
		sb.WriteString("🟢 跟单开仓\n")
		sb.WriteString(fmt.Sprintf("💎 代币: %s (%s)\n", pos.TokenSymbol, pos.TokenName))
		sb.WriteString(fmt.Sprintf("📍 地址: %s\n", utils.GetDisplayWalletAddress(pos.TokenAddress)))
		sb.WriteString(fmt.Sprintf("💰 入场价: $%s\n", utils.FormatPrice(pos.EntryPrice.String())))
		sb.WriteString(fmt.Sprintf("📦 本金: %s SOL\n", pos.Size.String()))
		sb.WriteString(fmt.Sprintf("🕐 时间: %s", event.Timestamp.In(loc).Format("2006-01-02 15:04:05")))

	case EventPositionClosed:
		emoji := "📈"
		if pos.RealizedPnl.IsNegative() {
			emoji = "📉"
		}
		sb.WriteString(fmt.Sprintf("%s 跟单平仓 [%s]\n", emoji, exitReasonName(pos.ExitReason)))
		sb.WriteString(fmt.Sprintf("💎 代币: %s (%s)\n", pos.TokenSymbol, pos.TokenName))
		sb.WriteString(fmt.Sprintf("💰 入场价: $%s\n", utils.FormatPrice(pos.EntryPrice.String())))
		sb.WriteString(fmt.Sprintf("💸 出场价: $%s\n", utils.FormatPrice(pos.ExitPrice.String())))
		sb.WriteString(fmt.Sprintf("🧾 盈亏: %s SOL\n", pos.RealizedPnl.StringFixed(6)))
		sb.WriteString(fmt.Sprintf("🕐 时间: %s", event.Timestamp.In(loc).Format("2006-01-02 15:04:05")))

	case EventOpenFailed:
		sb.WriteString("⚠️ 跟单开仓失败\n")
		sb.WriteString(fmt.Sprintf("💎 代币: %s (%s)\n", pos.TokenSymbol, pos.TokenName))
		sb.WriteString(fmt.Sprintf("❌ 原因: %s\n", pos.FailReason))
		sb.WriteString(fmt.Sprintf("🕐 时间: %s", event.Timestamp.In(loc).Format("2006-01-02 15:04:05")))

	default:
		return ""
	}
	return sb.String()
}

// exitReasonName 平仓原因的中文名称
func exitReasonName(reason common.ExitReason) string {
	switch reason {
	case common.ExitReasonTakeProfit:
		return "止盈"
	case common.ExitReasonStopLoss:
		return "止损"
	case common.ExitReasonMaxHold:
		return "超时平仓"
	case common.ExitReasonManual:
		return "手动平仓"
	default:
		return "未知原因"
	}
}
