package exit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
)

// Priority 止盈止损的检查顺序，同时满足时决定最终结论
type Priority string

const (
	TakeProfitFirst Priority = "take_profit_first"
	StopLossFirst   Priority = "stop_loss_first"
)

// Config 退出条件配置
type Config struct {
	TakeProfitPct decimal.Decimal // 止盈涨幅百分比，如 50 表示 +50%
	StopLossPct   decimal.Decimal // 止损跌幅百分比，如 20 表示 -20%
	Priority      Priority        // 同时满足时的优先级
	MaxHold       time.Duration   // 最长持仓时间，0 表示不限
}

// Evaluator 持仓退出评估器，纯函数，不做任何I/O
type Evaluator struct {
	cfg *Config
}

// NewEvaluator 创建退出评估器，配置拷贝一份，默认值不回写调用方
func NewEvaluator(cfg *Config) *Evaluator {
	c := *cfg
	if c.Priority == "" {
		c.Priority = TakeProfitFirst
	}
	return &Evaluator{cfg: &c}
}

// Evaluate 评估一个 open 持仓是否应当平仓，返回 nil 表示继续持有
func (e *Evaluator) Evaluate(pos *model.Position, currentPrice decimal.Decimal, now time.Time) *model.ExitSignal {
	pnlPct := model.PnlPct(pos.EntryPrice, currentPrice)

	var first, second *model.ExitSignal
	if tp := e.checkTakeProfit(pnlPct, currentPrice); tp != nil {
		first = tp
	}
	if sl := e.checkStopLoss(pnlPct, currentPrice); sl != nil {
		second = sl
	}
	if e.cfg.Priority == StopLossFirst {
		first, second = second, first
	}
	if first != nil {
		return first
	}
	if second != nil {
		return second
	}

	if e.cfg.MaxHold > 0 && !pos.EntryTime.IsZero() && now.Sub(pos.EntryTime) >= e.cfg.MaxHold {
		return &model.ExitSignal{
			Reason: common.ExitReasonMaxHold,
			PnlPct: pnlPct,
			Price:  currentPrice,
			Message: fmt.Sprintf("held %s >= %s",
				now.Sub(pos.EntryTime).Truncate(time.Second), e.cfg.MaxHold),
		}
	}
	return nil
}

func (e *Evaluator) checkTakeProfit(pnlPct, price decimal.Decimal) *model.ExitSignal {
	if pnlPct.GreaterThanOrEqual(e.cfg.TakeProfitPct) {
		return &model.ExitSignal{
			Reason:  common.ExitReasonTakeProfit,
			PnlPct:  pnlPct,
			Price:   price,
			Message: fmt.Sprintf("pnl %s%% >= take profit %s%%", pnlPct.StringFixed(2), e.cfg.TakeProfitPct),
		}
	}
	return nil
}

func (e *Evaluator) checkStopLoss(pnlPct, price decimal.Decimal) *model.ExitSignal {
	if pnlPct.LessThanOrEqual(e.cfg.StopLossPct.Neg()) {
		return &model.ExitSignal{
			Reason:  common.ExitReasonStopLoss,
			PnlPct:  pnlPct,
			Price:   price,
			Message: fmt.Sprintf("pnl %s%% <= stop loss -%s%%", pnlPct.StringFixed(2), e.cfg.StopLossPct),
		}
	}
	return nil
}
