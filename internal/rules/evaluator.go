package rules

import (
	"sync"

	"github.com/ninja0404/whale-trader/internal/model"
)

// AcceptReason 所有规则通过时的接受标记
const AcceptReason = "all criteria passed"

// Evaluator 按固定优先级顺序执行准入规则链
// 第一条未通过的规则决定拒绝原因，保证结论可复现
type Evaluator struct {
	rules []Rule

	mu       sync.Mutex
	accepted uint64
	rejected map[string]uint64 // 规则名 -> 拒绝次数
}

// NewEvaluator 创建规则评估器，规则顺序即优先级
func NewEvaluator() *Evaluator {
	return &Evaluator{
		rules: []Rule{
			&BuyOnlyRule{},
			&MinTradeAmountRule{},
			&MinWinRateRule{},
			&MaxMarketCapRule{},
			&RugcheckRule{},
			&DuplicateTokenRule{},
			&MaxPositionsRule{},
		},
		rejected: make(map[string]uint64),
	}
}

// Evaluate 纯函数式评估，不产生任何副作用(计数除外)
func (e *Evaluator) Evaluate(signal *model.WhaleTransaction, cfg *Config, portfolio *model.PortfolioSnapshot) *model.Decision {
	ctx := &EvaluationContext{
		Signal:    signal,
		Config:    cfg,
		Portfolio: portfolio,
	}

	for _, rule := range e.rules {
		ok, reason := rule.Evaluate(ctx)
		if !ok {
			e.mu.Lock()
			e.rejected[rule.GetName()]++
			e.mu.Unlock()
			return &model.Decision{Accept: false, Reason: reason}
		}
	}

	e.mu.Lock()
	e.accepted++
	e.mu.Unlock()
	return &model.Decision{Accept: true, Reason: AcceptReason}
}

// Stats 各规则的拒绝次数与接受总数，用于停机时输出策略统计
func (e *Evaluator) Stats() (accepted uint64, rejected map[string]uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rejected = make(map[string]uint64, len(e.rejected))
	for name, n := range e.rejected {
		rejected[name] = n
	}
	return e.accepted, rejected
}
