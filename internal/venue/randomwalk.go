package venue

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// RandomWalkPriceSource 随机游走价格源，纸面交易模式下模拟代币价格
// 每个代币首次询价时按基准价初始化，之后每次询价随机波动一步
type RandomWalkPriceSource struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	rnd    *rand.Rand

	basePrice decimal.Decimal
	stepPct   float64 // 单步最大波动百分比
}

// NewRandomWalkPriceSource 创建随机游走价格源
func NewRandomWalkPriceSource(basePrice decimal.Decimal, stepPct float64, seed int64) *RandomWalkPriceSource {
	return &RandomWalkPriceSource{
		prices:    make(map[string]decimal.Decimal),
		rnd:       rand.New(rand.NewSource(seed)),
		basePrice: basePrice,
		stepPct:   stepPct,
	}
}

// Price 返回代币当前模拟价并向前游走一步
func (s *RandomWalkPriceSource) Price(_ context.Context, tokenAddress string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[tokenAddress]
	if !ok {
		price = s.basePrice
	}

	// [-stepPct, +stepPct] 内均匀波动
	move := (s.rnd.Float64()*2 - 1) * s.stepPct / 100
	price = price.Mul(decimal.NewFromFloat(1 + move))
	if price.IsNegative() || price.IsZero() {
		price = s.basePrice
	}
	s.prices[tokenAddress] = price
	return price, nil
}

// SetPrice 直接设定代币价格，测试用
func (s *RandomWalkPriceSource) SetPrice(tokenAddress string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[tokenAddress] = price
}
