package venue

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/pkg/logger"
)

// PaperConfig 纸面交易场所配置
type PaperConfig struct {
	SlippagePct     float64       // 成交滑点百分比，买入抬价卖出压价
	FailRate        float64       // 模拟执行失败概率 0-1
	FillDelay       time.Duration // 模拟成交延迟
	MaxCloseRetries int           // 单次平仓调用内的重试次数
	RetryBackoff    time.Duration // 平仓重试的线性退避步长
}

// PaperVenue 纸面交易执行场所，按价格源的参考价模拟成交
// 开仓失败不重试，平仓失败在本次调用内按线性退避重试
type PaperVenue struct {
	cfg    *PaperConfig
	prices PriceSource

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPaperVenue 创建纸面交易场所
func NewPaperVenue(cfg *PaperConfig, prices PriceSource) *PaperVenue {
	if cfg.MaxCloseRetries <= 0 {
		cfg.MaxCloseRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &PaperVenue{
		cfg:    cfg,
		prices: prices,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Open 模拟买入，滑点向上
func (v *PaperVenue) Open(ctx context.Context, tokenAddress string, size decimal.Decimal) (*Fill, error) {
	if err := v.sleep(ctx); err != nil {
		return nil, err
	}
	if v.roll() {
		return nil, errors.New("simulated open failure")
	}

	price, err := v.prices.Price(ctx, tokenAddress)
	if err != nil {
		return nil, errors.Wrap(err, "query fill price")
	}
	fillPrice := price.Mul(decimal.NewFromFloat(1 + v.cfg.SlippagePct/100))

	logger.Info("📝 纸面开仓成交",
		logger.String("token", tokenAddress),
		logger.String("size", size.String()),
		logger.String("fill_price", fillPrice.String()))
	return &Fill{Price: fillPrice, Time: time.Now()}, nil
}

// Close 模拟卖出，滑点向下，失败后在本次调用内重试
func (v *PaperVenue) Close(ctx context.Context, positionID string, tokenAddress string, size decimal.Decimal) (*Fill, error) {
	var lastErr error
	for attempt := 1; attempt <= v.cfg.MaxCloseRetries; attempt++ {
		if err := v.sleep(ctx); err != nil {
			return nil, err
		}
		if v.roll() {
			lastErr = errors.Errorf("simulated close failure (attempt %d)", attempt)
			logger.Warn("⚠️ 纸面平仓失败，准备重试",
				logger.String("position_id", positionID),
				logger.Int("attempt", attempt),
				logger.FieldErr(lastErr))

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * v.cfg.RetryBackoff):
			}
			continue
		}

		price, err := v.prices.Price(ctx, tokenAddress)
		if err != nil {
			lastErr = errors.Wrap(err, "query fill price")
			continue
		}
		fillPrice := price.Mul(decimal.NewFromFloat(1 - v.cfg.SlippagePct/100))

		logger.Info("📝 纸面平仓成交",
			logger.String("position_id", positionID),
			logger.String("token", tokenAddress),
			logger.String("fill_price", fillPrice.String()))
		return &Fill{Price: fillPrice, Time: time.Now()}, nil
	}
	return nil, errors.Wrap(lastErr, "close retries exhausted")
}

func (v *PaperVenue) sleep(ctx context.Context) error {
	if v.cfg.FillDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(v.cfg.FillDelay):
		return nil
	}
}

func (v *PaperVenue) roll() bool {
	if v.cfg.FailRate <= 0 {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rnd.Float64() < v.cfg.FailRate
}
