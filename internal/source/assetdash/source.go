package assetdash

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
	"github.com/ninja0404/whale-trader/pkg/logger"
)

const (
	defaultBaseURL = "https://swap-api.assetdash.com/api/api_v5"
	listEndpoint   = "/whalewatch/transactions/list"

	// 去重集合的上限，超过后整体重建
	maxSeenIDs = 100_000
)

// SourceConfig AssetDash数据源配置
type SourceConfig struct {
	BaseURL      string
	Token        string // 为空时自动进入演示模式
	PollInterval time.Duration
	PageLimit    int
	Timeout      time.Duration
}

// Source AssetDash巨鲸数据源，按固定间隔轮询接口
// 没有API令牌时生成演示信号，便于不接外部服务跑通全流程
type Source struct {
	sigChan chan *model.WhaleTransaction
	errChan chan error
	ctx     context.Context
	cancel  context.CancelFunc
	config  SourceConfig
	done    chan struct{}
	started bool

	client   *http.Client
	demoMode bool
	demo     *demoGenerator

	mu      sync.Mutex
	seenIDs map[string]struct{}
}

// NewSource 创建AssetDash数据源
func NewSource(config SourceConfig) *Source {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 30 * time.Second
	}
	if config.PageLimit <= 0 {
		config.PageLimit = 20
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Source{
		sigChan:  make(chan *model.WhaleTransaction, 1000),
		errChan:  make(chan error, 100),
		ctx:      ctx,
		cancel:   cancel,
		config:   config,
		done:     make(chan struct{}),
		client:   &http.Client{Timeout: config.Timeout},
		demoMode: config.Token == "",
		demo:     newDemoGenerator(),
		seenIDs:  make(map[string]struct{}),
	}
}

// Start 启动轮询协程
func (s *Source) Start(ctx context.Context) error {
	if s.demoMode {
		logger.Info("💡 未配置AssetDash令牌，数据源进入演示模式")
	}

	s.started = true
	go s.pollLoop()

	logger.Info("✅ AssetDash数据源已启动",
		logger.String("base_url", s.config.BaseURL),
		logger.String("poll_interval", s.config.PollInterval.String()),
		logger.Int("page_limit", s.config.PageLimit))
	return nil
}

// Stop 停止数据源，等轮询协程退出后通道才会关闭
func (s *Source) Stop() error {
	logger.Info("🛑 停止AssetDash数据源")
	s.cancel()
	if s.started {
		<-s.done
	} else {
		close(s.sigChan)
		close(s.errChan)
	}
	return nil
}

// Subscribe 获取信号通道
func (s *Source) Subscribe() <-chan *model.WhaleTransaction {
	return s.sigChan
}

// Errors 获取错误通道
func (s *Source) Errors() <-chan error {
	return s.errChan
}

// String 数据源名称
func (s *Source) String() string {
	if s.demoMode {
		return "assetdash-source[demo]"
	}
	return "assetdash-source"
}

// pollLoop 持有通道所有权，退出时才关闭通道
func (s *Source) pollLoop() {
	defer func() {
		close(s.sigChan)
		close(s.errChan)
		close(s.done)
	}()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// 启动后立即拉一次，不等第一个tick
	s.pollOnce()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

func (s *Source) pollOnce() {
	var (
		signals []*model.WhaleTransaction
		err     error
	)
	if s.demoMode {
		signals = s.demo.Generate(s.config.PageLimit)
	} else {
		signals, err = s.fetch()
		if err != nil {
			logger.Error("拉取巨鲸交易失败", logger.FieldErr(err))
			select {
			case s.errChan <- err:
			case <-s.ctx.Done():
			}
			return
		}
	}

	published := 0
	for _, sig := range signals {
		if s.alreadySeen(sig.ID) {
			continue
		}
		if err := sig.Validate(); err != nil {
			logger.Warn("丢弃非法信号",
				logger.String("signal_id", sig.ID),
				logger.FieldErr(err))
			continue
		}
		select {
		case s.sigChan <- sig:
			published++
		case <-s.ctx.Done():
			return
		}
	}

	if published > 0 {
		logger.Info("🐋 收到巨鲸交易信号",
			logger.Int("count", published),
			logger.String("source", s.String()))
	}
}

// whaleTxPayload AssetDash接口返回的单笔交易
type whaleTxPayload struct {
	ID               string          `json:"id"`
	Timestamp        time.Time       `json:"timestamp"`
	TransactionType  string          `json:"transaction_type"`
	TradeSize        string          `json:"trade_size"`
	TradeAmount      decimal.Decimal `json:"trade_amount_rounded"`
	WinRate          decimal.Decimal `json:"win_rate"`
	TokenMarketCap   decimal.Decimal `json:"token_market_cap"`
	IsTokenFirstSeen bool            `json:"is_token_first_seen"`

	SwapToken struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Symbol         string `json:"symbol"`
		TokenAddress   string `json:"token_address"`
		RugcheckStatus string `json:"rugcheck_status"`
	} `json:"swap_token"`
}

type listResponse struct {
	Transactions []*whaleTxPayload `json:"transactions"`
}

func (s *Source) fetch() ([]*model.WhaleTransaction, error) {
	u, err := url.Parse(s.config.BaseURL + listEndpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("page", "1")
	q.Set("limit", strconv.Itoa(s.config.PageLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		// 令牌失效后降级为演示模式，保持进程存活
		logger.Error("🔑 AssetDash鉴权失败，降级为演示模式")
		s.demoMode = true
		return nil, nil
	case http.StatusTooManyRequests:
		logger.Warn("⚠️ AssetDash接口限流，跳过本轮")
		return nil, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("assetdash接口返回 %d: %s", resp.StatusCode, body)
	}

	var payload listResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	signals := make([]*model.WhaleTransaction, 0, len(payload.Transactions))
	for _, tx := range payload.Transactions {
		signals = append(signals, &model.WhaleTransaction{
			ID:               tx.ID,
			Timestamp:        tx.Timestamp,
			TransactionType:  common.TransactionType(tx.TransactionType),
			TokenID:          tx.SwapToken.ID,
			TokenName:        tx.SwapToken.Name,
			TokenSymbol:      tx.SwapToken.Symbol,
			TokenAddress:     tx.SwapToken.TokenAddress,
			TradeSize:        common.TradeSize(tx.TradeSize),
			TradeAmount:      tx.TradeAmount,
			WinRate:          tx.WinRate,
			TokenMarketCap:   tx.TokenMarketCap,
			RugcheckStatus:   normalizeRugcheck(tx.SwapToken.RugcheckStatus),
			IsTokenFirstSeen: tx.IsTokenFirstSeen,
		})
	}
	return signals, nil
}

// normalizeRugcheck 接口字段与内部枚举的映射
func normalizeRugcheck(status string) common.RugcheckStatus {
	switch status {
	case "good":
		return common.RugcheckGood
	case "warning", "caution":
		return common.RugcheckCaution
	case "danger", "bad":
		return common.RugcheckBad
	default:
		return common.RugcheckUnknown
	}
}

func (s *Source) alreadySeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seenIDs[id]; ok {
		return true
	}
	if len(s.seenIDs) >= maxSeenIDs {
		s.seenIDs = make(map[string]struct{})
	}
	s.seenIDs[id] = struct{}{}
	return false
}
