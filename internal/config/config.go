package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/ninja0404/whale-trader/pkg/config"
	"github.com/ninja0404/whale-trader/pkg/config/source"
	"github.com/ninja0404/whale-trader/pkg/config/source/file"
	"github.com/ninja0404/whale-trader/pkg/database/mysql"
	"github.com/ninja0404/whale-trader/pkg/logger"
	"github.com/ninja0404/whale-trader/pkg/mq/kafka"
)

// AppConfig 应用配置结构
type AppConfig struct {
	Logger    LoggerConfig      `yaml:"logger" json:"logger"`
	Trading   TradingConfig     `yaml:"trading" json:"trading"`
	Feed      FeedConfig        `yaml:"feed" json:"feed"`
	Venue     VenueConfig       `yaml:"venue" json:"venue"`
	Publisher PublisherConfig   `yaml:"publisher" json:"publisher"`
	Mysql     mysql.MysqlConfig `yaml:"mysql" json:"mysql"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Output     string `yaml:"output" json:"output"`
	Debug      bool   `yaml:"debug" json:"debug"`
	Level      string `yaml:"level" json:"level"`
	AddCaller  bool   `yaml:"add_caller" json:"add_caller"`
	CallerSkip int    `yaml:"caller_skip" json:"caller_skip"`
}

// TradingConfig 跟单策略配置
type TradingConfig struct {
	SolPerTrade    float64 `yaml:"sol_per_trade" json:"sol_per_trade"`       // 每次跟单投入的SOL
	TakeProfitPct  float64 `yaml:"take_profit_pct" json:"take_profit_pct"`   // 止盈涨幅百分比
	StopLossPct    float64 `yaml:"stop_loss_pct" json:"stop_loss_pct"`       // 止损跌幅百分比
	MaxPositions   int     `yaml:"max_positions" json:"max_positions"`       // 最大同时持仓数
	MinWinRate     float64 `yaml:"min_win_rate" json:"min_win_rate"`         // 钱包胜率下限 0-100
	MinTradeAmount float64 `yaml:"min_trade_amount" json:"min_trade_amount"` // 巨鲸单笔金额下限
	MaxMarketCap   float64 `yaml:"max_market_cap" json:"max_market_cap"`     // 代币市值上限
	ExitPriority   string  `yaml:"exit_priority" json:"exit_priority"`       // take_profit_first / stop_loss_first
	MaxHoldHours   float64 `yaml:"max_hold_hours" json:"max_hold_hours"`     // 最长持仓小时数，0不限

	MonitorIntervalSec    int `yaml:"monitor_interval_sec" json:"monitor_interval_sec"`       // 退出条件检查间隔
	ReservationTimeoutSec int `yaml:"reservation_timeout_sec" json:"reservation_timeout_sec"` // 额度预留超时
	OpenTimeoutSec        int `yaml:"open_timeout_sec" json:"open_timeout_sec"`               // 开仓调用超时
	CloseTimeoutSec       int `yaml:"close_timeout_sec" json:"close_timeout_sec"`             // 平仓调用超时
}

// Validate 启动前的配置检查，不合法直接拒绝启动
func (c *TradingConfig) Validate() error {
	if c.SolPerTrade <= 0 {
		return errors.New("sol_per_trade 必须大于0")
	}
	if c.TakeProfitPct <= 0 {
		return errors.New("take_profit_pct 必须大于0")
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 100 {
		return errors.New("stop_loss_pct 必须在(0,100)之间")
	}
	if c.MaxPositions <= 0 {
		return errors.New("max_positions 必须大于0")
	}
	if c.MinWinRate < 0 || c.MinWinRate > 100 {
		return errors.New("min_win_rate 必须在[0,100]之间")
	}
	if c.MinTradeAmount < 0 {
		return errors.New("min_trade_amount 不能为负")
	}
	if c.MaxMarketCap <= 0 {
		return errors.New("max_market_cap 必须大于0")
	}
	switch c.ExitPriority {
	case "", "take_profit_first", "stop_loss_first":
	default:
		return errors.Errorf("非法的 exit_priority: %s", c.ExitPriority)
	}
	return nil
}

// MonitorInterval 退出条件检查间隔
func (c *TradingConfig) MonitorInterval() time.Duration {
	if c.MonitorIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.MonitorIntervalSec) * time.Second
}

// ReservationTimeout 额度预留超时
func (c *TradingConfig) ReservationTimeout() time.Duration {
	if c.ReservationTimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.ReservationTimeoutSec) * time.Second
}

// OpenTimeout 开仓调用超时
func (c *TradingConfig) OpenTimeout() time.Duration {
	if c.OpenTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.OpenTimeoutSec) * time.Second
}

// CloseTimeout 平仓调用超时
func (c *TradingConfig) CloseTimeout() time.Duration {
	if c.CloseTimeoutSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.CloseTimeoutSec) * time.Second
}

// MaxHold 最长持仓时间
func (c *TradingConfig) MaxHold() time.Duration {
	if c.MaxHoldHours <= 0 {
		return 0
	}
	return time.Duration(c.MaxHoldHours * float64(time.Hour))
}

// SolPerTradeDecimal 每次跟单本金
func (c *TradingConfig) SolPerTradeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SolPerTrade)
}

// FeedConfig 信号源配置
type FeedConfig struct {
	Kafka     KafkaFeedConfig     `yaml:"kafka" json:"kafka"`
	AssetDash AssetDashFeedConfig `yaml:"assetdash" json:"assetdash"`
}

// KafkaFeedConfig Kafka信号源配置
type KafkaFeedConfig struct {
	Enabled  bool                      `yaml:"enabled" json:"enabled"`
	Topic    string                    `yaml:"topic" json:"topic"`
	Brokers  []string                  `yaml:"brokers" json:"brokers"`
	Consumer kafka.KafkaConsumerConfig `yaml:"consumer" json:"consumer"`
}

// AssetDashFeedConfig AssetDash轮询信号源配置
type AssetDashFeedConfig struct {
	Enabled         bool   `yaml:"enabled" json:"enabled"`
	BaseURL         string `yaml:"base_url" json:"base_url"`
	Token           string `yaml:"token" json:"token"` // 支持 ${ASSETDASH_TOKEN} 环境变量展开
	PollIntervalSec int    `yaml:"poll_interval_sec" json:"poll_interval_sec"`
	PageLimit       int    `yaml:"page_limit" json:"page_limit"`
}

// PollInterval 轮询间隔
func (c *AssetDashFeedConfig) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// VenueConfig 执行场所配置，当前只有纸面交易实现
type VenueConfig struct {
	SlippagePct     float64 `yaml:"slippage_pct" json:"slippage_pct"`
	FailRate        float64 `yaml:"fail_rate" json:"fail_rate"`
	FillDelayMs     int     `yaml:"fill_delay_ms" json:"fill_delay_ms"`
	MaxCloseRetries int     `yaml:"max_close_retries" json:"max_close_retries"`
	RetryBackoffMs  int     `yaml:"retry_backoff_ms" json:"retry_backoff_ms"`

	BasePrice float64 `yaml:"base_price" json:"base_price"` // 模拟价格源的基准价
	StepPct   float64 `yaml:"step_pct" json:"step_pct"`     // 模拟价格源的单步波动
}

// PublisherConfig 发布器配置
type PublisherConfig struct {
	Feishu FeishuConfig         `yaml:"feishu" json:"feishu"`
	Kafka  KafkaPublisherConfig `yaml:"kafka" json:"kafka"`
}

// FeishuConfig 飞书发布器配置
type FeishuConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// KafkaPublisherConfig Kafka发布器配置
type KafkaPublisherConfig struct {
	Enabled  bool                      `yaml:"enabled" json:"enabled"`
	Topic    string                    `yaml:"topic" json:"topic"`
	Brokers  []string                  `yaml:"brokers" json:"brokers"`
	Producer kafka.KafkaProducerConfig `yaml:"producer" json:"producer"`
}

// GetFeishuWebhookURL 获取飞书Webhook URL
func (p PublisherConfig) GetFeishuWebhookURL() string {
	return p.Feishu.WebhookURL
}

// GetKafkaTopic 获取Kafka发布topic，未启用时为空
func (p PublisherConfig) GetKafkaTopic() string {
	if !p.Kafka.Enabled {
		return ""
	}
	return p.Kafka.Topic
}

// Manager 配置管理器
type Manager struct {
	config *AppConfig
}

// NewManager 创建配置管理器
func NewManager() *Manager {
	return &Manager{}
}

// Load 加载配置文件
func (m *Manager) Load(configPath string) error {
	// 使用默认config，它已经支持yaml格式了
	err := config.Load(file.NewSource(
		file.WithPath(configPath),
		source.WithFormat("yaml"),
	))
	if err != nil {
		return err
	}

	// 解析配置
	var appConfig AppConfig
	err = config.Scan(&appConfig)
	if err != nil {
		return err
	}

	if err := appConfig.Trading.Validate(); err != nil {
		return errors.Wrap(err, "trading配置不合法")
	}

	m.config = &appConfig
	return nil
}

// GetAppConfig 获取应用配置
func (m *Manager) GetAppConfig() *AppConfig {
	return m.config
}

// GetLoggerConfig 获取日志配置
func (m *Manager) GetLoggerConfig() LoggerConfig {
	return m.config.Logger
}

// GetTradingConfig 获取跟单策略配置
func (m *Manager) GetTradingConfig() TradingConfig {
	return m.config.Trading
}

// GetFeedConfig 获取信号源配置
func (m *Manager) GetFeedConfig() FeedConfig {
	return m.config.Feed
}

// GetVenueConfig 获取执行场所配置
func (m *Manager) GetVenueConfig() VenueConfig {
	return m.config.Venue
}

// GetDatabaseConfig 获取数据库配置
func (m *Manager) GetDatabaseConfig() mysql.MysqlConfig {
	return m.config.Mysql
}

// GetPublisherConfig 获取发布器配置
func (m *Manager) GetPublisherConfig() PublisherConfig {
	return m.config.Publisher
}

// InitLogger 初始化日志系统
func (m *Manager) InitLogger() error {
	loggerConfig := logger.FromConfig("logger")
	loggerInstance := loggerConfig.Build()
	logger.SetDefault(loggerInstance)
	logger.SetDefaultL1(loggerInstance)
	return nil
}
