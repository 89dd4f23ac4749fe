package app

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/ninja0404/whale-trader/internal/book"
	"github.com/ninja0404/whale-trader/internal/config"
	"github.com/ninja0404/whale-trader/internal/engine"
	"github.com/ninja0404/whale-trader/internal/exit"
	"github.com/ninja0404/whale-trader/internal/publisher"
	"github.com/ninja0404/whale-trader/internal/repo"
	"github.com/ninja0404/whale-trader/internal/rules"
	"github.com/ninja0404/whale-trader/internal/source"
	"github.com/ninja0404/whale-trader/internal/source/assetdash"
	kafkasource "github.com/ninja0404/whale-trader/internal/source/kafka"
	"github.com/ninja0404/whale-trader/internal/venue"
	"github.com/ninja0404/whale-trader/pkg/database/mysql"
	"github.com/ninja0404/whale-trader/pkg/logger"
	"github.com/ninja0404/whale-trader/pkg/mq/kafka"
	"github.com/ninja0404/whale-trader/pkg/utils"
	"github.com/shopspring/decimal"
)

// Application 巨鲸跟单交易应用
type Application struct {
	configManager *config.Manager

	db            *gorm.DB
	positionRepo  repo.PositionRepo
	posBook       *book.Book
	engine        *engine.Engine
	sourceManager *source.Manager
	pubMgr        *publisher.Manager

	kafkaProducerReady bool
}

// New 创建巨鲸跟单应用实例
func New() *Application {
	return &Application{
		configManager: config.NewManager(),
		sourceManager: source.NewManager(),
	}
}

// Initialize 初始化应用
func (app *Application) Initialize(configPath string) error {
	// 1. 加载配置
	if err := app.configManager.Load(configPath); err != nil {
		return err
	}

	// 2. 初始化日志系统
	if err := app.configManager.InitLogger(); err != nil {
		return err
	}
	logger.Info("🚀 巨鲸跟单交易服务初始化开始", logger.String("config_path", configPath))

	// 3. 初始化数据库
	if err := app.initDatabase(); err != nil {
		return err
	}

	// 4. 初始化Kafka生产者(发布器依赖)
	if err := app.initKafkaProducer(); err != nil {
		return err
	}

	// 5. 组装仓位簿、执行场所与决策引擎
	if err := app.setupEngine(); err != nil {
		return err
	}

	// 6. 设置信号源
	if err := app.setupSignalSources(); err != nil {
		return err
	}

	logger.Info("✅ 巨鲸跟单交易服务初始化完成")
	return nil
}

// initDatabase 初始化数据库连接
func (app *Application) initDatabase() error {
	// 从默认配置初始化数据库
	if err := mysql.SetupDatabaseFromDefaultConfig(); err != nil {
		return err
	}

	// 获取数据库连接
	db, err := mysql.GetDb()
	if err != nil {
		return err
	}
	app.db = db

	// 创建仓位仓储
	app.positionRepo = repo.NewPositionRepo(db)

	logger.Info("📊 数据库连接已建立")
	return nil
}

// initKafkaProducer 初始化全局Kafka生产者，仅在Kafka发布器启用时需要
func (app *Application) initKafkaProducer() error {
	pubCfg := app.configManager.GetPublisherConfig()
	if !pubCfg.Kafka.Enabled {
		return nil
	}

	if err := kafka.SetupKafkaProducer(pubCfg.Kafka.Brokers, pubCfg.Kafka.Producer); err != nil {
		return err
	}
	app.kafkaProducerReady = true
	logger.Info("📨 Kafka生产者已就绪", logger.String("topic", pubCfg.Kafka.Topic))
	return nil
}

// setupEngine 组装决策引擎及其全部协作方
func (app *Application) setupEngine() error {
	trading := app.configManager.GetTradingConfig()
	venueCfg := app.configManager.GetVenueConfig()

	// 仓位簿 + 崩溃恢复：启动时把 open 状态的仓位装回内存
	app.posBook = book.NewBook(trading.MaxPositions)
	openPositions, err := app.positionRepo.GetOpenPositions()
	if err != nil {
		return err
	}
	if len(openPositions) > 0 {
		if err := app.posBook.Restore(openPositions); err != nil {
			return err
		}
		logger.Info("♻️ 已恢复历史持仓", logger.Int("count", len(openPositions)))
	}

	// 纸面交易场所与随机游走价格源
	basePrice := venueCfg.BasePrice
	if basePrice <= 0 {
		basePrice = 100
	}
	stepPct := venueCfg.StepPct
	if stepPct <= 0 {
		stepPct = 5
	}
	if utils.IsProdEnv() && venueCfg.FailRate > 0 {
		logger.Warn("⚠️ 生产环境启用了模拟执行失败",
			logger.Any("fail_rate", venueCfg.FailRate))
	}

	prices := venue.NewRandomWalkPriceSource(
		decimal.NewFromFloat(basePrice), stepPct, int64(os.Getpid()))
	paperVenue := venue.NewPaperVenue(&venue.PaperConfig{
		SlippagePct:     venueCfg.SlippagePct,
		FailRate:        venueCfg.FailRate,
		FillDelay:       millis(venueCfg.FillDelayMs),
		MaxCloseRetries: venueCfg.MaxCloseRetries,
		RetryBackoff:    millis(venueCfg.RetryBackoffMs),
	}, prices)

	// 发布管理器
	app.pubMgr = publisher.NewManager(app.configManager.GetPublisherConfig())

	app.engine = engine.NewEngine(
		&engine.Config{
			SolPerTrade: trading.SolPerTradeDecimal(),
			RuleConfig: &rules.Config{
				MinTradeAmount: decimal.NewFromFloat(trading.MinTradeAmount),
				MinWinRate:     decimal.NewFromFloat(trading.MinWinRate),
				MaxMarketCap:   decimal.NewFromFloat(trading.MaxMarketCap),
				MaxPositions:   trading.MaxPositions,
			},
			ExitConfig: &exit.Config{
				TakeProfitPct: decimal.NewFromFloat(trading.TakeProfitPct),
				StopLossPct:   decimal.NewFromFloat(trading.StopLossPct),
				Priority:      exit.Priority(trading.ExitPriority),
				MaxHold:       trading.MaxHold(),
			},
			MonitorInterval:    trading.MonitorInterval(),
			ReservationTimeout: trading.ReservationTimeout(),
			OpenTimeout:        trading.OpenTimeout(),
			CloseTimeout:       trading.CloseTimeout(),
		},
		app.posBook,
		paperVenue,
		prices,
		app.positionRepo,
		app.pubMgr,
	)
	return nil
}

// setupSignalSources 按配置装配信号源
func (app *Application) setupSignalSources() error {
	feedCfg := app.configManager.GetFeedConfig()

	if feedCfg.Kafka.Enabled {
		kafkaSource := kafkasource.NewSource(kafkasource.SourceConfig{
			Topic:       feedCfg.Kafka.Topic,
			Brokers:     feedCfg.Kafka.Brokers,
			KafkaConfig: feedCfg.Kafka.Consumer,
		})
		app.sourceManager.AddSource(kafkaSource)
		logger.Info("📡 已配置Kafka信号源", logger.String("topic", feedCfg.Kafka.Topic))
	}

	if feedCfg.AssetDash.Enabled {
		adSource := assetdash.NewSource(assetdash.SourceConfig{
			BaseURL:      feedCfg.AssetDash.BaseURL,
			Token:        feedCfg.AssetDash.Token,
			PollInterval: feedCfg.AssetDash.PollInterval(),
			PageLimit:    feedCfg.AssetDash.PageLimit,
		})
		app.sourceManager.AddSource(adSource)
		logger.Info("🌊 已配置AssetDash信号源",
			logger.String("poll_interval", feedCfg.AssetDash.PollInterval().String()))
	}
	return nil
}

// Run 运行应用
func (app *Application) Run() error {
	logger.Info("🎯 启动巨鲸跟单决策引擎")

	if err := app.engine.Start(); err != nil {
		return err
	}
	if err := app.sourceManager.Start(); err != nil {
		return err
	}

	go app.dispatchSignals()
	go app.drainSourceErrors()

	logger.Info("🔥 巨鲸跟单交易服务已启动，开始监听巨鲸信号...")

	// 等待终止信号
	app.waitForShutdown()
	return nil
}

// dispatchSignals 把汇聚后的信号流喂给决策引擎
func (app *Application) dispatchSignals() {
	for sig := range app.sourceManager.Signals() {
		app.engine.ProcessSignal(sig)
	}
}

// drainSourceErrors 数据源错误只记录，不影响主流程
func (app *Application) drainSourceErrors() {
	for err := range app.sourceManager.Errors() {
		logger.Error("数据源错误", logger.FieldErr(err))
	}
}

// waitForShutdown 等待关闭信号
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// 阻塞等待信号
	sig := <-quit
	logger.Info("📤 收到终止信号，开始优雅关闭应用...", logger.String("signal", sig.String()))

	// 优雅关闭
	app.Shutdown()
}

// Shutdown 优雅关闭应用
func (app *Application) Shutdown() {
	logger.Info("🛑 开始关闭巨鲸跟单交易服务...")

	// 先停信号源，再停引擎，保证在途信号处理完
	if err := app.sourceManager.Stop(); err != nil {
		logger.Error("停止数据源管理器失败", logger.FieldErr(err))
	}
	app.engine.Stop()
	app.pubMgr.Close()

	if app.kafkaProducerReady {
		if err := kafka.CloseProducer(); err != nil {
			logger.Error("关闭Kafka生产者失败", logger.FieldErr(err))
		}
	}

	// 关库前汇总历史平仓盈亏
	if app.positionRepo != nil {
		if trading, err := app.positionRepo.GetTradingStats(); err != nil {
			logger.Error("查询交易盈亏统计失败", logger.FieldErr(err))
		} else {
			logger.Info("💹 历史交易统计",
				logger.Int("total_closed", trading.TotalClosed),
				logger.Int("wins", trading.Wins),
				logger.String("total_pnl", trading.TotalPnl.String()))
		}
	}

	// 关闭数据库连接
	if err := mysql.Stop(); err != nil {
		logger.Error("关闭数据库连接失败", logger.FieldErr(err))
	}

	// 输出策略统计
	stats := app.engine.GetStats()
	logger.Info("📈 服务运行统计",
		logger.Any("signals_processed", stats.SignalsProcessed),
		logger.Any("signals_accepted", stats.SignalsAccepted),
		logger.Any("signals_rejected", stats.SignalsRejected),
		logger.Any("positions_opened", stats.PositionsOpened),
		logger.Any("positions_closed", stats.PositionsClosed),
		logger.Any("open_failures", stats.OpenFailures),
		logger.Any("close_failures", stats.CloseFailures))

	logger.Info("✨ 巨鲸跟单交易服务已成功关闭")
}

// Start 启动应用的便捷方法
func (app *Application) Start(configPath string) error {
	// 初始化
	if err := app.Initialize(configPath); err != nil {
		logger.Error("❌ 巨鲸跟单服务初始化失败", logger.FieldErr(err))
		return err
	}

	// 运行
	if err := app.Run(); err != nil {
		logger.Error("❌ 巨鲸跟单服务运行失败", logger.FieldErr(err))
		return err
	}
	return nil
}

// GetConfigManager 获取配置管理器
func (app *Application) GetConfigManager() *config.Manager {
	return app.configManager
}

// GetEngine 获取决策引擎(用于调试和监控)
func (app *Application) GetEngine() *engine.Engine {
	return app.engine
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
