package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/ninja0404/whale-trader/internal/common"
	"github.com/ninja0404/whale-trader/internal/model"
	"github.com/ninja0404/whale-trader/pkg/logger"
	"github.com/ninja0404/whale-trader/pkg/mq/kafka"
)

// Source Kafka数据源实现，消费上游巨鲸监控服务推送的事件
type Source struct {
	sigChan      chan *model.WhaleTransaction
	errChan      chan error
	ctx          context.Context
	cancel       context.CancelFunc
	config       SourceConfig
	consumerName string

	// 消费者关闭不等在途handler，发送与关闭互斥
	mu     sync.Mutex
	closed bool
}

// SourceConfig Kafka数据源配置
type SourceConfig struct {
	Topic       string
	Brokers     []string
	KafkaConfig kafka.KafkaConsumerConfig // 直接使用完整配置
}

// NewSource 创建Kafka数据源
func NewSource(config SourceConfig) *Source {
	ctx, cancel := context.WithCancel(context.Background())

	return &Source{
		sigChan:      make(chan *model.WhaleTransaction, 1000),
		errChan:      make(chan error, 100),
		ctx:          ctx,
		cancel:       cancel,
		config:       config,
		consumerName: fmt.Sprintf("whale-trader-%s", config.KafkaConfig.GroupId),
	}
}

// Start 启动Kafka数据源
func (s *Source) Start(ctx context.Context) error {
	// 使用完整的Kafka配置，只覆盖Topic
	kafkaConfig := s.config.KafkaConfig
	kafkaConfig.Topics = []string{s.config.Topic}

	// 设置命名的Kafka消费者
	if err := kafka.SetupNamedKafkaConsumer(s.consumerName, s.config.Brokers, kafkaConfig); err != nil {
		return fmt.Errorf("设置Kafka消费者失败: %w", err)
	}

	// 注册消息处理器
	if err := kafka.RegisterTopicHandlerForConsumer(s.consumerName, s.config.Topic, s.handleMessage); err != nil {
		return fmt.Errorf("注册消息处理器失败: %w", err)
	}

	// 启动消费者
	if err := kafka.StartNamedConsumer(s.consumerName); err != nil {
		return fmt.Errorf("启动Kafka消费者失败: %w", err)
	}

	logger.Info("✅ Kafka数据源已启动",
		logger.String("topic", s.config.Topic),
		logger.String("group_id", s.config.KafkaConfig.GroupId),
		logger.String("consumer_name", s.consumerName))

	return nil
}

// Stop 停止Kafka数据源
func (s *Source) Stop() error {
	logger.Info("🛑 停止Kafka数据源")
	s.cancel()

	// 关闭命名的Kafka消费者
	if err := kafka.CloseNamedConsumer(s.consumerName); err != nil {
		logger.Error("关闭Kafka消费者失败", logger.FieldErr(err))
	}

	// ctx已取消，在途handler的发送会立即退出，拿到锁后关闭才安全
	s.mu.Lock()
	s.closed = true
	close(s.sigChan)
	close(s.errChan)
	s.mu.Unlock()

	return nil
}

// emitSignal 投递信号，数据源已关闭时丢弃
func (s *Source) emitSignal(signal *model.WhaleTransaction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.sigChan <- signal:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// emitError 投递错误，数据源已关闭时丢弃
func (s *Source) emitError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.errChan <- err:
	case <-s.ctx.Done():
	}
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
	return fmt.Sprintf("kafka-source[%s]", s.config.Topic)
}

// handleMessage 处理Kafka消息 - 使用MessageHandler签名
func (s *Source) handleMessage(data []byte) error {
	select {
	case <-s.ctx.Done():
		return fmt.Errorf("上下文已取消")
	default:
	}

	// 使用DecodeEvent解析二进制消息
	event, err := common.DecodeEvent(data)
	if err != nil {
		err = fmt.Errorf("解析事件数据失败: %w", err)
		s.emitError(err)
		return err
	}

	// 只处理巨鲸交易事件，忽略其他事件类型
	if event.Type != common.WhaleTradeEventType {
		return nil
	}

	tradeEvent, ok := event.InnerEvent.(*common.WhaleTradeEvent)
	if !ok {
		return fmt.Errorf("事件类型与载荷不匹配: %d", event.Type)
	}

	signal := model.WhaleTransactionFromEvent(tradeEvent)
	if err := signal.Validate(); err != nil {
		logger.Warn("丢弃非法信号",
			logger.String("signal_id", signal.ID),
			logger.FieldErr(err))
		return nil
	}

	if !s.emitSignal(signal) {
		return fmt.Errorf("数据源已停止")
	}
	return nil
}
