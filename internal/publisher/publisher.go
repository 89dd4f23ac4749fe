package publisher

import (
	"time"

	"github.com/ninja0404/whale-trader/internal/model"
	"github.com/ninja0404/whale-trader/pkg/logger"
)

// EventKind 仓位事件类型
type EventKind string

const (
	EventPositionOpened EventKind = "position_opened"
	EventPositionClosed EventKind = "position_closed"
	EventOpenFailed     EventKind = "open_failed"
)

// PositionEvent 仓位生命周期事件，开平仓后推送给所有发布器
type PositionEvent struct {
	Kind      EventKind       `json:"kind"`
	Position  *model.Position `json:"position"`
	Timestamp time.Time       `json:"timestamp"`
}

// PublisherConfig 发布器配置接口
type PublisherConfig interface {
	GetFeishuWebhookURL() string
	GetKafkaTopic() string
}

// Publisher 仓位事件发布器接口
type Publisher interface {
	// Publish 发布事件
	Publish(event *PositionEvent) error

	// GetType 获取发布器类型
	GetType() string

	// Close 关闭发布器
	Close() error
}

// Manager 仓位事件发布管理器
type Manager struct {
	publishers []Publisher
	config     PublisherConfig
}

// NewManager 创建发布管理器
func NewManager(config PublisherConfig) *Manager {
	m := &Manager{
		publishers: make([]Publisher, 0),
		config:     config,
	}
	m.registerDefaultPublishers()
	return m
}

// registerDefaultPublishers 注册默认发布器
func (m *Manager) registerDefaultPublishers() {
	// 注册日志发布器
	m.AddPublisher(&LogPublisher{})

	if m.config == nil {
		logger.Warn("⚠️ Publisher配置为空")
		return
	}

	// 注册飞书发布器
	if webhookURL := m.config.GetFeishuWebhookURL(); webhookURL != "" {
		m.AddPublisher(NewFeishuPublisher(webhookURL))
	}

	// 注册Kafka发布器
	if topic := m.config.GetKafkaTopic(); topic != "" {
		m.AddPublisher(NewKafkaPublisher(topic))
	}
}

// AddPublisher 添加发布器
func (m *Manager) AddPublisher(publisher Publisher) {
	m.publishers = append(m.publishers, publisher)
	logger.Info("📤 注册事件发布器", logger.String("type", publisher.GetType()))
}

// Publish 把事件推给所有发布器，单个发布器失败不影响其余
func (m *Manager) Publish(event *PositionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, p := range m.publishers {
		if err := p.Publish(event); err != nil {
			logger.Error("发布仓位事件失败",
				logger.String("publisher", p.GetType()),
				logger.String("kind", string(event.Kind)),
				logger.FieldErr(err))
		}
	}
}

// Close 关闭所有发布器
func (m *Manager) Close() {
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			logger.Error("关闭发布器失败",
				logger.String("publisher", p.GetType()),
				logger.FieldErr(err))
		}
	}
}
