package publisher

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/ninja0404/whale-trader/pkg/mq/kafka"
)

// KafkaPublisher Kafka发布器，把仓位事件以JSON写入下游topic
// 依赖应用启动时已完成的全局生产者初始化
type KafkaPublisher struct {
	topic string
}

// NewKafkaPublisher 创建Kafka发布器
func NewKafkaPublisher(topic string) *KafkaPublisher {
	return &KafkaPublisher{
		topic: topic,
	}
}

func (p *KafkaPublisher) GetType() string {
	return "kafka"
}

func (p *KafkaPublisher) Publish(event *PositionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "序列化仓位事件失败")
	}
	// 以代币地址为key，同代币事件保序
	return kafka.SendMessageWithKey(p.topic, event.Position.TokenAddress, data)
}

func (p *KafkaPublisher) Close() error {
	return nil
}
