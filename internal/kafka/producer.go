package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/notify"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 将通知写入Kafka，实现 notify.Dispatcher
type Producer struct {
	writer messageWriter
}

func NewProducer(cfg config.KafkaConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" {
		return nil, fmt.Errorf("Kafka配置不完整: brokers=%v, topic=%q", cfg.Brokers, cfg.Topic)
	}

	// 使用Hash分区器，同一收件人的通知进入同一分区，保证顺序
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		// 异步写入，投票请求不等待broker确认
		Async: true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Printf("写入通知消息失败: 条数=%d, 错误=%v", len(messages), err)
			}
		},
	}

	log.Printf("通知生产者已创建: topic=%s, brokers=%v", cfg.Topic, cfg.Brokers)
	return &Producer{writer: writer}, nil
}

// Dispatch 发送通知到Kafka
func (p *Producer) Dispatch(ctx context.Context, n notify.Notification) error {
	msg, err := encodeNotification(n)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送通知消息失败: %w", err)
	}
	return nil
}

// Close 关闭Kafka生产者，会等待异步缓冲区中的消息写完
func (p *Producer) Close() error {
	return p.writer.Close()
}

func encodeNotification(n notify.Notification) (kafka.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("序列化通知失败: %w", err)
	}
	return kafka.Message{
		Key:   []byte(n.Recipient),
		Value: data,
		Time:  n.CreatedAt,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}, nil
}

func decodeNotification(m kafka.Message) (notify.Notification, error) {
	var n notify.Notification
	if err := json.Unmarshal(m.Value, &n); err != nil {
		return n, fmt.Errorf("解析通知消息失败: %w", err)
	}
	return n, nil
}
