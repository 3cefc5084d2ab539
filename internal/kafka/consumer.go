package kafka

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lvdashuaibi/campusvote/config"
	"github.com/lvdashuaibi/campusvote/internal/notify"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer 消费通知消息并交给Mailer投递。
// 多个worker使用同一个消费者组，由Kafka在它们之间分配分区。
type Consumer struct {
	readers []messageReader
	mailer  notify.Mailer
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewConsumer(cfg config.KafkaConfig, mailer notify.Mailer) *Consumer {
	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}

	readers := make([]messageReader, 0, numWorkers)
	for i := 0; i < numWorkers; i++ {
		readers = append(readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		}))
	}
	log.Printf("创建消费者组Reader，GroupID: %s, worker数: %d", cfg.GroupID, numWorkers)

	return newConsumer(readers, mailer)
}

func newConsumer(readers []messageReader, mailer notify.Mailer) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		readers: readers,
		mailer:  mailer,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 启动所有worker
func (c *Consumer) Start() {
	for i, r := range c.readers {
		c.wg.Add(1)
		go func(workerID int, r messageReader) {
			defer c.wg.Done()
			c.consume(workerID, r)
		}(i, r)
	}
	log.Printf("已启动 %d 个通知消费者工作线程", len(c.readers))
}

// consume 单个worker的消费循环。投递失败只记录日志，偏移量照常提交，不做重试。
func (c *Consumer) consume(workerID int, r messageReader) {
	for {
		m, err := r.FetchMessage(c.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || c.ctx.Err() != nil {
				return
			}
			log.Printf("消费者工作线程 #%d 读取消息失败: %v", workerID, err)
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.handle(workerID, m)

		if err := r.CommitMessages(c.ctx, m); err != nil && c.ctx.Err() == nil {
			log.Printf("消费者工作线程 #%d 提交偏移量失败: %v", workerID, err)
		}
	}
}

func (c *Consumer) handle(workerID int, m kafka.Message) {
	n, err := decodeNotification(m)
	if err != nil {
		log.Printf("消费者工作线程 #%d %v", workerID, err)
		return
	}
	if n.Recipient == "" {
		return
	}
	if err := c.mailer.Send(c.ctx, n); err != nil {
		log.Printf("消费者工作线程 #%d 投递通知失败: 类型=%s, 收件人=%s, 错误=%v",
			workerID, n.Kind, n.Recipient, err)
	}
}

// Stop 停止消费
func (c *Consumer) Stop() {
	log.Println("正在停止所有通知消费者工作线程...")
	c.cancel()
	c.wg.Wait()

	for i, r := range c.readers {
		if err := r.Close(); err != nil {
			log.Printf("关闭消费者 #%d 失败: %v", i, err)
		}
	}
	log.Println("所有通知消费者工作线程已停止")
}
