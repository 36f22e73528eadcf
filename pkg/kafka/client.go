// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"suvidha-go/internal/config"
	"suvidha-go/pkg/log"
	"suvidha-go/pkg/tasks"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.KnowledgeIngestTask) error
}

var producer *kafka.Writer

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// InitProducer 初始化 Kafka 生产者。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭生产者。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	return producer.Close()
}

// ProduceIngestTask 发送一个知识库重建任务到 Kafka。
func ProduceIngestTask(ctx context.Context, task tasks.KnowledgeIngestTask) error {
	if producer == nil {
		return errors.New("kafka producer is not initialized")
	}
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.Key()),
		Value: taskBytes,
	})
}

// attemptCounter 记录任务失败次数。Redis 不可用时退化为进程内计数。
type attemptCounter struct {
	rdb   *redis.Client
	mu    sync.Mutex
	local map[string]int64
}

func newAttemptCounter(rdb *redis.Client) *attemptCounter {
	return &attemptCounter{rdb: rdb, local: map[string]int64{}}
}

func attemptsKey(key string) string {
	return fmt.Sprintf("kafka:attempts:%s", key)
}

func (c *attemptCounter) incr(ctx context.Context, key string) (int64, error) {
	if c.rdb == nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.local[key]++
		return c.local[key], nil
	}
	n, err := c.rdb.Incr(ctx, attemptsKey(key)).Result()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Expire(ctx, attemptsKey(key), 24*time.Hour).Err()
	return n, nil
}

func (c *attemptCounter) reset(ctx context.Context, key string) {
	if c.rdb == nil {
		c.mu.Lock()
		delete(c.local, key)
		c.mu.Unlock()
		return
	}
	_ = c.rdb.Del(ctx, attemptsKey(key)).Err()
}

// handler 处理一条消息，返回是否应提交 offset。
type handler struct {
	processor   TaskProcessor
	attempts    *attemptCounter
	maxAttempts int64
	retryDelay  time.Duration
}

// handle 在同一条消息上重试处理，直到成功或失败次数达到 maxAttempts。
// 只有 ctx 被取消时才返回 false，此时 offset 不提交，重启后重新投递。
func (h *handler) handle(ctx context.Context, value []byte) (commit bool) {
	var task tasks.KnowledgeIngestTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("[KafkaConsumer] 无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	key := task.Key()
	var failures int64
	operation := func() error {
		err := h.processor.Process(ctx, task)
		if err == nil {
			return nil
		}
		failures++
		attempts, incErr := h.attempts.incr(ctx, key)
		if incErr != nil {
			log.Warnf("[KafkaConsumer] 失败计数写入失败，使用本地计数: %v", incErr)
			attempts = failures
		}
		log.Errorf("[KafkaConsumer] 处理重建任务失败: task=%s, attempt=%d, err=%v", key, attempts, err)
		if attempts >= h.maxAttempts {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(h.retryDelay), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			log.Warnf("[KafkaConsumer] 消费者停止，任务未完成且不提交 offset: task=%s", key)
			return false
		}
		log.Errorf("[KafkaConsumer] 任务多次失败(>=%d)，提交 offset 终止重试: task=%s", h.maxAttempts, key)
		h.attempts.reset(ctx, key)
		return true
	}

	log.Infof("[KafkaConsumer] 重建任务处理成功: task=%s", key)
	h.attempts.reset(ctx, key)
	return true
}

// messageReader 是 consume 依赖的 kafka.Reader 子集。
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func consume(ctx context.Context, r messageReader, h *handler) {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("[KafkaConsumer] 从 Kafka 读取消息失败", err)
			}
			break
		}
		log.Infof("[KafkaConsumer] 收到 Kafka 消息: offset %d", m.Offset)

		if !h.handle(ctx, m.Value) {
			break
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("[KafkaConsumer] 提交 Kafka 消息 offset 失败: %v", err)
		}
	}

	if err := r.Close(); err != nil {
		log.Errorf("[KafkaConsumer] 关闭 Kafka 消费者失败: %v", err)
	}
}

// StartConsumer 启动一个 Kafka 消费者来处理重建任务，ctx 取消时退出。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, rdb *redis.Client, processor TaskProcessor) {
	maxAttempts := int64(cfg.MaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	h := &handler{
		processor:   processor,
		attempts:    newAttemptCounter(rdb),
		maxAttempts: maxAttempts,
		retryDelay:  cfg.RetryDelay,
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	log.Infof("[KafkaConsumer] 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, h)
}
