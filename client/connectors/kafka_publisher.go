/*
 * @module client/connectors/kafka_publisher
 * @description Kafka评估结果发布器，将单条评估结果与批量汇总写入下游消费的评估事件主题
 * @architecture 适配器模式 - 封装第三方Kafka客户端，实现评估服务的结果外发接口
 * @documentReference ai_docs/rule_evaluation_req.md
 * @stateFlow 连接建立 -> 结果序列化 -> 按主题发送 -> 连接关闭
 * @rules 外发失败只返回错误不重试，由调用方决定降级策略；发布器关闭后拒绝发送
 * @dependencies github.com/segmentio/kafka-go, rulehub-service/service/models
 * @refs service/evaluation/evaluation_service.go
 */
package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"rulehub-service/service/models"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisherConfig Kafka发布器配置
type KafkaPublisherConfig struct {
	Brokers      []string      `json:"brokers"`
	ResultTopic  string        `json:"result_topic"`
	SummaryTopic string        `json:"summary_topic"`
	BatchSize    int           `json:"batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	Async        bool          `json:"async"`
}

// DefaultKafkaPublisherConfig 从环境变量构建发布器配置
func DefaultKafkaPublisherConfig() *KafkaPublisherConfig {
	brokers := strings.Split(getEnvWithDefault("EVAL_KAFKA_BROKERS", "localhost:9092"), ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	return &KafkaPublisherConfig{
		Brokers:      brokers,
		ResultTopic:  getEnvWithDefault("EVAL_KAFKA_RESULT_TOPIC", "rulehub.evaluation.results"),
		SummaryTopic: getEnvWithDefault("EVAL_KAFKA_SUMMARY_TOPIC", "rulehub.evaluation.summaries"),
		BatchSize:    100,
		BatchTimeout: time.Second,
		WriteTimeout: 10 * time.Second,
		Async:        false,
	}
}

// KafkaResultPublisher Kafka评估结果发布器
type KafkaResultPublisher struct {
	config  *KafkaPublisherConfig
	writers map[string]*kafka.Writer // 按topic分组的生产者
	mutex   sync.RWMutex
	closed  bool
}

// NewKafkaResultPublisher 创建评估结果发布器并初始化各主题的生产者
func NewKafkaResultPublisher(config *KafkaPublisherConfig) *KafkaResultPublisher {
	if config == nil {
		config = DefaultKafkaPublisherConfig()
	}

	publisher := &KafkaResultPublisher{
		config:  config,
		writers: make(map[string]*kafka.Writer),
	}

	for _, topic := range []string{config.ResultTopic, config.SummaryTopic} {
		writer := &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        config.Async,
		}
		if config.BatchSize > 0 {
			writer.BatchSize = config.BatchSize
		}
		if config.BatchTimeout > 0 {
			writer.BatchTimeout = config.BatchTimeout
		}
		publisher.writers[topic] = writer
	}

	return publisher
}

// PublishResult 发布单条评估结果，消息按规则ID分区
func (p *KafkaResultPublisher) PublishResult(ctx context.Context, result *models.EvaluationResult) error {
	key := ""
	if result != nil && result.Rule != nil {
		key = result.Rule.ID
	}
	return p.produce(ctx, p.config.ResultTopic, key, result)
}

// PublishBatchSummary 发布批量评估汇总
func (p *KafkaResultPublisher) PublishBatchSummary(ctx context.Context, batchID string, summary *models.BatchSummary) error {
	envelope := struct {
		BatchID string               `json:"batch_id"`
		Summary *models.BatchSummary `json:"summary"`
	}{BatchID: batchID, Summary: summary}

	return p.produce(ctx, p.config.SummaryTopic, batchID, envelope)
}

// produce 序列化并发送一条消息
func (p *KafkaResultPublisher) produce(ctx context.Context, topic, key string, value interface{}) error {
	p.mutex.RLock()
	writer, exists := p.writers[topic]
	closed := p.closed
	p.mutex.RUnlock()

	if closed {
		return fmt.Errorf("发布器已关闭")
	}
	if !exists {
		return fmt.Errorf("找不到topic的生产者: %s", topic)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	writeCtx := ctx
	if p.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, p.config.WriteTimeout)
		defer cancel()
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}
	if err := writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("发送消息失败 topic=%s: %w", topic, err)
	}
	return nil
}

// Close 关闭全部生产者
func (p *KafkaResultPublisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("关闭生产者失败 topic=%s: %w", topic, err)
		}
	}
	return firstErr
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
