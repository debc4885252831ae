// Package events publishes ledger events to Kafka
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
)

const (
	eventTypeStockChanged = "stock_changed"
	eventTypeLowStock     = "low_stock_alert"

	writeTimeout = 5 * time.Second
)

// MessageWriter is the part of *kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements inventory.EventPublisher on Kafka topics
// Kafkaトピックへのイベント発行者
type KafkaPublisher struct {
	writer        MessageWriter
	stockTopic    string
	lowStockTopic string
	logger        *zap.Logger
}

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to the given brokers.
// The writer has no fixed topic; every message names its own.
// 新しいKafkaイベント発行者を作成
func NewKafkaPublisher(brokers []string, stockTopic, lowStockTopic string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaPublisherWithWriter(writer, stockTopic, lowStockTopic, logger)
}

// NewKafkaPublisherWithWriter creates a publisher on an existing writer
func NewKafkaPublisherWithWriter(writer MessageWriter, stockTopic, lowStockTopic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		writer:        writer,
		stockTopic:    stockTopic,
		lowStockTopic: lowStockTopic,
		logger:        logger,
	}
}

// PublishStockChanged writes a stock change keyed by product ID
// 在庫変更イベントを発行（キーは商品ID）
func (p *KafkaPublisher) PublishStockChanged(ctx context.Context, event inventory.StockChangedEvent) error {
	return p.publish(ctx, p.stockTopic, eventTypeStockChanged, event.ProductID, event.Timestamp, event)
}

// PublishLowStockAlert writes a low stock alert keyed by product ID
// 低在庫アラートイベントを発行
func (p *KafkaPublisher) PublishLowStockAlert(ctx context.Context, event inventory.LowStockAlertEvent) error {
	return p.publish(ctx, p.lowStockTopic, eventTypeLowStock, event.ProductID, event.Timestamp, event)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, eventType, key string, at time.Time, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("イベントのエンコードに失敗しました: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "user-id", Value: []byte(inventory.UserFromContext(ctx))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("Kafkaへのイベント書き込みに失敗しました [%s]: %w", topic, err)
	}

	p.logger.Debug("イベント発行完了",
		zap.String("topic", topic),
		zap.String("event_type", eventType),
		zap.String("key", key),
	)
	return nil
}

// Close flushes and closes the writer
// ライターを閉じる
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event
// すべてのイベントを破棄する発行者
type NopPublisher struct{}

var _ inventory.EventPublisher = NopPublisher{}

func (NopPublisher) PublishStockChanged(context.Context, inventory.StockChangedEvent) error {
	return nil
}

func (NopPublisher) PublishLowStockAlert(context.Context, inventory.LowStockAlertEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
