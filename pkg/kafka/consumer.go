package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trimline/pkg/logger"

	kafka_config "trimline/pkg/kafka/config"

	"github.com/segmentio/kafka-go"
)

// Consumer reads messages from one topic, hands them to a handler, and
// routes exhausted or permanently failing messages to a DLQ topic.
type Consumer struct {
	reader     *kafka.Reader
	dlqWriter  *kafka.Writer
	topic      string
	groupID    string
	dlqTopic   string
	maxRetries int
	handler    MessageHandler
	log        *logger.Logger
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

func NewConsumer(cfg *kafka_config.Config, topic string, groupID string, dlqTopic string, handler MessageHandler, log *logger.Logger) (*Consumer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	if groupID == "" {
		return nil, fmt.Errorf("group ID cannot be empty")
	}
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       cfg.ConsumerMinBytes,
		MaxBytes:       cfg.ConsumerMaxBytes,
		MaxWait:        cfg.ConsumerMaxWait,
		CommitInterval: cfg.ConsumerCommitInterval,
		StartOffset:    cfg.ConsumerStartOffset,
		Logger:         kafka.LoggerFunc(func(msg string, args ...any) {}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error(fmt.Sprintf("kafka reader: "+msg, args...))
		}),
	})

	consumer := &Consumer{
		reader:     reader,
		topic:      topic,
		groupID:    groupID,
		dlqTopic:   dlqTopic,
		maxRetries: cfg.ConsumerMaxRetries,
		handler:    handler,
		log:        log,
	}

	if dlqTopic != "" {
		consumer.dlqWriter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}

	return consumer, nil
}

// Start consumes until ctx is cancelled or Close is called. It blocks,
// so callers run it in its own goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrConsumerClosed
	}
	c.mu.RUnlock()

	c.wg.Add(1)
	defer c.wg.Done()

	for {
		kafkaMsg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()
			if closed {
				return nil
			}
			c.log.Error("failed to fetch message", "topic", c.topic, "error", err)
			continue
		}

		msg := convertMessage(kafkaMsg)
		c.processMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, kafkaMsg); err != nil {
			c.log.Error("failed to commit message",
				"topic", c.topic,
				"partition", kafkaMsg.Partition,
				"offset", kafkaMsg.Offset,
				"error", err)
		}
	}
}

// processMessage retries the handler in place for transient failures and
// routes anything else to the DLQ. The message is always committed
// afterwards so the partition keeps moving.
func (c *Consumer) processMessage(ctx context.Context, msg Message) {
	var lastErr error

	for {
		lastErr = c.handler(ctx, msg)
		if lastErr == nil {
			return
		}

		if !ShouldRetry(lastErr, msg.GetRetryCount(), c.maxRetries) {
			break
		}
		msg.IncrementRetryCount()
		c.log.Warn("retrying message",
			"topic", c.topic,
			"event_id", msg.Headers[HeaderEventID],
			"retry", msg.GetRetryCount(),
			"error", lastErr)
	}

	c.log.Error("message processing failed",
		"topic", c.topic,
		"event_id", msg.Headers[HeaderEventID],
		"retries", msg.GetRetryCount(),
		"error", lastErr)

	if err := c.sendToDLQ(ctx, msg); err != nil {
		c.log.Error("failed to route message to DLQ",
			"topic", c.topic,
			"dlq_topic", c.dlqTopic,
			"event_id", msg.Headers[HeaderEventID],
			"error", err)
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, msg Message) error {
	if c.dlqWriter == nil {
		return nil
	}

	if msg.Headers == nil {
		msg.Headers = make(map[string]string)
	}
	msg.Headers[HeaderOriginalTopic] = c.topic

	return c.dlqWriter.WriteMessages(ctx, toKafkaMessage(msg))
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	var firstErr error
	if err := c.reader.Close(); err != nil {
		firstErr = err
	}
	c.wg.Wait()

	if c.dlqWriter != nil {
		if err := c.dlqWriter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func convertMessage(kafkaMsg kafka.Message) Message {
	headers := make(map[string]string, len(kafkaMsg.Headers))
	for _, h := range kafkaMsg.Headers {
		headers[h.Key] = string(h.Value)
	}

	return Message{
		Key:       string(kafkaMsg.Key),
		Value:     kafkaMsg.Value,
		Headers:   headers,
		Topic:     kafkaMsg.Topic,
		Partition: kafkaMsg.Partition,
		Offset:    kafkaMsg.Offset,
		Timestamp: kafkaMsg.Time,
	}
}
