package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer feeds trade events from a Kafka topic into the Ingestor.
type Consumer struct {
	reader     messageReader
	ingestor   *Ingestor
	logger     *zap.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewConsumer(brokers []string, groupID, topic string, ingestor *Ingestor, logger *zap.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	logger.Info("Kafka consumer created",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic),
		zap.String("group_id", groupID))
	return newConsumer(reader, ingestor, logger), nil
}

func newConsumer(reader messageReader, ingestor *Ingestor, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		ingestor:   ingestor,
		logger:     logger,
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run consumes until ctx is canceled. Offsets are committed once a message is
// handled or found to be permanently unprocessable. Transient failures are
// retried in place so later offsets are never committed past them.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		backoff := c.minBackoff
		for {
			err := c.handleMessage(ctx, msg)
			if err == nil {
				break
			}
			c.logger.Error("Trade ingestion failed, retrying",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.maxBackoff)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handleMessage returns an error only for failures worth retrying.
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var ev TradeEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.logger.Warn("Skipping malformed trade event",
			zap.Int64("offset", msg.Offset),
			zap.ByteString("payload", msg.Value),
			zap.Error(err))
		return nil
	}
	if ev.Source == "" {
		ev.Source = "kafka"
	}

	res, err := c.ingestor.Ingest(ctx, ev)
	if errors.Is(err, ErrInvalidEvent) || errors.Is(err, ErrUnknownAccount) {
		c.logger.Warn("Skipping trade event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}

	c.logger.Debug("Trade ingested",
		zap.Uint("trade_id", res.TradeID),
		zap.Bool("created", res.Created),
		zap.String("settlement", string(res.Settlement.Outcome)))
	return nil
}
