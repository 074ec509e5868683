package kafka

import (
	"context"
	"errors"
	"io"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/sourcegraph/conc"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// MessageHandler is a function that processes Kafka messages
type MessageHandler func(context.Context, *Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer wraps a Kafka reader. Offsets are committed only after the
// handler succeeds.
type Consumer struct {
	reader messageReader
	topic  string
	log    *logger.Logger
}

func newConsumer(reader messageReader, topic string) *Consumer {
	return &Consumer{
		reader: reader,
		topic:  topic,
		log:    logger.GetLogger("kafka.consumer"),
	}
}

// ConsumeMessages fetches messages and passes them to handler until ctx is
// cancelled or the reader is closed
func (c *Consumer) ConsumeMessages(ctx context.Context, handler MessageHandler) error {
	c.log.Infof("Starting consumer for topic: %s", c.topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Infof("Context cancelled, stopping consumer for topic: %s", c.topic)
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.log.Errorf("Error fetching message from %s: %v", c.topic, err)
			return err
		}

		if err := handler(ctx, fromKafka(m)); err != nil {
			c.log.Errorf("Error processing message at offset %d: %v", m.Offset, err)
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.Errorf("Error committing offset %d: %v", m.Offset, err)
		}
	}
}

// Start runs workers consumers sharing the reader and blocks until all of
// them have stopped
func (c *Consumer) Start(ctx context.Context, workers int, handler MessageHandler) {
	var wg conc.WaitGroup
	for range max(workers, 1) {
		wg.Go(func() {
			if err := c.ConsumeMessages(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Errorf("Consumer exited with error: %v", err)
			}
		})
	}
	wg.Wait()
}

// Close closes the consumer
func (c *Consumer) Close() error {
	c.log.Infof("Closing consumer for topic %s", c.topic)
	return c.reader.Close()
}

func fromKafka(m kafkago.Message) *Message {
	msg := &Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Timestamp: m.Time,
	}

	if len(m.Headers) > 0 {
		msg.Headers = make([]MessageHeader, len(m.Headers))
		for i, h := range m.Headers {
			msg.Headers[i] = MessageHeader{
				Key:   h.Key,
				Value: h.Value,
			}
		}
	}

	return msg
}
