package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/circuit"
	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer is a wrapper around the Kafka writer
type Producer struct {
	writer  messageWriter
	topic   string
	breaker *circuit.Breaker
	log     *logger.Logger
}

func newProducer(writer messageWriter, topic string) *Producer {
	return &Producer{
		writer: writer,
		topic:  topic,
		log:    logger.GetLogger("kafka.producer"),
	}
}

// WithBreaker routes every write through b. Writes fail fast with
// circuit.ErrOpen while the breaker is open.
func (p *Producer) WithBreaker(b *circuit.Breaker) *Producer {
	p.breaker = b
	return p
}

// ProduceMessage produces a message to the topic and waits for it to be
// acknowledged
func (p *Producer) ProduceMessage(ctx context.Context, key []byte, value []byte, headers []MessageHeader) error {
	var kafkaHeaders []kafkago.Header
	if len(headers) > 0 {
		kafkaHeaders = make([]kafkago.Header, len(headers))
		for i, h := range headers {
			kafkaHeaders[i] = kafkago.Header{
				Key:   h.Key,
				Value: h.Value,
			}
		}
	}

	msg := kafkago.Message{
		Key:     key,
		Value:   value,
		Headers: kafkaHeaders,
		Time:    time.Now(),
	}

	write := func() error { return p.writer.WriteMessages(ctx, msg) }

	var err error
	if p.breaker != nil {
		err = p.breaker.Execute(write)
	} else {
		err = write()
	}
	if err != nil {
		p.log.Errorf("Failed to produce message to %s: %v", p.topic, err)
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

// ProduceJSON marshals value and produces it under key
func (p *Producer) ProduceJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	headers := []MessageHeader{{Key: "content-type", Value: []byte("application/json")}}
	return p.ProduceMessage(ctx, []byte(key), data, headers)
}

// Topic returns the topic this producer writes to
func (p *Producer) Topic() string {
	return p.topic
}

// Close flushes pending messages and closes the producer
func (p *Producer) Close() error {
	p.log.Infof("Closing producer for topic %s", p.topic)
	return p.writer.Close()
}
