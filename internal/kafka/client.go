package kafka

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/rzzdr/option-pricing-engine/pkg/utils/logger"
)

// Client configuration options
type Config struct {
	Brokers           []string
	GroupID           string
	AutoOffsetReset   string
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	ProducerAcks      string
	CompressionType   string
	BatchSize         int
	LingerMs          int
	RetryBackoff      time.Duration
	MaxRetries        int
}

// Message represents a Kafka message
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   []MessageHeader
}

// MessageHeader represents a Kafka message header
type MessageHeader struct {
	Key   string
	Value []byte
}

// Header returns the value of the named header, or nil
func (m *Message) Header(key string) []byte {
	for _, h := range m.Headers {
		if h.Key == key {
			return h.Value
		}
	}
	return nil
}

// Client creates producers and consumers that share one configuration
type Client struct {
	config *Config
	log    *logger.Logger
}

// NewClient creates a new Kafka client
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka client requires at least one broker")
	}

	return &Client{
		config: config,
		log:    logger.GetLogger("kafka.client"),
	}, nil
}

// NewProducer creates a new Kafka producer for topic
func (c *Client) NewProducer(topic string) *Producer {
	writer := &kafkago.Writer{
		Addr:            kafkago.TCP(c.config.Brokers...),
		Topic:           topic,
		Balancer:        &kafkago.Hash{},
		RequiredAcks:    requiredAcks(c.config.ProducerAcks),
		Compression:     compression(c.config.CompressionType),
		BatchSize:       max(c.config.BatchSize, 1),
		BatchTimeout:    time.Duration(c.config.LingerMs) * time.Millisecond,
		MaxAttempts:     max(c.config.MaxRetries, 1),
		WriteBackoffMin: c.config.RetryBackoff,
	}

	return newProducer(writer, topic)
}

// NewConsumer creates a new consumer group member reading topic
func (c *Client) NewConsumer(topic string) *Consumer {
	startOffset := kafkago.FirstOffset
	if strings.EqualFold(c.config.AutoOffsetReset, "latest") {
		startOffset = kafkago.LastOffset
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           c.config.Brokers,
		GroupID:           c.config.GroupID,
		Topic:             topic,
		StartOffset:       startOffset,
		SessionTimeout:    c.config.SessionTimeout,
		HeartbeatInterval: c.config.HeartbeatInterval,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           500 * time.Millisecond,
	})

	return newConsumer(reader, topic)
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Brokers:           []string{"localhost:9092"},
		GroupID:           "option-pricing-engine",
		AutoOffsetReset:   "earliest",
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		ProducerAcks:      "all",
		CompressionType:   "snappy",
		BatchSize:         100,
		LingerMs:          5,
		RetryBackoff:      100 * time.Millisecond,
		MaxRetries:        3,
	}
}

// CreateTopic creates a new Kafka topic through the cluster controller
func (c *Client) CreateTopic(ctx context.Context, topic string, partitions int, replicationFactor int) error {
	dialer := &kafkago.Dialer{Timeout: 10 * time.Second}

	conn, err := dialer.DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find controller: %w", err)
	}

	controllerConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to connect to controller: %w", err)
	}
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}

	c.log.Infof("Created topic %s with %d partitions", topic, partitions)
	return nil
}

func requiredAcks(acks string) kafkago.RequiredAcks {
	switch strings.ToLower(acks) {
	case "0", "none":
		return kafkago.RequireNone
	case "1", "one", "leader":
		return kafkago.RequireOne
	default:
		return kafkago.RequireAll
	}
}

func compression(name string) kafkago.Compression {
	switch strings.ToLower(name) {
	case "gzip":
		return kafkago.Gzip
	case "snappy":
		return kafkago.Snappy
	case "lz4":
		return kafkago.Lz4
	case "zstd":
		return kafkago.Zstd
	default:
		return 0
	}
}
