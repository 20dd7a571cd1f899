package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LogSink writes every notification to a logger.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("signals")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(_ context.Context, n Notification) error {
	s.log.Info(n.Title(),
		zap.Int64("id", n.ID),
		zap.String("type", n.Type.String()),
		zap.String("symbol", n.Symbol),
		zap.String("strategy", n.StrategyID),
		zap.String("timestamp", n.Key.String()),
		zap.Float64("price", n.Price),
	)
	return nil
}

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes notifications as JSON to a topic, keyed by symbol.
type KafkaSink struct {
	w     messageWriter
	topic string
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka sink requires a topic")
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
		Async:        false,
	})
	return &KafkaSink{w: w, topic: topic}, nil
}

func (s *KafkaSink) Name() string { return "kafka:" + s.topic }

func (s *KafkaSink) Notify(ctx context.Context, n Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Symbol),
		Value: b,
		Time:  n.CreatedAt,
	})
}

func (s *KafkaSink) Close() error { return s.w.Close() }

// Gate only forwards to the wrapped sink while permission is granted, like
// a platform notification API would.
type Gate struct {
	Permission Permission
	Sink       Sink
}

func (g Gate) Name() string { return g.Sink.Name() }

func (g Gate) Notify(ctx context.Context, n Notification) error {
	if g.Permission != PermissionGranted {
		return nil
	}
	return g.Sink.Notify(ctx, n)
}
